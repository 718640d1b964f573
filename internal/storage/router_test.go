package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// fakeBackend records calls and returns scripted results.
type fakeBackend struct {
	provider  Provider
	uploads   []string
	deletes   []string
	uploadErr error
	deleteErr error
	existsVal bool
	existsErr error
	pingErr   error
}

func (f *fakeBackend) Upload(ctx context.Context, key string, r io.Reader, size int64, ct string, progress ProgressFunc) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	io.Copy(io.Discard, r)
	f.uploads = append(f.uploads, key)
	if progress != nil {
		progress(100)
	}
	return nil
}

func (f *fakeBackend) Delete(ctx context.Context, key, bucket string) error {
	f.deletes = append(f.deletes, key)
	return f.deleteErr
}

func (f *fakeBackend) PublicURL(key, bucket string) string {
	return "https://" + string(f.provider) + ".example.com/" + key
}

func (f *fakeBackend) Exists(ctx context.Context, filename string) (bool, error) {
	return f.existsVal, f.existsErr
}

func (f *fakeBackend) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeBackend) Provider() Provider { return f.provider }

func newTestRouter(target Provider) (*Router, *fakeBackend, *fakeBackend) {
	primary := &fakeBackend{provider: ProviderR2}
	legacy := &fakeBackend{provider: ProviderHostinger}
	return NewRouter(primary, legacy, target, zerolog.Nop()), primary, legacy
}

// ── ParseProvider ────────────────────────────────────────────────────

func TestParseProvider(t *testing.T) {
	cases := []struct {
		tag  string
		want Provider
	}{
		{"r2", ProviderR2},
		{"hostinger", ProviderHostinger},
		{"HOSTINGER", ProviderHostinger},
		{" Hostinger ", ProviderHostinger},
		{"R2", ProviderR2},
		{"", ProviderR2},
		{"dropbox", ProviderR2}, // unrecognized routes to primary
	}
	for _, tc := range cases {
		if got := ParseProvider(tc.tag); got != tc.want {
			t.Errorf("ParseProvider(%q) = %v, want %v", tc.tag, got, tc.want)
		}
	}
}

// ── Upload routing ───────────────────────────────────────────────────

func TestRouterUpload(t *testing.T) {
	t.Run("routes_to_configured_target", func(t *testing.T) {
		r, primary, legacy := newTestRouter(ProviderHostinger)
		res, err := r.Upload(context.Background(), "Episode One.mp3", strings.NewReader("data"), 4, "audio/mpeg", nil)
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		if len(legacy.uploads) != 1 || len(primary.uploads) != 0 {
			t.Errorf("uploads: primary=%d legacy=%d, want legacy only", len(primary.uploads), len(legacy.uploads))
		}
		if res.Provider != ProviderHostinger {
			t.Errorf("Provider = %v, want hostinger", res.Provider)
		}
		if !strings.HasSuffix(res.Key, "-episode_one.mp3") {
			t.Errorf("Key = %q, want sanitized filename suffix", res.Key)
		}
		if res.URL == "" {
			t.Error("URL is empty")
		}
	})

	t.Run("r2_target", func(t *testing.T) {
		r, primary, legacy := newTestRouter(ProviderR2)
		if _, err := r.Upload(context.Background(), "a.mp3", strings.NewReader("x"), 1, "audio/mpeg", nil); err != nil {
			t.Fatalf("Upload: %v", err)
		}
		if len(primary.uploads) != 1 || len(legacy.uploads) != 0 {
			t.Errorf("uploads: primary=%d legacy=%d, want primary only", len(primary.uploads), len(legacy.uploads))
		}
	})

	t.Run("backend_failure_propagates", func(t *testing.T) {
		r, primary, _ := newTestRouter(ProviderR2)
		primary.uploadErr = errors.New("network down")
		if _, err := r.Upload(context.Background(), "a.mp3", strings.NewReader("x"), 1, "audio/mpeg", nil); err == nil {
			t.Error("expected error from failed upload")
		}
	})
}

// ── Delete dispatch ──────────────────────────────────────────────────

func TestRouterDelete(t *testing.T) {
	t.Run("dispatches_on_provider_tag", func(t *testing.T) {
		r, primary, legacy := newTestRouter(ProviderR2)
		r.Delete(context.Background(), "k", "b", "hostinger")
		if len(legacy.deletes) != 1 || len(primary.deletes) != 0 {
			t.Errorf("deletes: primary=%d legacy=%d, want legacy only", len(primary.deletes), len(legacy.deletes))
		}
	})

	t.Run("mixed_case_tag", func(t *testing.T) {
		r, _, legacy := newTestRouter(ProviderR2)
		r.Delete(context.Background(), "k", "b", "HOSTINGER")
		if len(legacy.deletes) != 1 {
			t.Error("mixed-case tag did not route to legacy backend")
		}
	})

	t.Run("missing_object_is_success", func(t *testing.T) {
		r, _, legacy := newTestRouter(ProviderR2)
		legacy.deleteErr = ErrNotExist
		res := r.Delete(context.Background(), "k", "b", "hostinger")
		if !res.Success {
			t.Errorf("Delete of missing object = %+v, want success", res)
		}
	})

	t.Run("real_failure_reported_not_thrown", func(t *testing.T) {
		r, primary, _ := newTestRouter(ProviderR2)
		primary.deleteErr = errors.New("permission denied")
		res := r.Delete(context.Background(), "k", "b", "r2")
		if res.Success || res.Message == "" {
			t.Errorf("Delete = %+v, want failure with message", res)
		}
	})
}

// ── PublicURL dispatch ───────────────────────────────────────────────

func TestRouterPublicURL(t *testing.T) {
	r, _, _ := newTestRouter(ProviderR2)

	if got := r.PublicURL("k", "b", "hostinger"); !strings.Contains(got, "hostinger") {
		t.Errorf("PublicURL hostinger = %q", got)
	}
	// Mixed case routes identically.
	if r.PublicURL("k", "b", "HOSTINGER") != r.PublicURL("k", "b", "hostinger") {
		t.Error("mixed-case provider tag routed differently")
	}
	if got := r.PublicURL("k", "b", "r2"); !strings.Contains(got, "r2") {
		t.Errorf("PublicURL r2 = %q", got)
	}
}

// ── CheckExists ──────────────────────────────────────────────────────

func TestRouterCheckExists(t *testing.T) {
	t.Run("found_on_legacy", func(t *testing.T) {
		r, _, legacy := newTestRouter(ProviderR2)
		legacy.existsVal = true
		res := r.CheckExists(context.Background(), "old.mp3")
		if !res.Exists || res.FileURL == "" {
			t.Errorf("CheckExists = %+v, want exists with url", res)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		r, _, _ := newTestRouter(ProviderR2)
		res := r.CheckExists(context.Background(), "new.mp3")
		if res.Exists {
			t.Errorf("CheckExists = %+v, want not exists", res)
		}
	})

	t.Run("probe_failure_degrades_to_absent", func(t *testing.T) {
		r, _, legacy := newTestRouter(ProviderR2)
		legacy.existsErr = errors.New("connection refused")
		res := r.CheckExists(context.Background(), "x.mp3")
		if res.Exists {
			t.Errorf("CheckExists = %+v, want degraded absent", res)
		}
	})
}

// ── TestConnections ──────────────────────────────────────────────────

func TestRouterTestConnections(t *testing.T) {
	t.Run("both_ok", func(t *testing.T) {
		r, _, _ := newTestRouter(ProviderR2)
		res := r.TestConnections(context.Background())
		if !res.PrimaryOK || !res.SecondaryOK || !res.BothOK {
			t.Errorf("TestConnections = %+v, want all ok", res)
		}
	})

	t.Run("one_failure_does_not_abort_other", func(t *testing.T) {
		r, primary, _ := newTestRouter(ProviderR2)
		primary.pingErr = errors.New("timeout")
		res := r.TestConnections(context.Background())
		if res.PrimaryOK {
			t.Error("PrimaryOK = true, want false")
		}
		if !res.SecondaryOK {
			t.Error("SecondaryOK = false, want true despite primary failure")
		}
		if res.BothOK {
			t.Error("BothOK = true, want false")
		}
		if !strings.Contains(res.Message, "timeout") {
			t.Errorf("Message = %q, want failure detail", res.Message)
		}
	})
}

// ── Progress reporting ───────────────────────────────────────────────

func TestProgressReaderMonotonic(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 1000)
	var seen []int
	r := newProgressReader(bytes.NewReader(data), int64(len(data)), func(pct int) {
		seen = append(seen, pct)
	})

	buf := make([]byte, 64)
	for {
		if _, err := r.Read(buf); err != nil {
			break
		}
	}

	if len(seen) == 0 {
		t.Fatal("no progress reported")
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Fatalf("progress not strictly increasing: %v", seen)
		}
	}
	if last := seen[len(seen)-1]; last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
}
