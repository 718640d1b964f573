package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/perudosmundos/audio-sub003/internal/metrics"
)

// Router dispatches storage operations to the backend that owns the file.
// Uploads go to a single configured target; delete and URL derivation follow
// the provider tag persisted with each file.
type Router struct {
	primary Backend
	legacy  Backend
	target  Backend
	log     zerolog.Logger
}

// NewRouter wires the two backends. uploadTarget selects where new files
// land; the historical behavior is the legacy backend, kept until the R2
// migration completes.
func NewRouter(primary, legacy Backend, uploadTarget Provider, log zerolog.Logger) *Router {
	r := &Router{
		primary: primary,
		legacy:  legacy,
		log:     log.With().Str("component", "storage-router").Logger(),
	}
	r.target = r.backendFor(uploadTarget)
	r.log.Info().Str("upload_target", string(r.target.Provider())).Msg("storage upload routing configured")
	return r
}

// UploadResult identifies where an uploaded file ended up.
type UploadResult struct {
	URL      string   `json:"url"`
	Key      string   `json:"key"`
	Bucket   string   `json:"bucket,omitempty"`
	Provider Provider `json:"provider"`
}

// Upload stores a new file on the configured target backend under a
// collision-safe key derived from the original filename.
func (r *Router) Upload(ctx context.Context, filename string, body io.Reader, size int64, contentType string, progress ProgressFunc) (UploadResult, error) {
	key := MakeKey(filename)
	return r.UploadAs(ctx, r.target.Provider(), key, body, size, contentType, progress)
}

// UploadAs stores a file under an explicit key on an explicit backend. Used
// by the retry spool, which must replay to the backend originally chosen.
func (r *Router) UploadAs(ctx context.Context, p Provider, key string, body io.Reader, size int64, contentType string, progress ProgressFunc) (UploadResult, error) {
	backend := r.backendFor(p)
	if err := backend.Upload(ctx, key, body, size, contentType, progress); err != nil {
		metrics.StorageOps.WithLabelValues(string(backend.Provider()), "upload", "error").Inc()
		return UploadResult{}, fmt.Errorf("upload %s: %w", key, err)
	}
	metrics.StorageOps.WithLabelValues(string(backend.Provider()), "upload", "ok").Inc()
	return UploadResult{
		URL:      backend.PublicURL(key, ""),
		Key:      key,
		Provider: backend.Provider(),
	}, nil
}

// DeleteResult is the typed outcome of a delete: failures become a message
// rather than a propagated error.
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Delete removes (key, bucket) from the backend named by the persisted
// provider tag. A file that is already gone counts as success.
func (r *Router) Delete(ctx context.Context, key, bucket, providerTag string) DeleteResult {
	backend := r.backendFor(ParseProvider(providerTag))
	err := backend.Delete(ctx, key, bucket)
	switch {
	case err == nil:
		metrics.StorageOps.WithLabelValues(string(backend.Provider()), "delete", "ok").Inc()
		return DeleteResult{Success: true}
	case errors.Is(err, ErrNotExist):
		metrics.StorageOps.WithLabelValues(string(backend.Provider()), "delete", "ok").Inc()
		return DeleteResult{Success: true, Message: "already deleted"}
	default:
		metrics.StorageOps.WithLabelValues(string(backend.Provider()), "delete", "error").Inc()
		r.log.Warn().Err(err).Str("key", key).Str("provider", string(backend.Provider())).Msg("delete failed")
		return DeleteResult{Success: false, Message: err.Error()}
	}
}

// PublicURL derives the public URL for a stored file. Pure dispatch on the
// provider tag, no network.
func (r *Router) PublicURL(key, bucket, providerTag string) string {
	return r.backendFor(ParseProvider(providerTag)).PublicURL(key, bucket)
}

// ExistsResult is the typed outcome of a legacy-backend existence probe.
type ExistsResult struct {
	Exists  bool   `json:"exists"`
	FileURL string `json:"file_url,omitempty"`
	Bucket  string `json:"bucket,omitempty"`
}

// CheckExists probes the legacy backend for a file stored under its original
// name. New uploads never pre-exist there, so the primary is not probed.
// Probe failures degrade to "not found" so callers can proceed.
func (r *Router) CheckExists(ctx context.Context, filename string) ExistsResult {
	exists, err := r.legacy.Exists(ctx, filename)
	if err != nil {
		metrics.StorageOps.WithLabelValues(string(r.legacy.Provider()), "exists", "error").Inc()
		r.log.Warn().Err(err).Str("filename", filename).Msg("existence probe failed, treating as absent")
		return ExistsResult{Exists: false}
	}
	metrics.StorageOps.WithLabelValues(string(r.legacy.Provider()), "exists", "ok").Inc()
	if !exists {
		return ExistsResult{Exists: false}
	}
	return ExistsResult{Exists: true, FileURL: r.legacy.PublicURL(filename, "")}
}

// ConnectionsResult reports independent health checks of both backends.
type ConnectionsResult struct {
	PrimaryOK   bool   `json:"primary_ok"`
	SecondaryOK bool   `json:"secondary_ok"`
	BothOK      bool   `json:"both_ok"`
	Message     string `json:"message"`
}

// TestConnections pings both backends concurrently. One backend failing
// never aborts the other's check.
func (r *Router) TestConnections(ctx context.Context) ConnectionsResult {
	var (
		wg          sync.WaitGroup
		primaryErr  error
		secondErr   error
	)

	ping := func(b Backend, out *error) {
		defer wg.Done()
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		*out = b.Ping(pingCtx)
	}

	wg.Add(2)
	go ping(r.primary, &primaryErr)
	go ping(r.legacy, &secondErr)
	wg.Wait()

	res := ConnectionsResult{
		PrimaryOK:   primaryErr == nil,
		SecondaryOK: secondErr == nil,
	}
	res.BothOK = res.PrimaryOK && res.SecondaryOK

	var parts []string
	if primaryErr != nil {
		parts = append(parts, fmt.Sprintf("%s: %v", r.primary.Provider(), primaryErr))
	}
	if secondErr != nil {
		parts = append(parts, fmt.Sprintf("%s: %v", r.legacy.Provider(), secondErr))
	}
	if len(parts) == 0 {
		res.Message = "all backends reachable"
	} else {
		res.Message = strings.Join(parts, "; ")
	}
	return res
}

// Target reports the provider new uploads are routed to.
func (r *Router) Target() Provider {
	return r.target.Provider()
}

func (r *Router) backendFor(p Provider) Backend {
	if p == ProviderHostinger {
		return r.legacy
	}
	return r.primary
}

// MakeKey builds a collision-safe object key from the original filename.
func MakeKey(filename string) string {
	base := strings.ToLower(strings.TrimSpace(filename))
	base = strings.ReplaceAll(base, " ", "_")
	return uuid.NewString()[:8] + "-" + base
}
