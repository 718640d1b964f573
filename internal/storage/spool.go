package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/perudosmundos/audio-sub003/internal/metrics"
)

// Spool parks uploads that failed against their backend and replays them in
// the background. Each entry is a payload file plus a JSON sidecar naming
// the backend, key and content type. New entries are picked up through
// fsnotify; a periodic rescan catches anything dropped across a restart.
type Spool struct {
	dir      string
	router   *Router
	interval time.Duration
	log      zerolog.Logger

	watcher *fsnotify.Watcher
	stop    chan struct{}
	once    sync.Once
}

type spoolMeta struct {
	Provider    Provider `json:"provider"`
	Key         string   `json:"key"`
	ContentType string   `json:"content_type"`
	ParkedAt    string   `json:"parked_at"`
}

// NewSpool creates a spool rooted at dir.
func NewSpool(dir string, router *Router, log zerolog.Logger) *Spool {
	return &Spool{
		dir:      dir,
		router:   router,
		interval: 5 * time.Minute,
		log:      log.With().Str("component", "upload-spool").Logger(),
		stop:     make(chan struct{}),
	}
}

// Park stores a failed upload for later replay. Payload and sidecar are
// written atomically (temp file + rename) so a half-written entry is never
// picked up.
func (s *Spool) Park(p Provider, key string, data []byte, contentType string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir spool: %w", err)
	}

	id := uuid.NewString()
	if err := atomicWrite(filepath.Join(s.dir, id+".bin"), data); err != nil {
		return err
	}
	meta, _ := json.Marshal(spoolMeta{
		Provider:    p,
		Key:         key,
		ContentType: contentType,
		ParkedAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err := atomicWrite(filepath.Join(s.dir, id+".json"), meta); err != nil {
		os.Remove(filepath.Join(s.dir, id+".bin"))
		return err
	}
	s.log.Info().Str("key", key).Str("provider", string(p)).Msg("upload parked for retry")
	return nil
}

// Start begins watching the spool directory and replaying entries.
func (s *Spool) Start() {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.log.Error().Err(err).Msg("cannot create spool dir, retries disabled")
		return
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Error().Err(err).Msg("fsnotify unavailable, falling back to rescan only")
	} else if err := w.Add(s.dir); err != nil {
		s.log.Error().Err(err).Msg("cannot watch spool dir, falling back to rescan only")
		w.Close()
		w = nil
	}
	s.watcher = w
	go s.loop()
}

// Stop shuts the spool down. Safe to call more than once.
func (s *Spool) Stop() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Spool) loop() {
	if s.watcher != nil {
		defer s.watcher.Close()
	}

	// Replay anything left over from a previous run before watching.
	s.drain()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	if s.watcher != nil {
		events = s.watcher.Events
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			// The sidecar is written last; its arrival means the entry
			// is complete.
			if ev.Op.Has(fsnotify.Create) && strings.HasSuffix(ev.Name, ".json") {
				s.drain()
			}
		case <-ticker.C:
			s.drain()
		case <-s.stop:
			return
		}
	}
}

// drain attempts every complete entry in the spool once.
func (s *Spool) drain() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		s.replay(id)
	}
}

func (s *Spool) replay(id string) {
	metaPath := filepath.Join(s.dir, id+".json")
	binPath := filepath.Join(s.dir, id+".bin")

	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return
	}
	var meta spoolMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		s.log.Warn().Str("id", id).Msg("corrupt spool sidecar, removing")
		os.Remove(metaPath)
		os.Remove(binPath)
		return
	}
	data, err := os.ReadFile(binPath)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	_, err = s.router.UploadAs(ctx, meta.Provider, meta.Key, bytes.NewReader(data), int64(len(data)), meta.ContentType, nil)
	cancel()
	if err != nil {
		metrics.SpoolRetries.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Str("key", meta.Key).Msg("spool retry failed, will try again")
		return
	}

	metrics.SpoolRetries.WithLabelValues("ok").Inc()
	s.log.Info().Str("key", meta.Key).Str("provider", string(meta.Provider)).Msg("spooled upload replayed")
	os.Remove(binPath)
	os.Remove(metaPath)
}

// atomicWrite writes data via a temp file and rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".spool-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
