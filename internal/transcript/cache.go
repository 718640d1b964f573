package transcript

import (
	"sync"

	"github.com/rs/zerolog"
)

// State is the load state of a cached transcript.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Cache holds the transcript for the episode a view is currently bound to.
// Results arriving for a different (slug, lang) than the current binding are
// discarded, so stale in-flight fetches can never clobber fresh state.
type Cache struct {
	mu    sync.Mutex
	slug  string
	lang  string
	state State
	data  *Transcript
	err   error
	log   zerolog.Logger
}

// NewCache creates an empty transcript cache.
func NewCache(log zerolog.Logger) *Cache {
	return &Cache{log: log.With().Str("component", "transcript-cache").Logger()}
}

// Bind points the cache at a new (slug, lang) and resets to Empty.
// Binding the same identity is a no-op.
func (c *Cache) Bind(slug, lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slug == slug && c.lang == lang {
		return
	}
	c.slug = slug
	c.lang = lang
	c.state = StateEmpty
	c.data = nil
	c.err = nil
}

// BeginLoad transitions Empty or Ready to Loading. Returns false if a load
// is already in flight.
func (c *Cache) BeginLoad() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateLoading {
		return false
	}
	c.state = StateLoading
	return true
}

// SetRaw normalizes and stores a raw payload for (slug, lang). The result is
// discarded when the cache has since been bound to a different identity.
func (c *Cache) SetRaw(slug, lang string, raw RawPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slug != c.slug || lang != c.lang {
		c.log.Debug().Str("slug", slug).Str("lang", lang).Msg("discarding stale transcript result")
		return
	}
	c.data = Normalize(slug, lang, raw)
	c.state = StateReady
	c.err = nil
}

// SetError marks the current load failed. Stale errors are discarded the
// same way stale results are.
func (c *Cache) SetError(slug, lang string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slug != c.slug || lang != c.lang {
		return
	}
	c.state = StateFailed
	c.err = err
}

// Get returns the current state and transcript. The transcript is nil unless
// state is Ready, and may be nil even then (episode has no transcript).
func (c *Cache) Get() (State, *Transcript, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.data, c.err
}
