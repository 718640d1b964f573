package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/perudosmundos/audio-sub003/internal/metrics"
)

// Refetcher reloads the caches the bridge invalidates.
type Refetcher interface {
	RefetchQuestions(slug, lang string)
	RefetchTranscript(slug, lang string)
}

// Bridge subscribes to question and transcript changes for one episode and
// triggers refetches per the dispatch policy. At most one episode is
// subscribed at a time; switching episodes tears the old subscription down
// before the new one is established.
type Bridge struct {
	stream  Stream
	refetch Refetcher
	log     zerolog.Logger

	mu      sync.Mutex
	slug    string
	lang    string // effective language
	cancels []func()
	done    chan struct{}
}

// NewBridge creates an unsubscribed bridge.
func NewBridge(stream Stream, refetch Refetcher, log zerolog.Logger) *Bridge {
	return &Bridge{
		stream:  stream,
		refetch: refetch,
		log:     log.With().Str("component", "realtime-bridge").Logger(),
	}
}

// EffectiveLanguage resolves the language used to scope lookups: the
// episode's own tag, or the viewer's selection for multi-language episodes.
func EffectiveLanguage(episodeLang, viewerLang string) string {
	if episodeLang == "all" {
		return viewerLang
	}
	return episodeLang
}

// SetEpisode rebinds the bridge to an episode. The previous subscription is
// torn down exactly once before the new one is created.
func (b *Bridge) SetEpisode(slug, episodeLang, viewerLang string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	eff := EffectiveLanguage(episodeLang, viewerLang)
	if slug == b.slug && eff == b.lang {
		return
	}

	b.teardownLocked()

	b.slug = slug
	b.lang = eff
	if slug == "" {
		return
	}

	qCh, qCancel := b.stream.Subscribe(Filter{Table: "questions", Slug: slug})
	tCh, tCancel := b.stream.Subscribe(Filter{Table: "transcripts", Slug: slug})
	b.cancels = []func(){qCancel, tCancel}
	b.done = make(chan struct{})

	go b.run(qCh, tCh, slug, eff, b.done)
	b.log.Debug().Str("slug", slug).Str("lang", eff).Msg("subscribed")
}

// Close tears down the active subscription. Idempotent.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.teardownLocked()
	b.slug = ""
	b.lang = ""
}

func (b *Bridge) teardownLocked() {
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
	if b.done != nil {
		close(b.done)
		b.done = nil
	}
}

func (b *Bridge) run(qCh, tCh <-chan ChangeEvent, slug, lang string, done chan struct{}) {
	for {
		select {
		case ev, ok := <-qCh:
			if !ok {
				qCh = nil
				continue
			}
			b.dispatchQuestion(ev, slug, lang)
		case ev, ok := <-tCh:
			if !ok {
				tCh = nil
				continue
			}
			b.dispatchTranscript(ev, slug, lang)
		case <-done:
			return
		}
	}
}

func (b *Bridge) dispatchQuestion(ev ChangeEvent, slug, lang string) {
	if !matchesLanguage(ev, lang) {
		metrics.RealtimeEvents.WithLabelValues("questions", "dropped").Inc()
		return
	}
	metrics.RealtimeEvents.WithLabelValues("questions", "refetch").Inc()
	metrics.Refetches.WithLabelValues("questions").Inc()
	b.refetch.RefetchQuestions(slug, lang)
}

func (b *Bridge) dispatchTranscript(ev ChangeEvent, slug, lang string) {
	if !shouldRefetchTranscript(ev, lang) {
		metrics.RealtimeEvents.WithLabelValues("transcripts", "dropped").Inc()
		return
	}
	metrics.RealtimeEvents.WithLabelValues("transcripts", "refetch").Inc()
	metrics.Refetches.WithLabelValues("transcripts").Inc()
	b.refetch.RefetchTranscript(slug, lang)
}

// shouldRefetchTranscript is the transcript dispatch policy: inserts and
// deletes always refetch; updates refetch only when the status field
// actually changed, so incidental column churn during editing does not
// cause a refetch storm.
func shouldRefetchTranscript(ev ChangeEvent, lang string) bool {
	if !matchesLanguage(ev, lang) {
		return false
	}
	switch ev.Type {
	case "INSERT", "DELETE":
		return true
	case "UPDATE":
		return statusChanged(ev.Old, ev.New)
	}
	return false
}

// matchesLanguage accepts an event whose pre- or post-change record carries
// the effective language.
func matchesLanguage(ev ChangeEvent, lang string) bool {
	return ev.New.Lang == lang || ev.Old.Lang == lang
}

func statusChanged(prev, next Record) bool {
	return prev.Status != next.Status
}
