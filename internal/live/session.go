package live

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/perudosmundos/audio-sub003/internal/metrics"
	"github.com/perudosmundos/audio-sub003/internal/playersync"
	"github.com/perudosmundos/audio-sub003/internal/realtime"
	"github.com/perudosmundos/audio-sub003/internal/transcript"
)

// inbound is a client message: bind to an episode, report a position, or
// report the media duration.
type inbound struct {
	Type   string  `json:"type"`
	Slug   string  `json:"episode_slug,omitempty"`
	Lang   string  `json:"lang,omitempty"`
	Time   float64 `json:"time,omitempty"`
	Paused bool    `json:"paused,omitempty"`
	Value  float64 `json:"value,omitempty"`
}

// outbound is a server message.
type outbound struct {
	Type       string                 `json:"type"`
	Title      string                 `json:"title,omitempty"`
	Utterance  *transcript.Utterance  `json:"utterance,omitempty"`
	State      string                 `json:"state,omitempty"`
	Transcript *transcript.Transcript `json:"transcript,omitempty"`
	Questions  []playersync.Question  `json:"questions,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// refetchKind identifies which dataset the bridge asked to reload.
type refetchKind int

const (
	refetchQuestions refetchKind = iota
	refetchTranscript
)

// session owns all mutable sync state for one connection. The trackers are
// single-goroutine by contract, so every mutation funnels through the
// command channel drained by run.
type session struct {
	h    *Handler
	conn *websocket.Conn
	log  zerolog.Logger

	slug   string
	eff    string
	sync   *playersync.Session
	cache  *transcript.Cache
	bridge *realtime.Bridge

	in        chan inbound
	refetches chan refetchKind
	out       chan outbound
	closed    chan struct{}
}

func newSession(h *Handler, conn *websocket.Conn) *session {
	s := &session{
		h:         h,
		conn:      conn,
		log:       h.log.With().Str("remote", conn.RemoteAddr().String()).Logger(),
		cache:     transcript.NewCache(h.log),
		in:        make(chan inbound, 16),
		refetches: make(chan refetchKind, 8),
		out:       make(chan outbound, 32),
		closed:    make(chan struct{}),
	}
	s.sync = playersync.NewSession(
		playersync.NewQuestionTracker(nil, ""),
		playersync.NewUtteranceTracker(nil),
	)
	if h.stream != nil {
		s.bridge = realtime.NewBridge(h.stream, s, h.log)
	}
	return s
}

// RefetchQuestions satisfies realtime.Refetcher. Called from the bridge
// goroutine; the actual reload happens on the session goroutine.
func (s *session) RefetchQuestions(slug, lang string) {
	select {
	case s.refetches <- refetchQuestions:
	case <-s.closed:
	}
}

// RefetchTranscript satisfies realtime.Refetcher.
func (s *session) RefetchTranscript(slug, lang string) {
	select {
	case s.refetches <- refetchTranscript:
	case <-s.closed:
	}
}

func (s *session) run(ctx context.Context) {
	defer s.conn.Close()
	defer close(s.closed)
	if s.bridge != nil {
		defer s.bridge.Close()
	}

	go s.readLoop()
	go s.writeLoop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.in:
			if !ok {
				return
			}
			s.handle(ctx, msg)
		case kind := <-s.refetches:
			switch kind {
			case refetchQuestions:
				s.loadQuestions(ctx)
			case refetchTranscript:
				s.loadTranscript(ctx)
			}
		}
	}
}

func (s *session) handle(ctx context.Context, msg inbound) {
	switch msg.Type {
	case "bind":
		s.bind(ctx, msg.Slug, msg.Lang)
	case "position":
		s.advance(msg.Time, msg.Paused)
	case "duration":
		s.sync.SetDuration(msg.Value)
	default:
		s.send(outbound{Type: "error", Error: "unknown message type"})
	}
}

func (s *session) bind(ctx context.Context, slug, viewerLang string) {
	ep, err := s.h.store.GetEpisode(ctx, slug)
	if err != nil {
		s.send(outbound{Type: "error", Error: "could not load episode"})
		return
	}
	if ep == nil {
		s.send(outbound{Type: "error", Error: s.h.locales.Resolve("episode_not_found", viewerLang, map[string]any{"slug": slug})})
		return
	}

	s.slug = slug
	s.eff = realtime.EffectiveLanguage(ep.Lang, viewerLang)
	s.cache.Bind(slug, s.eff)

	intro := s.h.locales.Resolve("introduction", s.eff, nil)
	s.sync = playersync.NewSession(
		playersync.NewQuestionTracker(nil, intro),
		playersync.NewUtteranceTracker(nil),
	)
	s.sync.SetDuration(ep.Duration)

	if s.bridge != nil {
		s.bridge.SetEpisode(slug, ep.Lang, viewerLang)
	}

	s.loadQuestions(ctx)
	s.loadTranscript(ctx)
}

func (s *session) advance(t float64, paused bool) {
	if s.slug == "" {
		return
	}
	ch := s.sync.Advance(playersync.PositionEvent{Time: t, Paused: paused})
	if ch.TitleChanged {
		metrics.QuestionTransitions.Inc()
		s.send(outbound{Type: "question", Title: ch.Title})
	}
	if ch.UtterChanged {
		metrics.UtteranceTransitions.Inc()
		s.send(outbound{Type: "utterance", Utterance: s.sync.Utterances.Active()})
	}
}

func (s *session) loadQuestions(ctx context.Context) {
	questions, err := s.h.store.ListQuestions(ctx, s.slug, s.eff)
	if err != nil {
		s.log.Warn().Err(err).Str("slug", s.slug).Msg("question reload failed")
		return
	}
	s.sync.Questions.SetQuestions(questions)
	s.send(outbound{Type: "questions", Questions: questions})
}

func (s *session) loadTranscript(ctx context.Context) {
	if !s.cache.BeginLoad() {
		return
	}
	slug, eff := s.slug, s.eff

	raw, err := s.h.store.GetTranscript(ctx, slug, eff)
	if err != nil {
		s.cache.SetError(slug, eff, err)
	} else {
		s.cache.SetRaw(slug, eff, raw)
	}

	state, data, _ := s.cache.Get()
	s.sync.Utterances.SetTranscript(data)
	s.send(outbound{Type: "transcript", State: state.String(), Transcript: data})
}

func (s *session) send(msg outbound) {
	select {
	case s.out <- msg:
	default:
		// A client that cannot keep up loses intermediate updates.
		s.log.Debug().Str("type", msg.Type).Msg("dropping outbound message")
	}
}

func (s *session) readLoop() {
	defer close(s.in)
	for {
		var msg inbound
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}
		select {
		case s.in <- msg:
		case <-s.closed:
			return
		}
	}
}

func (s *session) writeLoop() {
	for {
		select {
		case msg := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-s.closed:
			return
		}
	}
}
