// Package live serves the playback synchronization websocket. A connected
// client binds to an episode, streams its playback position, and receives
// active-question and active-utterance changes plus refreshed data whenever
// the underlying rows change.
package live

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/perudosmundos/audio-sub003/internal/database"
	"github.com/perudosmundos/audio-sub003/internal/locale"
	"github.com/perudosmundos/audio-sub003/internal/playersync"
	"github.com/perudosmundos/audio-sub003/internal/realtime"
	"github.com/perudosmundos/audio-sub003/internal/transcript"
)

// Store is the episode data the sync sessions read.
type Store interface {
	GetEpisode(ctx context.Context, slug string) (*database.Episode, error)
	ListQuestions(ctx context.Context, slug, lang string) ([]playersync.Question, error)
	GetTranscript(ctx context.Context, slug, lang string) (transcript.RawPayload, error)
}

// Handler upgrades sync connections and runs one session per socket.
type Handler struct {
	store    Store
	stream   realtime.Stream
	locales  *locale.Resolver
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHandler creates the websocket handler. stream may be nil when the
// realtime feed is not configured; sessions then work without live updates.
func NewHandler(store Store, stream realtime.Stream, locales *locale.Resolver, log zerolog.Logger) *Handler {
	return &Handler{
		store:   store,
		stream:  stream,
		locales: locales,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log.With().Str("component", "live").Logger(),
	}
}

// ServeHTTP handles GET /api/v1/episodes/sync.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	s := newSession(h, conn)
	s.run(r.Context())
}
