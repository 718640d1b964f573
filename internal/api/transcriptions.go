package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/perudosmundos/audio-sub003/internal/transcribe"
)

// TranscriptionHandler enqueues transcription jobs and reports their state.
type TranscriptionHandler struct {
	jobs  JobQueue
	store EpisodeStore
	log   zerolog.Logger
}

func NewTranscriptionHandler(jobs JobQueue, store EpisodeStore, log zerolog.Logger) *TranscriptionHandler {
	return &TranscriptionHandler{
		jobs:  jobs,
		store: store,
		log:   log.With().Str("handler", "transcriptions").Logger(),
	}
}

type transcriptionRequest struct {
	EpisodeSlug string `json:"episode_slug" validate:"required,max=128"`
	Lang        string `json:"lang" validate:"required,min=2,max=5"`
}

// Create handles POST /api/v1/transcriptions. The audio URL comes from the
// episode record, not the caller.
func (h *TranscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		WriteError(w, http.StatusServiceUnavailable, "transcription not configured")
		return
	}

	var req transcriptionRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid transcription request", err.Error())
		return
	}

	ep, err := h.store.GetEpisode(r.Context(), req.EpisodeSlug)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "could not load episode")
		return
	}
	if ep == nil {
		WriteError(w, http.StatusNotFound, "episode not found")
		return
	}
	if ep.AudioURL == "" {
		WriteError(w, http.StatusConflict, "episode has no audio file")
		return
	}

	id, ok := h.jobs.Enqueue(transcribe.Job{
		Slug:     req.EpisodeSlug,
		Lang:     req.Lang,
		AudioURL: ep.AudioURL,
	})
	if !ok {
		WriteError(w, http.StatusServiceUnavailable, "transcription queue is full")
		return
	}
	h.log.Info().Str("slug", req.EpisodeSlug).Str("lang", req.Lang).Str("id", id).Msg("transcription enqueued")
	WriteJSON(w, http.StatusAccepted, map[string]any{"id": id, "state": "queued"})
}

// Get handles GET /api/v1/transcriptions/{id}.
func (h *TranscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		WriteError(w, http.StatusServiceUnavailable, "transcription not configured")
		return
	}
	st, ok := h.jobs.Status(chi.URLParam(r, "id"))
	if !ok {
		WriteError(w, http.StatusNotFound, "unknown transcription job")
		return
	}
	WriteJSON(w, http.StatusOK, st)
}
