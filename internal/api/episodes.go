package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/perudosmundos/audio-sub003/internal/locale"
	"github.com/perudosmundos/audio-sub003/internal/transcript"
)

// EpisodeHandler serves episode metadata, questions and transcripts.
type EpisodeHandler struct {
	store       EpisodeStore
	storage     StorageRouter
	locales     *locale.Resolver
	defaultLang string
	log         zerolog.Logger
}

func NewEpisodeHandler(store EpisodeStore, storage StorageRouter, locales *locale.Resolver, defaultLang string, log zerolog.Logger) *EpisodeHandler {
	return &EpisodeHandler{
		store:       store,
		storage:     storage,
		locales:     locales,
		defaultLang: defaultLang,
		log:         log.With().Str("handler", "episodes").Logger(),
	}
}

// lang returns the requested viewer language, falling back to the default.
func (h *EpisodeHandler) lang(r *http.Request) string {
	if v, ok := QueryString(r, "lang"); ok {
		return v
	}
	return h.defaultLang
}

// List handles GET /api/v1/episodes.
func (h *EpisodeHandler) List(w http.ResponseWriter, r *http.Request) {
	episodes, err := h.store.ListEpisodes(r.Context(), h.lang(r))
	if err != nil {
		h.log.Error().Err(err).Msg("list episodes failed")
		WriteError(w, http.StatusInternalServerError, "could not list episodes")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"episodes": episodes, "count": len(episodes)})
}

// Get handles GET /api/v1/episodes/{slug}.
func (h *EpisodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	ep, err := h.store.GetEpisode(r.Context(), slug)
	if err != nil {
		h.log.Error().Err(err).Str("slug", slug).Msg("get episode failed")
		WriteError(w, http.StatusInternalServerError, "could not load episode")
		return
	}
	if ep == nil {
		WriteError(w, http.StatusNotFound, h.locales.Resolve("episode_not_found", h.lang(r), map[string]any{"slug": slug}))
		return
	}
	WriteJSON(w, http.StatusOK, ep)
}

// Questions handles GET /api/v1/episodes/{slug}/questions.
func (h *EpisodeHandler) Questions(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	questions, err := h.store.ListQuestions(r.Context(), slug, h.lang(r))
	if err != nil {
		h.log.Error().Err(err).Str("slug", slug).Msg("list questions failed")
		WriteError(w, http.StatusInternalServerError, "could not list questions")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"questions": questions, "count": len(questions)})
}

// Transcript handles GET /api/v1/episodes/{slug}/transcript. The stored
// payload is normalized before serving so clients never see malformed
// utterances.
func (h *EpisodeHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	lang := h.lang(r)

	raw, err := h.store.GetTranscript(r.Context(), slug, lang)
	if err != nil {
		h.log.Error().Err(err).Str("slug", slug).Str("lang", lang).Msg("get transcript failed")
		WriteError(w, http.StatusInternalServerError, "could not load transcript")
		return
	}

	switch raw.Status {
	case "processing", "queued":
		WriteError(w, http.StatusAccepted, h.locales.Resolve("transcript_processing", lang, nil))
		return
	}

	tr := transcript.Normalize(slug, lang, raw)
	if tr == nil {
		WriteError(w, http.StatusNotFound, h.locales.Resolve("transcript_not_available", lang, nil))
		return
	}
	WriteJSON(w, http.StatusOK, tr)
}

// Delete handles DELETE /api/v1/episodes/{slug}: the stored audio file is
// removed first, then the database row. A file that is already gone does
// not block the row deletion.
func (h *EpisodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	ep, err := h.store.GetEpisode(r.Context(), slug)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "could not load episode")
		return
	}
	if ep == nil {
		WriteError(w, http.StatusNotFound, "episode not found")
		return
	}

	if ep.FileKey != "" {
		res := h.storage.Delete(r.Context(), ep.FileKey, ep.FileBucket, ep.Provider)
		if !res.Success {
			WriteErrorDetail(w, http.StatusBadGateway, "could not delete stored file", res.Message)
			return
		}
	}

	if err := h.store.DeleteEpisode(r.Context(), slug); err != nil {
		WriteError(w, http.StatusInternalServerError, "could not delete episode")
		return
	}
	h.log.Info().Str("slug", slug).Msg("episode deleted")
	WriteJSON(w, http.StatusOK, map[string]any{"deleted": slug})
}
