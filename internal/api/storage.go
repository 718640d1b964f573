package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/perudosmundos/audio-sub003/internal/storage"
)

// maxUploadBytes caps a single audio upload at 500 MB.
const maxUploadBytes = 500 << 20

var validate = validator.New()

// StorageHandler serves file upload, deletion and existence probes.
type StorageHandler struct {
	router StorageRouter
	spool  Parker
	store  EpisodeStore
	log    zerolog.Logger
}

func NewStorageHandler(router StorageRouter, spool Parker, store EpisodeStore, log zerolog.Logger) *StorageHandler {
	return &StorageHandler{
		router: router,
		spool:  spool,
		store:  store,
		log:    log.With().Str("handler", "storage").Logger(),
	}
}

type uploadFields struct {
	Filename    string `validate:"required,max=255"`
	EpisodeSlug string `validate:"omitempty,max=128"`
	ContentType string `validate:"omitempty,max=128"`
}

// Upload handles POST /api/v1/storage/upload (multipart form, field "file").
// When the backend is unreachable the payload is parked in the retry spool
// and 202 is returned.
func (h *StorageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	fields := uploadFields{
		Filename:    header.Filename,
		EpisodeSlug: r.FormValue("episode_slug"),
		ContentType: header.Header.Get("Content-Type"),
	}
	if err := validate.Struct(fields); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid upload", err.Error())
		return
	}
	if fields.ContentType == "" {
		fields.ContentType = "application/octet-stream"
	}

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "could not read file")
		return
	}

	res, err := h.router.Upload(r.Context(), fields.Filename, bytes.NewReader(data), int64(len(data)), fields.ContentType, nil)
	if err != nil {
		if h.spool == nil {
			WriteErrorDetail(w, http.StatusBadGateway, "upload failed", err.Error())
			return
		}
		h.log.Warn().Err(err).Str("filename", fields.Filename).Msg("upload failed, parking in spool")
		key := storage.MakeKey(fields.Filename)
		if parkErr := h.spool.Park(h.router.Target(), key, data, fields.ContentType); parkErr != nil {
			h.log.Error().Err(parkErr).Str("key", key).Msg("park failed")
			WriteErrorDetail(w, http.StatusBadGateway, "upload failed", err.Error())
			return
		}
		WriteJSON(w, http.StatusAccepted, map[string]any{
			"parked": true,
			"key":    key,
		})
		return
	}

	if fields.EpisodeSlug != "" {
		if err := h.store.UpdateEpisodeStorage(r.Context(), fields.EpisodeSlug, res.URL, res.Key, res.Bucket, string(res.Provider)); err != nil {
			h.log.Error().Err(err).Str("slug", fields.EpisodeSlug).Msg("episode storage update failed")
			WriteErrorDetail(w, http.StatusInternalServerError, "uploaded but episode update failed", err.Error())
			return
		}
	}

	WriteJSON(w, http.StatusCreated, res)
}

type deleteRequest struct {
	Key      string `json:"key" validate:"required"`
	Bucket   string `json:"bucket"`
	Provider string `json:"provider"`
}

// Delete handles DELETE /api/v1/storage/files. Removing a file that is
// already gone reports success.
func (h *StorageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid delete request", err.Error())
		return
	}

	res := h.router.Delete(r.Context(), req.Key, req.Bucket, req.Provider)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	WriteJSON(w, status, res)
}

// Exists handles GET /api/v1/storage/exists?filename=.
func (h *StorageHandler) Exists(w http.ResponseWriter, r *http.Request) {
	filename, ok := QueryString(r, "filename")
	if !ok {
		WriteError(w, http.StatusBadRequest, "missing filename parameter")
		return
	}
	WriteJSON(w, http.StatusOK, h.router.CheckExists(r.Context(), filename))
}

// Test handles GET /api/v1/storage/test.
func (h *StorageHandler) Test(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.router.TestConnections(r.Context()))
}
