package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/perudosmundos/audio-sub003/internal/locale"
)

// I18nHandler serves resolved localization tables.
type I18nHandler struct {
	locales *locale.Resolver
}

func NewI18nHandler(locales *locale.Resolver) *I18nHandler {
	return &I18nHandler{locales: locales}
}

// Table handles GET /api/v1/i18n/{lang}. Unknown languages resolve to the
// default table rather than an error, matching the resolver's fallback.
func (h *I18nHandler) Table(w http.ResponseWriter, r *http.Request) {
	lang := chi.URLParam(r, "lang")
	WriteJSON(w, http.StatusOK, map[string]any{
		"lang":      lang,
		"supported": h.locales.Supported(lang),
		"table":     h.locales.Table(lang),
	})
}
