package audit

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-trainer/internal/common"
)

// AdminHandler exposes the audit trail to operators.
type AdminHandler struct {
	Sink   Sink
	Logger zerolog.Logger
}

// List returns recent entries, newest first. The optional limit query
// parameter caps the count.
func (h AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 0)
	entries, err := h.Sink.ReadRecent(r.Context(), limit)
	if err != nil {
		h.Logger.Error().Err(err).Msg("read webhook logs")
		common.JSONError(w, http.StatusInternalServerError, "internal", "failed to read webhook logs", nil)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"logs":  entries,
		"count": len(entries),
	})
}

// Clear drops the audit trail.
func (h AdminHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Sink.Clear(r.Context()); err != nil {
		h.Logger.Error().Err(err).Msg("clear webhook logs")
		common.JSONError(w, http.StatusInternalServerError, "internal", "failed to clear webhook logs", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"success": true})
}
