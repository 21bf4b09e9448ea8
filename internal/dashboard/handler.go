package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"shelfpos/internal/web"
)

type Handler struct {
	aggregator *Aggregator
	logger     *zap.Logger
}

func NewHandler(aggregator *Aggregator, logger *zap.Logger) *Handler {
	return &Handler{aggregator: aggregator, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/dashboard/stats", h.handleStats)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.aggregator.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("dashboard snapshot failed", zap.Error(err))
		web.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	web.JSON(w, http.StatusOK, snap)
}
