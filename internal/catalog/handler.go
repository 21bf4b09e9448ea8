// internal/catalog/handler.go
package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"shelfpos/internal/web"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes mounts the item endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Post("/", h.handleAddItem)
		r.Get("/", h.handleListItems)
		r.Get("/low-stock", h.handleLowStock)
		r.Get("/expired", h.handleExpired)
		r.Get("/{id}", h.handleGetItem)
		r.Put("/{id}", h.handleUpdateItem)
		r.Delete("/{id}", h.handleRemoveItem)
	})
	r.Get("/search/items", h.handleSearch)
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req NewItem
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	item, err := h.service.AddItem(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	web.JSON(w, http.StatusCreated, item)
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, items)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.LowStock(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, items)
}

func (h *Handler) handleExpired(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Expired(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := web.IDParam(w, r)
	if !ok {
		return
	}

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := web.IDParam(w, r)
	if !ok {
		return
	}

	var req ItemUpdate
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	item, err := h.service.UpdateItem(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := web.IDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveItem(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		web.Error(w, http.StatusBadRequest, "bad_request", "missing search query")
		return
	}

	items, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, items)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		web.Error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrDuplicate):
		web.Error(w, http.StatusConflict, "duplicate", err.Error())
	case errors.Is(err, ErrInvalidItem):
		web.Error(w, http.StatusUnprocessableEntity, "invalid", err.Error())
	default:
		h.logger.Error("catalog request failed", zap.Error(err))
		web.Error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
