// internal/directory/handler.go
package directory

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

// Routes mounts the customer and supplier endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/customers", h.handleAddCustomer)
	r.Get("/customers", h.handleListCustomers)
	r.Get("/customers/{id}", h.handleGetCustomer)
	r.Post("/suppliers", h.handleAddSupplier)
	r.Get("/suppliers", h.handleListSuppliers)
}

func (h *Handler) handleAddCustomer(w http.ResponseWriter, r *http.Request) {
	var req NewCustomer
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	customer, err := h.service.AddCustomer(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusCreated, customer)
}

func (h *Handler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.ListCustomers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, customers)
}

func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := web.IDParam(w, r)
	if !ok {
		return
	}

	customer, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, customer)
}

func (h *Handler) handleAddSupplier(w http.ResponseWriter, r *http.Request) {
	var req NewSupplier
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	supplier, err := h.service.AddSupplier(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusCreated, supplier)
}

func (h *Handler) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, suppliers)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		web.Error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrInvalid):
		web.Error(w, http.StatusUnprocessableEntity, "invalid", err.Error())
	case errors.Is(err, ErrRateLimited):
		web.Error(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	default:
		h.logger.Error("directory request failed", zap.Error(err))
		web.Error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
