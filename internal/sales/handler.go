// internal/sales/handler.go
package sales

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

// Routes mounts the sale endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Post("/", h.handleSubmit)
		r.Post("/quote", h.handleQuote)
		r.Get("/", h.handleList)
		r.Get("/today", h.handleToday)
		r.Get("/{id}", h.handleGet)
	})
}

type lineRequest struct {
	ItemID    uuid.UUID       `json:"item_id"`
	Name      string          `json:"name"`
	Quantity  json.Number     `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type saleRequest struct {
	Items           []lineRequest   `json:"items"`
	CustomerID      *uuid.UUID      `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
	PaymentMethod   string          `json:"payment_method"`
}

// maxQuantity bounds a line quantity so it always fits an int.
var maxQuantity = decimal.NewFromInt(math.MaxInt32)

// cart converts the request lines. Every submitted line is checked before
// repeated items are merged, so a bad line cannot be absorbed by a good one.
// Integral spellings such as 3.0 or 1e2 are accepted.
func (req saleRequest) cart() (Cart, error) {
	lines := make([]CartLine, 0, len(req.Items))
	for _, l := range req.Items {
		raw := l.Quantity.String()
		d, err := decimal.NewFromString(raw)
		if err != nil || !d.IsInteger() || d.Abs().GreaterThan(maxQuantity) {
			return Cart{}, &InvalidQuantityError{ItemID: l.ItemID, Raw: raw}
		}
		qty := int(d.IntPart())
		if qty <= 0 {
			return Cart{}, &InvalidQuantityError{ItemID: l.ItemID, Quantity: qty}
		}
		lines = append(lines, CartLine{
			ItemID:    l.ItemID,
			Name:      l.Name,
			Quantity:  qty,
			UnitPrice: l.UnitPrice,
		})
	}
	return NewCart(lines...), nil
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	cart, err := req.cart()
	if err != nil {
		h.writeError(w, err)
		return
	}

	sale, err := h.service.SubmitSale(r.Context(), Submission{
		Cart:            cart,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		DiscountPercent: req.DiscountPercent,
		TaxPercent:      req.TaxPercent,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	web.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	cart, err := req.cart()
	if err != nil {
		h.writeError(w, err)
		return
	}

	breakdown, err := h.service.Quote(r.Context(), cart, req.DiscountPercent, req.TaxPercent)
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, breakdown)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sales, err := h.service.ListSales(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, sales)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	sales, err := h.service.TodaySales(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, sales)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := web.IDParam(w, r)
	if !ok {
		return
	}

	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, sale)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		qtyErr   *InvalidQuantityError
		rateErr  *InvalidRateError
		stockErr *InsufficientStockError
		nfErr    *NotFoundError
	)
	switch {
	case errors.Is(err, ErrEmptyCart):
		web.Error(w, http.StatusUnprocessableEntity, "empty_cart", err.Error())
	case errors.As(err, &qtyErr):
		web.ErrorWithDetails(w, http.StatusUnprocessableEntity, "invalid_quantity", err.Error(), map[string]any{
			"item_id":  qtyErr.ItemID,
			"quantity": qtyErr.Value(),
		})
	case errors.As(err, &rateErr):
		web.ErrorWithDetails(w, http.StatusUnprocessableEntity, "invalid_rate", err.Error(), map[string]any{
			"field": rateErr.Field,
			"value": rateErr.Value,
		})
	case errors.As(err, &stockErr):
		web.ErrorWithDetails(w, http.StatusConflict, "insufficient_stock", err.Error(), map[string]any{
			"item_id":   stockErr.ItemID,
			"name":      stockErr.Name,
			"requested": stockErr.Requested,
			"on_hand":   stockErr.OnHand,
			"shortfall": stockErr.Shortfall(),
		})
	case errors.As(err, &nfErr):
		web.ErrorWithDetails(w, http.StatusNotFound, "not_found", err.Error(), map[string]any{
			"entity": nfErr.Entity,
			"id":     nfErr.ID,
		})
	case errors.Is(err, ErrSaleNotFound):
		web.Error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		web.Error(w, http.StatusServiceUnavailable, "timeout", "sale could not be committed in time")
	default:
		h.logger.Error("sales request failed", zap.Error(err))
		web.Error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
