// Package web holds the JSON response helpers shared by the HTTP handlers.
package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string         `json:"error"`
	Kind  string         `json:"kind,omitempty"`
	Extra map[string]any `json:"details,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error writes an error body.
func Error(w http.ResponseWriter, status int, kind, msg string) {
	JSON(w, status, ErrorBody{Error: msg, Kind: kind})
}

// ErrorWithDetails writes an error body carrying structured details.
func ErrorWithDetails(w http.ResponseWriter, status int, kind, msg string, details map[string]any) {
	JSON(w, status, ErrorBody{Error: msg, Kind: kind, Extra: details})
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// IDParam parses the {id} route parameter, writing a 400 on failure.
func IDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "bad_request", "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
