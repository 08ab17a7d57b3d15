// Package web holds the JSON response helpers shared by the handler
// packages, including the domain-error to HTTP-status mapping.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dojoflow/backend/internal/domain"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// WriteError maps a domain error to its HTTP status and writes the message.
// Internal causes are logged but never serialized outward.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	msg := "internal error"
	var de *domain.Error
	if errors.As(err, &de) && de.Code != domain.CodeInternal {
		msg = de.Message
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
	}
	WriteJSON(w, status, errorBody{Error: msg})
}

// StatusOf returns the HTTP status for a domain error code.
func StatusOf(err error) int {
	switch domain.CodeOf(err) {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeBadCredentials:
		return http.StatusUnauthorized
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
