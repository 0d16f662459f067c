// Package response writes the envelope every API endpoint answers with:
// a success flag plus either a data payload or an error. Handlers never
// touch the encoder directly.
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the wire shape of every JSON reply.
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Error   any  `json:"error,omitempty"`
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already on the wire; nothing useful left to do if
	// encoding fails.
	_ = json.NewEncoder(w).Encode(body)
}

// JSON replies with data wrapped in the envelope. Success tracks the status
// class.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// Error replies with a failed envelope carrying message.
func Error(w http.ResponseWriter, status int, message any) {
	write(w, status, Envelope{Error: message})
}

// NoContent replies 204 with an empty body, skipping the envelope.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func OK(w http.ResponseWriter, data any)      { JSON(w, http.StatusOK, data) }
func Created(w http.ResponseWriter, data any) { JSON(w, http.StatusCreated, data) }

func BadRequest(w http.ResponseWriter, message any)   { Error(w, http.StatusBadRequest, message) }
func Unauthorized(w http.ResponseWriter, message any) { Error(w, http.StatusUnauthorized, message) }
func NotFound(w http.ResponseWriter, message any)     { Error(w, http.StatusNotFound, message) }

func InternalError(w http.ResponseWriter, message any) {
	Error(w, http.StatusInternalServerError, message)
}
