package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the success/failure wrapper used by the simulated API boundary
// (auth, coupon apply, order create).
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSON writes an arbitrary payload with the given status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteResult writes a success envelope carrying the optional data payload.
func WriteResult(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Envelope{
		Success: true,
		Message: sanitize(message, 512),
		Data:    data,
	})
}

// WriteFailure writes a failure envelope. Unlike WriteError this stays inside
// the simulated-API contract: HTTP 200 with success=false and a user-facing
// message.
func WriteFailure(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusOK, Envelope{
		Success: false,
		Message: sanitize(message, 512),
	})
}
