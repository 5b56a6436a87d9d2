package common

import (
	"encoding/json"
	"net/http"
)

// MessageResponse is the body of every successful write
type MessageResponse struct {
	Message string `json:"message"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent, an encoding failure cannot be reported
	_ = json.NewEncoder(w).Encode(data)
}

// RespondMessage sends a one-line confirmation
func RespondMessage(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, MessageResponse{Message: message})
}
