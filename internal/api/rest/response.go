package rest

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse — тело ответа об ошибке.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON сериализует data в тело ответа с указанным статусом.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError отправляет JSON-ошибку с указанным статусом.
func writeError(w http.ResponseWriter, statusCode int, err, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   err,
		Message: message,
	})
}
