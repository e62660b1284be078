// Package rest exposes the payment HTTP surface: initiation, the PSP
// callback, status reads and the admin views.
package rest

import (
	"encoding/json"
	"net/http"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// WriteError maps orchestration errors to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	status := application.ToHTTPStatus(err)
	code := application.ToErrorCode(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: err.Error(),
		},
	})
}
