package handlers

import (
	"encoding/json"
	"net/http"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

// AccountResponse is an account as the Mini App sees it
type AccountResponse struct {
	ID    string `json:"id"`
	Guest bool   `json:"guest"`
	*models.Account
}

func newAccountResponse(a *models.Account) AccountResponse {
	return AccountResponse{
		ID:      a.Key.String(),
		Guest:   a.Key.IsGuest() || a.Key.IsZero(),
		Account: a,
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondAppError maps a service error to its status and user-facing message
func respondAppError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{
		Error: apperr.UserMessage(err),
		Code:  apperr.CodeOf(err).String(),
	}
	if e, ok := apperr.As(err); ok {
		resp.Field = e.Field()
	}
	respondJSON(w, apperr.HTTPStatus(err), resp)
}

// respondJSON sends v as a JSON body
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
