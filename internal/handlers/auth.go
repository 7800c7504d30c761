package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/services"
	"vape-market-backend/internal/telegram"

	"github.com/rs/zerolog/log"
)

// AuthHandler exchanges Telegram init data for a session token
type AuthHandler struct {
	identity       *services.IdentityService
	botToken       string
	initDataMaxAge time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(identity *services.IdentityService, botToken string, initDataMaxAge time.Duration) *AuthHandler {
	return &AuthHandler{
		identity:       identity,
		botToken:       botToken,
		initDataMaxAge: initDataMaxAge,
	}
}

// TelegramAuthRequest represents the request body for signing in
type TelegramAuthRequest struct {
	InitData string `json:"init_data"`
}

// TelegramAuthResponse carries the session token and the resolved account
type TelegramAuthResponse struct {
	Token    string          `json:"token"`
	Account  AccountResponse `json:"account"`
	ReadOnly bool            `json:"read_only"`
}

// Telegram handles POST /api/v1/auth/telegram
func (h *AuthHandler) Telegram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TelegramAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	assertion, err := telegram.ParseInitData(req.InitData, h.botToken, h.initDataMaxAge, time.Now())
	if err != nil {
		log.Warn().Err(err).Msg("Rejected Telegram init data")
		respondAppError(w, err)
		return
	}

	account, err := h.identity.Resolve(ctx, assertion)
	readOnly := false
	switch {
	case err == nil:
	case apperr.IsCode(err, apperr.Unregistered):
		// keep browsing as a guest
		log.Warn().Err(err).Msg("Identity unusable, continuing as guest")
	case apperr.IsCode(err, apperr.StoreUnavailable):
		log.Warn().Err(err).Str("account", account.Key.String()).Msg("User store unavailable, session is read-only")
		readOnly = true
	default:
		log.Error().Err(err).Msg("Failed to resolve identity")
		respondAppError(w, err)
		return
	}

	token, err := h.identity.IssueToken(account)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue session token")
		respondError(w, "Failed to sign in", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("account", account.Key.String()).
		Bool("privileged", account.IsPrivileged).
		Msg("Session started")

	respondJSON(w, http.StatusOK, TelegramAuthResponse{
		Token:    token,
		Account:  newAccountResponse(account),
		ReadOnly: readOnly,
	})
}
