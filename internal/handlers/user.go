package handlers

import (
	"net/http"
	"strings"

	"vape-market-backend/internal/middleware"
	"vape-market-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles requests about the signed-in account
type UserHandler struct {
	voteService *services.VoteService
}

// NewUserHandler creates a new user handler
func NewUserHandler(voteService *services.VoteService) *UserHandler {
	return &UserHandler{
		voteService: voteService,
	}
}

// Me handles GET /api/v1/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil || session.Account == nil {
		respondError(w, "Not signed in", http.StatusUnauthorized)
		return
	}

	resp := newAccountResponse(session.Account)
	resp.Guest = session.IsGuest()
	respondJSON(w, http.StatusOK, resp)
}

// MyVotes handles GET /api/v1/me/votes?ids=a,b,c
func (h *UserHandler) MyVotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := middleware.GetAccount(ctx)

	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	votes, err := h.voteService.VotesOf(ctx, account, ids)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load votes")
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"votes": votes})
}
