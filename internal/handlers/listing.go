package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/middleware"
	"vape-market-backend/internal/models"
	"vape-market-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ListingHandler handles listing-related HTTP requests
type ListingHandler struct {
	listingService *services.ListingService
	voteService    *services.VoteService
	viewService    *services.ViewService
	wsHub          *services.WSHub
}

// NewListingHandler creates a new listing handler
func NewListingHandler(
	listingService *services.ListingService,
	voteService *services.VoteService,
	viewService *services.ViewService,
	wsHub *services.WSHub,
) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		voteService:    voteService,
		viewService:    viewService,
		wsHub:          wsHub,
	}
}

// VoteRequest represents the request body for casting a vote
type VoteRequest struct {
	Kind string `json:"kind"`
}

// Categories handles GET /api/v1/categories
func (h *ListingHandler) Categories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"categories": models.Categories})
}

// List handles GET /api/v1/listings
func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ListingFilter{Category: q.Get("category")}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			respondAppError(w, apperr.Field("limit", "limit must be a number"))
			return
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			respondAppError(w, apperr.Field("offset", "offset must be a number"))
			return
		}
		filter.Offset = offset
	}

	feed := h.listingService.ListActive(r.Context(), filter)
	if feed.Degraded {
		feed.Listings = demoListings(models.NormalizeCategory(filter.Category))
	}

	respondJSON(w, http.StatusOK, feed)
}

// Get handles GET /api/v1/listings/{listing_id}
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listing_id")

	listing, err := h.listingService.Get(r.Context(), listingID)
	if err != nil {
		if !apperr.IsCode(err, apperr.NotFound) {
			log.Error().Err(err).Str("listing_id", listingID).Msg("Failed to get listing")
		}
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, listing)
}

// RecordView handles POST /api/v1/listings/{listing_id}/views
func (h *ListingHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	h.viewService.RecordView(r.Context(), chi.URLParam(r, "listing_id"))
	w.WriteHeader(http.StatusAccepted)
}

// Create handles POST /api/v1/listings
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := middleware.GetAccount(ctx)

	var req services.CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	listing, err := h.listingService.Create(ctx, account, req)
	if err != nil {
		event := log.Error()
		if apperr.IsCode(err, apperr.ValidationFailed) || apperr.IsCode(err, apperr.Unauthenticated) {
			event = log.Info()
		}
		event.Err(err).Msg("Listing rejected")
		respondAppError(w, err)
		return
	}

	log.Info().
		Str("listing_id", listing.ID).
		Uint64("owner_id", listing.OwnerID).
		Str("category", listing.Category).
		Msg("Listing created")

	h.wsHub.NotifyListingCreated(listing)

	respondJSON(w, http.StatusCreated, listing)
}

// Vote handles POST /api/v1/listings/{listing_id}/vote
func (h *ListingHandler) Vote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := middleware.GetAccount(ctx)
	listingID := chi.URLParam(r, "listing_id")

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	kind, err := models.ParseVoteKind(req.Kind)
	if err != nil {
		respondAppError(w, apperr.Field("kind", "kind must be approve or disapprove"))
		return
	}

	outcome, err := h.voteService.CastVote(ctx, listingID, account, kind)
	if err != nil {
		log.Error().
			Err(err).
			Str("listing_id", listingID).
			Str("kind", string(kind)).
			Msg("Failed to cast vote")
		respondAppError(w, err)
		return
	}

	log.Debug().
		Str("listing_id", listingID).
		Str("state", outcome.State.String()).
		Int("likes", outcome.Counters.Likes).
		Int("dislikes", outcome.Counters.Dislikes).
		Msg("Vote applied")

	h.wsHub.NotifyCounters(outcome)

	respondJSON(w, http.StatusOK, outcome)
}
