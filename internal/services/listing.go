package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/config"
	"vape-market-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PriceInput accepts a price sent as a JSON number or a JSON string
type PriceInput string

// UnmarshalJSON keeps the raw text so the price policy decides how to coerce it
func (p *PriceInput) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = PriceInput(s)
		return nil
	}
	*p = PriceInput(b)
	return nil
}

// CreateListingRequest is a listing draft as submitted by the owner
type CreateListingRequest struct {
	Title       string     `json:"title" validate:"required,max=120"`
	Category    string     `json:"category" validate:"required,category"`
	Kind        string     `json:"kind" validate:"required,oneof=offering seeking"`
	Price       PriceInput `json:"price"`
	Description string     `json:"description" validate:"max=2000"`
	PhotoRefs   []string   `json:"photo_refs" validate:"dive,required,url"`
}

// Feed is one page of the active feed. Degraded is set when the store could not be read.
type Feed struct {
	Listings []*models.Listing `json:"listings"`
	Degraded bool              `json:"degraded"`
}

// ListingService handles listing creation and the active feed
type ListingService struct {
	listings ListingStore
	identity *IdentityService
	market   config.MarketConfig
	now      func() time.Time
}

// NewListingService creates a new listing service
func NewListingService(listings ListingStore, identity *IdentityService, market config.MarketConfig) *ListingService {
	return &ListingService{
		listings: listings,
		identity: identity,
		market:   market,
		now:      time.Now,
	}
}

// Create validates a draft and publishes it for the owner
func (s *ListingService) Create(ctx context.Context, owner *models.Account, req CreateListingRequest) (*models.Listing, error) {
	if owner == nil || owner.Key.IsGuest() || owner.Key.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "sign in through Telegram to publish listings")
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))

	if err := getValidator().check(req); err != nil {
		return nil, err
	}
	if len(req.PhotoRefs) > s.market.MaxPhotos {
		return nil, apperr.Field("photo_refs", fmt.Sprintf("photo_refs must contain at most %d photos", s.market.MaxPhotos))
	}

	price, err := s.parsePrice(req.Price)
	if err != nil {
		return nil, err
	}

	if err := s.identity.EnsureRegistered(ctx, owner); err != nil {
		return nil, err
	}
	ownerID, _ := owner.Key.TelegramID()

	photos := req.PhotoRefs
	if photos == nil {
		photos = []string{}
	}

	now := s.now()
	listing := &models.Listing{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		OwnerName:   owner.DisplayName,
		Title:       req.Title,
		Category:    req.Category,
		Kind:        req.Kind,
		Price:       price,
		Description: req.Description,
		PhotoRefs:   photos,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.market.ListingLifetime),
		Active:      true,
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	return listing, nil
}

// parsePrice coerces the submitted price to whole rubles.
// In lenient mode the leading integer is kept ("1500 руб" is 1500, "abc" is 0);
// negative amounts are always rejected.
func (s *ListingService) parsePrice(raw PriceInput) (int64, error) {
	text := strings.TrimSpace(string(raw))
	if s.market.PricePolicy != config.PricePolicyStrict {
		text = leadingInteger(text)
		if text == "" {
			return 0, nil
		}
	}

	price, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, apperr.Field("price", "price must be a whole number")
	}
	if price < 0 {
		return 0, apperr.Field("price", "price must not be negative")
	}
	return price, nil
}

// leadingInteger returns the optionally signed run of digits that starts text, or ""
func leadingInteger(text string) string {
	end := 0
	if end < len(text) && (text[0] == '+' || text[0] == '-') {
		end++
	}
	digits := end
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	if end == digits {
		return ""
	}
	return text[:end]
}

// ListActive returns live listings newest first. Store failures degrade to an empty page.
func (s *ListingService) ListActive(ctx context.Context, filter models.ListingFilter) *Feed {
	filter = s.normalizeFilter(filter)

	listings, err := s.listings.ListActive(ctx, filter, s.now())
	if err != nil {
		log.Warn().
			Err(err).
			Str("category", filter.Category).
			Msg("Feed unavailable, serving degraded page")
		return &Feed{Listings: []*models.Listing{}, Degraded: true}
	}

	return &Feed{Listings: listings}
}

func (s *ListingService) normalizeFilter(filter models.ListingFilter) models.ListingFilter {
	filter.Category = models.NormalizeCategory(filter.Category)
	if filter.Limit <= 0 {
		filter.Limit = s.market.PageSize
	}
	if filter.Limit > s.market.MaxPageSize {
		filter.Limit = s.market.MaxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter
}

// Get returns one listing
func (s *ListingService) Get(ctx context.Context, id string) (*models.Listing, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.New(apperr.NotFound, "listing not found")
	}
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return listing, nil
}

// ExpireStale deactivates listings whose lifetime has elapsed
func (s *ListingService) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.listings.ExpireBefore(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire listings: %w", err)
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("Listings expired")
	}
	return n, nil
}
