package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ViewService counts listing views. Counts are a rough popularity signal: there is no
// dedup by viewer, so repeated opens by one person all count.
type ViewService struct {
	views ViewStore
}

// NewViewService creates a new view service
func NewViewService(views ViewStore) *ViewService {
	return &ViewService{views: views}
}

// RecordView bumps the listing's view counter. Failures are logged and never returned.
func (s *ViewService) RecordView(ctx context.Context, listingID string) {
	if _, err := uuid.Parse(listingID); err != nil {
		log.Debug().Str("listing_id", listingID).Msg("Ignoring view for malformed listing id")
		return
	}
	if err := s.views.IncrementViews(ctx, listingID); err != nil {
		log.Warn().
			Err(err).
			Str("listing_id", listingID).
			Msg("Failed to record view")
	}
}
