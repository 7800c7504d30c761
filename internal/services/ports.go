package services

import (
	"context"
	"time"

	"vape-market-backend/internal/models"
)

// UserStore persists registered accounts
type UserStore interface {
	Upsert(ctx context.Context, user *models.UserRecord) error
	Exists(ctx context.Context, telegramID uint64) (bool, error)
}

// ListingStore persists listings. It has no way to write like/dislike counters.
type ListingStore interface {
	Create(ctx context.Context, listing *models.Listing) error
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	ListActive(ctx context.Context, filter models.ListingFilter, now time.Time) ([]*models.Listing, error)
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)
}

// ViewStore bumps view counters
type ViewStore interface {
	IncrementViews(ctx context.Context, id string) error
}

// VoteStore applies a cast as a single unit of work over the vote row and the listing counters
type VoteStore interface {
	Apply(ctx context.Context, listingID string, voterID uint64, kind models.VoteKind, now time.Time) (*models.VoteOutcome, error)
	ByVoter(ctx context.Context, voterID uint64, listingIDs []string) (map[string]models.VoteKind, error)
}
