package services

import (
	"context"
	"fmt"
	"time"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxVoteLookup = 100

// VoteService is the ledger of approve/disapprove choices
type VoteService struct {
	votes    VoteStore
	attempts int
	pause    time.Duration
	now      func() time.Time
}

// NewVoteService creates a new vote service. attempts bounds retries after a lost race.
func NewVoteService(votes VoteStore, attempts int) *VoteService {
	if attempts < 1 {
		attempts = 1
	}
	return &VoteService{
		votes:    votes,
		attempts: attempts,
		pause:    25 * time.Millisecond,
		now:      time.Now,
	}
}

// CastVote applies a vote for the account on a listing. Casting the held kind again
// withdraws it, casting the other kind switches it. Conflicts are retried internally.
func (s *VoteService) CastVote(ctx context.Context, listingID string, voter *models.Account, kind models.VoteKind) (*models.VoteOutcome, error) {
	if voter == nil {
		return nil, apperr.New(apperr.Unauthenticated, "sign in through Telegram to vote")
	}
	voterID, ok := voter.Key.TelegramID()
	if !ok {
		return nil, apperr.New(apperr.Unauthenticated, "sign in through Telegram to vote")
	}
	if models.StateOf(kind) == models.NoVote {
		return nil, apperr.Field("kind", "kind must be approve or disapprove")
	}
	if _, err := uuid.Parse(listingID); err != nil {
		return nil, apperr.New(apperr.NotFound, "listing not found")
	}

	for attempt := 1; ; attempt++ {
		outcome, err := s.votes.Apply(ctx, listingID, voterID, kind, s.now())
		if err == nil {
			return outcome, nil
		}
		if !apperr.IsCode(err, apperr.Conflict) || attempt >= s.attempts {
			return nil, fmt.Errorf("failed to cast vote: %w", err)
		}

		log.Debug().
			Err(err).
			Str("listing_id", listingID).
			Uint64("voter_id", voterID).
			Int("attempt", attempt).
			Msg("Vote lost a race, retrying")

		timer := time.NewTimer(time.Duration(attempt) * s.pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, apperr.Wrap(ctx.Err(), apperr.StoreUnavailable, "vote abandoned")
		case <-timer.C:
		}
	}
}

// VotesOf returns the account's current votes on the given listings. Guests hold none.
func (s *VoteService) VotesOf(ctx context.Context, voter *models.Account, listingIDs []string) (map[string]models.VoteKind, error) {
	if voter == nil {
		return map[string]models.VoteKind{}, nil
	}
	voterID, ok := voter.Key.TelegramID()
	if !ok {
		return map[string]models.VoteKind{}, nil
	}

	ids := make([]string, 0, len(listingIDs))
	for _, id := range listingIDs {
		if _, err := uuid.Parse(id); err == nil {
			ids = append(ids, id)
		}
		if len(ids) == maxVoteLookup {
			break
		}
	}

	votes, err := s.votes.ByVoter(ctx, voterID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load votes: %w", err)
	}
	return votes, nil
}
