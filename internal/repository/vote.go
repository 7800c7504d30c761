package repository

import (
	"context"
	"errors"
	"time"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VoteRepository owns the votes table and is the only writer of listing like/dislike counters
type VoteRepository struct {
	db          *pgxpool.Pool
	lockTimeout string
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *pgxpool.Pool) *VoteRepository {
	return &VoteRepository{db: db, lockTimeout: "2s"}
}

// Apply casts a vote as one unit of work: the listing row is locked, the vote row is
// inserted, switched or deleted, and both counters are rewritten before commit.
func (r *VoteRepository) Apply(ctx context.Context, listingID string, voterID uint64, kind models.VoteKind, now time.Time) (*models.VoteOutcome, error) {
	var outcome *models.VoteOutcome

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		// lock waits past this surface as 55P03 and are retried by the ledger
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, r.lockTimeout); err != nil {
			return err
		}

		var (
			active    bool
			expiresAt time.Time
			counters  models.Counters
		)
		err := tx.QueryRow(ctx, `
			SELECT active, expires_at, like_count, dislike_count
			FROM listings
			WHERE id = $1
			FOR UPDATE
		`, listingID).Scan(&active, &expiresAt, &counters.Likes, &counters.Dislikes)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.New(apperr.NotFound, "listing not found")
			}
			return err
		}
		if !active || !now.Before(expiresAt) {
			return apperr.New(apperr.ValidationFailed, "This listing is closed for voting")
		}

		current := models.NoVote
		var stored string
		err = tx.QueryRow(ctx,
			`SELECT kind FROM votes WHERE listing_id = $1 AND voter_id = $2`,
			listingID, int64(voterID),
		).Scan(&stored)
		switch {
		case err == nil:
			current = models.StateOf(models.VoteKind(stored))
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}

		next, delta := models.Transition(current, kind)
		switch {
		case next == models.NoVote:
			_, err = tx.Exec(ctx,
				`DELETE FROM votes WHERE listing_id = $1 AND voter_id = $2`,
				listingID, int64(voterID),
			)
		case current == models.NoVote:
			_, err = tx.Exec(ctx,
				`INSERT INTO votes (listing_id, voter_id, kind, updated_at) VALUES ($1, $2, $3, $4)`,
				listingID, int64(voterID), string(kind), now,
			)
		default:
			_, err = tx.Exec(ctx,
				`UPDATE votes SET kind = $3, updated_at = $4 WHERE listing_id = $1 AND voter_id = $2`,
				listingID, int64(voterID), string(kind), now,
			)
		}
		if err != nil {
			return err
		}

		after, applied := counters.Apply(delta)
		_, err = tx.Exec(ctx,
			`UPDATE listings SET like_count = $2, dislike_count = $3 WHERE id = $1`,
			listingID, after.Likes, after.Dislikes,
		)
		if err != nil {
			return err
		}

		outcome = &models.VoteOutcome{
			ListingID: listingID,
			Applied:   true,
			State:     next,
			Delta:     applied,
			Counters:  after,
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromPostgres(err, "failed to apply vote")
	}
	return outcome, nil
}

// ByVoter returns the voter's current kinds for the given listings
func (r *VoteRepository) ByVoter(ctx context.Context, voterID uint64, listingIDs []string) (map[string]models.VoteKind, error) {
	votes := make(map[string]models.VoteKind, len(listingIDs))
	if len(listingIDs) == 0 {
		return votes, nil
	}

	query := `
		SELECT listing_id::text, kind
		FROM votes
		WHERE voter_id = $1 AND listing_id = ANY($2::uuid[])
	`
	rows, err := r.db.Query(ctx, query, int64(voterID), listingIDs)
	if err != nil {
		return nil, apperr.FromPostgres(err, "failed to get votes")
	}
	defer rows.Close()

	for rows.Next() {
		var listingID, kind string
		if err := rows.Scan(&listingID, &kind); err != nil {
			return nil, apperr.FromPostgres(err, "failed to scan vote")
		}
		votes[listingID] = models.VoteKind(kind)
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.FromPostgres(err, "error iterating votes")
	}

	return votes, nil
}
