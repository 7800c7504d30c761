package repository

import (
	"context"
	"time"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const listingColumns = `id, owner_id, owner_name, title, category, kind, price, description, photo_refs,
	like_count, dislike_count, view_count, created_at, expires_at, active`

// ListingRepository handles database operations for listings
type ListingRepository struct {
	db *pgxpool.Pool
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{db: db}
}

// Create inserts a listing and bumps the owner's listing count in one transaction
func (r *ListingRepository) Create(ctx context.Context, listing *models.Listing) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO listings (id, owner_id, owner_name, title, category, kind, price, description,
				photo_refs, like_count, dislike_count, view_count, created_at, expires_at, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`
		_, err := tx.Exec(ctx, query,
			listing.ID, int64(listing.OwnerID), listing.OwnerName, listing.Title, listing.Category,
			listing.Kind, listing.Price, listing.Description, listing.PhotoRefs,
			listing.Likes, listing.Dislikes, listing.Views,
			listing.CreatedAt, listing.ExpiresAt, listing.Active,
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE users SET total_listings = total_listings + 1 WHERE telegram_id = $1`,
			int64(listing.OwnerID),
		)
		return err
	})
	if err != nil {
		return apperr.FromPostgres(err, "failed to create listing")
	}
	return nil
}

// GetByID retrieves a listing by ID
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	listing, err := scanListing(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, apperr.FromPostgres(err, "failed to get listing")
	}
	return listing, nil
}

// ListActive retrieves live listings, newest first, optionally narrowed by category
func (r *ListingRepository) ListActive(ctx context.Context, filter models.ListingFilter, now time.Time) ([]*models.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE active AND expires_at > $1 AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, now, filter.Category, filter.Limit, filter.Offset)
	if err != nil {
		return nil, apperr.FromPostgres(err, "failed to list listings")
	}
	defer rows.Close()

	listings := make([]*models.Listing, 0, filter.Limit)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, apperr.FromPostgres(err, "failed to scan listing")
		}
		listings = append(listings, listing)
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.FromPostgres(err, "error iterating listings")
	}

	return listings, nil
}

// ExpireBefore deactivates listings whose lifetime ended at or before now
func (r *ListingRepository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `UPDATE listings SET active = FALSE WHERE active AND expires_at <= $1`, now)
	if err != nil {
		return 0, apperr.FromPostgres(err, "failed to expire listings")
	}
	return result.RowsAffected(), nil
}

// IncrementViews bumps the view counter without any coordination
func (r *ListingRepository) IncrementViews(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `UPDATE listings SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return apperr.FromPostgres(err, "failed to increment views")
	}
	if result.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "listing not found")
	}
	return nil
}

func scanListing(row pgx.Row) (*models.Listing, error) {
	var (
		listing models.Listing
		ownerID int64
	)
	err := row.Scan(
		&listing.ID, &ownerID, &listing.OwnerName, &listing.Title, &listing.Category,
		&listing.Kind, &listing.Price, &listing.Description, &listing.PhotoRefs,
		&listing.Likes, &listing.Dislikes, &listing.Views,
		&listing.CreatedAt, &listing.ExpiresAt, &listing.Active,
	)
	if err != nil {
		return nil, err
	}
	listing.OwnerID = uint64(ownerID)
	return &listing, nil
}
