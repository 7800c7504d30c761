package repository

import (
	"context"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert creates the user or refreshes its profile fields in place
func (r *UserRepository) Upsert(ctx context.Context, user *models.UserRecord) error {
	query := `
		INSERT INTO users (telegram_id, username, display_name, premium, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			premium = EXCLUDED.premium,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query,
		int64(user.TelegramID), user.Username, user.DisplayName, user.Premium, user.UpdatedAt,
	)
	if err != nil {
		return apperr.FromPostgres(err, "failed to upsert user")
	}
	return nil
}

// Exists checks if a user row is present
func (r *UserRepository) Exists(ctx context.Context, telegramID uint64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE telegram_id = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, int64(telegramID)).Scan(&exists)
	if err != nil {
		return false, apperr.FromPostgres(err, "failed to check user existence")
	}
	return exists, nil
}

// GetByID retrieves a user by telegram id
func (r *UserRepository) GetByID(ctx context.Context, telegramID uint64) (*models.UserRecord, error) {
	query := `
		SELECT telegram_id, username, display_name, premium, total_listings, created_at, updated_at
		FROM users
		WHERE telegram_id = $1
	`
	var (
		user models.UserRecord
		id   int64
	)
	err := r.db.QueryRow(ctx, query, int64(telegramID)).Scan(
		&id, &user.Username, &user.DisplayName, &user.Premium,
		&user.TotalListings, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, apperr.FromPostgres(err, "failed to get user")
	}
	user.TelegramID = uint64(id)
	return &user, nil
}
