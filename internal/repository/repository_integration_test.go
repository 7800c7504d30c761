//go:build integration_pg

package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "market",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/market?sslmode=disable", host, port.Port())
	db, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Ping(ctx))
	require.NoError(t, Migrate(ctx, db))
	// a second run must be a no-op
	require.NoError(t, Migrate(ctx, db))

	return db
}

type fixture struct {
	users    *UserRepository
	listings *ListingRepository
	votes    *VoteRepository
	db       *pgxpool.Pool
}

func newFixture(t *testing.T) *fixture {
	db := startPostgres(t)
	return &fixture{
		users:    NewUserRepository(db),
		listings: NewListingRepository(db),
		votes:    NewVoteRepository(db),
		db:       db,
	}
}

func (f *fixture) user(t *testing.T, id uint64) {
	t.Helper()
	require.NoError(t, f.users.Upsert(context.Background(), &models.UserRecord{
		TelegramID:  id,
		Username:    fmt.Sprintf("user_%d", id),
		DisplayName: "Test",
		UpdatedAt:   time.Now(),
	}))
}

func (f *fixture) listing(t *testing.T, owner uint64, createdAt time.Time) *models.Listing {
	t.Helper()
	l := &models.Listing{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		OwnerName: "Test",
		Title:     "Lost Vape Ursa",
		Category:  "pod",
		Kind:      models.KindOffering,
		Price:     2100,
		PhotoRefs: []string{},
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(14 * 24 * time.Hour),
		Active:    true,
	}
	require.NoError(t, f.listings.Create(context.Background(), l))
	return l
}

func (f *fixture) tally(t *testing.T, listingID string) models.Counters {
	t.Helper()
	var c models.Counters
	err := f.db.QueryRow(context.Background(), `
		SELECT count(*) FILTER (WHERE kind = 'approve'), count(*) FILTER (WHERE kind = 'disapprove')
		FROM votes WHERE listing_id = $1
	`, listingID).Scan(&c.Likes, &c.Dislikes)
	require.NoError(t, err)
	return c
}

func TestIntegration_UsersAndListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.user(t, 1)
	f.user(t, 1)
	exists, err := f.users.Exists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, exists)

	base := time.Now().Add(-time.Hour).Truncate(time.Microsecond)
	first := f.listing(t, 1, base)
	second := f.listing(t, 1, base.Add(time.Minute))

	rec, err := f.users.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.TotalListings)

	page, err := f.listings.ListActive(ctx, models.ListingFilter{Limit: 10}, time.Now())
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, second.ID, page[0].ID)
	assert.Equal(t, first.ID, page[1].ID)

	for range 5 {
		require.NoError(t, f.listings.IncrementViews(ctx, first.ID))
	}
	got, err := f.listings.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Views)

	err = f.listings.IncrementViews(ctx, uuid.NewString())
	assert.True(t, apperr.IsCode(err, apperr.NotFound))

	n, err := f.listings.ExpireBefore(ctx, first.ExpiresAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	orphan := &models.Listing{ID: uuid.NewString(), OwnerID: 999, Title: "x", Category: "pod", Kind: models.KindOffering,
		PhotoRefs: []string{}, CreatedAt: base, ExpiresAt: base.Add(time.Hour), Active: true}
	err = f.listings.Create(ctx, orphan)
	assert.True(t, apperr.IsCode(err, apperr.ValidationFailed))
}

func TestIntegration_VoteTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1)
	l := f.listing(t, 1, time.Now())

	now := time.Now()
	steps := []struct {
		kind models.VoteKind
		want models.Counters
	}{
		{models.VoteApprove, models.Counters{Likes: 1}},
		{models.VoteDisapprove, models.Counters{Dislikes: 1}},
		{models.VoteDisapprove, models.Counters{}},
	}
	for i, step := range steps {
		outcome, err := f.votes.Apply(ctx, l.ID, 2, step.kind, now)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, step.want, outcome.Counters, "step %d", i)
		assert.Equal(t, step.want, f.tally(t, l.ID), "step %d", i)
	}

	_, err := f.votes.Apply(ctx, uuid.NewString(), 2, models.VoteApprove, now)
	assert.True(t, apperr.IsCode(err, apperr.NotFound))

	_, err = f.votes.Apply(ctx, l.ID, 2, models.VoteApprove, l.ExpiresAt)
	assert.True(t, apperr.IsCode(err, apperr.ValidationFailed))
}

func TestIntegration_ConcurrentVotesMatchTally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, 1)
	l := f.listing(t, 1, time.Now())

	const voters = 30
	var wg sync.WaitGroup
	for i := range voters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			voter := uint64(100 + i)
			kinds := []models.VoteKind{models.VoteApprove, models.VoteDisapprove}
			if i%2 == 0 {
				kinds = []models.VoteKind{models.VoteDisapprove, models.VoteApprove, models.VoteApprove, models.VoteDisapprove}
			}
			for _, k := range kinds {
				for attempt := 0; attempt < 5; attempt++ {
					_, err := f.votes.Apply(ctx, l.ID, voter, k, time.Now())
					if err == nil {
						break
					}
					if !apperr.IsCode(err, apperr.Conflict) {
						assert.NoError(t, err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	got, err := f.listings.GetByID(ctx, l.ID)
	require.NoError(t, err)
	counters := models.Counters{Likes: got.Likes, Dislikes: got.Dislikes}
	assert.Equal(t, f.tally(t, l.ID), counters)
	assert.Equal(t, voters, counters.Likes+counters.Dislikes)

	votes, err := f.votes.ByVoter(ctx, 101, []string{l.ID})
	require.NoError(t, err)
	assert.Equal(t, models.VoteDisapprove, votes[l.ID])
}
