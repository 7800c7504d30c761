package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store, now time.Time, ids ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Users().Upsert(ctx, &models.UserRecord{TelegramID: 1, UpdatedAt: now}))
	for i, id := range ids {
		require.NoError(t, s.Listings().Create(ctx, &models.Listing{
			ID:        id,
			OwnerID:   1,
			Title:     id,
			Category:  "pod",
			Kind:      models.KindOffering,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
			ExpiresAt: now.Add(time.Hour),
			Active:    true,
		}))
	}
}

func TestListActivePagesNewestFirst(t *testing.T) {
	s := New()
	now := time.Now()
	seed(t, s, now, "a", "b", "c")

	page, err := s.Listings().ListActive(context.Background(), models.ListingFilter{Limit: 2}, now)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].ID)
	assert.Equal(t, "b", page[1].ID)

	page, err = s.Listings().ListActive(context.Background(), models.ListingFilter{Limit: 2, Offset: 2}, now)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)

	page, err = s.Listings().ListActive(context.Background(), models.ListingFilter{Limit: 2, Offset: 9}, now)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestCreateCountsOwnerListings(t *testing.T) {
	s := New()
	seed(t, s, time.Now(), "a", "b")

	user, err := s.Users().GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, user.TotalListings)
}

func TestCreateRequiresOwner(t *testing.T) {
	s := New()
	err := s.Listings().Create(context.Background(), &models.Listing{ID: "x", OwnerID: 7})
	assert.True(t, apperr.IsCode(err, apperr.ValidationFailed))
}

func TestExpireBefore(t *testing.T) {
	s := New()
	now := time.Now()
	seed(t, s, now, "a")

	n, err := s.Listings().ExpireBefore(context.Background(), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	l, err := s.Listings().GetByID(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, l.Active)
}

func TestFailFlag(t *testing.T) {
	s := New()
	s.Fail = true
	_, err := s.Listings().ListActive(context.Background(), models.ListingFilter{Limit: 1}, time.Now())
	assert.True(t, apperr.IsCode(err, apperr.StoreUnavailable))
}

func TestReturnedListingsAreCopies(t *testing.T) {
	s := New()
	now := time.Now()
	seed(t, s, now, "a")

	l, err := s.Listings().GetByID(context.Background(), "a")
	require.NoError(t, err)
	l.Likes = 99

	again, err := s.Listings().GetByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Zero(t, again.Likes)
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	var k keyedMutex
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("listing")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Empty(t, k.locks)
}
