// Package memory is an in-process store with the same contracts as the Postgres repositories.
// It backs the offline driver and the service tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/models"
)

type voteKey struct {
	listingID string
	voterID   uint64
}

// Store holds all tables. mu guards the maps; a vote additionally holds the per-listing lock
// for its whole read-modify-write so counters and the vote row change together.
type Store struct {
	mu       sync.RWMutex
	users    map[uint64]*models.UserRecord
	listings map[string]*models.Listing
	votes    map[voteKey]*models.Vote

	locks keyedMutex

	// Fail makes every operation return StoreUnavailable when set
	Fail bool
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:    make(map[uint64]*models.UserRecord),
		listings: make(map[string]*models.Listing),
		votes:    make(map[voteKey]*models.Vote),
	}
}

// Users returns the user table view
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Listings returns the listing table view
func (s *Store) Listings() *ListingRepository { return &ListingRepository{s: s} }

// Votes returns the vote table view
func (s *Store) Votes() *VoteRepository { return &VoteRepository{s: s} }

func (s *Store) check(ctx context.Context) error {
	if s.Fail {
		return apperr.New(apperr.StoreUnavailable, "memory store is offline")
	}
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(err, apperr.StoreUnavailable, "request abandoned")
	}
	return nil
}

// UserRepository is the users table
type UserRepository struct{ s *Store }

// Upsert creates the user or refreshes its profile fields in place
func (r *UserRepository) Upsert(ctx context.Context, user *models.UserRecord) error {
	if err := r.s.check(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing, ok := r.s.users[user.TelegramID]; ok {
		existing.Username = user.Username
		existing.DisplayName = user.DisplayName
		existing.Premium = user.Premium
		existing.UpdatedAt = user.UpdatedAt
		return nil
	}
	rec := *user
	rec.CreatedAt = user.UpdatedAt
	rec.TotalListings = 0
	r.s.users[user.TelegramID] = &rec
	return nil
}

// Exists checks if a user row is present
func (r *UserRepository) Exists(ctx context.Context, telegramID uint64) (bool, error) {
	if err := r.s.check(ctx); err != nil {
		return false, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.users[telegramID]
	return ok, nil
}

// GetByID retrieves a copy of a user row
func (r *UserRepository) GetByID(ctx context.Context, telegramID uint64) (*models.UserRecord, error) {
	if err := r.s.check(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[telegramID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	c := *user
	return &c, nil
}

// Count returns the number of user rows
func (r *UserRepository) Count() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.users)
}

// ListingRepository is the listings table
type ListingRepository struct{ s *Store }

// Create inserts a listing and bumps the owner's listing count
func (r *ListingRepository) Create(ctx context.Context, listing *models.Listing) error {
	if err := r.s.check(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	owner, ok := r.s.users[listing.OwnerID]
	if !ok {
		return apperr.New(apperr.ValidationFailed, "listing owner does not exist")
	}
	if _, dup := r.s.listings[listing.ID]; dup {
		return apperr.New(apperr.Conflict, "listing id already used")
	}
	r.s.listings[listing.ID] = cloneListing(listing)
	owner.TotalListings++
	return nil
}

// GetByID retrieves a copy of a listing
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	if err := r.s.check(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	listing, ok := r.s.listings[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "listing not found")
	}
	return cloneListing(listing), nil
}

// ListActive retrieves live listings, newest first, optionally narrowed by category
func (r *ListingRepository) ListActive(ctx context.Context, filter models.ListingFilter, now time.Time) ([]*models.Listing, error) {
	if err := r.s.check(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	live := make([]*models.Listing, 0, len(r.s.listings))
	for _, l := range r.s.listings {
		if !l.IsLive(now) {
			continue
		}
		if filter.Category != "" && l.Category != filter.Category {
			continue
		}
		live = append(live, l)
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].CreatedAt.Equal(live[j].CreatedAt) {
			return live[i].ID > live[j].ID
		}
		return live[i].CreatedAt.After(live[j].CreatedAt)
	})

	if filter.Offset >= len(live) {
		return []*models.Listing{}, nil
	}
	live = live[filter.Offset:]
	if filter.Limit < len(live) {
		live = live[:filter.Limit]
	}

	page := make([]*models.Listing, len(live))
	for i, l := range live {
		page[i] = cloneListing(l)
	}
	return page, nil
}

// ExpireBefore deactivates listings whose lifetime ended at or before now
func (r *ListingRepository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	if err := r.s.check(ctx); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, l := range r.s.listings {
		if l.Active && !now.Before(l.ExpiresAt) {
			l.Active = false
			n++
		}
	}
	return n, nil
}

// IncrementViews bumps the view counter
func (r *ListingRepository) IncrementViews(ctx context.Context, id string) error {
	if err := r.s.check(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.listings[id]
	if !ok {
		return apperr.New(apperr.NotFound, "listing not found")
	}
	l.Views++
	return nil
}

// VoteRepository is the votes table and the only writer of like/dislike counters
type VoteRepository struct{ s *Store }

// Apply casts a vote under the listing's lock
func (r *VoteRepository) Apply(ctx context.Context, listingID string, voterID uint64, kind models.VoteKind, now time.Time) (*models.VoteOutcome, error) {
	if err := r.s.check(ctx); err != nil {
		return nil, err
	}

	unlock := r.s.locks.Lock(listingID)
	defer unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	listing, ok := r.s.listings[listingID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "listing not found")
	}
	if !listing.IsLive(now) {
		return nil, apperr.New(apperr.ValidationFailed, "This listing is closed for voting")
	}

	key := voteKey{listingID: listingID, voterID: voterID}
	current := models.NoVote
	if v, ok := r.s.votes[key]; ok {
		current = models.StateOf(v.Kind)
	}

	next, delta := models.Transition(current, kind)
	if nextKind, ok := next.Kind(); ok {
		r.s.votes[key] = &models.Vote{ListingID: listingID, VoterID: voterID, Kind: nextKind, UpdatedAt: now}
	} else {
		delete(r.s.votes, key)
	}

	counters := models.Counters{Likes: listing.Likes, Dislikes: listing.Dislikes}
	after, applied := counters.Apply(delta)
	listing.Likes, listing.Dislikes = after.Likes, after.Dislikes

	return &models.VoteOutcome{
		ListingID: listingID,
		Applied:   true,
		State:     next,
		Delta:     applied,
		Counters:  after,
	}, nil
}

// ByVoter returns the voter's current kinds for the given listings
func (r *VoteRepository) ByVoter(ctx context.Context, voterID uint64, listingIDs []string) (map[string]models.VoteKind, error) {
	if err := r.s.check(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	votes := make(map[string]models.VoteKind, len(listingIDs))
	for _, id := range listingIDs {
		if v, ok := r.s.votes[voteKey{listingID: id, voterID: voterID}]; ok {
			votes[id] = v.Kind
		}
	}
	return votes, nil
}

// Tally counts the vote rows of each kind held for a listing
func (r *VoteRepository) Tally(listingID string) models.Counters {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var c models.Counters
	for k, v := range r.s.votes {
		if k.listingID != listingID {
			continue
		}
		switch v.Kind {
		case models.VoteApprove:
			c.Likes++
		case models.VoteDisapprove:
			c.Dislikes++
		}
	}
	return c
}

func cloneListing(l *models.Listing) *models.Listing {
	c := *l
	c.PhotoRefs = slices.Clone(l.PhotoRefs)
	return &c
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds or waits for it
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until key is free and returns the matching unlock
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedEntry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
