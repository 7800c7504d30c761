package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type keyKind uint8

const (
	keyNone keyKind = iota
	keyRegistered
	keyGuest
)

const (
	registeredPrefix = "tg:"
	guestPrefix      = "guest:"
)

// AccountKey identifies whoever is acting: a registered Telegram user or a guest session.
// The tag is part of equality, so a guest token never compares equal to a registered id.
type AccountKey struct {
	kind  keyKind
	id    uint64
	token string
}

// RegisteredKey builds a key for a Telegram user id
func RegisteredKey(id uint64) AccountKey {
	return AccountKey{kind: keyRegistered, id: id}
}

// GuestKey builds a key for a non-persistent guest session
func GuestKey(token string) AccountKey {
	return AccountKey{kind: keyGuest, token: token}
}

// IsZero reports whether the key was never set
func (k AccountKey) IsZero() bool { return k.kind == keyNone }

// IsGuest reports whether the key belongs to a guest session
func (k AccountKey) IsGuest() bool { return k.kind == keyGuest }

// TelegramID returns the registered id; ok is false for guests
func (k AccountKey) TelegramID() (uint64, bool) {
	if k.kind != keyRegistered {
		return 0, false
	}
	return k.id, true
}

// String renders the key as tg:<id> or guest:<token>
func (k AccountKey) String() string {
	switch k.kind {
	case keyRegistered:
		return registeredPrefix + strconv.FormatUint(k.id, 10)
	case keyGuest:
		return guestPrefix + k.token
	default:
		return ""
	}
}

// ParseAccountKey is the inverse of AccountKey.String
func ParseAccountKey(s string) (AccountKey, error) {
	switch {
	case strings.HasPrefix(s, registeredPrefix):
		id, err := ParseTelegramID(strings.TrimPrefix(s, registeredPrefix))
		if err != nil {
			return AccountKey{}, err
		}
		return RegisteredKey(id), nil
	case strings.HasPrefix(s, guestPrefix):
		token := strings.TrimPrefix(s, guestPrefix)
		if token == "" {
			return AccountKey{}, fmt.Errorf("empty guest token")
		}
		return GuestKey(token), nil
	default:
		return AccountKey{}, fmt.Errorf("unknown account key %q", s)
	}
}

// ParseTelegramID coerces a subject identifier to a positive id that fits a signed bigint column
func ParseTelegramID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 63)
	if err != nil {
		return 0, fmt.Errorf("subject id %q is not numeric: %w", s, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("subject id must be positive")
	}
	return id, nil
}

// Account is the resolved identity of a session
type Account struct {
	Key          AccountKey `json:"-"`
	DisplayName  string     `json:"display_name"`
	Username     string     `json:"username,omitempty"`
	Premium      bool       `json:"premium"`
	IsPrivileged bool       `json:"is_privileged"`
}

// UserRecord is the persisted row for a registered account
type UserRecord struct {
	TelegramID    uint64    `json:"telegram_id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"display_name"`
	Premium       bool      `json:"premium"`
	TotalListings int       `json:"total_listings"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Listing kinds
const (
	KindOffering = "offering"
	KindSeeking  = "seeking"
)

// CategoryAll disables category narrowing in a filter
const CategoryAll = "all"

// Category is one entry of the fixed category set
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Categories is the fixed category set, in display order
var Categories = []Category{
	{ID: "pod", Name: "POD системы"},
	{ID: "mod", Name: "Моды"},
	{ID: "liquid", Name: "Жидкости"},
	{ID: "atomizer", Name: "Атомайзеры"},
	{ID: "accessories", Name: "Аксессуары"},
}

// IsCategory reports whether id belongs to the fixed category set
func IsCategory(id string) bool {
	for _, c := range Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// NormalizeCategory folds a filter value to a category id; "" and "all" mean no narrowing
func NormalizeCategory(raw string) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	if c == CategoryAll {
		return ""
	}
	return c
}

// Listing represents a marketplace ad. Price is in whole rubles.
type Listing struct {
	ID          string    `json:"id"`
	OwnerID     uint64    `json:"owner_id"`
	OwnerName   string    `json:"owner_name"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Kind        string    `json:"kind"`
	Price       int64     `json:"price"` // whole rubles, 0 means negotiable
	Description string    `json:"description"`
	PhotoRefs   []string  `json:"photo_refs"`
	Likes       int       `json:"likes"`
	Dislikes    int       `json:"dislikes"`
	Views       int       `json:"views"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Active      bool      `json:"active"`
}

// IsLive reports whether the listing accepts votes at the given time
func (l *Listing) IsLive(now time.Time) bool {
	return l.Active && now.Before(l.ExpiresAt)
}

// ListingFilter narrows the active feed
type ListingFilter struct {
	Category string
	Limit    int
	Offset   int
}

// Vote is the single vote a voter holds on a listing
type Vote struct {
	ListingID string    `json:"listing_id"`
	VoterID   uint64    `json:"voter_id"`
	Kind      VoteKind  `json:"kind"`
	UpdatedAt time.Time `json:"updated_at"`
}
