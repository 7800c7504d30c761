package models

import "fmt"

// VoteKind is what a voter casts
type VoteKind string

const (
	VoteApprove    VoteKind = "approve"
	VoteDisapprove VoteKind = "disapprove"
)

// ParseVoteKind accepts the stored names plus the like/dislike aliases the Mini App sends
func ParseVoteKind(s string) (VoteKind, error) {
	switch s {
	case string(VoteApprove), "like":
		return VoteApprove, nil
	case string(VoteDisapprove), "dislike":
		return VoteDisapprove, nil
	default:
		return "", fmt.Errorf("unknown vote kind %q", s)
	}
}

// VoteState is a voter's position on one listing
type VoteState uint8

const (
	NoVote VoteState = iota
	Approve
	Disapprove
)

// StateOf maps a stored kind to its state
func StateOf(kind VoteKind) VoteState {
	switch kind {
	case VoteApprove:
		return Approve
	case VoteDisapprove:
		return Disapprove
	default:
		return NoVote
	}
}

// Kind returns the stored kind for a state; ok is false for NoVote
func (s VoteState) Kind() (VoteKind, bool) {
	switch s {
	case Approve:
		return VoteApprove, true
	case Disapprove:
		return VoteDisapprove, true
	default:
		return "", false
	}
}

func (s VoteState) String() string {
	switch s {
	case Approve:
		return "approve"
	case Disapprove:
		return "disapprove"
	default:
		return "none"
	}
}

// MarshalText renders the state for JSON
func (s VoteState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses the form written by MarshalText
func (s *VoteState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "approve":
		*s = Approve
	case "disapprove":
		*s = Disapprove
	case "none", "":
		*s = NoVote
	default:
		return fmt.Errorf("unknown vote state %q", b)
	}
	return nil
}

// Counters are a listing's aggregate vote counts, or a delta applied to them
type Counters struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// Apply adds delta to c, flooring each counter at zero independently.
// It returns the delta that was actually applied.
func (c Counters) Apply(delta Counters) (Counters, Counters) {
	next := Counters{Likes: c.Likes + delta.Likes, Dislikes: c.Dislikes + delta.Dislikes}
	if next.Likes < 0 {
		next.Likes = 0
	}
	if next.Dislikes < 0 {
		next.Dislikes = 0
	}
	return next, Counters{Likes: next.Likes - c.Likes, Dislikes: next.Dislikes - c.Dislikes}
}

// Transition computes the next state and the counter delta for a cast.
// Casting the held kind again toggles it off; casting the other kind switches.
func Transition(current VoteState, cast VoteKind) (VoteState, Counters) {
	target := StateOf(cast)

	var delta Counters
	switch current {
	case Approve:
		delta.Likes--
	case Disapprove:
		delta.Dislikes--
	}

	if current == target {
		return NoVote, delta
	}

	switch target {
	case Approve:
		delta.Likes++
	case Disapprove:
		delta.Dislikes++
	}
	return target, delta
}

// VoteOutcome is the committed result of a cast
type VoteOutcome struct {
	ListingID string    `json:"listing_id"`
	Applied   bool      `json:"applied"`
	State     VoteState `json:"state"`
	Delta     Counters  `json:"delta"`
	Counters  Counters  `json:"counters"`
}
