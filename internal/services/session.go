package services

import "vape-market-backend/internal/models"

// Session is the identity of one Mini App session. The presentation layer holds it and
// hands its Account to every core call; nothing in this package keeps a current user.
type Session struct {
	Account *models.Account
	Token   string
}

// IsGuest reports whether the session has no registered identity
func (s *Session) IsGuest() bool {
	return s == nil || s.Account == nil || s.Account.Key.IsGuest() || s.Account.Key.IsZero()
}
