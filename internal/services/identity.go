package services

import (
	"context"
	"fmt"
	"time"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultDisplayName = "Пользователь"
	guestDisplayName   = "Гость"
	tokenIssuer        = "vape-market"
)

// Assertion is what the platform says about the user. It is trusted as given.
type Assertion struct {
	SubjectID   string
	DisplayName string
	Username    string
	Premium     bool
}

// IdentityService resolves assertions to accounts and issues session tokens
type IdentityService struct {
	users     UserStore
	admins    map[uint64]struct{}
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewIdentityService creates a new identity service
func NewIdentityService(users UserStore, admins []uint64, jwtSecret string, tokenTTL time.Duration) *IdentityService {
	set := make(map[uint64]struct{}, len(admins))
	for _, id := range admins {
		set[id] = struct{}{}
	}
	return &IdentityService{
		users:     users,
		admins:    set,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// Guest returns a fresh guest account. Nothing is persisted for it.
func (s *IdentityService) Guest() *models.Account {
	return &models.Account{
		Key:         models.GuestKey(uuid.NewString()),
		DisplayName: guestDisplayName,
	}
}

// Resolve turns an assertion into an account and upserts its user row.
// A nil assertion yields a guest. A non-numeric subject yields a guest together with an
// Unregistered error so the caller can keep browsing. A store failure during the upsert
// yields the registered account together with the store error.
func (s *IdentityService) Resolve(ctx context.Context, a *Assertion) (*models.Account, error) {
	if a == nil {
		return s.Guest(), nil
	}

	id, err := models.ParseTelegramID(a.SubjectID)
	if err != nil {
		guest := s.Guest()
		if a.DisplayName != "" {
			guest.DisplayName = a.DisplayName
		}
		return guest, apperr.Wrap(err, apperr.Unregistered, "identity assertion has no usable subject")
	}

	account := s.account(id, a.DisplayName, a.Username, a.Premium)
	if err := s.register(ctx, account); err != nil {
		return account, err
	}
	return account, nil
}

// EnsureRegistered makes sure a registered account has its user row, re-registering once
func (s *IdentityService) EnsureRegistered(ctx context.Context, account *models.Account) error {
	if account == nil {
		return apperr.New(apperr.Unauthenticated, "no session")
	}
	id, ok := account.Key.TelegramID()
	if !ok {
		return apperr.New(apperr.Unauthenticated, "guest sessions cannot publish")
	}

	exists, err := s.users.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check registration: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.register(ctx, account); err != nil {
		return apperr.Wrap(err, apperr.Unregistered, "account is not registered")
	}
	return nil
}

func (s *IdentityService) account(id uint64, displayName, username string, premium bool) *models.Account {
	if displayName == "" {
		displayName = defaultDisplayName
	}
	if username == "" {
		username = fmt.Sprintf("user_%d", id)
	}
	_, privileged := s.admins[id]
	return &models.Account{
		Key:          models.RegisteredKey(id),
		DisplayName:  displayName,
		Username:     username,
		Premium:      premium,
		IsPrivileged: privileged,
	}
}

func (s *IdentityService) register(ctx context.Context, account *models.Account) error {
	id, ok := account.Key.TelegramID()
	if !ok {
		return apperr.New(apperr.Unauthenticated, "guest accounts are never registered")
	}
	user := &models.UserRecord{
		TelegramID:  id,
		Username:    account.Username,
		DisplayName: account.DisplayName,
		Premium:     account.Premium,
		UpdatedAt:   s.now(),
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

type sessionClaims struct {
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Premium  bool   `json:"premium,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs a session token for the account
func (s *IdentityService) IssueToken(account *models.Account) (string, error) {
	now := s.now()
	claims := sessionClaims{
		Name:     account.DisplayName,
		Username: account.Username,
		Premium:  account.Premium,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Key.String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Authenticate validates a session token and rebuilds its account.
// Privilege is recomputed from the allow-list, never read from the token.
func (s *IdentityService) Authenticate(tokenString string) (*models.Account, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Unauthenticated, "invalid session token")
	}

	key, err := models.ParseAccountKey(claims.Subject)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Unauthenticated, "invalid session subject")
	}

	if id, ok := key.TelegramID(); ok {
		return s.account(id, claims.Name, claims.Username, claims.Premium), nil
	}
	return &models.Account{Key: key, DisplayName: claims.Name}, nil
}
