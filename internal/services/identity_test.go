package services

import (
	"context"
	"testing"
	"time"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/models"
	"vape-market-backend/internal/repository/memory"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newIdentity(store *memory.Store, admins ...uint64) *IdentityService {
	return NewIdentityService(store.Users(), admins, testSecret, time.Hour)
}

func TestResolve_NilAssertionIsGuest(t *testing.T) {
	store := memory.New()
	svc := newIdentity(store)

	account, err := svc.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, account.Key.IsGuest())
	assert.False(t, account.IsPrivileged)
	assert.Equal(t, 0, store.Users().Count())
}

func TestResolve_GuestsGetDistinctKeys(t *testing.T) {
	svc := newIdentity(memory.New())
	a := svc.Guest()
	b := svc.Guest()
	assert.NotEqual(t, a.Key, b.Key)
}

func TestResolve_NumericSubjectRegisters(t *testing.T) {
	store := memory.New()
	svc := newIdentity(store)

	account, err := svc.Resolve(context.Background(), &Assertion{SubjectID: "123456", DisplayName: "Ivan"})
	require.NoError(t, err)

	id, ok := account.Key.TelegramID()
	require.True(t, ok)
	assert.Equal(t, uint64(123456), id)
	assert.Equal(t, "Ivan", account.DisplayName)
	assert.Equal(t, "user_123456", account.Username)
	assert.False(t, account.IsPrivileged)

	rec, err := store.Users().GetByID(context.Background(), 123456)
	require.NoError(t, err)
	assert.Equal(t, "Ivan", rec.DisplayName)
}

func TestResolve_NonNumericSubjectIsUnregisteredGuest(t *testing.T) {
	store := memory.New()
	svc := newIdentity(store)

	account, err := svc.Resolve(context.Background(), &Assertion{SubjectID: "abc", DisplayName: "Ivan"})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.Unregistered))
	require.NotNil(t, account)
	assert.True(t, account.Key.IsGuest())
	assert.Equal(t, 0, store.Users().Count())
}

func TestResolve_Privilege(t *testing.T) {
	svc := newIdentity(memory.New(), 42)

	admin, err := svc.Resolve(context.Background(), &Assertion{SubjectID: "42"})
	require.NoError(t, err)
	assert.True(t, admin.IsPrivileged)

	other, err := svc.Resolve(context.Background(), &Assertion{SubjectID: "420"})
	require.NoError(t, err)
	assert.False(t, other.IsPrivileged)
}

func TestResolve_IdempotentUpsert(t *testing.T) {
	store := memory.New()
	svc := newIdentity(store)
	ctx := context.Background()

	for range 3 {
		_, err := svc.Resolve(ctx, &Assertion{SubjectID: "7", DisplayName: "Same"})
		require.NoError(t, err)
	}
	_, err := svc.Resolve(ctx, &Assertion{SubjectID: "7", DisplayName: "Renamed"})
	require.NoError(t, err)

	assert.Equal(t, 1, store.Users().Count())
	rec, err := store.Users().GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", rec.DisplayName)
}

func TestResolve_StoreFailureKeepsAccount(t *testing.T) {
	store := memory.New()
	store.Fail = true
	svc := newIdentity(store)

	account, err := svc.Resolve(context.Background(), &Assertion{SubjectID: "9"})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.StoreUnavailable))
	require.NotNil(t, account)
	id, ok := account.Key.TelegramID()
	assert.True(t, ok)
	assert.Equal(t, uint64(9), id)
}

func TestEnsureRegistered(t *testing.T) {
	store := memory.New()
	svc := newIdentity(store)
	ctx := context.Background()

	err := svc.EnsureRegistered(ctx, svc.Guest())
	assert.True(t, apperr.IsCode(err, apperr.Unauthenticated))

	account := svc.account(77, "Late", "", false)
	require.NoError(t, svc.EnsureRegistered(ctx, account))
	assert.Equal(t, 1, store.Users().Count())

	store.Fail = true
	err = svc.EnsureRegistered(ctx, svc.account(78, "", "", false))
	assert.Error(t, err)
}

func TestToken_RoundTrip(t *testing.T) {
	svc := newIdentity(memory.New(), 5)

	account, err := svc.Resolve(context.Background(), &Assertion{SubjectID: "5", DisplayName: "Admin", Premium: true})
	require.NoError(t, err)

	token, err := svc.IssueToken(account)
	require.NoError(t, err)

	got, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, account.Key, got.Key)
	assert.Equal(t, "Admin", got.DisplayName)
	assert.True(t, got.Premium)
	assert.True(t, got.IsPrivileged)
}

func TestToken_GuestRoundTrip(t *testing.T) {
	svc := newIdentity(memory.New())
	guest := svc.Guest()

	token, err := svc.IssueToken(guest)
	require.NoError(t, err)

	got, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, guest.Key, got.Key)
	assert.False(t, got.IsPrivileged)
}

func TestToken_Rejected(t *testing.T) {
	svc := newIdentity(memory.New())
	account := svc.account(11, "", "", false)

	token, err := svc.IssueToken(account)
	require.NoError(t, err)

	other := NewIdentityService(memory.New().Users(), nil, "another-secret", time.Hour)
	_, err = other.Authenticate(token)
	assert.True(t, apperr.IsCode(err, apperr.Unauthenticated))

	_, err = svc.Authenticate(token + "x")
	assert.True(t, apperr.IsCode(err, apperr.Unauthenticated))

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Authenticate(token)
	assert.True(t, apperr.IsCode(err, apperr.Unauthenticated))
}

func TestToken_RejectsNoneAlgorithm(t *testing.T) {
	svc := newIdentity(memory.New())

	claims := jwt.RegisteredClaims{
		Subject:   models.RegisteredKey(1).String(),
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Authenticate(token)
	assert.True(t, apperr.IsCode(err, apperr.Unauthenticated))
}
