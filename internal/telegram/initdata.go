// Package telegram adapts the Telegram platform: Mini App init data and the launch bot.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/services"
)

const webAppKey = "WebAppData"

// webAppUser is the user object embedded in init data
type webAppUser struct {
	ID        json.Number `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Username  string      `json:"username"`
	IsPremium bool        `json:"is_premium"`
}

// ParseInitData verifies Mini App init data signed with botToken and turns it into an
// identity assertion. Empty init data means the app was opened outside Telegram and
// yields a nil assertion. A zero maxAge disables the freshness check.
func ParseInitData(raw, botToken string, maxAge time.Duration, now time.Time) (*services.Assertion, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Unauthenticated, "malformed init data")
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, apperr.New(apperr.Unauthenticated, "init data is not signed")
	}
	if !hmac.Equal([]byte(strings.ToLower(hash)), []byte(Sign(values, botToken))) {
		return nil, apperr.New(apperr.Unauthenticated, "init data signature mismatch")
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.Unauthenticated, "init data has no auth_date")
		}
		if now.Sub(time.Unix(authDate, 0)) > maxAge {
			return nil, apperr.New(apperr.Unauthenticated, "init data expired")
		}
	}

	rawUser := values.Get("user")
	if rawUser == "" {
		return nil, apperr.New(apperr.Unauthenticated, "init data has no user")
	}
	var user webAppUser
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil, apperr.Wrap(err, apperr.Unauthenticated, "malformed init data user")
	}

	return &services.Assertion{
		SubjectID:   user.ID.String(),
		DisplayName: strings.TrimSpace(user.FirstName + " " + user.LastName),
		Username:    user.Username,
		Premium:     user.IsPremium,
	}, nil
}

// Sign computes the hex hash Telegram attaches to init data
func Sign(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + values.Get(k)
	}

	secret := hmac.New(sha256.New, []byte(webAppKey))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
