package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: s3cret
market:
  admins: [998579758]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 14*24*time.Hour, cfg.Market.ListingLifetime)
	assert.Equal(t, 20, cfg.Market.PageSize)
	assert.Equal(t, 50, cfg.Market.MaxPageSize)
	assert.Equal(t, PricePolicyLenient, cfg.Market.PricePolicy)
	assert.Equal(t, 3, cfg.Market.VoteAttempts)
	assert.Equal(t, []uint64{998579758}, cfg.Market.Admins)
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: s3cret
  ttl: 2h
market:
  listing_lifetime: 72h
  sweep_interval: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 72*time.Hour, cfg.Market.ListingLifetime)
	assert.Equal(t, 30*time.Second, cfg.Market.SweepInterval)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing secret":      `log: {level: debug}`,
		"bad driver":          "jwt: {secret: x}\ndatabase: {driver: mongo}",
		"bad policy":          "jwt: {secret: x}\nmarket: {price_policy: free}",
		"page too large":      "jwt: {secret: x}\nmarket: {page_size: 80, max_page_size: 50}",
		"negative page size":  "jwt: {secret: x}\nmarket: {page_size: -5}",
		"negative max photos": "jwt: {secret: x}\nmarket: {max_photos: -1}",
		"negative lifetime":   "jwt: {secret: x}\nmarket: {listing_lifetime: -1h}",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
