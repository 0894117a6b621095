package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"endpoint_addr_http":              ":9000",
		"store_driver":                    "memory",
		"access_token_secret":             "json-access",
		"access_token_validity_duration":  "15m",
		"refresh_token_validity_duration": "7d",
		"redis_db":                        3,
		"s3_public_url":                   "https://cdn.example.com",
		"secure_cookies":                  false,
	})

	t.Run("overlays only the fields present", func(t *testing.T) {
		var cfg Config
		cfg.LoadDefaults()

		parseJson(&cfg, []string{"-config", path})

		assert.Equal(t, ":9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
		assert.Equal(t, "json-access", cfg.AccessTokenSecret)
		assert.Equal(t, "refreshSecret", cfg.RefreshTokenSecret, "absent field keeps its value")
		assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, 3, cfg.RedisDB)
		assert.Equal(t, "https://cdn.example.com", cfg.S3PublicURL)
		assert.False(t, cfg.SecureCookies)
		assert.Equal(t, ":50051", cfg.EndpointAddrGRPC)
	})

	t.Run("no config flag leaves config untouched", func(t *testing.T) {
		cfg := Config{EndpointAddrHTTP: "defaults:1234"}
		parseJson(&cfg, []string{"-a", ":1"})
		assert.Equal(t, "defaults:1234", cfg.EndpointAddrHTTP)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg, []string{"-c", bad}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg, []string{"-c", filepath.Join(t.TempDir(), "nope.json")}) })
	})
}
