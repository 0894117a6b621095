package config

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/vidhub/internal/timex"
	"github.com/joho/godotenv"
)

// loadDotEnv exports variables from path into the process environment.
// Variables that are already set win; a missing file is not an error.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
}

type lookupFunc func(key string) (string, bool)

// parseEnv overlays Config with environment variables.
//
// Supported variables:
//
//	PORT                    HTTP port (bound on all interfaces)
//	GRPC_ADDR               gRPC health endpoint address
//	STORE_DRIVER            postgres | redis | memory
//	DATABASE_DSN            PostgreSQL DSN
//	REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
//	ACCESS_TOKEN_SECRET, ACCESS_TOKEN_EXPIRY    (e.g. "1d", "15m")
//	REFRESH_TOKEN_SECRET, REFRESH_TOKEN_EXPIRY  (e.g. "10d")
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT, S3_PUBLIC_URL
//	UPLOAD_DIR, MAX_UPLOAD_BYTES, SECURE_COOKIES, LOG_LEVEL
//
// Malformed numeric, boolean or duration values panic, like a bad JSON file.
func parseEnv(c *Config, lookup lookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		c.EndpointAddrHTTP = ":" + strings.TrimPrefix(v, ":")
	}
	str("GRPC_ADDR", &c.EndpointAddrGRPC)
	str("STORE_DRIVER", &c.StoreDriver)
	str("DATABASE_DSN", &c.DatabaseDSN)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	str("ACCESS_TOKEN_SECRET", &c.AccessTokenSecret)
	str("REFRESH_TOKEN_SECRET", &c.RefreshTokenSecret)
	str("S3_ROOT_USER", &c.S3RootUser)
	str("S3_ROOT_PASSWORD", &c.S3RootPassword)
	str("S3_BUCKET", &c.S3Bucket)
	str("S3_REGION", &c.S3Region)
	str("S3_BASE_ENDPOINT", &c.S3BaseEndpoint)
	str("S3_PUBLIC_URL", &c.S3PublicURL)
	str("UPLOAD_DIR", &c.UploadDir)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		c.RedisDB = n
	}
	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		c.MaxUploadBytes = n
	}
	if v, ok := lookup("SECURE_COOKIES"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		c.SecureCookies = b
	}
	if v, ok := lookup("ACCESS_TOKEN_EXPIRY"); ok && v != "" {
		d, err := timex.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		c.AccessTokenValidityDuration = d
	}
	if v, ok := lookup("REFRESH_TOKEN_EXPIRY"); ok && v != "" {
		d, err := timex.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		c.RefreshTokenValidityDuration = d
	}
}
