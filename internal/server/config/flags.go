package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/flagx"
)

var knownFlags = []string{
	"-a", "-m", "-k", "-d", "-R", "-s", "-x", "-t", "-r",
	"-u", "-p", "-b", "-g", "-e", "-w", "-f", "-L", "-secure-cookies",
}

// parseFlags overlays Config with command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g. ":8000")
//	-m string   gRPC health bind address (e.g. ":50051")
//	-k string   store driver: postgres, redis or memory
//	-d string   PostgreSQL DSN
//	-R string   redis address
//	-s string   access token HMAC secret
//	-x string   refresh token HMAC secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g. "http://127.0.0.1:9000/")
//	-w string   public base URL of uploaded objects
//	-f string   multipart spool directory
//	-L string   log level
//	-secure-cookies bool
//
// Args are filtered with flagx.FilterArgs first so that flags owned by other
// components (such as -c) do not break parsing.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the HTTP server")
	fs.StringVar(&config.EndpointAddrGRPC, "m", config.EndpointAddrGRPC, "address and port to run the gRPC health server")
	fs.StringVar(&config.StoreDriver, "k", config.StoreDriver, "credential store driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "R", config.RedisAddr, "redis address")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "x", config.RefreshTokenSecret, "refresh token secret")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3PublicURL, "w", config.S3PublicURL, "public URL of uploaded objects")
	fs.StringVar(&config.UploadDir, "f", config.UploadDir, "upload spool directory")
	fs.StringVar(&config.LogLevel, "L", config.LogLevel, "log level")
	fs.BoolVar(&config.SecureCookies, "secure-cookies", config.SecureCookies, "set Secure on token cookies")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		panic(err)
	}

	// durations only change when given explicitly, so sub-minute values from
	// the environment or JSON survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		}
	})
}
