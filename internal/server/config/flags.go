package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-k string   cache backend: redis or memory
//	-ra string  Redis address
//	-s string   access token secret
//	-rs string  refresh token secret
//	-t int      access token lifetime, minutes
//	-r int      refresh token lifetime, minutes
//	-l string   log level
//
// os.Args is filtered through flagx.FilterArgs first so the -c/-config
// flag handled by parseJson does not trip this flag set.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-ra", "-s", "-rs", "-t", "-r", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.CacheBackend, "k", config.CacheBackend, "cache backend (redis|memory)")
	fs.StringVar(&config.RedisAddr, "ra", config.RedisAddr, "redis address")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "rs", config.RefreshTokenSecret, "refresh token secret")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	accessTTL := fs.Int("t", int(config.AccessTokenTTL.Minutes()), "access token lifetime (in minutes)")
	refreshTTL := fs.Int("r", int(config.RefreshTokenTTL.Minutes()), "refresh token lifetime (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// lifetimes from JSON or env keep their precision unless -t/-r is given
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenTTL = time.Duration(*accessTTL) * time.Minute
		case "r":
			config.RefreshTokenTTL = time.Duration(*refreshTTL) * time.Minute
		}
	})
}
