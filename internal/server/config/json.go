package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept "15m"-style strings or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC   string         `json:"endpoint_addr_grpc"`
	DatabaseDSN        string         `json:"database_dsn"`
	CacheBackend       string         `json:"cache_backend"`
	RedisAddr          string         `json:"redis_addr"`
	RedisPassword      string         `json:"redis_password"`
	RedisDB            *int           `json:"redis_db"`
	AccessTokenSecret  string         `json:"access_token_secret"`
	AccessTokenTTL     timex.Duration `json:"access_token_expires_in"`
	RefreshTokenSecret string         `json:"refresh_token_secret"`
	RefreshTokenTTL    timex.Duration `json:"refresh_token_expires_in"`
	RefreshKeyPrefix   string         `json:"refresh_key_prefix"`
	BlacklistKey       string         `json:"blacklist_key"`
	BcryptCost         int            `json:"bcrypt_cost"`
	LogLevel           string         `json:"log_level"`
	OTelEndpoint       string         `json:"otel_endpoint"`
}

// parseJson loads the file named by -c/-config, if any, into config. Only
// fields present (non-zero) in the file override the current values. An
// unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.CacheBackend, c.CacheBackend)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	if c.AccessTokenTTL.Duration != 0 {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	if c.RefreshTokenTTL.Duration != 0 {
		config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
	setString(&config.RefreshKeyPrefix, c.RefreshKeyPrefix)
	setString(&config.BlacklistKey, c.BlacklistKey)
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.OTelEndpoint, c.OTelEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
