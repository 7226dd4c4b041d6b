package config

import (
	"errors"
	"fmt"
	"time"
)

// JWT expiry has second granularity.
const minTokenTTL = time.Second

// Validate rejects configurations the server cannot run safely with.
func (c *Config) Validate() error {
	var errs []error

	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("token secrets must not be empty"))
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, errors.New("access and refresh token secrets must differ"))
	}
	if c.AccessTokenTTL < minTokenTTL || c.RefreshTokenTTL < minTokenTTL {
		errs = append(errs, fmt.Errorf("token lifetimes must be at least %s", minTokenTTL))
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		errs = append(errs, errors.New("refresh token lifetime must not be shorter than access token lifetime"))
	}
	if c.CacheBackend != CacheBackendRedis && c.CacheBackend != CacheBackendMemory {
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.CacheBackend))
	}
	if c.RefreshKeyPrefix == "" || c.BlacklistKey == "" {
		errs = append(errs, errors.New("cache key names must not be empty"))
	}

	return errors.Join(errs...)
}
