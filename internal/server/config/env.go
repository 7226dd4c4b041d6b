package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays variables that are set in the environment onto config.
// Unset variables leave the current value untouched. A malformed value
// (for example ACCESS_TOKEN_EXPIRES_IN=soon) panics, like a bad flag does.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
