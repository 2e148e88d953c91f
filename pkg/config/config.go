// Package config loads credentials and endpoint settings from the
// environment, with optional .env file support for local development.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/unifex/exchange-adapter/pkg/meta"
	"github.com/unifex/exchange-adapter/pkg/types"
)

// Load reads the given .env files into the process environment. Missing
// files are skipped; real variables always win over file values.
func Load(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

func envKey(exchange meta.ExchangeName, suffix string) string {
	return strings.ToUpper(string(exchange)) + "_" + suffix
}

// CredentialsFor reads one exchange's API credentials from the environment:
// <EXCHANGE>_API_KEY, <EXCHANGE>_SECRET_KEY, <EXCHANGE>_PASSPHRASE,
// <EXCHANGE>_UID.
func CredentialsFor(exchange meta.ExchangeName) types.Credentials {
	return types.Credentials{
		APIKey:     os.Getenv(envKey(exchange, "API_KEY")),
		SecretKey:  os.Getenv(envKey(exchange, "SECRET_KEY")),
		Passphrase: os.Getenv(envKey(exchange, "PASSPHRASE")),
		UID:        os.Getenv(envKey(exchange, "UID")),
	}
}

// RedisURL returns the shared cache endpoint, empty if unset.
func RedisURL() string {
	return os.Getenv("REDIS_KIT_URL")
}

// RestConfigFor builds a REST session config from the environment, falling
// back to the provided default URL: <EXCHANGE>_REST_URL overrides url.
func RestConfigFor(exchange meta.ExchangeName, url string) types.RestConfig {
	if v := os.Getenv(envKey(exchange, "REST_URL")); v != "" {
		url = v
	}
	return types.RestConfig{
		Name:    string(exchange),
		URL:     url,
		Timeout: 10 * time.Second,
		Proxy:   os.Getenv(envKey(exchange, "PROXY")),
	}
}

// WSConfigFor builds a stream session config from the environment:
// <EXCHANGE>_WS_URL overrides url.
func WSConfigFor(exchange meta.ExchangeName, url string) types.WSConfig {
	if v := os.Getenv(envKey(exchange, "WS_URL")); v != "" {
		url = v
	}
	cfg := types.DefaultWSConfig(url)
	cfg.Name = string(exchange)
	return cfg
}
