// Package types holds the canonical normalized value objects produced by
// per-exchange parsers and consumed uniformly by callers. Monetary and
// quantity fields use decimal arithmetic, never binary floating point.
package types

import "time"

// Credentials carries the secrets for a signed session. Passphrase and UID
// are only used by exchanges that require them.
type Credentials struct {
	APIKey     string
	SecretKey  string
	Passphrase string
	UID        string
}

// HasCredentials reports whether the key pair is populated.
func (c Credentials) HasCredentials() bool {
	return c.APIKey != "" && c.SecretKey != ""
}

// RestConfig configures a REST session against one venue.
type RestConfig struct {
	Name    string
	URL     string
	Timeout time.Duration
	Proxy   string

	ExtraParams map[string]string
}

// WSConfig configures a streaming session against one venue.
type WSConfig struct {
	Name   string
	URL    string
	Topics []string

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	ReconnectInterval time.Duration
	RequestTimeout    time.Duration

	ExtraParams map[string]string
}

// DefaultWSConfig returns a WSConfig with the usual keep-alive cadence.
func DefaultWSConfig(url string) WSConfig {
	return WSConfig{
		URL:               url,
		HeartbeatInterval: 10 * time.Second,
		HeartbeatTimeout:  60 * time.Second,
		ReconnectInterval: time.Second,
		RequestTimeout:    10 * time.Second,
	}
}
