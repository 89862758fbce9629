package gateway

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// AuthMode selects one of the three upgrade-time authentication postures
// described in spec §4.1.
type AuthMode string

const (
	AuthModePublic    AuthMode = "public"
	AuthModeStrict    AuthMode = "strict"
	AuthModeHandshake AuthMode = "handshake"
)

// AuthTimeoutFactor multiplies WEBSOCKETS_REST_AUTH_TIMEOUT on ingress.
// This is inherited verbatim from the source configuration loader and is a
// known wart (spec §6/§9 open question), not a deliberate scaling choice —
// see DESIGN.md.
const AuthTimeoutFactor = 10000

// DefaultMaxSendRetries bounds the previously-unbounded safeSend backoff
// loop per spec §9's explicit instruction ("bound it with a max-retry
// count"). At SendRetryDelay=100ms this caps a stuck writer at ~2s.
const DefaultMaxSendRetries = 20

// Config is the gateway's environment-driven configuration, loaded with
// caarlos0/env the way internal/auth/config does.
type Config struct {
	Path           string   `env:"WEBSOCKETS_REST_PATH" envDefault:"/websocket"`
	AuthMode       AuthMode `env:"WEBSOCKETS_REST_AUTH" envDefault:"handshake"`
	AuthTimeoutRaw int      `env:"WEBSOCKETS_REST_AUTH_TIMEOUT" envDefault:"10"`

	HeartbeatInterval time.Duration `env:"WEBSOCKETS_HEARTBEAT_INTERVAL" envDefault:"30s"`
	MaxSendRetries    int           `env:"WEBSOCKETS_MAX_SEND_RETRIES" envDefault:"20"`
	SendRetryDelay    time.Duration `env:"WEBSOCKETS_SEND_RETRY_DELAY" envDefault:"100ms"`
}

// AuthTimeout is the grace window a handshake or newly-expired connection
// is given to (re)authenticate. WEBSOCKETS_REST_AUTH_TIMEOUT is documented
// in seconds, but every revision of the upstream loader multiplies the raw
// value by AuthTimeoutFactor before use; that factor is preserved here
// rather than silently "corrected" per spec §9.
func (c *Config) AuthTimeout() time.Duration {
	return time.Duration(c.AuthTimeoutRaw*AuthTimeoutFactor) * time.Millisecond
}

// LoadConfig loads the gateway Config from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load gateway config: %w", err)
	}
	if cfg.MaxSendRetries <= 0 {
		cfg.MaxSendRetries = DefaultMaxSendRetries
	}
	return cfg, nil
}
