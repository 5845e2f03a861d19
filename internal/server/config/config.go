// Package config handles configuration for the mock bank server: defaults,
// an optional JSON or YAML file, environment variables and command-line
// flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Config holds runtime settings for the mock bank server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the gRPC endpoint.
//   - TokenSecret: HMAC secret the client signs session tokens with.
//   - Latency: artificial delay added to every banking call.
//   - FailEvery: when positive, every n-th banking call fails as unavailable.
type Config struct {
	EndpointAddrGRPC string
	TokenSecret      string
	Latency          time.Duration
	FailEvery        int
	LogLevel         string
	LogFormat        string
	SentryDSN        string
	Environment      string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the token secret default is shared with the client default and must
// be overridden outside development.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.TokenSecret = "securebank-development-token-secret"
	c.Latency = 500 * time.Millisecond
	c.FailEvery = 0
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.Environment = "development"
}

// LoadConfig builds a Config from args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if path, _ := fs.GetString(flagConfig); path != "" {
		if err := parseFile(path, cfg); err != nil {
			return nil, err
		}
	}
	parseEnv(cfg)
	if err := parseFlags(fs, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.EndpointAddrGRPC == "" {
		errs = append(errs, errors.New("grpc address must be set"))
	}
	if len(c.TokenSecret) < 32 {
		errs = append(errs, errors.New("token secret must be at least 32 bytes"))
	}
	if c.Latency < 0 {
		errs = append(errs, fmt.Errorf("latency must not be negative, got %s", c.Latency))
	}
	if c.FailEvery < 0 {
		errs = append(errs, fmt.Errorf("fail-every must not be negative, got %d", c.FailEvery))
	}
	return errors.Join(errs...)
}

const envPrefix = "SECUREBANK_SERVER_"

// parseEnv overlays SECUREBANK_SERVER_* variables. The token secret is
// also read from SECUREBANK_TOKEN_SECRET, which the client uses.
func parseEnv(cfg *Config) {
	if v, ok := os.LookupEnv("SECUREBANK_TOKEN_SECRET"); ok && v != "" {
		cfg.TokenSecret = v
	}
	for name, dst := range map[string]*string{
		"ADDR":         &cfg.EndpointAddrGRPC,
		"TOKEN_SECRET": &cfg.TokenSecret,
		"LOG_LEVEL":    &cfg.LogLevel,
		"LOG_FORMAT":   &cfg.LogFormat,
		"SENTRY_DSN":   &cfg.SentryDSN,
		"ENVIRONMENT":  &cfg.Environment,
	} {
		if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
}
