package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/securebank/internal/client/auth"
	"github.com/dmitrijs2005/securebank/internal/client/cache"
	"github.com/dmitrijs2005/securebank/internal/client/client"
	"github.com/dmitrijs2005/securebank/internal/client/coordinator"
	"github.com/dmitrijs2005/securebank/internal/client/session"
	"github.com/spf13/pflag"
)

// Config holds runtime settings for the SecureBank client.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	OnlineCheckTimeout  time.Duration
	CallTimeout         time.Duration

	// DataDir holds the database and the wrapped encryption keys.
	DataDir string
	// DeviceSecret wraps the data encryption key at rest.
	DeviceSecret string
	KeyAlias     string
	// TokenSecret signs session tokens; the bank backend verifies them.
	TokenSecret string
	TokenTTL    time.Duration

	MaxFailedAttempts int
	LockoutDuration   time.Duration
	MaxAuthAge        time.Duration

	SessionTimeout  time.Duration
	SessionWarning  time.Duration
	BackgroundGrace time.Duration

	AccountTTL      time.Duration
	TransactionsTTL time.Duration
	CardsTTL        time.Duration
	RefreshPolicy   string
	FetchPageSize   int

	MaxRetries      uint64
	BaseBackoff     time.Duration
	MaxBackoff      time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration

	// ScreenLock and DeviceSecure describe device posture a terminal
	// program cannot observe itself.
	ScreenLock   bool
	DeviceSecure bool

	LogLevel    string
	LogFormat   string
	SentryDSN   string
	Environment string
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	ap := auth.DefaultPolicy()
	sc := session.DefaultConfig()
	ttl := cache.DefaultTTLPolicy()
	rc := client.DefaultResilienceConfig()

	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.OnlineCheckTimeout = time.Second
	c.CallTimeout = 10 * time.Second

	c.DataDir = ".securebank"
	c.DeviceSecret = ""
	c.KeyAlias = "securebank_master_key"
	c.TokenSecret = "securebank-development-token-secret"
	c.TokenTTL = ap.MaxAuthAge

	c.MaxFailedAttempts = ap.MaxFailedAttempts
	c.LockoutDuration = ap.LockoutDuration
	c.MaxAuthAge = ap.MaxAuthAge

	c.SessionTimeout = sc.Timeout
	c.SessionWarning = sc.WarningLead
	c.BackgroundGrace = sc.BackgroundGrace

	c.AccountTTL = ttl.Account
	c.TransactionsTTL = ttl.Transactions
	c.CardsTTL = ttl.Cards
	c.RefreshPolicy = string(coordinator.RefreshStaleOnly)
	c.FetchPageSize = 100

	c.MaxRetries = rc.MaxRetries
	c.BaseBackoff = rc.BaseBackoff
	c.MaxBackoff = rc.MaxBackoff
	c.BreakerFailures = rc.BreakerFailures
	c.BreakerTimeout = rc.BreakerTimeout

	c.ScreenLock = true
	c.DeviceSecure = true

	c.LogLevel = "info"
	c.LogFormat = "text"
	c.Environment = "development"
}

// LoadConfig applies, in order of increasing precedence: defaults, the
// config file named by --config, the .env file and SECUREBANK_*
// environment, and the flags set on fs. The result is validated.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	path, _ := fs.GetString(flagConfig)
	if path != "" {
		if err := parseFile(path, cfg); err != nil {
			return nil, err
		}
	}
	envFile, _ := fs.GetString(flagEnvFile)
	if err := parseEnv(envFile, fs.Changed(flagEnvFile), cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(fs, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) DatabasePath() string { return filepath.Join(c.DataDir, "securebank.db") }

func (c *Config) KeystoreDir() string { return filepath.Join(c.DataDir, "keys") }

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.ServerEndpointAddr != "", "server address must be set")
	check(c.DataDir != "", "data dir must be set")
	check(c.DeviceSecret != "", "device secret must be set (SECUREBANK_DEVICE_SECRET)")
	check(c.KeyAlias != "", "key alias must be set")
	check(len(c.TokenSecret) >= 32, "token secret must be at least 32 bytes")
	check(c.MaxFailedAttempts > 0, "max failed attempts must be positive")
	for name, d := range map[string]time.Duration{
		"online check interval": c.OnlineCheckInterval,
		"online check timeout":  c.OnlineCheckTimeout,
		"call timeout":          c.CallTimeout,
		"token ttl":             c.TokenTTL,
		"lockout duration":      c.LockoutDuration,
		"max auth age":          c.MaxAuthAge,
		"session timeout":       c.SessionTimeout,
		"background grace":      c.BackgroundGrace,
		"account ttl":           c.AccountTTL,
		"transactions ttl":      c.TransactionsTTL,
		"cards ttl":             c.CardsTTL,
	} {
		check(d > 0, "%s must be positive, got %s", name, d)
	}
	check(c.SessionWarning >= 0 && c.SessionWarning < c.SessionTimeout,
		"session warning %s must be shorter than the session timeout %s", c.SessionWarning, c.SessionTimeout)
	check(c.FetchPageSize > 0, "fetch page size must be positive")
	check(c.BaseBackoff > 0 && c.MaxBackoff >= c.BaseBackoff, "backoff bounds are inconsistent")
	if _, err := coordinator.ParseRefreshPolicy(c.RefreshPolicy); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) AuthPolicy() auth.Policy {
	return auth.Policy{
		MaxFailedAttempts: c.MaxFailedAttempts,
		LockoutDuration:   c.LockoutDuration,
		MaxAuthAge:        c.MaxAuthAge,
	}
}

func (c *Config) SessionConfig() session.Config {
	return session.Config{
		Timeout:         c.SessionTimeout,
		WarningLead:     c.SessionWarning,
		BackgroundGrace: c.BackgroundGrace,
	}
}

func (c *Config) TTLPolicy() cache.TTLPolicy {
	return cache.TTLPolicy{Account: c.AccountTTL, Transactions: c.TransactionsTTL, Cards: c.CardsTTL}
}

func (c *Config) ResilienceConfig() client.ResilienceConfig {
	return client.ResilienceConfig{
		MaxRetries:      c.MaxRetries,
		BaseBackoff:     c.BaseBackoff,
		MaxBackoff:      c.MaxBackoff,
		BreakerFailures: c.BreakerFailures,
		BreakerTimeout:  c.BreakerTimeout,
	}
}
