package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/securebank/internal/timex"
	"gopkg.in/yaml.v3"
)

// fileConfig is the DTO for config files. Absent keys leave the current
// value untouched, so every field is a pointer. timex.Duration lets
// intervals be written as "3s" or as integer nanoseconds.
type fileConfig struct {
	ServerEndpointAddr  *string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	OnlineCheckTimeout  *timex.Duration `json:"online_check_timeout" yaml:"online_check_timeout"`
	CallTimeout         *timex.Duration `json:"call_timeout" yaml:"call_timeout"`

	DataDir     *string         `json:"data_dir" yaml:"data_dir"`
	KeyAlias    *string         `json:"key_alias" yaml:"key_alias"`
	TokenSecret *string         `json:"token_secret" yaml:"token_secret"`
	TokenTTL    *timex.Duration `json:"token_ttl" yaml:"token_ttl"`

	MaxFailedAttempts *int            `json:"max_failed_attempts" yaml:"max_failed_attempts"`
	LockoutDuration   *timex.Duration `json:"lockout_duration" yaml:"lockout_duration"`
	MaxAuthAge        *timex.Duration `json:"max_auth_age" yaml:"max_auth_age"`

	SessionTimeout  *timex.Duration `json:"session_timeout" yaml:"session_timeout"`
	SessionWarning  *timex.Duration `json:"session_warning" yaml:"session_warning"`
	BackgroundGrace *timex.Duration `json:"background_grace" yaml:"background_grace"`

	AccountTTL      *timex.Duration `json:"account_ttl" yaml:"account_ttl"`
	TransactionsTTL *timex.Duration `json:"transactions_ttl" yaml:"transactions_ttl"`
	CardsTTL        *timex.Duration `json:"cards_ttl" yaml:"cards_ttl"`
	RefreshPolicy   *string         `json:"refresh_policy" yaml:"refresh_policy"`
	FetchPageSize   *int            `json:"fetch_page_size" yaml:"fetch_page_size"`

	MaxRetries      *uint64         `json:"max_retries" yaml:"max_retries"`
	BaseBackoff     *timex.Duration `json:"base_backoff" yaml:"base_backoff"`
	MaxBackoff      *timex.Duration `json:"max_backoff" yaml:"max_backoff"`
	BreakerFailures *uint32         `json:"breaker_failures" yaml:"breaker_failures"`
	BreakerTimeout  *timex.Duration `json:"breaker_timeout" yaml:"breaker_timeout"`

	ScreenLock   *bool `json:"screen_lock" yaml:"screen_lock"`
	DeviceSecure *bool `json:"device_secure" yaml:"device_secure"`

	LogLevel    *string `json:"log_level" yaml:"log_level"`
	LogFormat   *string `json:"log_format" yaml:"log_format"`
	SentryDSN   *string `json:"sentry_dsn" yaml:"sentry_dsn"`
	Environment *string `json:"environment" yaml:"environment"`
}

// parseFile overlays cfg with a JSON or YAML file, chosen by extension.
// The device secret is never read from files.
func parseFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		return fmt.Errorf("unsupported config file type %q", ext)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	fc.apply(cfg)
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}

func (fc *fileConfig) apply(cfg *Config) {
	set(&cfg.ServerEndpointAddr, fc.ServerEndpointAddr)
	setDuration(&cfg.OnlineCheckInterval, fc.OnlineCheckInterval)
	setDuration(&cfg.OnlineCheckTimeout, fc.OnlineCheckTimeout)
	setDuration(&cfg.CallTimeout, fc.CallTimeout)

	set(&cfg.DataDir, fc.DataDir)
	set(&cfg.KeyAlias, fc.KeyAlias)
	set(&cfg.TokenSecret, fc.TokenSecret)
	setDuration(&cfg.TokenTTL, fc.TokenTTL)

	set(&cfg.MaxFailedAttempts, fc.MaxFailedAttempts)
	setDuration(&cfg.LockoutDuration, fc.LockoutDuration)
	setDuration(&cfg.MaxAuthAge, fc.MaxAuthAge)

	setDuration(&cfg.SessionTimeout, fc.SessionTimeout)
	setDuration(&cfg.SessionWarning, fc.SessionWarning)
	setDuration(&cfg.BackgroundGrace, fc.BackgroundGrace)

	setDuration(&cfg.AccountTTL, fc.AccountTTL)
	setDuration(&cfg.TransactionsTTL, fc.TransactionsTTL)
	setDuration(&cfg.CardsTTL, fc.CardsTTL)
	set(&cfg.RefreshPolicy, fc.RefreshPolicy)
	set(&cfg.FetchPageSize, fc.FetchPageSize)

	set(&cfg.MaxRetries, fc.MaxRetries)
	setDuration(&cfg.BaseBackoff, fc.BaseBackoff)
	setDuration(&cfg.MaxBackoff, fc.MaxBackoff)
	set(&cfg.BreakerFailures, fc.BreakerFailures)
	setDuration(&cfg.BreakerTimeout, fc.BreakerTimeout)

	set(&cfg.ScreenLock, fc.ScreenLock)
	set(&cfg.DeviceSecure, fc.DeviceSecure)

	set(&cfg.LogLevel, fc.LogLevel)
	set(&cfg.LogFormat, fc.LogFormat)
	set(&cfg.SentryDSN, fc.SentryDSN)
	set(&cfg.Environment, fc.Environment)
}
