package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	envPrefix      = "SECUREBANK_"
	defaultEnvFile = ".env"
)

// parseEnv loads envFile into the process environment without overriding
// variables already set, then overlays cfg with SECUREBANK_* variables.
// A missing envFile is an error only when it was named explicitly.
func parseEnv(envFile string, explicit bool, cfg *Config) error {
	if envFile == "" {
		envFile = defaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	var errs []error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("SERVER_ADDR", &cfg.ServerEndpointAddr)
	dur("ONLINE_CHECK_INTERVAL", &cfg.OnlineCheckInterval)
	dur("CALL_TIMEOUT", &cfg.CallTimeout)
	str("DATA_DIR", &cfg.DataDir)
	str("DEVICE_SECRET", &cfg.DeviceSecret)
	str("KEY_ALIAS", &cfg.KeyAlias)
	str("TOKEN_SECRET", &cfg.TokenSecret)
	integer("MAX_FAILED_ATTEMPTS", &cfg.MaxFailedAttempts)
	dur("LOCKOUT_DURATION", &cfg.LockoutDuration)
	dur("SESSION_TIMEOUT", &cfg.SessionTimeout)
	str("REFRESH_POLICY", &cfg.RefreshPolicy)
	boolean("SCREEN_LOCK", &cfg.ScreenLock)
	boolean("DEVICE_SECURE", &cfg.DeviceSecure)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("SENTRY_DSN", &cfg.SentryDSN)
	str("ENVIRONMENT", &cfg.Environment)

	return errors.Join(errs...)
}
