package config

import (
	"github.com/spf13/pflag"
)

const (
	flagConfig       = "config"
	flagEnvFile      = "env-file"
	flagServer       = "server"
	flagCheck        = "online-check-interval"
	flagDataDir      = "data-dir"
	flagRefresh      = "refresh-policy"
	flagSession      = "session-timeout"
	flagLogLevel     = "log-level"
	flagLogFormat    = "log-format"
	flagScreenLock   = "screen-lock"
	flagDeviceSecure = "device-secure"
)

// RegisterFlags declares the client flags on fs. Defaults shown in help are
// the built-in ones; LoadConfig only applies flags the user actually set.
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(flagConfig, "c", "", "path to a JSON or YAML config file")
	fs.String(flagEnvFile, "", "path to a .env file (default .env when present)")
	fs.StringP(flagServer, "a", d.ServerEndpointAddr, "address and port of the bank server")
	fs.DurationP(flagCheck, "i", d.OnlineCheckInterval, "connectivity check interval")
	fs.String(flagDataDir, d.DataDir, "directory holding the local database and keys")
	fs.String(flagRefresh, d.RefreshPolicy, "refresh policy: stale-only or always-reconcile")
	fs.Duration(flagSession, d.SessionTimeout, "inactivity timeout of a session")
	fs.String(flagLogLevel, d.LogLevel, "log level: debug, info, warn, error")
	fs.String(flagLogFormat, d.LogFormat, "log format: text or json")
	fs.Bool(flagScreenLock, d.ScreenLock, "the device has a screen lock")
	fs.Bool(flagDeviceSecure, d.DeviceSecure, "the device storage is encrypted")
}

// parseFlags overlays cfg with the flags set on fs.
func parseFlags(fs *pflag.FlagSet, cfg *Config) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	str(flagServer, &cfg.ServerEndpointAddr)
	str(flagDataDir, &cfg.DataDir)
	str(flagRefresh, &cfg.RefreshPolicy)
	str(flagLogLevel, &cfg.LogLevel)
	str(flagLogFormat, &cfg.LogFormat)
	if err == nil && fs.Changed(flagCheck) {
		cfg.OnlineCheckInterval, err = fs.GetDuration(flagCheck)
	}
	if err == nil && fs.Changed(flagSession) {
		cfg.SessionTimeout, err = fs.GetDuration(flagSession)
	}
	if err == nil && fs.Changed(flagScreenLock) {
		cfg.ScreenLock, err = fs.GetBool(flagScreenLock)
	}
	if err == nil && fs.Changed(flagDeviceSecure) {
		cfg.DeviceSecure, err = fs.GetBool(flagDeviceSecure)
	}
	return err
}
