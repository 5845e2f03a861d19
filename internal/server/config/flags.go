package config

import (
	"github.com/spf13/pflag"
)

const (
	flagConfig      = "config"
	flagAddr        = "address"
	flagTokenSecret = "token-secret"
	flagLatency     = "latency"
	flagFailEvery   = "fail-every"
	flagLogLevel    = "log-level"
	flagLogFormat   = "log-format"
)

// newFlagSet declares the server flags:
//
//	-c, --config string        JSON or YAML config file
//	-a, --address string       gRPC bind address (e.g. ":50051")
//	-s, --token-secret string  session token HMAC secret
//	-l, --latency duration     delay added to every banking call
//	    --fail-every int       fail every n-th banking call as unavailable
//	    --log-level string
//	    --log-format string    text or json
func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("securebank-server", pflag.ContinueOnError)
	fs.StringP(flagConfig, "c", "", "path to a JSON or YAML config file")
	fs.StringP(flagAddr, "a", "", "address and port to run server")
	fs.StringP(flagTokenSecret, "s", "", "session token secret")
	fs.DurationP(flagLatency, "l", 0, "artificial latency per call")
	fs.Int(flagFailEvery, 0, "fail every n-th call as unavailable (0 disables)")
	fs.String(flagLogLevel, "", "log level: debug, info, warn, error")
	fs.String(flagLogFormat, "", "log format: text or json")
	return fs
}

// parseFlags applies only the flags given on the command line.
func parseFlags(fs *pflag.FlagSet, cfg *Config) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	str(flagAddr, &cfg.EndpointAddrGRPC)
	str(flagTokenSecret, &cfg.TokenSecret)
	str(flagLogLevel, &cfg.LogLevel)
	str(flagLogFormat, &cfg.LogFormat)
	if err == nil && fs.Changed(flagLatency) {
		cfg.Latency, err = fs.GetDuration(flagLatency)
	}
	if err == nil && fs.Changed(flagFailEvery) {
		cfg.FailEvery, err = fs.GetInt(flagFailEvery)
	}
	return err
}
