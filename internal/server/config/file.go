package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/securebank/internal/timex"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk form of Config. Absent keys keep the current
// value.
type fileConfig struct {
	EndpointAddrGRPC *string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	TokenSecret      *string         `json:"token_secret" yaml:"token_secret"`
	Latency          *timex.Duration `json:"latency" yaml:"latency"`
	FailEvery        *int            `json:"fail_every" yaml:"fail_every"`
	LogLevel         *string         `json:"log_level" yaml:"log_level"`
	LogFormat        *string         `json:"log_format" yaml:"log_format"`
	SentryDSN        *string         `json:"sentry_dsn" yaml:"sentry_dsn"`
	Environment      *string         `json:"environment" yaml:"environment"`
}

func parseFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	fc := &fileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	set(&cfg.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	set(&cfg.TokenSecret, fc.TokenSecret)
	set(&cfg.FailEvery, fc.FailEvery)
	set(&cfg.LogLevel, fc.LogLevel)
	set(&cfg.LogFormat, fc.LogFormat)
	set(&cfg.SentryDSN, fc.SentryDSN)
	set(&cfg.Environment, fc.Environment)
	if fc.Latency != nil {
		cfg.Latency = fc.Latency.Duration
	}
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
