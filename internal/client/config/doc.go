// Package config loads runtime configuration for the SecureBank client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected with -c / --config.
//  3. A .env file (see --env-file) and SECUREBANK_* environment variables.
//  4. Command-line flags, which override everything else.
//
// # File schema
//
// Durations use timex.Duration, so values are strings like "3s" or integer
// nanoseconds:
//
//	server_endpoint_addr: 127.0.0.1:50051
//	online_check_interval: 3s
//	refresh_policy: stale-only
//	cards_ttl: 15m
//
// The device secret that wraps the encryption key is only accepted from the
// environment (SECUREBANK_DEVICE_SECRET), never from a file or a flag.
package config
