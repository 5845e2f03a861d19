package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() Config {
	var c Config
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, "securebank-development-token-secret", c.TokenSecret)
	assert.Equal(t, 500*time.Millisecond, c.Latency)
	assert.Zero(t, c.FailEvery)
	assert.Equal(t, "json", c.LogFormat)
	require.NoError(t, c.Validate())
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"endpoint_addr_grpc: \":6000\"\nlatency: 2s\nfail_every: 3\nlog_level: debug\n"), 0o600))
	t.Setenv("SECUREBANK_SERVER_ADDR", ":7000")
	t.Setenv("SECUREBANK_TOKEN_SECRET", "")

	got, err := LoadConfig([]string{"-c", path, "--latency", "10ms"})
	require.NoError(t, err)

	want := defaults()
	want.EndpointAddrGRPC = ":7000"
	want.Latency = 10 * time.Millisecond
	want.FailEvery = 3
	want.LogLevel = "debug"
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"latency": 1000000, "token_secret": "0123456789abcdef0123456789abcdef"}`), 0o600))

	got, err := LoadConfig([]string{"--config=" + path})
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, got.Latency)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", got.TokenSecret)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"--nope"}},
		{name: "bad duration", args: []string{"-l", "soon"}},
		{name: "short secret", args: []string{"-s", "short"}},
		{name: "negative fail-every", args: []string{"--fail-every", "-1"}},
		{name: "missing file", args: []string{"-c", "/does/not/exist.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.args)
			require.Error(t, err)
		})
	}
}
