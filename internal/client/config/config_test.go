package config

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/securebank/internal/client/coordinator"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 3, c.MaxFailedAttempts)
	assert.Equal(t, 15*time.Minute, c.LockoutDuration)
	assert.Equal(t, 5*time.Minute, c.SessionTimeout)
	assert.Equal(t, time.Minute, c.SessionWarning)
	assert.Equal(t, 30*time.Second, c.BackgroundGrace)
	assert.Equal(t, string(coordinator.RefreshStaleOnly), c.RefreshPolicy)
	assert.True(t, c.ScreenLock)
}

func TestValidate_DefaultsNeedDeviceSecret(t *testing.T) {
	var c Config
	c.LoadDefaults()
	require.ErrorContains(t, c.Validate(), "device secret")

	c.DeviceSecret = "s3cret"
	require.NoError(t, c.Validate())
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.DeviceSecret = "s3cret"
	c.SessionWarning = c.SessionTimeout
	c.RefreshPolicy = "sometimes"
	c.CardsTTL = 0

	err := c.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "session warning")
	assert.ErrorContains(t, err, "refresh policy")
	assert.ErrorContains(t, err, "cards ttl")
}

func TestDerivedSettings(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.DataDir = "/var/lib/securebank"

	assert.Equal(t, "/var/lib/securebank/securebank.db", c.DatabasePath())
	assert.Equal(t, "/var/lib/securebank/keys", c.KeystoreDir())
	assert.Equal(t, c.MaxAuthAge, c.AuthPolicy().MaxAuthAge)
	assert.Equal(t, c.BackgroundGrace, c.SessionConfig().BackgroundGrace)
	assert.Equal(t, c.CardsTTL, c.TTLPolicy().Cards)
	assert.Equal(t, c.BreakerFailures, c.ResilienceConfig().BreakerFailures)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeTempFile(t, "cfg.yaml", `
server_endpoint_addr: file:1
online_check_interval: 7s
log_level: warn
`)
	t.Setenv("SECUREBANK_DEVICE_SECRET", "from-env")
	t.Setenv("SECUREBANK_LOG_LEVEL", "debug")

	fs := newFlagSet(t, "-c", path, "-a", "flag:2")
	cfg, err := LoadConfig(fs)
	require.NoError(t, err)

	assert.Equal(t, "flag:2", cfg.ServerEndpointAddr)
	assert.Equal(t, 7*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "from-env", cfg.DeviceSecret)
}

func TestLoadConfig_InvalidIsRejected(t *testing.T) {
	t.Setenv("SECUREBANK_DEVICE_SECRET", "x")
	fs := newFlagSet(t, "--refresh-policy", "never")

	_, err := LoadConfig(fs)
	require.ErrorContains(t, err, "refresh policy")
}
