package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/hrpay",
		DBMaxConns:         10,
		JWTSecret:          "dev-secret",
		Environment:        "development",
		MaxBodyBytes:       1 << 20,
		RateLimitPerMinute: 60,
		PayrollWorkers:     4,
		ShutdownTimeout:    time.Second,
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("PAYROLL_WORKERS", "8")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 8, cfg.PayrollWorkers)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]func(*Config){
		"database url": func(c *Config) { c.DatabaseURL = " " },
		"jwt secret":   func(c *Config) { c.JWTSecret = "" },
		"short secret": func(c *Config) { c.Environment = "production" },
		"body limit":   func(c *Config) { c.MaxBodyBytes = 10 },
		"rate limit":   func(c *Config) { c.RateLimitPerMinute = 0 },
		"workers":      func(c *Config) { c.PayrollWorkers = 0 },
		"shutdown":     func(c *Config) { c.ShutdownTimeout = 0 },
		"max conns":    func(c *Config) { c.DBMaxConns = 1 },
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("HRPAY_TEST_FROM_FILE=file\nHRPAY_TEST_PRESET=file\n"), 0o600))
	t.Setenv("HRPAY_TEST_PRESET", "env")
	t.Cleanup(func() { os.Unsetenv("HRPAY_TEST_FROM_FILE") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "file", os.Getenv("HRPAY_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("HRPAY_TEST_PRESET"))
}
