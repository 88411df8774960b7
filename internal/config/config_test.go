package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("CIRCLES_DATABASE_DSN", "postgres://localhost/circles")
	t.Setenv("CIRCLES_JWT_SECRET", testSecret)
	t.Setenv("CIRCLES_RATE_LIMIT_REQUESTS", "25")
	t.Setenv("CIRCLES_RATE_LIMIT_WINDOW", "30s")
	t.Setenv("CIRCLES_DEBUG_ROUTES", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/circles", cfg.DatabaseDSN)
	assert.Equal(t, 25, cfg.RateLimitRequests)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.True(t, cfg.DebugRoutes)
	assert.Equal(t, "8083", cfg.HTTPPort)
	assert.Equal(t, "circles.events", cfg.AMQPExchange)
	assert.Equal(t, "mail.invitation", cfg.MailRoutingKey)
	assert.Equal(t, "circles.activity", cfg.ActivityQueue)
	assert.Equal(t, "activity.*", cfg.ActivityBindingKey)
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	t.Setenv("CIRCLES_DATABASE_DSN", "")
	t.Setenv("CIRCLES_JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CIRCLES_DATABASE_DSN")
	assert.Contains(t, err.Error(), "CIRCLES_JWT_SECRET")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := defaultConfig()
		c.DatabaseDSN = "postgres://x"
		c.JWTSecret = testSecret
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "base url scheme", mutate: func(c *Config) { c.PublicBaseURL = "circles.example" }, field: "PUBLIC_BASE_URL"},
		{name: "rate limit", mutate: func(c *Config) { c.RateLimitRequests = 0 }, field: "RATE_LIMIT_REQUESTS"},
		{name: "window", mutate: func(c *Config) { c.RateLimitWindow = 0 }, field: "RATE_LIMIT_WINDOW"},
		{name: "log level", mutate: func(c *Config) { c.LogLevel = "loud" }, field: "LOG_LEVEL"},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	assert.Equal(t, "rate_limit_window", envTransformFunc("CIRCLES_RATE_LIMIT_WINDOW"))
	assert.Equal(t, "jwt_secret", envTransformFunc("CIRCLES_JWT_SECRET"))
}
