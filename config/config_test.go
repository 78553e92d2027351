package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"WORKTIME_PORT", "WORKTIME_DB", "WORKTIME_TICK", "LOG_LEVEL", "LOG_PRETTY", "WORKTIME_CORS_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "worktime.db", cfg.DatabasePath)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogPretty)
	assert.Nil(t, cfg.CORSOrigins, "router falls back to its local origins")
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("WORKTIME_PORT", "9090")
	t.Setenv("WORKTIME_DB", ":memory:")
	t.Setenv("WORKTIME_TICK", "250ms")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("WORKTIME_CORS_ORIGINS", " http://localhost:3000 , ,https://app.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DatabasePath)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.CORSOrigins)
}

func TestLoad_UnparsableValuesFallBack(t *testing.T) {
	t.Setenv("WORKTIME_PORT", "eighty")
	t.Setenv("WORKTIME_TICK", "soon")
	t.Setenv("LOG_PRETTY", "maybe")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.False(t, cfg.LogPretty)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"port zero", func(c *config.Config) { c.Port = 0 }},
		{"port too large", func(c *config.Config) { c.Port = 70000 }},
		{"no database", func(c *config.Config) { c.DatabasePath = "" }},
		{"negative tick", func(c *config.Config) { c.TickInterval = -time.Second }},
		{"wildcard origin", func(c *config.Config) { c.CORSOrigins = []string{"http://localhost:3000", "*"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &config.Config{Port: 8080, DatabasePath: "worktime.db", TickInterval: time.Second}
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Setenv("WORKTIME_PORT", "70000")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsWildcardOrigin(t *testing.T) {
	t.Setenv("WORKTIME_PORT", "")
	t.Setenv("WORKTIME_CORS_ORIGINS", "*")
	_, err := config.Load()
	assert.ErrorContains(t, err, "WORKTIME_CORS_ORIGINS")
}
