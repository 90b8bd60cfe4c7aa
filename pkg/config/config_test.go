package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int           `env:"TEST_CFG_PORT" envDefault:"8080"`
	LogLevel string        `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	Debug    bool          `env:"TEST_CFG_DEBUG" envDefault:"false"`
	TTL      time.Duration `env:"TEST_CFG_TTL" envDefault:"15m"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 15*time.Minute, cfg.TTL)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_LOG_LEVEL", "debug")
	t.Setenv("TEST_CFG_DEBUG", "true")
	t.Setenv("TEST_CFG_TTL", "30s")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 30*time.Second, cfg.TTL)
}

func TestLoadFrom_Map(t *testing.T) {
	var cfg testConfig
	require.NoError(t, LoadFrom(&cfg, map[string]string{"TEST_CFG_PORT": "7070"}))
	assert.Equal(t, 7070, cfg.Port)
}

func TestLoad_DurationAsSeconds(t *testing.T) {
	var cfg testConfig
	require.NoError(t, LoadFrom(&cfg, map[string]string{"TEST_CFG_TTL": "900"}))
	assert.Equal(t, 15*time.Minute, cfg.TTL)
}

func TestLoad_InvalidDuration(t *testing.T) {
	var cfg testConfig
	err := LoadFrom(&cfg, map[string]string{"TEST_CFG_TTL": "soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

type requiredConfig struct {
	DSN string `env:"TEST_CFG_DSN,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := LoadFrom(&cfg, map[string]string{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidType(t *testing.T) {
	var cfg testConfig
	err := LoadFrom(&cfg, map[string]string{"TEST_CFG_PORT": "not-a-number"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
