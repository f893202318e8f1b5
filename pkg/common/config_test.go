package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(EnvKeyRoomwatchDBType, "")
	t.Setenv(EnvKeyRoomwatchDefaultRate, "")
	t.Setenv(EnvKeyRoomwatchDefaultBurst, "")
	t.Setenv(EnvKeyRoomwatchKafkaBrokers, "")
	t.Setenv(EnvKeyGoEnv, "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.DBType)
	assert.Equal(t, ":1080", cfg.HttpHostPort)
	assert.Equal(t, 10.0, cfg.DefaultRate)
	assert.Equal(t, 20, cfg.DefaultBurst)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.SuppressDuplicateAlerts)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv(EnvKeyRoomwatchDBType, "memory")
	t.Setenv(EnvKeyRoomwatchDefaultRate, "2.5")
	t.Setenv(EnvKeyRoomwatchDefaultBurst, "4")
	t.Setenv(EnvKeyRoomwatchKafkaBrokers, "k1:9092, k2:9092")
	t.Setenv(EnvKeyRoomwatchSuppressDup, "false")
	t.Setenv(EnvKeyRoomwatchSessionTTL, "90m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.DBType)
	assert.Equal(t, 2.5, cfg.DefaultRate)
	assert.Equal(t, 4, cfg.DefaultBurst)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.SuppressDuplicateAlerts)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
}

func TestLoadConfig_EdgeCases(t *testing.T) {
	{
		t.Setenv(EnvKeyRoomwatchDBType, "oracle")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "unknown ROOMWATCH_DB_TYPE")
	}

	{
		t.Setenv(EnvKeyRoomwatchDBType, "postgres")
		t.Setenv(EnvKeyRoomwatchDbDSN, "")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "ROOMWATCH_DB_DSN must be set")
	}

	{
		t.Setenv(EnvKeyRoomwatchDBType, "memory")
		t.Setenv(EnvKeyRoomwatchDefaultBurst, "lots")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "ROOMWATCH_DEFAULT_BURST")
	}

	{
		t.Setenv(EnvKeyRoomwatchDefaultBurst, "")
		t.Setenv(EnvKeyGoEnv, "production")
		t.Setenv(EnvKeyRoomwatchJWTSecret, "")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "ROOMWATCH_JWT_SECRET must be set in production")
	}
}
