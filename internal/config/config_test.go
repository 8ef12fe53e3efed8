package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("CONFIG_ENV_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.False(t, cfg.MySQLConfigured())
	assert.Equal(t, int64(2), cfg.XPPerMessage)
	assert.Equal(t, ":8080", cfg.AdminListenAddr)
}

func TestLoadRequiresBotToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
}

func TestLoadUnknownDBTypeDefaultsToSQLite(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("DB_TYPE", "postgres")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBType)
}

func TestMySQLGate(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("DB_TYPE", "mysql")
	t.Setenv("MYSQL_HOST", "db.internal:3306")
	t.Setenv("MYSQL_USER", "bot")
	t.Setenv("MYSQL_PASSWORD", "secret")
	t.Setenv("MYSQL_DATABASE", "economy")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MySQLConfigured())
	assert.Equal(t, "bot:secret@tcp(db.internal:3306)/economy?parseTime=true", cfg.MySQLDSN())

	// Host alone is not enough to attempt the networked backend.
	t.Setenv("MYSQL_DATABASE", "")
	cfg, err = Load()
	require.NoError(t, err)
	assert.False(t, cfg.MySQLConfigured())
}
