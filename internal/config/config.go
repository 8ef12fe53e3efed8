package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot and the ledger backends.
type Config struct {
	BotToken string

	// Backend selection. "sqlite" (default) or "mysql". MySQL is only
	// attempted when host and database are both present; otherwise the
	// embedded store is used without an error.
	DBType        string
	SQLitePath    string
	MySQLHost     string
	MySQLUser     string
	MySQLPassword string
	MySQLDatabase string

	XPPerMessage int64
	SessionTTL   time.Duration

	AdminListenAddr string
	AdminUsername   string
	AdminPassword   string
}

// MySQLConfigured reports whether enough configuration is present to even
// attempt the networked backend.
func (c Config) MySQLConfigured() bool {
	return c.MySQLHost != "" && c.MySQLDatabase != ""
}

// MySQLDSN builds the driver DSN from the individual connection settings.
func (c Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", c.MySQLUser, c.MySQLPassword, c.MySQLHost, c.MySQLDatabase)
}

// Load reads configuration from environment variables, applying sane defaults.
// An .env file is loaded when present but is not required.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBType:          strings.ToLower(getEnv("DB_TYPE", "sqlite")),
		SQLitePath:      getEnv("SQLITE_PATH", filepath.Join("data", "economy.db")),
		MySQLHost:       os.Getenv("MYSQL_HOST"),
		MySQLUser:       os.Getenv("MYSQL_USER"),
		MySQLPassword:   os.Getenv("MYSQL_PASSWORD"),
		MySQLDatabase:   os.Getenv("MYSQL_DATABASE"),
		XPPerMessage:    int64(getInt("XP_PER_MESSAGE", 2)),
		SessionTTL:      time.Minute * time.Duration(getInt("SESSION_TTL_MINUTES", 30)),
		AdminListenAddr: getEnv("ADMIN_LISTEN_ADDR", ":8080"),
		AdminUsername:   getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:   getEnv("ADMIN_PASSWORD", "change-me"),
	}

	cfg.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	var missing []string
	if cfg.BotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	// Anything other than mysql means the embedded store.
	if cfg.DBType != "mysql" {
		cfg.DBType = "sqlite"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}
