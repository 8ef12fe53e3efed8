package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/digkill/TGEconomyBot/internal/config"
	"github.com/digkill/TGEconomyBot/internal/database"
)

// Bootstrap selects a backend per the configuration, creates the schema, and
// runs the lastDaily migration. MySQL is attempted only when it is both
// requested and configured; any failure there demotes to SQLite. A SQLite
// failure is fatal since there is no further fallback.
func Bootstrap(ctx context.Context, cfg config.Config, log *slog.Logger) (Store, error) {
	if cfg.DBType == "mysql" {
		if !cfg.MySQLConfigured() {
			log.Info("mysql not configured, using sqlite")
		} else {
			store, err := bootstrapMySQL(ctx, cfg, log)
			if err == nil {
				log.Info("mysql connected", "host", cfg.MySQLHost, "database", cfg.MySQLDatabase)
				return store, nil
			}
			log.Warn("mysql unavailable, falling back to sqlite", "err", err)
		}
	}
	return BootstrapSQLite(ctx, cfg, log)
}

func bootstrapMySQL(ctx context.Context, cfg config.Config, log *slog.Logger) (*MySQLStore, error) {
	db, err := database.OpenMySQL(cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := database.CreateSchema(ctx, db, database.KindMySQL); err != nil {
		db.Close()
		return nil, err
	}
	store := NewMySQLStore(db, cfg.MySQLHost, cfg.MySQLDatabase)
	runMigration(ctx, store, log)
	return store, nil
}

// BootstrapSQLite opens the embedded store and prepares it for use. It also
// serves as the failover target during a running process.
func BootstrapSQLite(ctx context.Context, cfg config.Config, log *slog.Logger) (*SQLiteStore, error) {
	db, err := database.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite init: %w", err)
	}
	if err := database.CreateSchema(ctx, db, database.KindSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	store := NewSQLiteStore(db)
	runMigration(ctx, store, log)
	log.Info("sqlite connected", "path", cfg.SQLitePath)
	return store, nil
}

// runMigration logs rather than aborts: a migration pass that cannot read
// rows leaves the existing data as-is, and per-row faults are already
// handled inside MigrateLastDaily by nulling the field.
func runMigration(ctx context.Context, store Store, log *slog.Logger) {
	n, err := store.MigrateLastDaily(ctx)
	if err != nil {
		log.Warn("lastDaily migration incomplete", "migrated", n, "err", err)
		return
	}
	if n > 0 {
		log.Info("migrated legacy lastDaily values", "rows", n)
	}
}
