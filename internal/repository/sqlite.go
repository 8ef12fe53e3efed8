package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/digkill/TGEconomyBot/internal/database"
)

// SQLiteStore is the embedded-backend variant. It is always available and is
// the failover target when the networked backend drops.
type SQLiteStore struct {
	sqlStore
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{sqlStore{
		db:           db,
		kind:         database.KindSQLite,
		insertAbsent: `INSERT INTO users (userId) VALUES (?) ON CONFLICT(userId) DO NOTHING`,
		label:        "SQLite connected successfully",
	}}
}

// MigrateLastDaily rewrites legacy date-string lastDaily values as epoch
// milliseconds. SQLite's dynamic typing lets us probe per row with typeof;
// once every value is numeric the pass matches nothing and is a no-op.
// A value that fails to parse is nulled rather than left invalid.
func (s *SQLiteStore) MigrateLastDaily(ctx context.Context) (int, error) {
	const query = `SELECT userId, CAST(lastDaily AS TEXT) FROM users WHERE lastDaily IS NOT NULL AND typeof(lastDaily) = 'text'`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("scan legacy lastDaily rows: %w", err)
	}
	defer rows.Close()

	type legacyRow struct {
		userID string
		value  string
	}
	var legacy []legacyRow
	for rows.Next() {
		var r legacyRow
		if err := rows.Scan(&r.userID, &r.value); err != nil {
			return 0, fmt.Errorf("scan legacy row: %w", err)
		}
		legacy = append(legacy, r)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate legacy rows: %w", err)
	}

	migrated := 0
	for _, r := range legacy {
		if ms, ok := parseLegacyDate(r.value); ok {
			if _, err := s.db.ExecContext(ctx, `UPDATE users SET lastDaily = ? WHERE userId = ?`, ms, r.userID); err != nil {
				return migrated, fmt.Errorf("rewrite lastDaily for %s: %w", r.userID, err)
			}
		} else {
			if _, err := s.db.ExecContext(ctx, `UPDATE users SET lastDaily = NULL WHERE userId = ?`, r.userID); err != nil {
				return migrated, fmt.Errorf("null lastDaily for %s: %w", r.userID, err)
			}
		}
		migrated++
	}
	return migrated, nil
}
