package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/digkill/TGEconomyBot/internal/database"
)

// MySQLStore is the networked-backend variant, used only when host and
// database configuration are present.
type MySQLStore struct {
	sqlStore
}

func NewMySQLStore(db *sql.DB, host, dbName string) *MySQLStore {
	return &MySQLStore{sqlStore{
		db:           db,
		kind:         database.KindMySQL,
		insertAbsent: `INSERT IGNORE INTO users (userId) VALUES (?)`,
		label:        fmt.Sprintf("MySQL connected to %s/%s", host, dbName),
	}}
}

// MigrateLastDaily rewrites legacy date-string lastDaily values as epoch
// milliseconds. The BIGINT column is not distinguishable by type at rest, so
// every populated row is scanned; values that already parse as integers are
// left untouched, which keeps the pass re-entrant.
func (s *MySQLStore) MigrateLastDaily(ctx context.Context) (int, error) {
	const query = `SELECT userId, lastDaily FROM users WHERE lastDaily IS NOT NULL`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("scan lastDaily rows: %w", err)
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
			return 0, fmt.Errorf("scan lastDaily row: %w", err)
		}
		legacy = append(legacy, r)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate lastDaily rows: %w", err)
	}

	migrated := 0
	for _, r := range legacy {
		if _, err := strconv.ParseInt(r.value, 10, 64); err == nil {
			continue // already epoch milliseconds
		}
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
