package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/TGEconomyBot/internal/database"
	"github.com/digkill/TGEconomyBot/internal/models"
)

// Store is the backend-agnostic contract both relational backends implement.
// Every compound operation is atomic within a single database transaction, so
// a cooldown or balance check cannot race a concurrent mutation on the same
// user.
type Store interface {
	Kind() database.Kind
	Label() string
	GetUser(ctx context.Context, userID string) (*models.User, error)
	UpdateTokens(ctx context.Context, userID string, amount int64, txType models.TxType) (*models.User, error)
	ClaimDaily(ctx context.Context, userID string, nowMs int64) (*ClaimOutcome, error)
	ConvertXP(ctx context.Context, userID string, xpAmount int64) (*ConvertOutcome, error)
	AddXP(ctx context.Context, userID string, amount int64) (*AddXPOutcome, error)
	SpendTokens(ctx context.Context, userID string, cost int64, txType models.TxType) (*SpendOutcome, error)
	TopUsers(ctx context.Context, sortBy models.SortKey, limit int) ([]models.LeaderboardEntry, error)
	Transactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
	MigrateLastDaily(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// ClaimOutcome is the raw result of a daily claim attempt.
type ClaimOutcome struct {
	Claimed   bool
	LastDaily int64 // set when the cooldown has not elapsed
	Tokens    int64
}

// ConvertStatus distinguishes the ways an XP conversion can end.
type ConvertStatus int

const (
	ConvertOK ConvertStatus = iota
	ConvertInsufficientXP
	ConvertBelowMinimum
)

// ConvertOutcome is the raw result of an XP-to-tokens conversion.
type ConvertOutcome struct {
	Status       ConvertStatus
	XPSpent      int64
	TokensGained int64
	NewTokens    int64
}

// AddXPOutcome is the raw result of an XP grant.
type AddXPOutcome struct {
	NewXP    int64
	LevelUp  bool
	NewLevel int
}

// SpendOutcome is the raw result of a token spend attempt.
type SpendOutcome struct {
	Spent  bool
	Tokens int64 // balance after the spend, or the untouched balance on refusal
}

// sqlStore carries the logic shared by both backends. The dialects differ
// only in the insert-if-absent statement and the lastDaily migration probe.
type sqlStore struct {
	db           *sql.DB
	kind         database.Kind
	insertAbsent string
	label        string
}

func (s *sqlStore) Kind() database.Kind { return s.kind }

func (s *sqlStore) Label() string { return s.label }

func (s *sqlStore) DB() *sql.DB { return s.db }

func (s *sqlStore) Close() error { return s.db.Close() }

func (s *sqlStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping %s: %w", s.kind, err)
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *sqlStore) ensureUser(ctx context.Context, q querier, userID string) error {
	if _, err := q.ExecContext(ctx, s.insertAbsent, userID); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (s *sqlStore) getUser(ctx context.Context, q querier, userID string) (*models.User, error) {
	const query = `SELECT userId, tokens, xp, lastDaily, level FROM users WHERE userId = ?`
	row := q.QueryRowContext(ctx, query, userID)
	var u models.User
	var lastDaily sql.NullInt64
	if err := row.Scan(&u.UserID, &u.Tokens, &u.XP, &lastDaily, &u.Level); err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if lastDaily.Valid {
		u.LastDaily = &lastDaily.Int64
	}
	return &u, nil
}

func (s *sqlStore) logTransaction(ctx context.Context, q querier, userID string, amount int64, txType models.TxType) error {
	const query = `INSERT INTO transactions (userId, amount, type) VALUES (?, ?, ?)`
	if _, err := q.ExecContext(ctx, query, userID, amount, string(txType)); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *sqlStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetUser fetches the account row, lazily creating a zero-balance row first.
func (s *sqlStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if err := s.ensureUser(ctx, s.db, userID); err != nil {
		return nil, err
	}
	return s.getUser(ctx, s.db, userID)
}

// UpdateTokens applies a signed token delta and records one transaction.
func (s *sqlStore) UpdateTokens(ctx context.Context, userID string, amount int64, txType models.TxType) (*models.User, error) {
	var user *models.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET tokens = tokens + ? WHERE userId = ?`, amount, userID); err != nil {
			return fmt.Errorf("update tokens: %w", err)
		}
		if err := s.logTransaction(ctx, tx, userID, amount, txType); err != nil {
			return err
		}
		var err error
		user, err = s.getUser(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ClaimDaily grants the daily reward unless the 24h window has not elapsed.
func (s *sqlStore) ClaimDaily(ctx context.Context, userID string, nowMs int64) (*ClaimOutcome, error) {
	var out ClaimOutcome
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		u, err := s.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if u.LastDaily != nil && nowMs-*u.LastDaily < models.DailyCooldownMs {
			out = ClaimOutcome{Claimed: false, LastDaily: *u.LastDaily}
			return nil
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET tokens = tokens + ?, lastDaily = ? WHERE userId = ?`, models.DailyReward, nowMs, userID); err != nil {
			return fmt.Errorf("apply daily claim: %w", err)
		}
		if err := s.logTransaction(ctx, tx, userID, models.DailyReward, models.TxDaily); err != nil {
			return err
		}
		u, err = s.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = ClaimOutcome{Claimed: true, Tokens: u.Tokens}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ConvertXP exchanges XP for tokens at the fixed rate. No mutation happens
// unless both the balance and the minimum-amount checks pass.
func (s *sqlStore) ConvertXP(ctx context.Context, userID string, xpAmount int64) (*ConvertOutcome, error) {
	var out ConvertOutcome
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		u, err := s.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if u.XP < xpAmount {
			out = ConvertOutcome{Status: ConvertInsufficientXP}
			return nil
		}
		gained := xpAmount / models.XPPerToken
		if gained <= 0 {
			out = ConvertOutcome{Status: ConvertBelowMinimum}
			return nil
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET tokens = tokens + ?, xp = xp - ? WHERE userId = ?`, gained, xpAmount, userID); err != nil {
			return fmt.Errorf("apply conversion: %w", err)
		}
		if err := s.logTransaction(ctx, tx, userID, gained, models.TxXPConvert); err != nil {
			return err
		}
		u, err = s.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = ConvertOutcome{Status: ConvertOK, XPSpent: xpAmount, TokensGained: gained, NewTokens: u.Tokens}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AddXP grants XP and keeps the cached level in step with LevelForXP.
// The level-up bonus is a separate mutation owned by the caller.
func (s *sqlStore) AddXP(ctx context.Context, userID string, amount int64) (*AddXPOutcome, error) {
	var out AddXPOutcome
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		before, err := s.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET xp = xp + ? WHERE userId = ?`, amount, userID); err != nil {
			return fmt.Errorf("update xp: %w", err)
		}
		after, err := s.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		newLevel := models.LevelForXP(after.XP)
		out = AddXPOutcome{NewXP: after.XP, NewLevel: newLevel}
		if newLevel > before.Level {
			if _, err := tx.ExecContext(ctx, `UPDATE users SET level = ? WHERE userId = ?`, newLevel, userID); err != nil {
				return fmt.Errorf("update level: %w", err)
			}
			out.LevelUp = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SpendTokens deducts a game cost if the balance covers it and records the
// spend with a negative amount.
func (s *sqlStore) SpendTokens(ctx context.Context, userID string, cost int64, txType models.TxType) (*SpendOutcome, error) {
	var out SpendOutcome
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		u, err := s.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if u.Tokens < cost {
			out = SpendOutcome{Spent: false, Tokens: u.Tokens}
			return nil
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET tokens = tokens - ? WHERE userId = ?`, cost, userID); err != nil {
			return fmt.Errorf("spend tokens: %w", err)
		}
		if err := s.logTransaction(ctx, tx, userID, -cost, txType); err != nil {
			return err
		}
		u, err = s.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = SpendOutcome{Spent: true, Tokens: u.Tokens}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// TopUsers returns up to limit rows ordered descending by the sort key.
func (s *sqlStore) TopUsers(ctx context.Context, sortBy models.SortKey, limit int) ([]models.LeaderboardEntry, error) {
	// The column name is interpolated, so it must come from the whitelist.
	column := string(models.NormalizeSortKey(string(sortBy)))
	query := fmt.Sprintf(`SELECT userId, tokens, xp, level FROM users ORDER BY %s DESC LIMIT ?`, column)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query top users: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Tokens, &e.XP, &e.Level); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Transactions returns the newest audit entries for one user.
func (s *sqlStore) Transactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	const query = `SELECT id, userId, amount, type, timestamp FROM transactions WHERE userId = ? ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var txType string
		var ts any
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &txType, &ts); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = models.TxType(txType)
		t.Timestamp = parseTimestamp(ts)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// parseTimestamp absorbs the dialect difference: MySQL yields time.Time via
// parseTime, SQLite stores CURRENT_TIMESTAMP as text.
func parseTimestamp(v any) time.Time {
	switch ts := v.(type) {
	case time.Time:
		return ts
	case string:
		if t, err := time.Parse("2006-01-02 15:04:05", ts); err == nil {
			return t
		}
	case []byte:
		if t, err := time.Parse("2006-01-02 15:04:05", string(ts)); err == nil {
			return t
		}
	}
	return time.Time{}
}
