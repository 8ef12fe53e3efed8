package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/TGEconomyBot/internal/database"
	"github.com/digkill/TGEconomyBot/internal/models"
)

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "economy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.CreateSchema(context.Background(), db, database.KindSQLite))
	return NewSQLiteStore(db)
}

func TestGetUserCreatesZeroBalanceRow(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user, err := store.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.UserID)
	assert.Equal(t, int64(0), user.Tokens)
	assert.Equal(t, int64(0), user.XP)
	assert.Equal(t, 1, user.Level)
	assert.Nil(t, user.LastDaily)

	// Repeated lookups must not reset anything.
	_, err = store.UpdateTokens(ctx, "alice", 7, "grant")
	require.NoError(t, err)
	user, err = store.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.Tokens)
}

func TestUpdateTokensWritesTransaction(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user, err := store.UpdateTokens(ctx, "bob", -4, "penalty")
	require.NoError(t, err)
	assert.Equal(t, int64(-4), user.Tokens)

	txs, err := store.Transactions(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(-4), txs[0].Amount)
	assert.Equal(t, models.TxType("penalty"), txs[0].Type)
}

func TestClaimDaily(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	out, err := store.ClaimDaily(ctx, "carol", now)
	require.NoError(t, err)
	assert.True(t, out.Claimed)
	assert.Equal(t, models.DailyReward, out.Tokens)

	// Second claim inside the window is refused without a transaction.
	out, err = store.ClaimDaily(ctx, "carol", now+1000)
	require.NoError(t, err)
	assert.False(t, out.Claimed)
	assert.Equal(t, now, out.LastDaily)

	txs, err := store.Transactions(ctx, "carol", 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TxDaily, txs[0].Type)

	// One millisecond past the window the claim succeeds again.
	out, err = store.ClaimDaily(ctx, "carol", now+models.DailyCooldownMs+1)
	require.NoError(t, err)
	assert.True(t, out.Claimed)
	assert.Equal(t, 2*models.DailyReward, out.Tokens)
}

func TestConvertXP(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.AddXP(ctx, "dave", 200)
	require.NoError(t, err)

	t.Run("insufficient xp", func(t *testing.T) {
		out, err := store.ConvertXP(ctx, "dave", 500)
		require.NoError(t, err)
		assert.Equal(t, ConvertInsufficientXP, out.Status)

		user, err := store.GetUser(ctx, "dave")
		require.NoError(t, err)
		assert.Equal(t, int64(200), user.XP)
		assert.Equal(t, int64(0), user.Tokens)
	})

	t.Run("below minimum", func(t *testing.T) {
		out, err := store.ConvertXP(ctx, "dave", 49)
		require.NoError(t, err)
		assert.Equal(t, ConvertBelowMinimum, out.Status)

		user, err := store.GetUser(ctx, "dave")
		require.NoError(t, err)
		assert.Equal(t, int64(200), user.XP)
		assert.Equal(t, int64(0), user.Tokens)
	})

	t.Run("success", func(t *testing.T) {
		out, err := store.ConvertXP(ctx, "dave", 150)
		require.NoError(t, err)
		assert.Equal(t, ConvertOK, out.Status)
		assert.Equal(t, int64(150), out.XPSpent)
		assert.Equal(t, int64(3), out.TokensGained)
		assert.Equal(t, int64(3), out.NewTokens)

		user, err := store.GetUser(ctx, "dave")
		require.NoError(t, err)
		assert.Equal(t, int64(50), user.XP)

		txs, err := store.Transactions(ctx, "dave", 10)
		require.NoError(t, err)
		require.NotEmpty(t, txs)
		assert.Equal(t, models.TxXPConvert, txs[0].Type)
		assert.Equal(t, int64(3), txs[0].Amount)
	})
}

func TestAddXPTracksLevel(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	out, err := store.AddXP(ctx, "erin", 90)
	require.NoError(t, err)
	assert.False(t, out.LevelUp)
	assert.Equal(t, 1, out.NewLevel)

	out, err = store.AddXP(ctx, "erin", 20)
	require.NoError(t, err)
	assert.True(t, out.LevelUp)
	assert.Equal(t, 2, out.NewLevel)
	assert.Equal(t, int64(110), out.NewXP)

	user, err := store.GetUser(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, models.LevelForXP(user.XP), user.Level)
}

func TestSpendTokens(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	out, err := store.SpendTokens(ctx, "frank", 1, models.TxGameHard)
	require.NoError(t, err)
	assert.False(t, out.Spent)
	assert.Equal(t, int64(0), out.Tokens)

	txs, err := store.Transactions(ctx, "frank", 10)
	require.NoError(t, err)
	assert.Empty(t, txs)

	_, err = store.UpdateTokens(ctx, "frank", 1, "grant")
	require.NoError(t, err)

	out, err = store.SpendTokens(ctx, "frank", 1, models.TxGameHard)
	require.NoError(t, err)
	assert.True(t, out.Spent)
	assert.Equal(t, int64(0), out.Tokens)

	txs, err = store.Transactions(ctx, "frank", 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TxGameHard, txs[0].Type)
	assert.Equal(t, int64(-1), txs[0].Amount)
}

func TestTopUsers(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.AddXP(ctx, "low", 50)
	require.NoError(t, err)
	_, err = store.AddXP(ctx, "mid", 300)
	require.NoError(t, err)
	_, err = store.AddXP(ctx, "high", 1200)
	require.NoError(t, err)
	_, err = store.UpdateTokens(ctx, "low", 99, "grant")
	require.NoError(t, err)

	byXP, err := store.TopUsers(ctx, models.SortXP, 2)
	require.NoError(t, err)
	require.Len(t, byXP, 2)
	assert.Equal(t, "high", byXP[0].UserID)
	assert.Equal(t, "mid", byXP[1].UserID)

	byTokens, err := store.TopUsers(ctx, models.SortTokens, 3)
	require.NoError(t, err)
	require.Len(t, byTokens, 3)
	assert.Equal(t, "low", byTokens[0].UserID)
}

func TestMigrateLastDaily(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.DB().ExecContext(ctx, `INSERT INTO users (userId, lastDaily) VALUES (?, ?)`, "legacy", "2024-03-05")
	require.NoError(t, err)
	_, err = store.DB().ExecContext(ctx, `INSERT INTO users (userId, lastDaily) VALUES (?, ?)`, "broken", "not-a-date")
	require.NoError(t, err)
	_, err = store.DB().ExecContext(ctx, `INSERT INTO users (userId, lastDaily) VALUES (?, ?)`, "modern", int64(1700000000000))
	require.NoError(t, err)

	migrated, err := store.MigrateLastDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, migrated)

	legacy, err := store.GetUser(ctx, "legacy")
	require.NoError(t, err)
	require.NotNil(t, legacy.LastDaily)
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, want, *legacy.LastDaily)

	broken, err := store.GetUser(ctx, "broken")
	require.NoError(t, err)
	assert.Nil(t, broken.LastDaily)

	modern, err := store.GetUser(ctx, "modern")
	require.NoError(t, err)
	require.NotNil(t, modern.LastDaily)
	assert.Equal(t, int64(1700000000000), *modern.LastDaily)

	// Once every value is numeric the pass is a no-op.
	migrated, err = store.MigrateLastDaily(ctx)
	require.NoError(t, err)
	assert.Zero(t, migrated)
}

func TestParseLegacyDate(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC).UnixMilli(), true},
		{"2024-03-05 13:30:00", time.Date(2024, 3, 5, 13, 30, 0, 0, time.UTC).UnixMilli(), true},
		{"1700000000000", 1700000000000, true},
		{"garbage", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseLegacyDate(tt.raw)
		assert.Equal(t, tt.ok, ok, "raw=%q", tt.raw)
		if tt.ok {
			assert.Equal(t, tt.want, got, "raw=%q", tt.raw)
		}
	}
}
