package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteCreatesDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "economy.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Ping())
}

func TestCreateSchemaIsIdempotent(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "economy.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, CreateSchema(ctx, db, KindSQLite))
	require.NoError(t, CreateSchema(ctx, db, KindSQLite))

	_, err = db.ExecContext(ctx, `INSERT INTO users (userId) VALUES ('alice')`)
	require.NoError(t, err)

	// A second pass must not drop existing rows.
	require.NoError(t, CreateSchema(ctx, db, KindSQLite))
	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count))
	assert.Equal(t, 1, count)
}
