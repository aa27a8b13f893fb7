package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

const sqliteCreateAuthUsers = `CREATE TABLE auth.users (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL,
    email_confirmed_at TIMESTAMP NULL
);`

func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(sqliteCreateAuthUsers)
	require.NoError(t, err)
	return db
}

func TestVerificationStoreIsEmailVerified(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	confirmed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	_, err := db.NewInsert().Model(&AuthUserModel{ID: "u1", Email: "Verified@Example.com", EmailConfirmedAt: &confirmed}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&AuthUserModel{ID: "u2", Email: "pending@example.com"}).Exec(ctx)
	require.NoError(t, err)

	store := NewVerificationStore(db)

	ok, err := store.IsEmailVerified(ctx, "verified@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.IsEmailVerified(ctx, "pending@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.IsEmailVerified(ctx, "missing@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.IsEmailVerified(ctx, "  ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagerValidate(t *testing.T) {
	db := setupDB(t)

	m := NewManager(db)
	require.NoError(t, m.Validate())
	assert.NotNil(t, m.Verification())
	assert.NotNil(t, m.Activity())

	assert.Error(t, (&Manager{}).Validate())
}

func TestManagerRunInTxCanceled(t *testing.T) {
	m := NewManager(setupDB(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	require.Error(t, err)
}
