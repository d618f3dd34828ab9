package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/david/grantai/internal/auth"
)

func TestMigrationNamesSorted(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	names := migrationNames(entries)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_init.sql", names[0])
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(nil))
}

// testStore connects to TEST_DATABASE_URL and skips when it is unset or unreachable.
func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := Connect(ctx, url)
	if err != nil {
		t.Skipf("postgres unreachable: %v", err)
	}
	t.Cleanup(pool.Close)
	require.NoError(t, ApplyMigrations(ctx, pool, zap.NewNop().Sugar()))
	return NewStore(pool)
}

func TestUsersAndStateRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	email := "test-" + uuid.NewString() + "@example.com"

	user, err := s.CreateUser(ctx, email, "hash")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, email, "hash")
	assert.ErrorIs(t, err, auth.ErrUserExists)

	found, err := s.UserByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)

	_, err = s.UserByEmail(ctx, "missing-"+email)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	storage := s.StateStorage(user.ID)
	_, ok, err := storage.Load(ctx, "grantai_bookmarks")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, storage.Save(ctx, "grantai_bookmarks", []byte(`["a"]`)))
	require.NoError(t, storage.Save(ctx, "grantai_bookmarks", []byte(`["a","b"]`)))
	value, ok, err := storage.Load(ctx, "grantai_bookmarks")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `["a","b"]`, string(value))
}
