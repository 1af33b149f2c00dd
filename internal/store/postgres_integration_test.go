//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, startPostgres(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewPostgresStore(pool)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestPostgresStore_Users(t *testing.T) {
	ctx := context.Background()
	s := newPostgresStore(t)

	u, err := s.CreateUser(ctx, "alice", "alice@example.com", "$2a$10$hash")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Empty(t, u.Password)

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "$2a$10$hash", byEmail.Password)

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = s.GetUserByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetUserByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	taken, err := s.UsernameTaken(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = s.EmailTaken(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = s.CreateUser(ctx, "alice", "other@example.com", "x")
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = s.CreateUser(ctx, "bob", "alice@example.com", "x")
	assert.ErrorIs(t, err, ErrDuplicate)
}
