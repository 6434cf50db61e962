// internal/database/memory_test.go
package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blobgame/blob/internal/game"
)

func TestEnsureUserIdempotent(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	a, err := s.EnsureUser(ctx, "hash-a")
	require.NoError(t, err)
	again, err := s.EnsureUser(ctx, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, a, again)

	b, err := s.EnsureUser(ctx, "hash-b")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGuestDisplayName(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	id, err := s.EnsureUser(ctx, "hash-a")
	require.NoError(t, err)

	name, err := s.DisplayName(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Guest()", name)

	require.NoError(t, s.SetName(ctx, id, "alice"))
	name, err = s.DisplayName(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Guest(alice)", name)
}

func TestSetNameConflict(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	a, err := s.EnsureUser(ctx, "hash-a")
	require.NoError(t, err)
	b, err := s.EnsureUser(ctx, "hash-b")
	require.NoError(t, err)

	require.NoError(t, s.SetName(ctx, a, "alice"))
	assert.ErrorIs(t, s.SetName(ctx, b, "alice"), game.ErrNameTaken)

	// Renaming yourself to your own name is not a conflict.
	assert.NoError(t, s.SetName(ctx, a, "alice"))
}

func TestMembershipLifecycle(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	id, err := s.EnsureUser(ctx, "hash-a")
	require.NoError(t, err)

	code, err := s.Membership(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, code)

	require.NoError(t, s.SetMembership(ctx, id, "ABCD"))
	code, err = s.Membership(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ABCD", code)

	require.NoError(t, s.SetMembership(ctx, id, ""))
	code, err = s.Membership(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, code)
}
