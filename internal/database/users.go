// internal/database/users.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blobgame/blob/internal/game"
)

// UserStore is the Postgres-backed identity collaborator. Schema:
//
//	CREATE TABLE users (
//	    id              UUID PRIMARY KEY,
//	    username        TEXT NOT NULL DEFAULT '',
//	    is_guest        BOOLEAN NOT NULL DEFAULT TRUE,
//	    connection_hash TEXT NOT NULL UNIQUE,
//	    game_code       TEXT NOT NULL DEFAULT ''
//	);
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore wraps a connected pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

var _ game.UserStore = (*UserStore)(nil)

// EnsureUser finds the identity owning a connection hash, minting and
// persisting a guest identity for a hash seen for the first time.
func (s *UserStore) EnsureUser(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM users WHERE connection_hash = $1`, tokenHash).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("lookup user by hash: %w", err)
	}

	id, err = uuid.NewRandom()
	if err != nil {
		return uuid.Nil, fmt.Errorf("mint identity: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, username, is_guest, connection_hash, game_code)
		 VALUES ($1, '', TRUE, $2, '')`, id, tokenHash)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// DisplayName returns the player's name, in Guest(...) form for guest rows.
func (s *UserStore) DisplayName(ctx context.Context, playerID uuid.UUID) (string, error) {
	var username string
	var isGuest bool
	err := s.pool.QueryRow(ctx,
		`SELECT username, is_guest FROM users WHERE id = $1`, playerID).Scan(&username, &isGuest)
	if err != nil {
		return "", fmt.Errorf("lookup display name: %w", err)
	}
	if isGuest {
		return fmt.Sprintf("Guest(%s)", username), nil
	}
	return username, nil
}

// SetName updates a player's username, enforcing uniqueness.
func (s *UserStore) SetName(ctx context.Context, playerID uuid.UUID, name string) error {
	var taken bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND id <> $2)`,
		name, playerID).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if taken {
		return game.ErrNameTaken
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE users SET username = $1 WHERE id = $2`, name, playerID)
	if err != nil {
		return fmt.Errorf("update username: %w", err)
	}
	return nil
}

// SetMembership persists the player's current game code.
func (s *UserStore) SetMembership(ctx context.Context, playerID uuid.UUID, code string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET game_code = $1 WHERE id = $2`, code, playerID)
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	return nil
}

// Membership returns the player's current game code, "" when unseated.
func (s *UserStore) Membership(ctx context.Context, playerID uuid.UUID) (string, error) {
	var code string
	err := s.pool.QueryRow(ctx,
		`SELECT game_code FROM users WHERE id = $1`, playerID).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup membership: %w", err)
	}
	return code, nil
}
