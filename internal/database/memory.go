// internal/database/memory.go
package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/blobgame/blob/internal/game"
)

type memoryUser struct {
	id       uuid.UUID
	username string
	isGuest  bool
	gameCode string
}

// MemoryUserStore is an in-process game.UserStore for tests and runs
// without a database.
type MemoryUserStore struct {
	mu     sync.Mutex
	byHash map[string]*memoryUser
	byID   map[uuid.UUID]*memoryUser
}

// NewMemoryUserStore returns an empty in-memory store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byHash: make(map[string]*memoryUser),
		byID:   make(map[uuid.UUID]*memoryUser),
	}
}

var _ game.UserStore = (*MemoryUserStore)(nil)

func (s *MemoryUserStore) EnsureUser(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byHash[tokenHash]; ok {
		return u.id, nil
	}
	u := &memoryUser{id: uuid.New(), isGuest: true}
	s.byHash[tokenHash] = u
	s.byID[u.id] = u
	return u.id, nil
}

func (s *MemoryUserStore) DisplayName(ctx context.Context, playerID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[playerID]
	if !ok {
		return "", fmt.Errorf("no such user %s", playerID)
	}
	if u.isGuest {
		return fmt.Sprintf("Guest(%s)", u.username), nil
	}
	return u.username, nil
}

func (s *MemoryUserStore) SetName(ctx context.Context, playerID uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.byID {
		if id != playerID && u.username == name {
			return game.ErrNameTaken
		}
	}
	u, ok := s.byID[playerID]
	if !ok {
		return fmt.Errorf("no such user %s", playerID)
	}
	u.username = name
	return nil
}

func (s *MemoryUserStore) SetMembership(ctx context.Context, playerID uuid.UUID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[playerID]
	if !ok {
		return fmt.Errorf("no such user %s", playerID)
	}
	u.gameCode = code
	return nil
}

func (s *MemoryUserStore) Membership(ctx context.Context, playerID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[playerID]
	if !ok {
		return "", nil
	}
	return u.gameCode, nil
}
