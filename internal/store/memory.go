package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kiliankoe/animebingo/internal/game"
)

// Memory keeps games in process. It is used when no database is configured and in
// tests.
type Memory struct {
	mu     sync.RWMutex
	games  map[string]*game.Game
	states map[string]game.UserState
}

func NewMemory() *Memory {
	return &Memory{
		games:  make(map[string]*game.Game),
		states: make(map[string]game.UserState),
	}
}

func (m *Memory) ListGames(ctx context.Context) ([]*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*game.Game, 0, len(m.games))
	for _, g := range m.games {
		out = append(out, g.Clone())
	}
	return out, nil
}

func (m *Memory) GetGame(ctx context.Context, id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g := m.games[id]
	if g == nil {
		return nil, fmt.Errorf("%w: %s", game.ErrGameNotFound, id)
	}
	return g.Clone(), nil
}

func (m *Memory) CreateGame(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if _, exists := m.games[g.ID]; exists {
		return fmt.Errorf("%w: %s already exists", game.ErrVersionConflict, g.ID)
	}
	g.Version = 1
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *Memory) SaveGame(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.games[g.ID]
	if cur == nil {
		return fmt.Errorf("%w: %s", game.ErrGameNotFound, g.ID)
	}
	if cur.Version != g.Version {
		return fmt.Errorf("%w: stored version %d, got %d", game.ErrVersionConflict, cur.Version, g.Version)
	}
	g.Version++
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *Memory) UpsertGame(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.Version = 1
	if cur := m.games[g.ID]; cur != nil {
		g.Version = cur.Version + 1
	}
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *Memory) DeleteGame(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[id]; !ok {
		return fmt.Errorf("%w: %s", game.ErrGameNotFound, id)
	}
	delete(m.games, id)
	return nil
}

func (m *Memory) GetUserState(ctx context.Context, userID string) (game.UserState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[userID]
	if !ok {
		return game.UserState{UserID: userID}, nil
	}
	return st, nil
}

func (m *Memory) SetUserState(ctx context.Context, st game.UserState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[st.UserID] = st
	return nil
}

func (m *Memory) ClearActiveGame(ctx context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, st := range m.states {
		if st.ActiveGameID == gameID {
			st.ActiveGameID = ""
			m.states[id] = st
		}
	}
	return nil
}
