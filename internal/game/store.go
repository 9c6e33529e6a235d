package game

import (
	"context"
	"sync"
)

// Store persists games as whole documents. Implementations return copies: mutating a
// returned game never changes stored state until it is saved.
type Store interface {
	ListGames(ctx context.Context) ([]*Game, error)
	GetGame(ctx context.Context, id string) (*Game, error)
	// CreateGame assigns an id when g has none and sets the first version.
	CreateGame(ctx context.Context, g *Game) error
	// SaveGame writes g only if the stored version still equals g.Version, then
	// increments g.Version. A mismatch returns ErrVersionConflict.
	SaveGame(ctx context.Context, g *Game) error
	// UpsertGame writes g under its id regardless of what is stored.
	UpsertGame(ctx context.Context, g *Game) error
	DeleteGame(ctx context.Context, id string) error

	GetUserState(ctx context.Context, userID string) (UserState, error)
	SetUserState(ctx context.Context, st UserState) error
	// ClearActiveGame unsets activeGameId for every user that selected the game.
	ClearActiveGame(ctx context.Context, gameID string) error
}

// Notifier is told about every committed change. Calls happen after the write and
// must not block for long.
type Notifier interface {
	GameChanged(g *Game)
	GameDeleted(id string)
	GameDrawn(gameID string, out DrawOutcome)
}

// Notifiers fans out to several notifiers.
type Notifiers struct {
	mu   sync.RWMutex
	list []Notifier
}

func (n *Notifiers) Add(x Notifier) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, x)
}

func (n *Notifiers) each(f func(Notifier)) {
	n.mu.RLock()
	list := n.list
	n.mu.RUnlock()
	for _, x := range list {
		f(x)
	}
}

func (n *Notifiers) GameChanged(g *Game) {
	n.each(func(x Notifier) { x.GameChanged(g.Clone()) })
}

func (n *Notifiers) GameDeleted(id string) {
	n.each(func(x Notifier) { x.GameDeleted(id) })
}

func (n *Notifiers) GameDrawn(gameID string, out DrawOutcome) {
	n.each(func(x Notifier) { x.GameDrawn(gameID, out) })
}
