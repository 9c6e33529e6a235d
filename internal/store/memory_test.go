package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiliankoe/animebingo/internal/game"
)

func newGame(name string) *game.Game {
	return &game.Game{Name: name, GameMode: game.ModeInfinito, CurrentPhase: game.PhaseRegistration, Participants: []game.Participant{}}
}

func TestMemorySaveChecksVersion(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	g := newGame("Temporada")
	require.NoError(t, s.CreateGame(ctx, g))
	require.NotEmpty(t, g.ID)
	assert.Equal(t, int64(1), g.Version)

	a, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	b, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)

	a.Name = "first"
	require.NoError(t, s.SaveGame(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	b.Name = "second"
	err = s.SaveGame(ctx, b)
	assert.True(t, errors.Is(err, game.ErrVersionConflict), "got %v", err)

	cur, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", cur.Name)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	g := newGame("Copy")
	require.NoError(t, s.CreateGame(ctx, g))

	got, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	got.Participants = append(got.Participants, game.Participant{ID: "p1", Name: "Ana"})

	again, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Participants)
}

func TestMemoryUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	g := newGame("Restored")
	g.ID = "fixed-id"
	require.NoError(t, s.UpsertGame(ctx, g))
	require.NoError(t, s.UpsertGame(ctx, g))
	assert.Equal(t, int64(2), g.Version)

	games, err := s.ListGames(ctx)
	require.NoError(t, err)
	assert.Len(t, games, 1)

	require.NoError(t, s.DeleteGame(ctx, "fixed-id"))
	_, err = s.GetGame(ctx, "fixed-id")
	assert.True(t, errors.Is(err, game.ErrGameNotFound))
	assert.True(t, errors.Is(s.DeleteGame(ctx, "fixed-id"), game.ErrGameNotFound))
}

func TestMemoryClearActiveGame(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.SetUserState(ctx, game.UserState{UserID: "u1", ActiveGameID: "g1"}))
	require.NoError(t, s.SetUserState(ctx, game.UserState{UserID: "u2", ActiveGameID: "g2"}))

	require.NoError(t, s.ClearActiveGame(ctx, "g1"))

	st, err := s.GetUserState(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, st.ActiveGameID)
	st, err = s.GetUserState(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "g2", st.ActiveGameID)

	st, err = s.GetUserState(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, game.UserState{UserID: "nobody"}, st)
}
