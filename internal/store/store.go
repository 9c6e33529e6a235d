// Package store holds the game.Store implementations.
package store

import "github.com/kiliankoe/animebingo/internal/game"

var (
	_ game.Store = (*Memory)(nil)
	_ game.Store = (*Postgres)(nil)
)
