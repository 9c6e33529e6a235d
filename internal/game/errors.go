package game

import "errors"

var (
	ErrGameNotFound        = errors.New("game not found")
	ErrNotHost             = errors.New("not host")
	ErrInvalidPhase        = errors.New("invalid phase for action")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrGuardFailed         = errors.New("transition precondition not met")
	ErrInvalidMode         = errors.New("invalid game mode")
	ErrInvalidName         = errors.New("name required")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrSelfIndication      = errors.New("participant cannot indicate to themselves")
	ErrAlreadyIndicated    = errors.New("already indicated")
	ErrUnknownAnime        = errors.New("anime not among indications")
	ErrNothingToDraw       = errors.New("nothing left to draw")
	ErrVersionConflict     = errors.New("game was modified concurrently")
	ErrInvalidBackup       = errors.New("invalid backup file")
)
