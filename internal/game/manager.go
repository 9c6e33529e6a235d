package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Manager runs every operation as load, change, save, publish. Operations on the same
// game are serialized; the store's version check catches writers in other processes.
type Manager struct {
	store    Store
	notify   Notifiers
	rnd      *lockedRand
	now      func() time.Time
	watchLog *WatchLog

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Manager)

// WithRand makes draws use r. Access to r is serialized.
func WithRand(r Rand) Option { return func(m *Manager) { m.rnd.r = r } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func WithWatchLog(w *WatchLog) Option { return func(m *Manager) { m.watchLog = w } }

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		rnd:   &lockedRand{r: globalRand{}},
		now:   func() time.Time { return time.Now().UTC() },
		locks: make(map[string]*sync.Mutex),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Subscribe registers n for every later change.
func (m *Manager) Subscribe(n Notifier) { m.notify.Add(n) }

type lockedRand struct {
	mu sync.Mutex
	r  Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (m *Manager) lock(gameID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.locks[gameID]
	if l == nil {
		l = &sync.Mutex{}
		m.locks[gameID] = l
	}
	return l
}

// forget drops the lock entry for a game that turned out not to exist.
func (m *Manager) forget(gameID string, l *sync.Mutex) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[gameID] == l {
		delete(m.locks, gameID)
	}
}

// mutate applies fn to a freshly loaded copy and commits it. Nothing is written when fn
// fails.
func (m *Manager) mutate(ctx context.Context, gameID, userID string, hostOnly bool, fn func(g *Game) error) (*Game, error) {
	l := m.lock(gameID)
	l.Lock()
	defer l.Unlock()

	g, err := m.store.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, ErrGameNotFound) {
			m.forget(gameID, l)
		}
		return nil, err
	}
	if hostOnly && !g.IsHost(userID) {
		return nil, ErrNotHost
	}
	if err := fn(g); err != nil {
		return nil, err
	}
	if err := m.store.SaveGame(ctx, g); err != nil {
		log.Error().Err(err).Str("game", gameID).Str("user", userID).Msg("save game")
		return nil, err
	}
	m.notify.GameChanged(g)
	return g.Clone(), nil
}

func (m *Manager) CreateGame(ctx context.Context, userID, name string, mode Mode) (*Game, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	g := &Game{
		ID:           uuid.NewString(),
		Name:         name,
		GameMode:     mode,
		CurrentPhase: PhaseRegistration,
		CreatedBy:    userID,
		CreatedAt:    m.now(),
		Participants: []Participant{},
	}
	if err := m.store.CreateGame(ctx, g); err != nil {
		return nil, err
	}
	log.Info().Str("game", g.ID).Str("user", userID).Str("mode", string(mode)).Msg("game created")
	m.notify.GameChanged(g)
	return g, nil
}

// ListGames returns every game, newest first.
func (m *Manager) ListGames(ctx context.Context) ([]*Game, error) {
	games, err := m.store.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(games, func(i, j int) bool { return games[i].CreatedAt.After(games[j].CreatedAt) })
	return games, nil
}

func (m *Manager) GetGame(ctx context.Context, id string) (*Game, error) {
	return m.store.GetGame(ctx, id)
}

func (m *Manager) DeleteGame(ctx context.Context, userID, id string) error {
	l := m.lock(id)
	l.Lock()
	defer l.Unlock()

	g, err := m.store.GetGame(ctx, id)
	if err != nil {
		if errors.Is(err, ErrGameNotFound) {
			m.forget(id, l)
		}
		return err
	}
	if !g.IsHost(userID) {
		return ErrNotHost
	}
	if err := m.store.DeleteGame(ctx, id); err != nil {
		return err
	}
	if err := m.store.ClearActiveGame(ctx, id); err != nil {
		log.Warn().Err(err).Str("game", id).Msg("clear active game")
	}
	m.mu.Lock()
	delete(m.locks, id)
	m.mu.Unlock()
	log.Info().Str("game", id).Str("user", userID).Msg("game deleted")
	m.notify.GameDeleted(id)
	return nil
}

func (m *Manager) UserState(ctx context.Context, userID string) (UserState, error) {
	return m.store.GetUserState(ctx, userID)
}

// SelectGame remembers which game the user has open. An empty id clears it.
func (m *Manager) SelectGame(ctx context.Context, userID, gameID string) (UserState, error) {
	if gameID != "" {
		if _, err := m.store.GetGame(ctx, gameID); err != nil {
			return UserState{}, err
		}
	}
	st := UserState{UserID: userID, ActiveGameID: gameID}
	if err := m.store.SetUserState(ctx, st); err != nil {
		return UserState{}, err
	}
	return st, nil
}

func (m *Manager) AddParticipant(ctx context.Context, userID, gameID, name, anilistUser string) (*Participant, *Game, error) {
	var id string
	g, err := m.mutate(ctx, gameID, userID, false, func(g *Game) error {
		p, err := AddParticipant(g, name, anilistUser, userID)
		if err != nil {
			return err
		}
		id = p.ID
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return g.Participant(id), g, nil
}

func (m *Manager) UpdateParticipant(ctx context.Context, userID, gameID, participantID, name, anilistUser string) (*Game, error) {
	return m.mutate(ctx, gameID, userID, false, func(g *Game) error {
		return UpdateParticipant(g, participantID, name, anilistUser)
	})
}

func (m *Manager) RemoveParticipant(ctx context.Context, userID, gameID, participantID string) (*Game, error) {
	return m.mutate(ctx, gameID, userID, false, func(g *Game) error {
		return RemoveParticipant(g, participantID)
	})
}

func (m *Manager) SetIndicator(ctx context.Context, userID, gameID, participantID string) (*Game, error) {
	return m.mutate(ctx, gameID, userID, false, func(g *Game) error {
		return SetIndicator(g, participantID)
	})
}

func (m *Manager) AddIndication(ctx context.Context, userID, gameID, indicatorID, receiverID string, anime AnimeData) (*Game, error) {
	return m.mutate(ctx, gameID, userID, false, func(g *Game) error {
		_, err := AddIndication(g, indicatorID, receiverID, anime)
		return err
	})
}

func (m *Manager) AddClubIndication(ctx context.Context, userID, gameID, indicatorID string, anime AnimeData) (*Game, error) {
	return m.mutate(ctx, gameID, userID, false, func(g *Game) error {
		_, err := AddClubIndication(g, indicatorID, anime)
		return err
	})
}

func (m *Manager) Select(ctx context.Context, userID, gameID, participantID, title string) (*Game, error) {
	return m.mutate(ctx, gameID, userID, true, func(g *Game) error {
		return Select(g, participantID, title)
	})
}

func (m *Manager) SelectClub(ctx context.Context, userID, gameID, title string) (*Game, error) {
	return m.mutate(ctx, gameID, userID, true, func(g *Game) error {
		return SelectClub(g, title)
	})
}

// DrawRequest names a draw. ParticipantID is ignored for club draws and when All is set.
type DrawRequest struct {
	Kind          DrawKind `json:"kind"`
	ParticipantID string   `json:"participantId,omitempty"`
	All           bool     `json:"all,omitempty"`
}

// Draw computes a random outcome and persists it in a single write before anyone is
// told about it.
func (m *Manager) Draw(ctx context.Context, userID, gameID string, req DrawRequest) (DrawOutcome, *Game, error) {
	var out DrawOutcome
	g, err := m.mutate(ctx, gameID, userID, true, func(g *Game) error {
		var err error
		switch {
		case req.Kind == KindGenre && req.All:
			out, err = DrawAllGenres(g, m.rnd)
		case req.Kind == KindGenre:
			out, err = DrawGenre(g, req.ParticipantID, m.rnd)
		case req.Kind == KindClubGenre:
			out, err = DrawClubGenre(g, m.rnd)
		case req.Kind == KindAnime && req.All:
			out, err = DrawAllAnime(g, m.rnd)
		case req.Kind == KindAnime:
			out, err = DrawAnime(g, req.ParticipantID, m.rnd)
		case req.Kind == KindClubAnime:
			out, err = DrawClubAnime(g, m.rnd)
		default:
			err = fmt.Errorf("%w: unknown draw kind %q", ErrInvalidTransition, req.Kind)
		}
		return err
	})
	if err != nil {
		return DrawOutcome{}, nil, err
	}
	log.Info().Str("game", gameID).Str("kind", string(out.Kind)).Int("draws", len(out.Draws)).Msg("draw")
	m.notify.GameDrawn(gameID, out)
	return out, g, nil
}

// Transition applies a host action through the transition table.
func (m *Manager) Transition(ctx context.Context, userID, gameID string, a Action) (Outcome, *Game, error) {
	if a.At.IsZero() {
		a.At = m.now()
	}
	var (
		out    Outcome
		before Participant
	)
	g, err := m.mutate(ctx, gameID, userID, true, func(g *Game) error {
		if p := g.Participant(a.ParticipantID); p != nil {
			before = p.clone()
		}
		var err error
		out, err = Apply(g, a)
		return err
	})
	if err != nil {
		return Outcome{}, nil, err
	}
	log.Info().Str("game", gameID).Str("event", string(a.Event)).Str("from", string(out.From)).Str("to", string(out.To)).Msg("transition")
	if out.History != nil && m.watchLog != nil {
		if err := m.watchLog.Append(g, &before, *out.History); err != nil {
			log.Error().Err(err).Str("game", gameID).Str("file", m.watchLog.Path()).Msg("watch log")
		}
	}
	return out, g, nil
}

// Restore loads every game of a backup file and upserts it with the importing user as
// host. The file is fully validated before the first write.
func (m *Manager) Restore(ctx context.Context, userID string, data []byte) ([]*Game, error) {
	games, err := ParseBackup(data)
	if err != nil {
		return nil, err
	}
	for _, g := range games {
		g.CreatedBy = userID
		if g.CreatedAt.IsZero() {
			g.CreatedAt = m.now()
		}
		l := m.lock(g.ID)
		l.Lock()
		err := m.store.UpsertGame(ctx, g)
		l.Unlock()
		if err != nil {
			return nil, fmt.Errorf("restore game %s: %w", g.ID, err)
		}
		m.notify.GameChanged(g)
	}
	log.Info().Str("user", userID).Int("games", len(games)).Msg("backup restored")
	return games, nil
}

// Backup renders one game, or every game when gameID is empty, with its download name.
func (m *Manager) Backup(ctx context.Context, gameID string) ([]byte, string, error) {
	if gameID == "" {
		games, err := m.ListGames(ctx)
		if err != nil {
			return nil, "", err
		}
		if len(games) == 0 {
			return nil, "", fmt.Errorf("%w: no games to back up", ErrGameNotFound)
		}
		b, err := ExportBackup(games)
		return b, BackupAllFilename(m.now()), err
	}
	g, err := m.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, "", err
	}
	b, err := ExportBackup([]*Game{g})
	return b, BackupFilename(g.Name), err
}

// IsClientError reports whether err was caused by the request rather than the server.
func IsClientError(err error) bool {
	for _, e := range []error{
		ErrGameNotFound, ErrNotHost, ErrInvalidPhase, ErrInvalidTransition, ErrGuardFailed,
		ErrInvalidMode, ErrInvalidName, ErrParticipantNotFound, ErrSelfIndication,
		ErrAlreadyIndicated, ErrUnknownAnime, ErrNothingToDraw, ErrVersionConflict, ErrInvalidBackup,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
