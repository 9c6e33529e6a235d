package game_test

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kiliankoe/animebingo/internal/game"
	"github.com/kiliankoe/animebingo/internal/store"
)

type recorder struct {
	mu      sync.Mutex
	changed []*game.Game
	deleted []string
	draws   []game.DrawOutcome
}

func (r *recorder) GameChanged(g *game.Game) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, g)
}

func (r *recorder) GameDeleted(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
}

func (r *recorder) GameDrawn(_ string, out game.DrawOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draws = append(r.draws, out)
}

func newManager(t *testing.T, opts ...game.Option) (*game.Manager, *store.Memory, *recorder) {
	t.Helper()
	s := store.NewMemory()
	opts = append([]game.Option{
		game.WithRand(rand.New(rand.NewSource(1))),
		game.WithClock(func() time.Time { return time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC) }),
	}, opts...)
	m := game.NewManager(s, opts...)
	rec := &recorder{}
	m.Subscribe(rec)
	return m, s, rec
}

func TestCreateGame(t *testing.T) {
	ctx := context.Background()
	m, _, rec := newManager(t)

	g, err := m.CreateGame(ctx, "host", "  Temporada  ", game.ModeTradicional)
	if err != nil {
		t.Fatalf("should be able to create game: %v", err)
	}
	if g.ID == "" || g.Name != "Temporada" || g.CurrentPhase != game.PhaseRegistration || g.CreatedBy != "host" {
		t.Fatalf("unexpected game: %+v", g)
	}
	if g.Version != 1 {
		t.Fatalf("expected version 1, got %d", g.Version)
	}
	if len(rec.changed) != 1 {
		t.Fatalf("expected one notification, got %d", len(rec.changed))
	}

	if _, err := m.CreateGame(ctx, "host", "   ", game.ModeInfinito); !errors.Is(err, game.ErrInvalidName) {
		t.Fatalf("expected invalid name, got %v", err)
	}
	if _, err := m.CreateGame(ctx, "host", "X", game.Mode("solo")); !errors.Is(err, game.ErrInvalidMode) {
		t.Fatalf("expected invalid mode, got %v", err)
	}
}

func TestUnknownGamesLeaveNoLocks(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t)
	g, _ := m.CreateGame(ctx, "host", "Bingo", game.ModeInfinito)
	if _, _, err := m.AddParticipant(ctx, "host", g.ID, "Ana", ""); err != nil {
		t.Fatal(err)
	}
	before := m.LockCount()

	for _, id := range []string{"nope-1", "nope-2", "nope-3"} {
		if _, _, err := m.AddParticipant(ctx, "guest", id, "Ana", ""); !errors.Is(err, game.ErrGameNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if err := m.DeleteGame(ctx, "guest", id); !errors.Is(err, game.ErrGameNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if got := m.LockCount(); got != before {
		t.Fatalf("expected %d locks, got %d", before, got)
	}
}

func TestHostOnlyActions(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t)
	g, _ := m.CreateGame(ctx, "host", "Bingo", game.ModeInfinito)

	// Anyone may edit the roster.
	if _, _, err := m.AddParticipant(ctx, "guest", g.ID, "Ana", ""); err != nil {
		t.Fatalf("guest should add participants: %v", err)
	}
	if _, _, err := m.Transition(ctx, "guest", g.ID, game.Action{Event: game.EventStartGenreDraw}); !errors.Is(err, game.ErrNotHost) {
		t.Fatalf("expected not host, got %v", err)
	}
	if _, _, err := m.Draw(ctx, "guest", g.ID, game.DrawRequest{Kind: game.KindGenre, All: true}); !errors.Is(err, game.ErrNotHost) {
		t.Fatalf("expected not host, got %v", err)
	}
	if err := m.DeleteGame(ctx, "guest", g.ID); !errors.Is(err, game.ErrNotHost) {
		t.Fatalf("expected not host, got %v", err)
	}
}

func TestFullRoundThroughManager(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "watch.log")
	m, s, rec := newManager(t, game.WithWatchLog(game.NewWatchLog(logPath)))

	g, _ := m.CreateGame(ctx, "host", "Bingo", game.ModeTradicional)
	a, _, err := m.AddParticipant(ctx, "host", g.ID, "Ana", "ana_al")
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := m.AddParticipant(ctx, "host", g.ID, "Bia", "")
	if err != nil {
		t.Fatal(err)
	}
	if a.Color == "" || a.AddedBy != "host" || a.AnilistUser != "ana_al" {
		t.Fatalf("unexpected participant: %+v", a)
	}

	step := func(ev game.Event, pid string) *game.Game {
		t.Helper()
		_, cur, err := m.Transition(ctx, "host", g.ID, game.Action{Event: ev, ParticipantID: pid})
		if err != nil {
			t.Fatalf("%s: %v", ev, err)
		}
		return cur
	}

	step(game.EventStartGenreDraw, "")
	out, cur, err := m.Draw(ctx, "host", g.ID, game.DrawRequest{Kind: game.KindGenre, All: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Draws) != 2 || cur.Participant(a.ID).AssignedGenre == cur.Participant(b.ID).AssignedGenre {
		t.Fatalf("unexpected genre draw: %+v", out)
	}
	step(game.EventStartIndication, "")

	if _, err := m.AddIndication(ctx, "host", g.ID, a.ID, a.ID, game.AnimeData{Title: game.AnimeTitle{Romaji: "Self"}}); !errors.Is(err, game.ErrSelfIndication) {
		t.Fatalf("expected self indication error, got %v", err)
	}
	if _, err := m.AddIndication(ctx, "host", g.ID, a.ID, b.ID, game.AnimeData{ID: 1, Title: game.AnimeTitle{Romaji: "Frieren"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddIndication(ctx, "host", g.ID, a.ID, b.ID, game.AnimeData{Title: game.AnimeTitle{Romaji: "Again"}}); !errors.Is(err, game.ErrAlreadyIndicated) {
		t.Fatalf("expected already indicated, got %v", err)
	}
	if _, _, err := m.Transition(ctx, "host", g.ID, game.Action{Event: game.EventStartPick}); !errors.Is(err, game.ErrGuardFailed) {
		t.Fatalf("expected guard failure, got %v", err)
	}
	if _, err := m.AddIndication(ctx, "host", g.ID, b.ID, a.ID, game.AnimeData{ID: 2, Title: game.AnimeTitle{Romaji: "Mushishi"}}); err != nil {
		t.Fatal(err)
	}
	step(game.EventStartPick, "")
	if _, _, err := m.Draw(ctx, "host", g.ID, game.DrawRequest{Kind: game.KindAnime, All: true}); err != nil {
		t.Fatal(err)
	}
	step(game.EventStartTracking, "")
	cur = step(game.EventMarkWatched, a.ID)

	if cur.CurrentPhase != game.PhaseGenreDraw || cur.PlayerInFocus != a.ID {
		t.Fatalf("expected GENRE_DRAW focused on Ana, got %s/%s", cur.CurrentPhase, cur.PlayerInFocus)
	}
	stored, err := s.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if h := stored.Participant(a.ID).WatchedHistory; len(h) != 1 || h[0].AnimeTitle != "Mushishi" {
		t.Fatalf("history not persisted: %+v", h)
	}
	if len(rec.draws) != 2 {
		t.Fatalf("expected 2 draw notifications, got %d", len(rec.draws))
	}
	if last := rec.changed[len(rec.changed)-1]; last.Version != stored.Version {
		t.Fatalf("last published version %d, stored %d", last.Version, stored.Version)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("watch log: %v", err)
	}
	if !strings.Contains(string(data), `Ana watched "Mushishi" (indicated by Bia)`) {
		t.Fatalf("unexpected watch log:\n%s", data)
	}
}

func TestFailedActionWritesNothing(t *testing.T) {
	ctx := context.Background()
	m, s, rec := newManager(t)
	g, _ := m.CreateGame(ctx, "host", "Bingo", game.ModeInfinito)
	before := len(rec.changed)

	if _, _, err := m.Transition(ctx, "host", g.ID, game.Action{Event: game.EventStartGenreDraw}); !errors.Is(err, game.ErrGuardFailed) {
		t.Fatalf("expected guard failure, got %v", err)
	}
	if _, _, err := m.Transition(ctx, "host", g.ID, game.Action{Event: game.EventMarkWatched}); !errors.Is(err, game.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	stored, _ := s.GetGame(ctx, g.ID)
	if stored.Version != 1 {
		t.Fatalf("failed actions bumped the version to %d", stored.Version)
	}
	if len(rec.changed) != before {
		t.Fatal("failed actions were published")
	}
}

func TestConcurrentDrawsAreSerialized(t *testing.T) {
	ctx := context.Background()
	m, s, _ := newManager(t)
	g, _ := m.CreateGame(ctx, "host", "Bingo", game.ModeInfinito)
	var ids []string
	for _, n := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		p, _, err := m.AddParticipant(ctx, "host", g.ID, n, "")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, p.ID)
	}
	if _, _, err := m.Transition(ctx, "host", g.ID, game.Action{Event: game.EventStartGenreDraw}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _, err := m.Draw(ctx, "host", g.ID, game.DrawRequest{Kind: game.KindGenre, ParticipantID: id})
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("draw failed: %v", err)
		}
	}

	stored, _ := s.GetGame(ctx, g.ID)
	seen := map[string]bool{}
	for _, p := range stored.Participants {
		if p.AssignedGenre == "" {
			t.Fatalf("%s has no genre", p.Name)
		}
		if seen[p.AssignedGenre] {
			t.Fatalf("genre %s assigned twice", p.AssignedGenre)
		}
		seen[p.AssignedGenre] = true
	}
}

func TestDeleteClearsSelection(t *testing.T) {
	ctx := context.Background()
	m, _, rec := newManager(t)
	g, _ := m.CreateGame(ctx, "host", "Bingo", game.ModeInfinito)

	if _, err := m.SelectGame(ctx, "guest", g.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SelectGame(ctx, "guest", "missing"); !errors.Is(err, game.ErrGameNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := m.DeleteGame(ctx, "host", g.ID); err != nil {
		t.Fatal(err)
	}
	st, err := m.UserState(ctx, "guest")
	if err != nil {
		t.Fatal(err)
	}
	if st.ActiveGameID != "" {
		t.Fatalf("selection not cleared: %+v", st)
	}
	if len(rec.deleted) != 1 || rec.deleted[0] != g.ID {
		t.Fatalf("deletion not published: %v", rec.deleted)
	}
	if _, err := m.GetGame(ctx, g.ID); !errors.Is(err, game.ErrGameNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRestoreUpsertsAndNeverDeletes(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t)
	kept, _ := m.CreateGame(ctx, "host", "Kept", game.ModeInfinito)

	backup := `{"games": {
		"legacy": {"name": "Legacy", "gameMode": "tradicional", "currentPhase": "WATCH_LOOP", "createdBy": "someone-else"},
		"other":  {"name": "Other", "gameMode": "soberano", "currentPhase": "REGISTRATION"}
	}}`
	restored, err := m.Restore(ctx, "importer", []byte(backup))
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(restored) != 2 {
		t.Fatalf("expected 2 restored games, got %d", len(restored))
	}
	games, _ := m.ListGames(ctx)
	if len(games) != 3 {
		t.Fatalf("expected 3 games after restore, got %d", len(games))
	}

	legacy, err := m.GetGame(ctx, "legacy")
	if err != nil {
		t.Fatal(err)
	}
	if legacy.CurrentPhase != game.PhaseTracking {
		t.Fatalf("expected TRACKING, got %s", legacy.CurrentPhase)
	}
	if legacy.CreatedBy != "importer" {
		t.Fatalf("createdBy should be the importer, got %s", legacy.CreatedBy)
	}

	// Restoring again overwrites in place.
	if _, err := m.Restore(ctx, "importer", []byte(backup)); err != nil {
		t.Fatal(err)
	}
	games, _ = m.ListGames(ctx)
	if len(games) != 3 {
		t.Fatalf("expected 3 games after second restore, got %d", len(games))
	}
	if _, err := m.GetGame(ctx, kept.ID); err != nil {
		t.Fatalf("existing game lost: %v", err)
	}

	if _, err := m.Restore(ctx, "importer", []byte(`{"x": {"gameMode": "nope"}}`)); !errors.Is(err, game.ErrInvalidBackup) {
		t.Fatalf("expected invalid backup, got %v", err)
	}
	games, _ = m.ListGames(ctx)
	if len(games) != 3 {
		t.Fatalf("failed restore changed the game count to %d", len(games))
	}
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t)
	if _, _, err := m.Backup(ctx, ""); !errors.Is(err, game.ErrGameNotFound) {
		t.Fatalf("expected error with no games, got %v", err)
	}
	g, _ := m.CreateGame(ctx, "host", "Verão 24", game.ModeInfinito)

	data, name, err := m.Backup(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if name != "anime-bingo-backup-ver_o_24.json" {
		t.Fatalf("unexpected filename %q", name)
	}
	restored, err := game.ParseBackup(data)
	if err != nil || len(restored) != 1 || restored[0].Name != "Verão 24" {
		t.Fatalf("backup does not parse back: %v %+v", err, restored)
	}

	_, name, err = m.Backup(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if name != "anime-bingo-backup-TODOS-2024-05-01.json" {
		t.Fatalf("unexpected filename %q", name)
	}
}
