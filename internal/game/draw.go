package game

import (
	"fmt"
	"math/rand"
)

// Rand is the randomness draws pick from. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.Intn(n) }

type DrawKind string

const (
	KindGenre     DrawKind = "genre"
	KindClubGenre DrawKind = "club_genre"
	KindAnime     DrawKind = "anime"
	KindClubAnime DrawKind = "club_anime"
)

// Draw is a single pick. Candidates is the pool it was picked from, so clients can
// animate the reveal over the same options.
type Draw struct {
	ParticipantID string   `json:"participantId,omitempty"`
	Result        string   `json:"result"`
	Candidates    []string `json:"candidates"`
}

type DrawOutcome struct {
	Kind  DrawKind `json:"kind"`
	Draws []Draw   `json:"draws"`
}

func pick(rnd Rand, pool []string) string {
	return pool[rnd.Intn(len(pool))]
}

func requirePhase(g *Game, p Phase) error {
	if g.CurrentPhase != p {
		return fmt.Errorf("%w: game is in %s", ErrInvalidPhase, g.CurrentPhase)
	}
	return nil
}

func requireClub(g *Game, club bool) error {
	if g.GameMode.IsClub() != club {
		return fmt.Errorf("%w: not available in mode %s", ErrInvalidMode, g.GameMode)
	}
	return nil
}

// inScope finds the participant and checks it is covered by the current draw scope.
func inScope(g *Game, participantID string) (*Participant, error) {
	p := g.Participant(participantID)
	if p == nil {
		return nil, ErrParticipantNotFound
	}
	if g.PlayerInFocus != "" && g.PlayerInFocus != p.ID {
		return nil, fmt.Errorf("%w: only %s draws this round", ErrGuardFailed, g.PlayerInFocus)
	}
	return p, nil
}

func freeGenres(g *Game) []string {
	taken := make(map[string]bool, len(g.Participants))
	for _, p := range g.Participants {
		if p.AssignedGenre != "" {
			taken[p.AssignedGenre] = true
		}
	}
	var out []string
	for _, genre := range Genres {
		if !taken[genre.Name] {
			out = append(out, genre.Name)
		}
	}
	return out
}

func drawGenreFor(g *Game, p *Participant, rnd Rand) (Draw, error) {
	if p.AssignedGenre != "" {
		return Draw{}, fmt.Errorf("%w: %s already has a genre", ErrGuardFailed, p.Name)
	}
	pool := freeGenres(g)
	if len(pool) == 0 {
		return Draw{}, fmt.Errorf("%w: every genre is taken", ErrNothingToDraw)
	}
	p.AssignedGenre = pick(rnd, pool)
	return Draw{ParticipantID: p.ID, Result: p.AssignedGenre, Candidates: pool}, nil
}

// DrawGenre assigns a genre no other participant holds.
func DrawGenre(g *Game, participantID string, rnd Rand) (DrawOutcome, error) {
	if err := requirePhase(g, PhaseGenreDraw); err != nil {
		return DrawOutcome{}, err
	}
	if err := requireClub(g, false); err != nil {
		return DrawOutcome{}, err
	}
	p, err := inScope(g, participantID)
	if err != nil {
		return DrawOutcome{}, err
	}
	d, err := drawGenreFor(g, p, rnd)
	if err != nil {
		return DrawOutcome{}, err
	}
	return DrawOutcome{Kind: KindGenre, Draws: []Draw{d}}, nil
}

// DrawAllGenres draws for every participant in scope that has no genre yet.
func DrawAllGenres(g *Game, rnd Rand) (DrawOutcome, error) {
	if err := requirePhase(g, PhaseGenreDraw); err != nil {
		return DrawOutcome{}, err
	}
	if err := requireClub(g, false); err != nil {
		return DrawOutcome{}, err
	}
	out := DrawOutcome{Kind: KindGenre}
	for _, p := range drawScope(g) {
		if p.AssignedGenre != "" {
			continue
		}
		d, err := drawGenreFor(g, p, rnd)
		if err != nil {
			return DrawOutcome{}, err
		}
		out.Draws = append(out.Draws, d)
	}
	if len(out.Draws) == 0 {
		return DrawOutcome{}, fmt.Errorf("%w: every participant has a genre", ErrNothingToDraw)
	}
	return out, nil
}

// DrawClubGenre picks the club genre from the whole catalog.
func DrawClubGenre(g *Game, rnd Rand) (DrawOutcome, error) {
	if err := requirePhase(g, PhaseGenreDraw); err != nil {
		return DrawOutcome{}, err
	}
	if err := requireClub(g, true); err != nil {
		return DrawOutcome{}, err
	}
	if g.ClubGenre != "" {
		return DrawOutcome{}, fmt.Errorf("%w: club genre already drawn", ErrGuardFailed)
	}
	pool := GenreNames()
	g.ClubGenre = pick(rnd, pool)
	return DrawOutcome{Kind: KindClubGenre, Draws: []Draw{{Result: g.ClubGenre, Candidates: pool}}}, nil
}

// animeCandidates lists the participant's indications not drawn before and not picked
// earlier in the same pass. Titles other participants hold are avoided unless nothing
// else is left.
func animeCandidates(g *Game, p *Participant, pass map[string]bool) []string {
	drawn := make(map[string]bool, len(p.DrawnIndicationTitles))
	for _, t := range p.DrawnIndicationTitles {
		drawn[t] = true
	}
	held := make(map[string]bool, len(g.Participants))
	for _, other := range g.Participants {
		if other.ID != p.ID && other.ChosenAnime != "" {
			held[other.ChosenAnime] = true
		}
	}
	var open, free []string
	for _, ind := range p.Indications {
		if drawn[ind.AnimeTitle] || pass[ind.AnimeTitle] {
			continue
		}
		open = append(open, ind.AnimeTitle)
		if !held[ind.AnimeTitle] {
			free = append(free, ind.AnimeTitle)
		}
	}
	if len(free) > 0 {
		return free
	}
	return open
}

func drawAnimeFor(g *Game, p *Participant, rnd Rand, pass map[string]bool) (Draw, error) {
	if p.ChosenAnime != "" {
		return Draw{}, fmt.Errorf("%w: %s already has an anime", ErrGuardFailed, p.Name)
	}
	pool := animeCandidates(g, p, pass)
	if len(pool) == 0 {
		return Draw{}, fmt.Errorf("%w: no indications left for %s", ErrNothingToDraw, p.Name)
	}
	p.ChosenAnime = pick(rnd, pool)
	p.DrawnIndicationTitles = append(p.DrawnIndicationTitles, p.ChosenAnime)
	return Draw{ParticipantID: p.ID, Result: p.ChosenAnime, Candidates: pool}, nil
}

// DrawAnime picks one of the participant's indications that was not drawn before,
// preferring titles nobody else is currently holding.
func DrawAnime(g *Game, participantID string, rnd Rand) (DrawOutcome, error) {
	if err := requirePhase(g, PhaseAnimeDraw); err != nil {
		return DrawOutcome{}, err
	}
	if err := requireClub(g, false); err != nil {
		return DrawOutcome{}, err
	}
	p, err := inScope(g, participantID)
	if err != nil {
		return DrawOutcome{}, err
	}
	d, err := drawAnimeFor(g, p, rnd, nil)
	if err != nil {
		return DrawOutcome{}, err
	}
	return DrawOutcome{Kind: KindAnime, Draws: []Draw{d}}, nil
}

func DrawAllAnime(g *Game, rnd Rand) (DrawOutcome, error) {
	if err := requirePhase(g, PhaseAnimeDraw); err != nil {
		return DrawOutcome{}, err
	}
	if err := requireClub(g, false); err != nil {
		return DrawOutcome{}, err
	}
	out := DrawOutcome{Kind: KindAnime}
	pass := make(map[string]bool)
	for _, p := range drawScope(g) {
		if p.ChosenAnime != "" {
			continue
		}
		d, err := drawAnimeFor(g, p, rnd, pass)
		if err != nil {
			return DrawOutcome{}, err
		}
		pass[d.Result] = true
		out.Draws = append(out.Draws, d)
	}
	if len(out.Draws) == 0 {
		return DrawOutcome{}, fmt.Errorf("%w: every participant has an anime", ErrNothingToDraw)
	}
	return out, nil
}

func DrawClubAnime(g *Game, rnd Rand) (DrawOutcome, error) {
	if err := requirePhase(g, PhaseAnimeDraw); err != nil {
		return DrawOutcome{}, err
	}
	if g.GameMode != ModeClubSorteado {
		return DrawOutcome{}, fmt.Errorf("%w: not available in mode %s", ErrInvalidMode, g.GameMode)
	}
	if g.ClubChosenAnime != "" {
		return DrawOutcome{}, fmt.Errorf("%w: club anime already drawn", ErrGuardFailed)
	}
	pool := make([]string, 0, len(g.ClubIndications))
	for _, ind := range g.ClubIndications {
		pool = append(pool, ind.AnimeTitle)
	}
	if len(pool) == 0 {
		return DrawOutcome{}, fmt.Errorf("%w: no club indications", ErrNothingToDraw)
	}
	i := rnd.Intn(len(pool))
	chosen := g.ClubIndications[i]
	g.ClubChosenAnime = chosen.AnimeTitle
	g.ClubChosenAnimeData = nil
	if chosen.AnimeData != nil {
		d := chosen.AnimeData.clone()
		g.ClubChosenAnimeData = &d
	}
	return DrawOutcome{Kind: KindClubAnime, Draws: []Draw{{Result: chosen.AnimeTitle, Candidates: pool}}}, nil
}
