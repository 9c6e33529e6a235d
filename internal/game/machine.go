package game

import (
	"fmt"
	"time"
)

type Event string

const (
	EventStartGenreDraw   Event = "start_genre_draw"
	EventStartIndication  Event = "start_indication"
	EventResetGenres      Event = "reset_genres"
	EventStartPick        Event = "start_pick"
	EventStartTracking    Event = "start_tracking"
	EventBackToIndication Event = "back_to_indication"
	EventMarkWatched      Event = "mark_watched"
	EventUnmarkWatched    Event = "unmark_watched"
)

// Action is a host request to move the game along. ParticipantID is only read by the
// watch events.
type Action struct {
	Event         Event     `json:"event"`
	ParticipantID string    `json:"participantId,omitempty"`
	At            time.Time `json:"-"`
}

// Outcome describes a transition that Apply performed.
type Outcome struct {
	Event         Event         `json:"event"`
	From          Phase         `json:"from"`
	To            Phase         `json:"to"`
	ParticipantID string        `json:"participantId,omitempty"`
	History       *HistoryEntry `json:"history,omitempty"`
}

type transitionKey struct {
	from  Phase
	event Event
	mode  Mode
}

type transition struct {
	guard func(g *Game, a Action) error
	apply func(g *Game, a Action, out *Outcome) Phase
}

type row struct {
	from  Phase
	event Event
	modes []Mode
	transition
}

var (
	personalModes = []Mode{ModeInfinito, ModeSoberano, ModeTradicional}
	clubModes     = []Mode{ModeClubSorteado, ModeClubEscolhido}
)

var rows = []row{
	{PhaseRegistration, EventStartGenreDraw, Modes, transition{guardHasParticipants, to(PhaseGenreDraw)}},

	{PhaseGenreDraw, EventStartIndication, personalModes, transition{guardGenresAssigned, applyStartIndication}},
	{PhaseGenreDraw, EventStartIndication, clubModes, transition{guardClubGenre, applyStartIndication}},
	{PhaseGenreDraw, EventResetGenres, personalModes, transition{nil, applyResetGenres}},
	{PhaseGenreDraw, EventResetGenres, clubModes, transition{nil, applyResetClubGenre}},

	{PhaseIndication, EventStartPick, personalModes, transition{guardIndicationsExchanged, applyStartPick}},
	{PhaseIndication, EventStartPick, clubModes, transition{guardClubIndications, applyStartPick}},

	{PhaseAnimeDraw, EventStartTracking, []Mode{ModeInfinito, ModeTradicional}, transition{guardScopeChosen, applyLeaveDraw}},
	{PhaseAnimeDraw, EventStartTracking, []Mode{ModeClubSorteado}, transition{guardClubChosen, applyLeaveDraw}},
	{PhaseAnimeDraw, EventBackToIndication, []Mode{ModeInfinito, ModeTradicional, ModeClubSorteado}, transition{nil, applyBackToIndication}},

	{PhaseSelection, EventStartTracking, []Mode{ModeSoberano}, transition{guardAllChosen, to(PhaseTracking)}},
	{PhaseSelection, EventStartTracking, []Mode{ModeClubEscolhido}, transition{guardClubChosen, to(PhaseTracking)}},

	{PhaseTracking, EventMarkWatched, clubModes, transition{guardCanMarkWatched, applyMarkWatched}},
	{PhaseTracking, EventMarkWatched, []Mode{ModeInfinito, ModeSoberano}, transition{guardCanMarkWatched, applyRestartCycle}},
	{PhaseTracking, EventMarkWatched, []Mode{ModeTradicional}, transition{guardCanMarkWatched, applyNextIndication}},
	{PhaseTracking, EventUnmarkWatched, Modes, transition{guardWatched, applyUnmarkWatched}},
}

var transitions = buildTransitions(rows)

func buildTransitions(rows []row) map[transitionKey]transition {
	m := make(map[transitionKey]transition)
	for _, r := range rows {
		for _, mode := range r.modes {
			k := transitionKey{r.from, r.event, mode}
			if _, dup := m[k]; dup {
				panic(fmt.Sprintf("duplicate transition %s/%s/%s", r.from, r.event, mode))
			}
			m[k] = r.transition
		}
	}
	return m
}

// Can reports whether the event is defined for the game's phase and mode and its
// guard currently holds.
func Can(g *Game, a Action) error {
	t, ok := transitions[transitionKey{g.CurrentPhase, a.Event, g.GameMode}]
	if !ok {
		return fmt.Errorf("%w: %s from %s in mode %s", ErrInvalidTransition, a.Event, g.CurrentPhase, g.GameMode)
	}
	if t.guard != nil {
		return t.guard(g, a)
	}
	return nil
}

// Apply runs the event against g in place. Nothing is changed when it returns an error.
func Apply(g *Game, a Action) (Outcome, error) {
	if err := Can(g, a); err != nil {
		return Outcome{}, err
	}
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	t := transitions[transitionKey{g.CurrentPhase, a.Event, g.GameMode}]
	out := Outcome{Event: a.Event, From: g.CurrentPhase, ParticipantID: a.ParticipantID}
	g.CurrentPhase = t.apply(g, a, &out)
	out.To = g.CurrentPhase
	return out, nil
}

// Events lists the events accepted from the game's current phase and mode, guards not
// evaluated.
func Events(g *Game) []Event {
	var out []Event
	for _, r := range rows {
		if r.from != g.CurrentPhase {
			continue
		}
		for _, m := range r.modes {
			if m == g.GameMode {
				out = append(out, r.event)
				break
			}
		}
	}
	return out
}

func to(p Phase) func(*Game, Action, *Outcome) Phase {
	return func(*Game, Action, *Outcome) Phase { return p }
}

// drawScope is the set of participants a genre or anime draw covers: only the
// participant in focus while one is set, everybody otherwise.
func drawScope(g *Game) []*Participant {
	if g.PlayerInFocus != "" && !g.GameMode.IsClub() {
		if p := g.Participant(g.PlayerInFocus); p != nil {
			return []*Participant{p}
		}
	}
	out := make([]*Participant, len(g.Participants))
	for i := range g.Participants {
		out[i] = &g.Participants[i]
	}
	return out
}

func guardHasParticipants(g *Game, _ Action) error {
	if len(g.Participants) == 0 {
		return fmt.Errorf("%w: at least one participant required", ErrGuardFailed)
	}
	return nil
}

func guardGenresAssigned(g *Game, _ Action) error {
	for _, p := range drawScope(g) {
		if p.AssignedGenre == "" {
			return fmt.Errorf("%w: %s has no genre", ErrGuardFailed, p.Name)
		}
	}
	return nil
}

func guardClubGenre(g *Game, _ Action) error {
	if g.ClubGenre == "" {
		return fmt.Errorf("%w: club genre not drawn", ErrGuardFailed)
	}
	return nil
}

func guardIndicationsExchanged(g *Game, _ Action) error {
	for i := range g.Participants {
		receiver := &g.Participants[i]
		for _, indicator := range g.Participants {
			if indicator.ID == receiver.ID {
				continue
			}
			if !hasIndicationFrom(receiver.Indications, indicator.ID) {
				return fmt.Errorf("%w: %s has not indicated for %s", ErrGuardFailed, indicator.Name, receiver.Name)
			}
		}
	}
	return nil
}

func guardClubIndications(g *Game, _ Action) error {
	if len(g.Participants) == 0 {
		return fmt.Errorf("%w: no participants", ErrGuardFailed)
	}
	for _, p := range g.Participants {
		if !hasIndicationFrom(g.ClubIndications, p.ID) {
			return fmt.Errorf("%w: %s has not indicated for the club", ErrGuardFailed, p.Name)
		}
	}
	return nil
}

func guardScopeChosen(g *Game, _ Action) error {
	for _, p := range drawScope(g) {
		if p.ChosenAnime == "" {
			return fmt.Errorf("%w: %s has no anime", ErrGuardFailed, p.Name)
		}
	}
	return nil
}

func guardAllChosen(g *Game, _ Action) error {
	if len(g.Participants) == 0 {
		return fmt.Errorf("%w: no participants", ErrGuardFailed)
	}
	for _, p := range g.Participants {
		if p.ChosenAnime == "" {
			return fmt.Errorf("%w: %s has no anime", ErrGuardFailed, p.Name)
		}
	}
	return nil
}

func guardClubChosen(g *Game, _ Action) error {
	if g.ClubChosenAnime == "" {
		return fmt.Errorf("%w: club anime not chosen", ErrGuardFailed)
	}
	return nil
}

func guardCanMarkWatched(g *Game, a Action) error {
	p := g.Participant(a.ParticipantID)
	if p == nil {
		return ErrParticipantNotFound
	}
	if p.Watched {
		return fmt.Errorf("%w: %s already watched", ErrGuardFailed, p.Name)
	}
	if g.GameMode.IsClub() {
		if g.ClubChosenAnime == "" {
			return fmt.Errorf("%w: club anime not chosen", ErrGuardFailed)
		}
		return nil
	}
	if p.ChosenAnime == "" {
		return fmt.Errorf("%w: %s has no anime", ErrGuardFailed, p.Name)
	}
	return nil
}

func guardWatched(g *Game, a Action) error {
	p := g.Participant(a.ParticipantID)
	if p == nil {
		return ErrParticipantNotFound
	}
	if !p.Watched {
		return fmt.Errorf("%w: %s has not watched", ErrGuardFailed, p.Name)
	}
	return nil
}

func applyStartIndication(g *Game, _ Action, _ *Outcome) Phase {
	g.PlayerInFocus = ""
	g.CurrentIndicatorID = ""
	if len(g.Participants) > 0 {
		g.CurrentIndicatorID = g.Participants[0].ID
	}
	return PhaseIndication
}

func applyResetGenres(g *Game, _ Action, _ *Outcome) Phase {
	for i := range g.Participants {
		g.Participants[i].AssignedGenre = ""
	}
	g.PlayerInFocus = ""
	return PhaseGenreDraw
}

func applyResetClubGenre(g *Game, _ Action, _ *Outcome) Phase {
	g.ClubGenre = ""
	g.ClubIndications = nil
	g.ClubChosenAnime = ""
	g.ClubChosenAnimeData = nil
	g.PlayerInFocus = ""
	return PhaseGenreDraw
}

func applyStartPick(g *Game, _ Action, _ *Outcome) Phase {
	return g.GameMode.PickPhase()
}

func applyLeaveDraw(g *Game, _ Action, _ *Outcome) Phase {
	g.PlayerInFocus = ""
	return PhaseTracking
}

func applyBackToIndication(g *Game, _ Action, _ *Outcome) Phase {
	for i := range g.Participants {
		p := &g.Participants[i]
		p.ChosenAnime = ""
		p.Watched = false
		p.DrawnIndicationTitles = nil
	}
	if g.GameMode.IsClub() {
		g.ClubChosenAnime = ""
		g.ClubChosenAnimeData = nil
	}
	return PhaseIndication
}

func applyMarkWatched(g *Game, a Action, _ *Outcome) Phase {
	g.Participant(a.ParticipantID).Watched = true
	return PhaseTracking
}

func applyUnmarkWatched(g *Game, a Action, _ *Outcome) Phase {
	g.Participant(a.ParticipantID).Watched = false
	return PhaseTracking
}

// applyRestartCycle records the watch and sends the participant back to a fresh genre
// draw. Drawn titles carry over so a repeated indication is not drawn again.
func applyRestartCycle(g *Game, a Action, out *Outcome) Phase {
	p := g.Participant(a.ParticipantID)
	out.History = recordWatch(p, a.At)
	p.ChosenAnime = ""
	p.AssignedGenre = ""
	p.Indications = []Indication{}
	p.Watched = false
	g.PlayerInFocus = p.ID
	return PhaseGenreDraw
}

// applyNextIndication draws the next indication of the same list while any remain.
// Once every indication has been drawn the cycle restarts from scratch.
func applyNextIndication(g *Game, a Action, out *Outcome) Phase {
	p := g.Participant(a.ParticipantID)
	if len(p.DrawnIndicationTitles) >= len(p.Indications) {
		next := applyRestartCycle(g, a, out)
		p.DrawnIndicationTitles = nil
		return next
	}
	out.History = recordWatch(p, a.At)
	p.ChosenAnime = ""
	p.Watched = false
	g.PlayerInFocus = p.ID
	return PhaseAnimeDraw
}

func recordWatch(p *Participant, at time.Time) *HistoryEntry {
	ind, ok := findIndication(p.Indications, p.ChosenAnime)
	if !ok {
		ind = Indication{AnimeTitle: p.ChosenAnime}
	}
	entry := HistoryEntry{Indication: ind.clone(), WatchedAt: at.UTC()}
	p.WatchedHistory = append(p.WatchedHistory, entry)
	return &entry
}

func hasIndicationFrom(list []Indication, indicatorID string) bool {
	for _, ind := range list {
		if ind.IndicatorID == indicatorID {
			return true
		}
	}
	return false
}
