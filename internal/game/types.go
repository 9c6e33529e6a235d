package game

import (
	"time"
)

type Phase string

const (
	PhaseRegistration Phase = "REGISTRATION"
	PhaseGenreDraw    Phase = "GENRE_DRAW"
	PhaseIndication   Phase = "INDICATION"
	PhaseAnimeDraw    Phase = "ANIME_DRAW"
	PhaseSelection    Phase = "SELECTION"
	PhaseTracking     Phase = "TRACKING"

	// phaseWatchLoop is the name TRACKING had in older backups.
	phaseWatchLoop Phase = "WATCH_LOOP"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseRegistration, PhaseGenreDraw, PhaseIndication, PhaseAnimeDraw, PhaseSelection, PhaseTracking:
		return true
	}
	return false
}

type Mode string

const (
	ModeInfinito      Mode = "infinito"
	ModeSoberano      Mode = "soberano"
	ModeTradicional   Mode = "tradicional"
	ModeClubSorteado  Mode = "clube_sorteado"
	ModeClubEscolhido Mode = "clube_escolhido"
)

var Modes = []Mode{ModeInfinito, ModeSoberano, ModeTradicional, ModeClubSorteado, ModeClubEscolhido}

func (m Mode) Valid() bool {
	for _, v := range Modes {
		if v == m {
			return true
		}
	}
	return false
}

// IsClub reports whether genre, indications and the chosen anime live on the game
// instead of on each participant.
func (m Mode) IsClub() bool {
	return m == ModeClubSorteado || m == ModeClubEscolhido
}

// Repeats reports whether watching an anime starts a new cycle for that participant.
func (m Mode) Repeats() bool {
	return m == ModeInfinito || m == ModeSoberano || m == ModeTradicional
}

// PickPhase is the phase that follows INDICATION.
func (m Mode) PickPhase() Phase {
	if m == ModeSoberano || m == ModeClubEscolhido {
		return PhaseSelection
	}
	return PhaseAnimeDraw
}

type Game struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	GameMode     Mode          `json:"gameMode"`
	CurrentPhase Phase         `json:"currentPhase"`
	CreatedBy    string        `json:"createdBy"`
	CreatedAt    time.Time     `json:"createdAt"`
	Participants []Participant `json:"participants"`

	ClubGenre           string       `json:"clubGenre,omitempty"`
	ClubIndications     []Indication `json:"clubIndications,omitempty"`
	ClubChosenAnime     string       `json:"clubChosenAnime,omitempty"`
	ClubChosenAnimeData *AnimeData   `json:"clubChosenAnimeData,omitempty"`

	PlayerInFocus      string `json:"playerInFocus,omitempty"`
	CurrentIndicatorID string `json:"currentIndicatorId,omitempty"`

	Version int64 `json:"version"`
}

type Participant struct {
	ID                    string         `json:"id"`
	Name                  string         `json:"name"`
	Color                 string         `json:"color"`
	AnilistUser           string         `json:"anilistUser,omitempty"`
	AddedBy               string         `json:"addedBy,omitempty"`
	AssignedGenre         string         `json:"assignedGenre,omitempty"`
	Indications           []Indication   `json:"indications"`
	ChosenAnime           string         `json:"chosenAnime,omitempty"`
	DrawnIndicationTitles []string       `json:"drawnIndicationTitles,omitempty"`
	Watched               bool           `json:"watched"`
	WatchedHistory        []HistoryEntry `json:"watchedHistory,omitempty"`
}

type Indication struct {
	IndicatorID   string     `json:"indicatorId"`
	IndicatorName string     `json:"indicatorName"`
	AnimeTitle    string     `json:"animeTitle"`
	AnimeData     *AnimeData `json:"animeData,omitempty"`
}

// AnimeData is a snapshot of AniList media metadata taken when the anime was indicated.
type AnimeData struct {
	ID           int          `json:"id"`
	Title        AnimeTitle   `json:"title"`
	CoverImage   CoverImage   `json:"coverImage"`
	Studios      *StudioNodes `json:"studios,omitempty"`
	SeasonYear   int          `json:"seasonYear,omitempty"`
	Format       string       `json:"format,omitempty"`
	Episodes     int          `json:"episodes,omitempty"`
	Genres       []string     `json:"genres,omitempty"`
	AverageScore *int         `json:"averageScore"`
}

type AnimeTitle struct {
	Romaji string `json:"romaji"`
}

type CoverImage struct {
	ExtraLarge string `json:"extraLarge"`
}

type StudioNodes struct {
	Nodes []Studio `json:"nodes"`
}

type Studio struct {
	Name string `json:"name"`
}

// HistoryEntry records one finished watch. Entries are never edited once appended.
type HistoryEntry struct {
	Indication
	WatchedAt time.Time `json:"watchedAt"`
}

// UserState is the per-user "current selection" record.
type UserState struct {
	UserID       string `json:"userId"`
	ActiveGameID string `json:"activeGameId,omitempty"`
}

func (g *Game) Participant(id string) *Participant {
	for i := range g.Participants {
		if g.Participants[i].ID == id {
			return &g.Participants[i]
		}
	}
	return nil
}

func (g *Game) IsHost(userID string) bool {
	return userID != "" && g.CreatedBy == userID
}

// Clone returns a deep copy so callers can mutate without touching shared snapshots.
func (g *Game) Clone() *Game {
	c := *g
	c.Participants = make([]Participant, len(g.Participants))
	for i, p := range g.Participants {
		c.Participants[i] = p.clone()
	}
	c.ClubIndications = cloneIndications(g.ClubIndications)
	if g.ClubChosenAnimeData != nil {
		d := g.ClubChosenAnimeData.clone()
		c.ClubChosenAnimeData = &d
	}
	return &c
}

func (p Participant) clone() Participant {
	c := p
	c.Indications = cloneIndications(p.Indications)
	if c.Indications == nil {
		c.Indications = []Indication{}
	}
	c.DrawnIndicationTitles = append([]string(nil), p.DrawnIndicationTitles...)
	if p.WatchedHistory != nil {
		c.WatchedHistory = make([]HistoryEntry, len(p.WatchedHistory))
		for i, h := range p.WatchedHistory {
			c.WatchedHistory[i] = HistoryEntry{Indication: h.Indication.clone(), WatchedAt: h.WatchedAt}
		}
	}
	return c
}

func (i Indication) clone() Indication {
	c := i
	if i.AnimeData != nil {
		d := i.AnimeData.clone()
		c.AnimeData = &d
	}
	return c
}

func (d AnimeData) clone() AnimeData {
	c := d
	c.Genres = append([]string(nil), d.Genres...)
	if d.Studios != nil {
		s := StudioNodes{Nodes: append([]Studio(nil), d.Studios.Nodes...)}
		c.Studios = &s
	}
	if d.AverageScore != nil {
		v := *d.AverageScore
		c.AverageScore = &v
	}
	return c
}

func cloneIndications(in []Indication) []Indication {
	if in == nil {
		return nil
	}
	out := make([]Indication, len(in))
	for i, ind := range in {
		out[i] = ind.clone()
	}
	return out
}

func findIndication(list []Indication, title string) (Indication, bool) {
	for _, ind := range list {
		if ind.AnimeTitle == title {
			return ind, true
		}
	}
	return Indication{}, false
}
