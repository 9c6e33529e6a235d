package game

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AddParticipant appends a participant with a colour derived from its name.
func AddParticipant(g *Game, name, anilistUser, addedBy string) (*Participant, error) {
	if err := requirePhase(g, PhaseRegistration); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	g.Participants = append(g.Participants, Participant{
		ID:          uuid.NewString(),
		Name:        name,
		Color:       ColorFromName(name),
		AnilistUser: strings.TrimSpace(anilistUser),
		AddedBy:     addedBy,
		Indications: []Indication{},
	})
	return &g.Participants[len(g.Participants)-1], nil
}

// UpdateParticipant renames a participant and sets its AniList user. The colour is kept
// so a typo fix does not repaint the card.
func UpdateParticipant(g *Game, id, name, anilistUser string) error {
	if err := requirePhase(g, PhaseRegistration); err != nil {
		return err
	}
	p := g.Participant(id)
	if p == nil {
		return ErrParticipantNotFound
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	p.Name = name
	p.AnilistUser = strings.TrimSpace(anilistUser)
	return nil
}

func RemoveParticipant(g *Game, id string) error {
	if err := requirePhase(g, PhaseRegistration); err != nil {
		return err
	}
	for i := range g.Participants {
		if g.Participants[i].ID == id {
			g.Participants = append(g.Participants[:i], g.Participants[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrParticipantNotFound, id)
}
