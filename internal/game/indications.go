package game

import (
	"fmt"
	"strings"
)

// SetIndicator picks whose turn it is to indicate.
func SetIndicator(g *Game, participantID string) error {
	if err := requirePhase(g, PhaseIndication); err != nil {
		return err
	}
	if g.Participant(participantID) == nil {
		return ErrParticipantNotFound
	}
	g.CurrentIndicatorID = participantID
	return nil
}

func newIndication(indicator *Participant, anime AnimeData) (Indication, error) {
	title := strings.TrimSpace(anime.Title.Romaji)
	if title == "" {
		return Indication{}, fmt.Errorf("%w: anime title", ErrInvalidName)
	}
	anime.Title.Romaji = title
	d := anime.clone()
	return Indication{
		IndicatorID:   indicator.ID,
		IndicatorName: indicator.Name,
		AnimeTitle:    title,
		AnimeData:     &d,
	}, nil
}

// AddIndication records the indicator's anime for the receiver. Each indicator gives a
// receiver at most one indication and a title appears at most once per receiver.
func AddIndication(g *Game, indicatorID, receiverID string, anime AnimeData) (Indication, error) {
	if err := requirePhase(g, PhaseIndication); err != nil {
		return Indication{}, err
	}
	if err := requireClub(g, false); err != nil {
		return Indication{}, err
	}
	indicator := g.Participant(indicatorID)
	receiver := g.Participant(receiverID)
	if indicator == nil || receiver == nil {
		return Indication{}, ErrParticipantNotFound
	}
	if indicator.ID == receiver.ID {
		return Indication{}, ErrSelfIndication
	}
	if hasIndicationFrom(receiver.Indications, indicator.ID) {
		return Indication{}, fmt.Errorf("%w: %s already indicated for %s", ErrAlreadyIndicated, indicator.Name, receiver.Name)
	}
	ind, err := newIndication(indicator, anime)
	if err != nil {
		return Indication{}, err
	}
	if _, dup := findIndication(receiver.Indications, ind.AnimeTitle); dup {
		return Indication{}, fmt.Errorf("%w: %s was already indicated to %s", ErrAlreadyIndicated, ind.AnimeTitle, receiver.Name)
	}
	receiver.Indications = append(receiver.Indications, ind)
	return ind, nil
}

func AddClubIndication(g *Game, indicatorID string, anime AnimeData) (Indication, error) {
	if err := requirePhase(g, PhaseIndication); err != nil {
		return Indication{}, err
	}
	if err := requireClub(g, true); err != nil {
		return Indication{}, err
	}
	indicator := g.Participant(indicatorID)
	if indicator == nil {
		return Indication{}, ErrParticipantNotFound
	}
	if hasIndicationFrom(g.ClubIndications, indicator.ID) {
		return Indication{}, fmt.Errorf("%w: %s already indicated for the club", ErrAlreadyIndicated, indicator.Name)
	}
	ind, err := newIndication(indicator, anime)
	if err != nil {
		return Indication{}, err
	}
	if _, dup := findIndication(g.ClubIndications, ind.AnimeTitle); dup {
		return Indication{}, fmt.Errorf("%w: %s was already indicated", ErrAlreadyIndicated, ind.AnimeTitle)
	}
	g.ClubIndications = append(g.ClubIndications, ind)
	return ind, nil
}

// Select is the manual pick of soberano: the participant takes one of its own
// indications.
func Select(g *Game, participantID, title string) error {
	if err := requirePhase(g, PhaseSelection); err != nil {
		return err
	}
	if g.GameMode != ModeSoberano {
		return fmt.Errorf("%w: not available in mode %s", ErrInvalidMode, g.GameMode)
	}
	p := g.Participant(participantID)
	if p == nil {
		return ErrParticipantNotFound
	}
	if _, ok := findIndication(p.Indications, title); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAnime, title)
	}
	p.ChosenAnime = title
	return nil
}

func SelectClub(g *Game, title string) error {
	if err := requirePhase(g, PhaseSelection); err != nil {
		return err
	}
	if g.GameMode != ModeClubEscolhido {
		return fmt.Errorf("%w: not available in mode %s", ErrInvalidMode, g.GameMode)
	}
	ind, ok := findIndication(g.ClubIndications, title)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAnime, title)
	}
	g.ClubChosenAnime = ind.AnimeTitle
	g.ClubChosenAnimeData = nil
	if ind.AnimeData != nil {
		d := ind.AnimeData.clone()
		g.ClubChosenAnimeData = &d
	}
	return nil
}
