package game

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ParseBackup reads a backup file, either {"games": {id: game}} or a bare {id: game}
// mapping, normalizes every entry and decodes it. Any malformed entry fails the whole
// file so a restore never writes half of it.
func ParseBackup(data []byte) ([]*Game, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	obj, ok := root.(Raw)
	if !ok {
		return nil, fmt.Errorf("%w: top level is not an object", ErrInvalidBackup)
	}
	entries := obj
	if nested, ok := obj["games"].(Raw); ok {
		entries = nested
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	games := make([]*Game, 0, len(ids))
	for _, id := range ids {
		raw, ok := entries[id].(Raw)
		if !ok {
			return nil, fmt.Errorf("%w: game %s is not an object", ErrInvalidBackup, id)
		}
		g, err := decodeGame(id, NormalizeGame(raw))
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, nil
}

func decodeGame(id string, raw Raw) (*Game, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: game %s: %v", ErrInvalidBackup, id, err)
	}
	var g Game
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, fmt.Errorf("%w: game %s: %v", ErrInvalidBackup, id, err)
	}
	g.ID = id
	if !g.CurrentPhase.Valid() {
		return nil, fmt.Errorf("%w: game %s has unknown phase %q", ErrInvalidBackup, id, g.CurrentPhase)
	}
	if !g.GameMode.Valid() {
		return nil, fmt.Errorf("%w: game %s has unknown mode %q", ErrInvalidBackup, id, g.GameMode)
	}
	if g.Participants == nil {
		g.Participants = []Participant{}
	}
	for i := range g.Participants {
		if g.Participants[i].Indications == nil {
			g.Participants[i].Indications = []Indication{}
		}
	}
	return &g, nil
}

// ExportBackup renders games as the bare {id: game} mapping, indented.
func ExportBackup(games []*Game) ([]byte, error) {
	m := make(map[string]*Game, len(games))
	for _, g := range games {
		m[g.ID] = g
	}
	return json.MarshalIndent(m, "", "  ")
}

func BackupAllFilename(now time.Time) string {
	return "anime-bingo-backup-TODOS-" + now.UTC().Format("2006-01-02") + ".json"
}

// BackupFilename lowercases the game name and replaces every UTF-16 unit outside
// [a-z0-9] with an underscore, which is what older clients produced.
func BackupFilename(gameName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(gameName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r > 0xFFFF:
			b.WriteString("__")
		default:
			b.WriteByte('_')
		}
	}
	return "anime-bingo-backup-" + b.String() + ".json"
}
