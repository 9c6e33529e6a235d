package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// WatchLog appends every finished watch to a plain text file.
type WatchLog struct {
	path string
	mu   sync.Mutex
	seen map[string]bool // game ids that already got a header in this process
}

func NewWatchLog(path string) *WatchLog {
	return &WatchLog{path: path, seen: make(map[string]bool)}
}

func (w *WatchLog) Path() string { return w.path }

// Append writes one entry for the participant's watch, preceded by a game header the
// first time the game shows up.
func (w *WatchLog) Append(g *Game, p *Participant, h HistoryEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	fileExists := false
	if _, err := os.Stat(w.path); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	if !w.seen[g.ID] {
		if fileExists {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("Anime Bingo - %s (%s, %s)\n", g.Name, g.GameMode, g.ID))
		sb.WriteString(strings.Repeat("=", 50) + "\n")
		w.seen[g.ID] = true
	}

	line := fmt.Sprintf("%s  %s watched %q", h.WatchedAt.Format("2006-01-02 15:04:05"), p.Name, h.AnimeTitle)
	if h.IndicatorName != "" {
		line += " (indicated by " + h.IndicatorName + ")"
	}
	if p.AssignedGenre != "" {
		line += " [" + p.AssignedGenre + "]"
	}
	sb.WriteString(line + "\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
