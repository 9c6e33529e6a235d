package game

import (
	"fmt"
	"unicode/utf16"
)

// ColorFromName derives a participant colour from its name. The hash works on UTF-16
// code units with 32-bit shift overflow so colours match the ones browsers have already
// stored for existing participants.
func ColorFromName(name string) string {
	var hash int64
	for _, u := range utf16.Encode([]rune(name)) {
		shifted := int64(int32(hash) << 5)
		hash = int64(u) + (shifted - hash)
	}
	// Go's % keeps the dividend's sign, like the browser does.
	return fmt.Sprintf("hsl(%d, 80%%, 70%%)", hash%360)
}
