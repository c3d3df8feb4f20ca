package deck

import (
	"fmt"
	"strings"
)

// ExportText renders d as one line per slot, e.g. "1x Fire Crystal (#001)".
// names maps card ids to display names; unknown ids are printed by number only.
func ExportText(title string, d Deck, names map[int]string) string {
	lines := []string{}
	if title != "" {
		lines = append(lines, "# "+title)
	}
	for _, id := range d {
		name := names[id]
		if name == "" {
			lines = append(lines, fmt.Sprintf("1x #%03d", id))
			continue
		}
		lines = append(lines, fmt.Sprintf("1x %s (#%03d)", name, id))
	}
	return strings.Join(lines, "\n")
}
