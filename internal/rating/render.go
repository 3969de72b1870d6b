package rating

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/tt1717/battleserver/internal/userid"
)

// Top renders the ladder as one HTML table row per player, optionally
// filtered to identities starting with prefix. Rank numbers count the
// filtered view.
func (s *Store) Top(prefix string) string {
	rows := s.Ladder()

	var sb strings.Builder
	sb.WriteString(`<tr><th>Rank</th><th>Username</th><th><abbr title="Elo rating">Elo</abbr></th><th><abbr title="user's percentage chance of winning a random battle">GXE</abbr></th><th>Glicko-1</th><th>W</th><th>L</th><th>T</th></tr>`)
	sb.WriteString("\n")

	rank := 0
	for _, r := range rows {
		if prefix != "" && !strings.HasPrefix(r.ID, prefix) {
			continue
		}
		rank++
		gxe := r.GXE.String()
		if !r.GXE.Unknown {
			gxe = fmt.Sprintf("%.1f%%", r.GXE.Value)
		}
		fmt.Fprintf(&sb, `<tr><td>%d</td><td>%s</td><td><strong>%d</strong></td><td>%s</td><td>%.0f &#177; %.0f</td><td>%d</td><td>%d</td><td>%d</td></tr>`,
			rank, html.EscapeString(r.Name), int(math.Round(r.Elo)), gxe, r.Glicko, r.RD, r.W, r.L, r.T)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Visualize renders a single HTML row summarizing this format's numbers
// for one player, or an empty string if the player is not on the ladder.
func (s *Store) Visualize(userName string) string {
	id := userid.New(userName)

	s.mu.Lock()
	s.load()
	r, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return ""
	}

	gxe := r.GXE.String()
	if !r.GXE.Unknown {
		gxe = fmt.Sprintf("%.1f%%", r.GXE.Value)
	}
	return fmt.Sprintf(`<tr><td>%s</td><td><strong>%d</strong></td><td>%s</td><td>%.0f &#177; %.0f</td></tr>`,
		html.EscapeString(s.format), int(math.Round(r.Elo)), gxe, r.Glicko, r.RD)
}
