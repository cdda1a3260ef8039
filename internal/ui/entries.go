package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/mx/internal/library"
)

// row is per-entry presentation state, addressed through EntryMsg.
type row struct {
	expanded bool
}

func (r *row) update(msg any) {
	switch msg.(type) {
	case ToggleDetail:
		r.expanded = !r.expanded
	}
}

// summarizer is implemented by outcomes that can describe themselves.
type summarizer interface {
	Summary() string
}

// RenderEntries renders the entry list, keeping cursor visible within height lines.
func RenderEntries(entries []library.Entry, rows map[library.ID]*row, cursor, width, height int) string {
	if height < 1 {
		height = 1
	}

	offset := calcScrollOffset(entries, rows, cursor, height)

	var b strings.Builder
	used := 0
	for i := offset; i < len(entries) && used < height; i++ {
		e := entries[i]
		b.WriteString(renderEntryLine(e, i == cursor, width))
		b.WriteString("\n")
		used++

		if r := rows[e.ID]; r != nil && r.expanded && used < height {
			b.WriteString(DetailStyle.Render(detailText(e.Status)))
			b.WriteString("\n")
			used++
		}
	}
	return b.String()
}

// calcScrollOffset finds the smallest index such that entries[offset..cursor],
// including expanded detail lines, fit within height.
func calcScrollOffset(entries []library.Entry, rows map[library.ID]*row, cursor, height int) int {
	if len(entries) == 0 || cursor < 0 {
		return 0
	}
	if cursor >= len(entries) {
		cursor = len(entries) - 1
	}

	lines := 0
	for i := cursor; i >= 0; i-- {
		n := 1
		if r := rows[entries[i].ID]; r != nil && r.expanded {
			n = 2
		}
		if lines+n > height {
			return i + 1
		}
		lines += n
	}
	return 0
}

func renderEntryLine(e library.Entry, selected bool, width int) string {
	badge := phaseBadge(e.Status.Phase)
	badgeWidth := lipgloss.Width(badge)

	nameWidth := width - badgeWidth - 6
	if nameWidth < 20 {
		nameWidth = 20
	}
	name := truncateLeft(displayPath(e.Path), nameWidth)

	style := NormalItem
	if selected {
		style = SelectedItem
	}
	return fmt.Sprintf("%s %s", badge, style.Render(name))
}

// displayPath shortens a path to its parent directory and base name.
func displayPath(p string) string {
	dir := filepath.Base(filepath.Dir(p))
	if dir == "/" || dir == "." {
		return filepath.Base(p)
	}
	return filepath.Join(dir, filepath.Base(p))
}

func phaseBadge(p library.Phase) string {
	switch p {
	case library.Analyzing:
		return AnalyzingBadge.Render("[ .. ]")
	case library.Analyzed:
		return AnalyzedBadge.Render("[ ok ]")
	case library.Failed:
		return FailedBadge.Render("[fail]")
	default:
		return PendingBadge.Render("[wait]")
	}
}

func detailText(st library.Status) string {
	switch st.Phase {
	case library.Analyzed:
		if s, ok := st.Outcome.(summarizer); ok {
			return s.Summary()
		}
		if st.Outcome == nil {
			return "analyzed"
		}
		return fmt.Sprint(st.Outcome)
	case library.Failed:
		if st.Err != nil {
			return "error: " + st.Err.Error()
		}
		return "failed"
	case library.Analyzing:
		return "analyzing..."
	default:
		return "waiting to be analyzed"
	}
}

// RenderStatusBar renders phase counts and key hints.
func RenderStatusBar(counts map[library.Phase]int, total, scanning int, width int, note string) string {
	left := fmt.Sprintf("%d files", total)
	if total > 0 {
		left += fmt.Sprintf("  %d ok  %d failed  %d active",
			counts[library.Analyzed], counts[library.Failed], counts[library.Analyzing]+counts[library.Pending])
	}
	if scanning > 0 {
		left += fmt.Sprintf("  scanning %d", scanning)
	}
	if note != "" {
		left += "  " + note
	}

	keys := StatusBarKey.Render("j/k") + StatusBarText.Render(":move ") +
		StatusBarKey.Render("enter") + StatusBarText.Render(":details ") +
		StatusBarKey.Render("D") + StatusBarText.Render(":debug ") +
		StatusBarKey.Render("q") + StatusBarText.Render(":quit")

	gap := width - lipgloss.Width(left) - lipgloss.Width(keys) - 2
	if gap < 1 {
		gap = 1
	}
	return StatusBar.Width(width).Render(left + strings.Repeat(" ", gap) + keys)
}
