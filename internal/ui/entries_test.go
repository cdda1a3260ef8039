package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/abelbrown/mx/internal/library"
)

type fakeReport struct{}

func (fakeReport) Summary() string { return "1920x1080 h264, 1m30s" }

func entriesN(n int) ([]library.Entry, map[library.ID]*row) {
	entries := make([]library.Entry, n)
	rows := make(map[library.ID]*row, n)
	for i := range entries {
		id := library.ID(i + 1)
		entries[i] = library.Entry{ID: id, Path: "/videos/clip.mp4"}
		rows[id] = &row{}
	}
	return entries, rows
}

func TestCalcScrollOffset(t *testing.T) {
	entries, rows := entriesN(10)

	tests := []struct {
		name   string
		cursor int
		height int
		want   int
	}{
		{"cursor visible", 3, 5, 0},
		{"cursor at edge", 4, 5, 0},
		{"cursor past edge", 7, 5, 3},
		{"cursor beyond list", 20, 5, 5},
		{"negative cursor", -1, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calcScrollOffset(entries, rows, tt.cursor, tt.height); got != tt.want {
				t.Errorf("calcScrollOffset(cursor=%d, height=%d) = %d, want %d", tt.cursor, tt.height, got, tt.want)
			}
		})
	}
}

func TestCalcScrollOffsetCountsDetailLines(t *testing.T) {
	entries, rows := entriesN(5)
	rows[4].expanded = true
	rows[5].expanded = true

	// entries 4 and 5 take two lines each
	if got := calcScrollOffset(entries, rows, 4, 5); got != 2 {
		t.Errorf("expected offset 2, got %d", got)
	}
}

func TestRenderEntriesRespectsHeight(t *testing.T) {
	entries, rows := entriesN(10)
	out := RenderEntries(entries, rows, 0, 80, 4)
	if n := strings.Count(out, "\n"); n != 4 {
		t.Errorf("expected 4 lines, got %d", n)
	}
}

func TestDetailText(t *testing.T) {
	tests := []struct {
		name string
		st   library.Status
		want string
	}{
		{"summarizer", library.Status{Phase: library.Analyzed, Outcome: fakeReport{}}, "1920x1080 h264, 1m30s"},
		{"plain outcome", library.Status{Phase: library.Analyzed, Outcome: 42}, "42"},
		{"no outcome", library.Status{Phase: library.Analyzed}, "analyzed"},
		{"failed", library.Status{Phase: library.Failed, Err: errors.New("boom")}, "error: boom"},
		{"analyzing", library.Status{Phase: library.Analyzing}, "analyzing..."},
		{"pending", library.Status{Phase: library.Pending}, "waiting to be analyzed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detailText(tt.st); got != tt.want {
				t.Errorf("detailText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderEntriesShowsExpandedDetail(t *testing.T) {
	entries := []library.Entry{{ID: 1, Path: "/videos/a.mp4", Status: library.Status{Phase: library.Analyzed, Outcome: fakeReport{}}}}
	rows := map[library.ID]*row{1: {expanded: true}}

	out := RenderEntries(entries, rows, 0, 80, 10)
	if !strings.Contains(out, "1920x1080") {
		t.Errorf("expanded row should show its summary:\n%s", out)
	}
	rows[1].expanded = false
	if strings.Contains(RenderEntries(entries, rows, 0, 80, 10), "1920x1080") {
		t.Error("collapsed row should hide its summary")
	}
}

func TestDisplayPath(t *testing.T) {
	tests := map[string]string{
		"/videos/sub/clip.mp4": "sub/clip.mp4",
		"/clip.mp4":            "clip.mp4",
	}
	for in, want := range tests {
		if got := displayPath(in); got != want {
			t.Errorf("displayPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderStatusBar(t *testing.T) {
	counts := map[library.Phase]int{library.Analyzed: 2, library.Failed: 1, library.Analyzing: 1}
	out := RenderStatusBar(counts, 4, 1, 120, "+4 from videos")
	for _, want := range []string{"4 files", "2 ok", "1 failed", "1 active", "scanning 1", "+4 from videos"} {
		if !strings.Contains(out, want) {
			t.Errorf("status bar missing %q:\n%s", want, out)
		}
	}
}
