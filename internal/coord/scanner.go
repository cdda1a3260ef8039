package coord

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/mx/internal/logging"
	"github.com/abelbrown/mx/internal/media"
	"github.com/abelbrown/mx/internal/otel"
	"github.com/abelbrown/mx/internal/ui"
)

// Scanner expands dropped paths off the update loop.
type Scanner struct {
	ctx      context.Context
	resolver *media.Resolver
	events   *otel.Logger
}

// NewScanner creates a Scanner whose walks stop when ctx is cancelled.
func NewScanner(ctx context.Context, r *media.Resolver, events *otel.Logger) *Scanner {
	return &Scanner{ctx: ctx, resolver: r, events: events}
}

// Scan returns a command that resolves root into ui.PathsResolved.
func (s *Scanner) Scan(root string) tea.Cmd {
	return func() tea.Msg {
		return s.resolve(root)
	}
}

func (s *Scanner) resolve(root string) ui.PathsResolved {
	start := time.Now()
	s.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindScanStart, Comp: "coord", Path: root})

	res, err := s.resolver.Scan(s.ctx, root)
	if err != nil {
		logging.Warn("scan failed", "root", root, "err", err)
		s.events.Emit(otel.Event{
			Level: otel.LevelError, Kind: otel.KindScanComplete, Comp: "coord",
			Path: root, Dur: time.Since(start), Err: err.Error(),
		})
		return ui.PathsResolved{Root: root, Skipped: res.Skipped, Err: err}
	}

	if res.Skipped > 0 {
		s.events.Emit(otel.Event{
			Level: otel.LevelWarn, Kind: otel.KindScanSkip, Comp: "coord",
			Path: root, Count: res.Skipped,
		})
	}
	s.events.Emit(otel.Event{
		Level: otel.LevelInfo, Kind: otel.KindScanComplete, Comp: "coord",
		Path: root, Dur: time.Since(start), Count: len(res.Paths),
	})
	return ui.PathsResolved{Root: root, Paths: res.Paths, Skipped: res.Skipped}
}
