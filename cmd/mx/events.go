package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/mx/internal/otel"
)

type eventFilter struct {
	kind  string
	level string
	comp  string
	path  string
}

func levelRank(level otel.Level) int {
	switch level {
	case otel.LevelInfo:
		return 1
	case otel.LevelWarn:
		return 2
	case otel.LevelError:
		return 3
	default:
		return 0
	}
}

func (f eventFilter) match(ev otel.Event) bool {
	if f.kind != "" && !strings.HasPrefix(string(ev.Kind), f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(otel.Level(f.level)) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.path != "" && !strings.Contains(ev.Path, f.path) {
		return false
	}
	return true
}

type eventLine struct {
	ev  otel.Event
	raw []byte
}

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var (
		filter  eventFilter
		tail    int
		follow  bool
		rawJSON bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the pipeline event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if tail < 0 {
				return errors.New("--tail must not be negative")
			}
			switch otel.Level(filter.level) {
			case "", otel.LevelDebug, otel.LevelInfo, otel.LevelWarn, otel.LevelError:
			default:
				return fmt.Errorf("unknown level %q", filter.level)
			}

			f, err := os.Open(cfg.EventsPath())
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("no event log at %s; run mx first", cfg.EventsPath())
			}
			if err != nil {
				return err
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			emit := func(l eventLine) {
				if rawJSON {
					fmt.Fprintln(out, string(l.raw))
					return
				}
				fmt.Fprintln(out, formatEvent(l.ev))
			}

			reader := bufio.NewReaderSize(f, 64*1024)
			for _, l := range readTailEvents(reader, tail, filter.match) {
				emit(l)
			}
			if !follow {
				return nil
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return followEvents(sigCtx, reader, filter.match, emit)
		},
	}

	cmd.Flags().IntVarP(&tail, "tail", "n", 50, "Number of recent events to show (0 for all)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new events")
	cmd.Flags().StringVar(&filter.kind, "kind", "", "Filter by kind prefix (e.g. probe)")
	cmd.Flags().StringVar(&filter.level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&filter.comp, "comp", "", "Filter by component")
	cmd.Flags().StringVar(&filter.path, "path", "", "Filter by path substring")
	cmd.Flags().BoolVar(&rawJSON, "json", false, "Print raw JSON lines")
	return cmd
}

// readTailEvents returns the last n matching events; n == 0 keeps all.
// Lines that are not valid events are skipped.
func readTailEvents(r *bufio.Reader, n int, match func(otel.Event) bool) []eventLine {
	var lines []eventLine
	for {
		raw, err := r.ReadBytes('\n')
		if l, ok := parseEventLine(raw); ok && match(l.ev) {
			lines = append(lines, l)
			if n > 0 && len(lines) > n {
				lines = lines[1:]
			}
		}
		if err != nil {
			return lines
		}
	}
}

func followEvents(ctx context.Context, r *bufio.Reader, match func(otel.Event) bool, emit func(eventLine)) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var partial []byte
	for {
		chunk, err := r.ReadBytes('\n')
		partial = append(partial, chunk...)
		if err == nil {
			if l, ok := parseEventLine(partial); ok && match(l.ev) {
				emit(l)
			}
			partial = partial[:0]
			continue
		}
		if !errors.Is(err, io.EOF) {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func parseEventLine(raw []byte) (eventLine, bool) {
	raw = bytes.TrimRight(raw, "\r\n")
	if len(raw) == 0 {
		return eventLine{}, false
	}
	var ev otel.Event
	if json.Unmarshal(raw, &ev) != nil || ev.Kind == "" {
		return eventLine{}, false
	}
	return eventLine{ev: ev, raw: raw}, true
}

func formatEvent(ev otel.Event) string {
	lvl := strings.ToUpper(string(ev.Level))
	if lvl == "" {
		lvl = "?"
	}
	parts := []string{fmt.Sprintf("%s %-5s [%-5s] %-20s", ev.Time.Format("15:04:05.000"), lvl, ev.Comp, ev.Kind)}

	if ev.EntryID > 0 {
		parts = append(parts, fmt.Sprintf("#%d", ev.EntryID))
	}
	if ev.Path != "" {
		parts = append(parts, ev.Path)
	}
	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

func durPrecision(ms float64) int {
	switch {
	case ms >= 100:
		return 0
	case ms >= 1:
		return 1
	default:
		return 2
	}
}
