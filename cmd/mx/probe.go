package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/mx/internal/config"
	"github.com/abelbrown/mx/internal/coord"
	"github.com/abelbrown/mx/internal/library"
	"github.com/abelbrown/mx/internal/logging"
	"github.com/abelbrown/mx/internal/media"
	"github.com/abelbrown/mx/internal/otel"
	"github.com/abelbrown/mx/internal/probe"
)

type probeResult struct {
	Path   string        `json:"path"`
	Report *probe.Report `json:"report,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe [paths...]",
		Short: "Inspect files and folders without the UI",
		Long: "Expand the given paths (or newline-separated paths on stdin) into video\n" +
			"files, inspect each with ffprobe, and print a summary table.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logging.SetOutput(cmd.ErrOrStderr(), cfg.Log.Level)

			roots := args
			if len(roots) == 0 {
				if isTerminal(cmd.InOrStdin()) {
					return errors.New("no paths given")
				}
				roots, err = readDrops(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			results, err := probePaths(runCtx, ctx, cfg, roots)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, renderResults(results))
			}

			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print reports as JSON")
	return cmd
}

// readDrops reads one path per line from r.
func readDrops(r io.Reader) ([]string, error) {
	var paths []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if p := media.LinePath(sc.Text()); p != "" {
			paths = append(paths, p)
		}
	}
	return paths, sc.Err()
}

// probePaths resolves roots, deduplicates through a registry, and analyzes
// every new file under the dispatcher's bound.
func probePaths(ctx context.Context, cc *commandContext, cfg *config.Config, roots []string) ([]probeResult, error) {
	events, eventsFile, err := openEvents(cfg)
	if err != nil {
		return nil, err
	}
	defer eventsFile.Close()
	defer events.Close()

	st, err := cc.openCache(cfg)
	if err != nil {
		return nil, err
	}
	if st != nil {
		defer st.Close()
	}

	resolver := media.NewResolver(runtime.NumCPU())
	registry := library.NewRegistry()
	for _, root := range roots {
		events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDropReceived, Comp: "main", Path: root, Msg: "probe"})
		res, err := resolver.Scan(ctx, root)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.Warn("skipping path", "path", root, "err", err)
			continue
		}
		if res.Skipped > 0 {
			logging.Warn("unreadable entries skipped", "root", root, "count", res.Skipped)
		}
		for _, p := range res.Paths {
			registry.Add(p)
		}
	}

	entries := registry.Snapshot()
	if len(entries) == 0 {
		return nil, errors.New("no video files found")
	}

	dispatcher := coord.NewDispatcher(ctx, newAnalyzer(cfg, st, events), coord.Options{
		MaxConcurrent: cfg.Probe.MaxConcurrent,
		PerSecond:     cfg.Probe.PerSecond,
		Timeout:       cfg.ProbeTimeout(),
	}, events)

	type outcome struct {
		value any
		err   error
	}
	outcomes := make([]outcome, len(entries))

	var g errgroup.Group
	g.SetLimit(cfg.Probe.MaxConcurrent)
	for i, e := range entries {
		g.Go(func() error {
			v, err := dispatcher.Run(ctx, e.ID, e.Path)
			outcomes[i] = outcome{v, err}
			return nil // failures are reported per file
		})
	}
	_ = g.Wait()
	dispatcher.Wait()

	results := make([]probeResult, len(entries))
	for i, e := range entries {
		registry.Start(e.ID)
		if _, err := registry.Complete(e.ID, outcomes[i].value, outcomes[i].err); err != nil {
			logging.Warn("completion rejected", "path", e.Path, "err", err)
		}

		status := registry.Find(e.ID).Status
		results[i] = probeResult{Path: e.Path}
		if status.Phase == library.Failed {
			results[i].Error = status.Err.Error()
			continue
		}
		if rep, ok := status.Outcome.(probe.Report); ok {
			results[i].Report = &rep
		}
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func renderResults(results []probeResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if r.Error != "" {
			rows = append(rows, []string{r.Path, "failed", "", "", r.Error})
			continue
		}
		var dur, size, summary string
		if r.Report != nil {
			if d := r.Report.Duration(); d > 0 {
				dur = formatDuration(d.Seconds())
			}
			if b := r.Report.SizeBytes(); b > 0 {
				size = humanize.Bytes(uint64(b))
			}
			summary = r.Report.Summary()
		}
		rows = append(rows, []string{r.Path, "ok", dur, size, summary})
	}
	return renderTable(
		[]string{"File", "Status", "Duration", "Size", "Summary"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func formatDuration(secs float64) string {
	total := int(secs + 0.5)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
