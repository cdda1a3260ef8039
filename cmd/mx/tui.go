package main

import (
	"context"
	"errors"
	"io"
	"runtime"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/mx/internal/coord"
	"github.com/abelbrown/mx/internal/library"
	"github.com/abelbrown/mx/internal/logging"
	"github.com/abelbrown/mx/internal/media"
	"github.com/abelbrown/mx/internal/otel"
	"github.com/abelbrown/mx/internal/ui"
)

func runTUI(cmd *cobra.Command, cc *commandContext, args []string) error {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return err
	}
	if !isTerminal(cmd.OutOrStdout()) {
		return errors.New("stdout is not a terminal; use `mx probe` for headless runs")
	}

	if err := logging.Init(cfg.Paths.LogDir, cfg.Log.Level); err != nil {
		return err
	}
	defer logging.Close()

	events, eventsFile, err := openEvents(cfg)
	if err != nil {
		return err
	}
	defer eventsFile.Close()
	defer events.Close()
	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	events.SetRingBuffer(ring)

	st, err := cc.openCache(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStartup, Comp: "main", Msg: cfg.Probe.FFprobe})

	dispatcher := coord.NewDispatcher(ctx, newAnalyzer(cfg, st, events), coord.Options{
		MaxConcurrent: cfg.Probe.MaxConcurrent,
		PerSecond:     cfg.Probe.PerSecond,
		Timeout:       cfg.ProbeTimeout(),
	}, events)
	scanner := coord.NewScanner(ctx, media.NewResolver(runtime.NumCPU()), events)

	app := ui.NewApp(ui.AppConfig{
		Resolve: scanner.Scan,
		Analyze: func(id library.ID, path string) tea.Cmd {
			return dispatcher.Dispatch(id, path)
		},
		Events: events,
		Ring:   ring,
	})

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithReportFocus()}

	// Piped stdin carries paths; keys then come from the controlling terminal.
	var stdin io.Reader
	if !isTerminal(cmd.InOrStdin()) {
		stdin = cmd.InOrStdin()
		opts = append(opts, tea.WithInputTTY())
	}

	program := tea.NewProgram(app, opts...)

	coordinator := coord.NewCoordinator(args, stdin)
	coordinator.Start(ctx, program)

	// Run UI (blocks until quit)
	final, runErr := program.Run()
	if runErr != nil {
		logging.Error("program exited", "err", runErr)
	}

	// Graceful shutdown: kill running probes, then wait so the cache is idle
	cancel()
	coordinator.Wait()
	dispatcher.Wait()

	if m, ok := final.(ui.App); ok {
		counts := library.Tally(m.Entries())
		logging.Info("session finished",
			"files", len(m.Entries()),
			"analyzed", counts[library.Analyzed],
			"failed", counts[library.Failed])
	}
	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShutdown, Comp: "main"})

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}
