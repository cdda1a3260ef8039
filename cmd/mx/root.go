package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags rootFlags
	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:   "mx [paths...]",
		Short: "Drop video files into the terminal and inspect them",
		Long: "mx opens a drop target in the terminal. Drag files or folders onto the\n" +
			"window (or pass them as arguments, or pipe them on stdin) and every video\n" +
			"found is inspected with ffprobe.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, ctx, args)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().IntVarP(&flags.jobs, "jobs", "j", 0, "Analyses to run at once (overrides probe.max_concurrent)")
	rootCmd.PersistentFlags().BoolVar(&flags.noCache, "no-cache", false, "Do not read or write the probe cache")
	rootCmd.PersistentFlags().BoolVar(&flags.trace, "trace", false, "Record every UI message in the event log")

	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newEventsCommand(ctx))

	return rootCmd
}
