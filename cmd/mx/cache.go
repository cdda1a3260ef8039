package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abelbrown/mx/internal/probe"
	"github.com/abelbrown/mx/internal/store"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the probe cache",
	}
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func (c *commandContext) withCache(fn func(*store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.CachePath())
	if err != nil {
		return fmt.Errorf("open probe cache: %w", err)
	}
	defer st.Close()
	return fn(st)
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recently probed files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return errors.New("--limit must be positive")
			}
			return ctx.withCache(func(st *store.Store) error {
				recs, err := st.Recent(limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(recs) == 0 {
					fmt.Fprintln(out, "Probe cache is empty")
					return nil
				}

				rows := make([][]string, 0, len(recs))
				for _, r := range recs {
					summary := "unreadable"
					if rep, err := probe.Decode(r.Report); err == nil {
						summary = rep.Summary()
					}
					rows = append(rows, []string{
						r.Path,
						humanize.Bytes(uint64(r.Size)),
						humanize.RelTime(r.ProbedAt, time.Now(), "ago", "from now"),
						summary,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"File", "Size", "Probed", "Summary"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(func(st *store.Store) error {
				n, err := st.Purge()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached reports\n", n)
				return nil
			})
		},
	}
}
