package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/abelbrown/mx/internal/config"
	"github.com/abelbrown/mx/internal/otel"
	"github.com/abelbrown/mx/internal/probe"
	"github.com/abelbrown/mx/internal/store"
)

type rootFlags struct {
	config  string
	jobs    int
	noCache bool
	trace   bool
}

type commandContext struct {
	flags *rootFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads the config file once and applies flag overrides.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if c.flags.jobs > 0 {
			cfg.Probe.MaxConcurrent = c.flags.jobs
		}
		if c.flags.noCache {
			cfg.Probe.Cache = false
		}
		if c.flags.trace {
			otel.SetTraceEnabled(true)
		}
		if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
			c.configErr = fmt.Errorf("create data directory: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if p := strings.TrimSpace(c.flags.config); p != "" {
		if expanded, err := config.ExpandPath(p); err == nil {
			return expanded
		}
		return p
	}
	return config.ConfigPath()
}

// openCache opens the probe cache, or returns nil when caching is off.
func (c *commandContext) openCache(cfg *config.Config) (*store.Store, error) {
	if !cfg.Probe.Cache {
		return nil, nil
	}
	st, err := store.Open(cfg.CachePath())
	if err != nil {
		return nil, fmt.Errorf("open probe cache: %w", err)
	}
	return st, nil
}

// newAnalyzer builds the ffprobe analyzer. st may be nil.
func newAnalyzer(cfg *config.Config, st *store.Store, events *otel.Logger) *probe.Analyzer {
	a := &probe.Analyzer{Binary: cfg.Probe.FFprobe, Events: events}
	if st != nil {
		a.Cache = st
	}
	return a
}

// openEvents opens the JSONL event log in append mode.
func openEvents(cfg *config.Config) (*otel.Logger, *os.File, error) {
	f, err := os.OpenFile(cfg.EventsPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open event log: %w", err)
	}
	return otel.NewLogger(f), f, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func isTerminal(v any) bool {
	file, ok := v.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
