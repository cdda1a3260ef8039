package coord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/abelbrown/mx/internal/library"
	"github.com/abelbrown/mx/internal/logging"
	"github.com/abelbrown/mx/internal/otel"
	"github.com/abelbrown/mx/internal/ui"
)

// ErrAnalyzerPanic wraps a panic recovered from an analyzer.
var ErrAnalyzerPanic = errors.New("analyzer panicked")

// ErrDispatcherClosed is returned by tasks that start after Wait.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Analyzer produces an opaque outcome for one file.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (any, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, path string) (any, error)

// Analyze calls f.
func (f AnalyzerFunc) Analyze(ctx context.Context, path string) (any, error) {
	return f(ctx, path)
}

// Options bound the dispatcher.
type Options struct {
	MaxConcurrent int           // analyses running at once; <1 means 1
	PerSecond     float64       // analysis starts per second; 0 means unlimited
	Timeout       time.Duration // per analysis; 0 means none
}

// Dispatcher runs analyses off the update loop under a concurrency bound
// and a start rate. Stopped by cancelling the context it was built with.
type Dispatcher struct {
	ctx      context.Context
	analyzer Analyzer
	sem      *semaphore.Weighted
	limiter  *rate.Limiter // nil when unlimited
	timeout  time.Duration
	events   *otel.Logger
	active   atomic.Int64

	// mu orders wg.Add against Wait: once closed is set no task is added.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. ctx is the lifetime of every task
// issued through Dispatch.
func NewDispatcher(ctx context.Context, a Analyzer, opts Options, events *otel.Logger) *Dispatcher {
	limit := opts.MaxConcurrent
	if limit < 1 {
		limit = 1
	}
	var limiter *rate.Limiter
	if opts.PerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.PerSecond), limit)
	}
	return &Dispatcher{
		ctx:      ctx,
		analyzer: a,
		sem:      semaphore.NewWeighted(int64(limit)),
		limiter:  limiter,
		timeout:  opts.Timeout,
		events:   events,
	}
}

// Dispatch returns a command that analyzes path and reports the result as
// ui.AnalysisCompleted for id. A command the runtime only starts after Wait
// reports ErrDispatcherClosed without analyzing.
func (d *Dispatcher) Dispatch(id library.ID, path string) tea.Cmd {
	return func() tea.Msg {
		out, err := d.Run(d.ctx, id, path)
		return ui.AnalysisCompleted{ID: id, Outcome: out, Err: err}
	}
}

// Run analyzes path, blocking until a slot is free. A panicking analyzer
// yields an error wrapping ErrAnalyzerPanic.
func (d *Dispatcher) Run(ctx context.Context, id library.ID, path string) (any, error) {
	if !d.begin() {
		return nil, ErrDispatcherClosed
	}
	defer d.wg.Done()
	return d.run(ctx, id, path)
}

func (d *Dispatcher) begin() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.wg.Add(1)
	return true
}

func (d *Dispatcher) run(ctx context.Context, id library.ID, path string) (out any, err error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer d.sem.Release(1)

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	d.active.Add(1)
	defer d.active.Add(-1)

	start := time.Now()
	d.events.Emit(otel.Event{
		Level: otel.LevelDebug, Kind: otel.KindProbeStart, Comp: "coord",
		EntryID: uint64(id), Path: path,
	})

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrAnalyzerPanic, r)
			logging.Error("analyzer panic", "id", id, "path", path, "panic", r)
		}
		d.report(id, path, time.Since(start), err)
	}()

	return d.analyzer.Analyze(ctx, path)
}

func (d *Dispatcher) report(id library.ID, path string, dur time.Duration, err error) {
	if err != nil {
		logging.Warn("analysis failed", "id", id, "path", path, "err", err)
		d.events.Emit(otel.Event{
			Level: otel.LevelError, Kind: otel.KindProbeError, Comp: "coord",
			EntryID: uint64(id), Path: path, Dur: dur, Err: err.Error(),
		})
		return
	}
	logging.Debug("analysis complete", "id", id, "path", path, "dur", dur)
	d.events.Emit(otel.Event{
		Level: otel.LevelInfo, Kind: otel.KindProbeComplete, Comp: "coord",
		EntryID: uint64(id), Path: path, Dur: dur,
	})
}

// Active returns the number of analyses currently running.
func (d *Dispatcher) Active() int {
	return int(d.active.Load())
}

// Wait stops the dispatcher from starting tasks and blocks until every
// started task has returned. Cancel the dispatcher's context first or Wait
// lasts as long as the slowest analysis.
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
