// Package coord runs the work behind the mx UI: path scanning, bounded
// analysis dispatch, and feeding drops that arrive outside the terminal.
package coord

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/mx/internal/logging"
	"github.com/abelbrown/mx/internal/media"
	"github.com/abelbrown/mx/internal/ui"
)

// Sender is the part of *tea.Program the coordinator needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Coordinator turns command-line paths and stdin lines into drops.
// Uses context cancellation as the ONLY stop mechanism.
type Coordinator struct {
	paths []string  // IMMUTABLE after construction
	stdin io.Reader // nil to skip
	wg    sync.WaitGroup
}

// NewCoordinator creates a Coordinator. stdin may be nil.
func NewCoordinator(paths []string, stdin io.Reader) *Coordinator {
	pathsCopy := make([]string, len(paths))
	copy(pathsCopy, paths)
	return &Coordinator{paths: pathsCopy, stdin: stdin}
}

// Start sends a PathDropped for every initial path, then for every path
// read from stdin until EOF or ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context, program Sender) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		for _, p := range c.paths {
			if ctx.Err() != nil {
				return
			}
			// the shell already split argv; each element is one path
			if p == "" {
				continue
			}
			path, err := filepath.Abs(p)
			if err != nil {
				logging.Warn("skipping argument", "path", p, "err", err)
				continue
			}
			c.drop(program, path, "args")
		}

		if c.stdin == nil {
			return
		}

		// The reader may stay blocked on a terminal after ctx is done; it
		// exits with the process.
		lines := make(chan string)
		go func() {
			defer close(lines)
			sc := bufio.NewScanner(c.stdin)
			for sc.Scan() {
				select {
				case lines <- sc.Text():
				case <-ctx.Done():
					return
				}
			}
			if err := sc.Err(); err != nil {
				logging.Warn("stdin read failed", "err", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				if path := media.LinePath(line); path != "" {
					c.drop(program, path, "stdin")
				}
			}
		}
	}()
}

func (c *Coordinator) drop(program Sender, path, origin string) {
	logging.Debug("drop", "path", path, "origin", origin)
	if program != nil {
		program.Send(ui.PathDropped{Path: path})
	}
}

// Wait blocks until the feeding goroutine exits.
// Call after canceling the context passed to Start, or after stdin closes.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
