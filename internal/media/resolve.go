package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/abelbrown/mx/internal/logging"
)

// errStopWalk ends a walk early when the consumer stops ranging.
var errStopWalk = errors.New("media: stop walk")

// Scan is the eager result of resolving one dropped path.
type Scan struct {
	Root    string
	Paths   []string // sorted candidate video files
	Skipped int      // descendants dropped because of traversal errors
}

// Resolver expands dropped paths into candidate video files.
// It holds no walk state, so every call starts from scratch.
type Resolver struct {
	conf fastwalk.Config
}

// NewResolver creates a Resolver. workers <= 0 lets fastwalk pick.
func NewResolver(workers int) *Resolver {
	return &Resolver{
		conf: fastwalk.Config{
			Follow:     true, // fastwalk guards against symlink loops
			NumWorkers: workers,
		},
	}
}

// Expand returns a lazy sequence of video files under root. A file root
// yields itself if it sniffs as video. Breaking out of the range stops the
// walk. Traversal errors are skipped.
func (r *Resolver) Expand(ctx context.Context, root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if _, err := r.walk(ctx, root, yield); err != nil {
			logging.Debug("Expand stopped", "root", root, "error", err)
		}
	}
}

// Scan walks root to completion and returns the sorted candidates.
// Only a failure on root itself is returned; descendant errors are counted.
func (r *Resolver) Scan(ctx context.Context, root string) (Scan, error) {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	res := Scan{Root: root}
	skipped, err := r.walk(ctx, root, func(p string) bool {
		res.Paths = append(res.Paths, p)
		return true
	})
	res.Skipped = skipped
	sort.Strings(res.Paths)
	return res, err
}

// walk calls fn once per candidate. fastwalk invokes its callback from
// several goroutines, so fn is serialized here.
func (r *Resolver) walk(ctx context.Context, root string, fn func(string) bool) (int, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		if info.Mode().IsRegular() && IsVideo(root) {
			fn(root)
		}
		return 0, nil
	}

	var (
		mu      sync.Mutex
		stopped bool
		skipped int
	)
	emit := func(p string) error {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return errStopWalk
		}
		if !fn(p) {
			stopped = true
			return errStopWalk
		}
		return nil
	}
	skip := func(p string, err error) {
		mu.Lock()
		skipped++
		mu.Unlock()
		logging.Debug("Skipping entry", "path", p, "error", err)
	}

	conf := r.conf
	err = fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if walkErr != nil {
			skip(p, walkErr)
			if d != nil && d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if p == root || d.IsDir() || !IsVideo(p) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := fastwalk.StatDirEntry(p, d)
			if err != nil {
				skip(p, err)
				return nil
			}
			if !target.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		return emit(p)
	})
	if errors.Is(err, errStopWalk) {
		err = nil
	}
	return skipped, err
}
