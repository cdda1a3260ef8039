package probe

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/abelbrown/mx/internal/logging"
	"github.com/abelbrown/mx/internal/otel"
)

// Cache stores raw ffprobe output keyed by path, size and mtime.
// *store.Store satisfies it.
type Cache interface {
	Get(path string, size int64, modTime time.Time) ([]byte, bool, error)
	Put(path string, size int64, modTime time.Time, report []byte) error
}

// Analyzer probes files, consulting Cache first when one is set.
type Analyzer struct {
	Binary string
	Run    Runner       // nil means ExecRunner
	Cache  Cache        // optional
	Events *otel.Logger // optional
}

// Analyze inspects path. The result is a Report.
func (a *Analyzer) Analyze(ctx context.Context, path string) (any, error) {
	return a.Inspect(ctx, path)
}

// Inspect is Analyze with a concrete result type.
func (a *Analyzer) Inspect(ctx context.Context, path string) (Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Report{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return Report{}, fmt.Errorf("%s: not a regular file", path)
	}
	size, mod := info.Size(), info.ModTime()

	if a.Cache != nil {
		raw, ok, err := a.Cache.Get(path, size, mod)
		switch {
		case err != nil:
			logging.Warn("probe cache read failed", "path", path, "err", err)
		case ok:
			if rep, err := Decode(raw); err == nil {
				a.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindProbeCacheHit, Comp: "probe", Path: path})
				return rep, nil
			}
			logging.Warn("probe cache entry unreadable, probing again", "path", path)
		}
	}

	rep, raw, err := Inspect(ctx, a.Run, a.Binary, path)
	if err != nil {
		return Report{}, err
	}

	if a.Cache != nil {
		if err := a.Cache.Put(path, size, mod, raw); err != nil {
			logging.Warn("probe cache write failed", "path", path, "err", err)
		}
	}
	return rep, nil
}
