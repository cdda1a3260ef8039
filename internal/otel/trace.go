package otel

import (
	"os"
	"sync/atomic"
)

// traceEnabled is read on every UI message, so it is a single atomic load.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("MX_TRACE") != "")
}

// TraceEnabled reports whether MX_TRACE is set.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// SetTraceEnabled overrides MX_TRACE, e.g. from the --trace flag.
func SetTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
