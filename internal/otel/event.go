// Package otel records what the ingest pipeline did as structured events.
//
// Events are typed structs serialized as JSONL lines. The Logger writes them
// asynchronously through a buffered channel and a drain goroutine. An optional
// RingBuffer keeps the most recent events in memory for the debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Ingest
	KindDropReceived EventKind = "drop.received"
	KindScanStart    EventKind = "scan.start"
	KindScanComplete EventKind = "scan.complete"
	KindScanSkip     EventKind = "scan.skip"

	// Registry
	KindEntryAdded     EventKind = "registry.add"
	KindEntryDuplicate EventKind = "registry.duplicate"
	KindEntryStale     EventKind = "registry.stale"
	KindEntryIllegal   EventKind = "registry.illegal"

	// Analysis
	KindProbeStart    EventKind = "probe.start"
	KindProbeComplete EventKind = "probe.complete"
	KindProbeError    EventKind = "probe.error"
	KindProbeCacheHit EventKind = "probe.cache_hit"

	// Scenes
	KindSceneAdvance  EventKind = "scene.advance"
	KindSceneRejected EventKind = "scene.rejected"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	// Trace (MX_TRACE)
	KindMsgReceived EventKind = "trace.msg_received"
	KindMsgHandled  EventKind = "trace.msg_handled"
)

// Event is the universal record. Every field except Kind and Time is
// optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "ui", "coord", "probe", "main"
	SessionID string         `json:"session_id,omitempty"`
	EntryID   uint64         `json:"entry,omitempty"`
	Path      string         `json:"path,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
