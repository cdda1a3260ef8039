package library

import "path/filepath"

// Registry is the ordered, deduplicated set of tracked files.
// NOT safe for concurrent use: it belongs to the UI update loop, which
// applies one message at a time.
type Registry struct {
	entries []*Entry
	byPath  map[string]*Entry
	byID    map[ID]*Entry
	nextID  ID
}

// NewRegistry creates an empty registry. The first id handed out is 1.
func NewRegistry() *Registry {
	return &Registry{
		byPath: make(map[string]*Entry),
		byID:   make(map[ID]*Entry),
		nextID: 1,
	}
}

// Add tracks path if it is not tracked yet. Duplicates return the existing
// id with isNew=false and consume no id.
func (r *Registry) Add(path string) (id ID, isNew bool) {
	path = filepath.Clean(path)
	if e, ok := r.byPath[path]; ok {
		return e.ID, false
	}

	e := &Entry{ID: r.nextID, Path: path, Status: Status{Phase: Pending}}
	r.nextID++

	r.entries = append(r.entries, e)
	r.byPath[path] = e
	r.byID[e.ID] = e
	return e.ID, true
}

// Contains reports whether path is tracked.
func (r *Registry) Contains(path string) bool {
	_, ok := r.byPath[filepath.Clean(path)]
	return ok
}

// Find returns the entry for id, or nil. Stale ids are not an error.
func (r *Registry) Find(id ID) *Entry {
	return r.byID[id]
}

// Start moves a pending entry to Analyzing.
func (r *Registry) Start(id ID) (found bool, err error) {
	e := r.byID[id]
	if e == nil {
		return false, nil
	}
	return true, e.start()
}

// Complete applies an analysis result to id. found is false for unknown
// ids; err wraps ErrIllegalTransition when the entry is already terminal.
func (r *Registry) Complete(id ID, outcome any, analysisErr error) (found bool, err error) {
	e := r.byID[id]
	if e == nil {
		return false, nil
	}
	return true, e.finish(outcome, analysisErr)
}

// Len returns the number of tracked entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Snapshot returns a copy of all entries in insertion order.
func (r *Registry) Snapshot() []Entry {
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out
}

// Counts tallies entries per phase.
func (r *Registry) Counts() map[Phase]int {
	counts := make(map[Phase]int, 4)
	for _, e := range r.entries {
		counts[e.Status.Phase]++
	}
	return counts
}

// Tally counts a snapshot per phase.
func Tally(entries []Entry) map[Phase]int {
	counts := make(map[Phase]int, 4)
	for _, e := range entries {
		counts[e.Status.Phase]++
	}
	return counts
}
