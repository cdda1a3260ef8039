// Package ui provides the Bubble Tea TUI for mx.
package ui

import "github.com/abelbrown/mx/internal/library"

// PathDropped is sent when the user drops a file or folder.
type PathDropped struct {
	Path string
}

// PathsResolved is sent when a dropped path has been expanded into
// candidate video files.
type PathsResolved struct {
	Root    string
	Paths   []string
	Skipped int // descendants that could not be read
	Err     error
}

// HoverChanged is sent when a drag enters or leaves the window.
type HoverChanged struct {
	Hovering bool
}

// AnalysisCompleted is sent when analysis of one entry finishes.
// Err non-nil means the entry failed and Outcome is ignored.
type AnalysisCompleted struct {
	ID      library.ID
	Outcome any
	Err     error
}

// EntryMsg routes Msg to the row for entry ID.
type EntryMsg struct {
	ID  library.ID
	Msg any
}

// ToggleDetail expands or collapses a row's detail line.
type ToggleDetail struct{}

// CredentialChanged replaces the access key. The value is kept in memory only.
type CredentialChanged struct {
	Value string
}

// SceneAdvanceRequested asks to move from the key entry scene to the file index.
type SceneAdvanceRequested struct{}
