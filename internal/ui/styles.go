package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorWarning   = lipgloss.Color("214") // Amber
	colorError     = lipgloss.Color("196") // Red
)

// TitleStyle renders the application title.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	Padding(0, 1)

// DropZone is the file list container.
var DropZone = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorMuted).
	Padding(0, 1)

// DropZoneHover highlights the container while a drag is over the window.
var DropZoneHover = DropZone.
	BorderForeground(colorHighlight)

// EmptyHint is the placeholder shown when no files are tracked.
var EmptyHint = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Italic(true).
	Padding(1, 2)

// SelectedItem style for the currently highlighted entry.
var SelectedItem = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// NormalItem style for unselected entries.
var NormalItem = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// DetailStyle for the expanded line under an entry.
var DetailStyle = lipgloss.NewStyle().
	Foreground(colorSecondary).
	PaddingLeft(6)

// Phase badges.
var (
	PendingBadge   = lipgloss.NewStyle().Foreground(colorMuted)
	AnalyzingBadge = lipgloss.NewStyle().Foreground(colorWarning)
	AnalyzedBadge  = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	FailedBadge    = lipgloss.NewStyle().Foreground(colorError).Bold(true)
)

// KeyPrompt labels the access key field.
var KeyPrompt = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Bold(true)

// NextHint is the advance affordance on the key scene.
var NextHint = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Bold(true).
	Padding(1, 0)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(colorError).
	Bold(true).
	Padding(0, 1)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// DebugPanel frames the debug overlay. debugPanelChrome depends on its
// border and padding.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 1)

// DebugHeaderStyle for section headers inside the debug overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)
