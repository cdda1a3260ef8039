package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/mx/internal/library"
	"github.com/abelbrown/mx/internal/logging"
	"github.com/abelbrown/mx/internal/media"
	"github.com/abelbrown/mx/internal/otel"
)

// Scene is the top-level screen.
type Scene int

const (
	SceneIndex     Scene = iota // access key entry
	SceneFileIndex              // drop target and file list
)

func (s Scene) String() string {
	switch s {
	case SceneIndex:
		return "index"
	case SceneFileIndex:
		return "file-index"
	default:
		return fmt.Sprintf("scene(%d)", int(s))
	}
}

// minKeyLen is exclusive: the key must be longer than this to advance.
const minKeyLen = 5

// AppConfig wires the App to its collaborators. All fields are optional.
type AppConfig struct {
	// Resolve returns a command that expands a dropped path into PathsResolved.
	Resolve func(path string) tea.Cmd
	// Analyze returns a command that analyzes one entry into AnalysisCompleted.
	Analyze func(id library.ID, path string) tea.Cmd

	Events *otel.Logger
	Ring   *otel.RingBuffer
}

// App is the root Bubble Tea model. It owns the registry; every mutation
// happens inside Update, one message at a time.
// IMPORTANT: App does no I/O. Scans and analyses run as commands.
type App struct {
	cfg AppConfig

	registry *library.Registry
	rows     map[library.ID]*row

	scene      Scene
	key        textinput.Model
	credential string // exactly as typed or set; key only renders it
	hovering   bool

	cursor    int
	scanning  int
	note      string
	err       error
	showDebug bool

	width  int
	height int
	ready  bool
}

// NewApp creates an App on the key entry scene with an empty registry.
func NewApp(cfg AppConfig) App {
	ti := textinput.New()
	ti.Placeholder = "access key"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 0 // a credential is kept exactly as given
	ti.Focus()

	return App{
		cfg:      cfg,
		registry: library.NewRegistry(),
		rows:     make(map[library.ID]*row),
		scene:    SceneIndex,
		key:      ti,
	}
}

// Init starts the cursor blink of the key field.
func (a App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	if otel.TraceEnabled() {
		start := time.Now()
		kind := fmt.Sprintf("%T", msg)
		a.cfg.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgReceived, Comp: "ui", Msg: kind})
		defer func() {
			a.cfg.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgHandled, Comp: "ui", Msg: kind, Dur: time.Since(start)})
		}()
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.key.Width = max(msg.Width-20, 10)
		return a, nil

	case tea.FocusMsg:
		return a.handleHover(HoverChanged{Hovering: true})
	case tea.BlurMsg:
		return a.handleHover(HoverChanged{Hovering: false})
	case HoverChanged:
		return a.handleHover(msg)

	case PathDropped:
		return a.handlePathDropped(msg)
	case PathsResolved:
		return a.handlePathsResolved(msg)
	case AnalysisCompleted:
		return a.handleAnalysisCompleted(msg)
	case EntryMsg:
		return a.handleEntryMsg(msg)

	case CredentialChanged:
		a.credential = msg.Value
		a.key.SetValue(msg.Value)
		return a, nil
	case SceneAdvanceRequested:
		return a.handleSceneAdvance()
	}

	if a.scene == SceneIndex {
		return a.updateKey(msg)
	}
	return a, nil
}

// updateKey feeds msg to the key field and picks up whatever it typed.
func (a App) updateKey(msg tea.Msg) (tea.Model, tea.Cmd) {
	before := a.key.Value()
	var cmd tea.Cmd
	a.key, cmd = a.key.Update(msg)
	if v := a.key.Value(); v != before {
		a.credential = v
	}
	return a, cmd
}

func (a App) handleHover(msg HoverChanged) (tea.Model, tea.Cmd) {
	a.hovering = msg.Hovering
	return a, nil
}

func (a App) handlePathDropped(msg PathDropped) (tea.Model, tea.Cmd) {
	a.hovering = false
	if strings.TrimSpace(msg.Path) == "" {
		return a, nil
	}
	a.cfg.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDropReceived, Comp: "ui", Path: msg.Path})
	if a.cfg.Resolve == nil {
		return a, nil
	}
	a.scanning++
	return a, a.cfg.Resolve(msg.Path)
}

func (a App) handlePathsResolved(msg PathsResolved) (tea.Model, tea.Cmd) {
	if a.scanning > 0 {
		a.scanning--
	}
	if msg.Err != nil {
		a.err = msg.Err
		return a, nil
	}

	var cmds []tea.Cmd
	added := 0
	for _, p := range msg.Paths {
		id, isNew := a.registry.Add(p)
		if !isNew {
			a.cfg.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindEntryDuplicate, Comp: "ui", EntryID: uint64(id), Path: p})
			continue
		}
		added++
		a.rows[id] = &row{}
		a.cfg.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindEntryAdded, Comp: "ui", EntryID: uint64(id), Path: p})

		if a.cfg.Analyze == nil {
			continue
		}
		if _, err := a.registry.Start(id); err != nil {
			logging.Warn("start analysis", "id", id, "err", err)
			continue
		}
		cmds = append(cmds, a.cfg.Analyze(id, p))
	}

	a.note = fmt.Sprintf("+%d from %s", added, displayPath(msg.Root))
	if msg.Skipped > 0 {
		a.note += fmt.Sprintf(" (%d unreadable)", msg.Skipped)
	}
	return a, tea.Batch(cmds...)
}

func (a App) handleAnalysisCompleted(msg AnalysisCompleted) (tea.Model, tea.Cmd) {
	found, err := a.registry.Complete(msg.ID, msg.Outcome, msg.Err)
	switch {
	case !found:
		a.cfg.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindEntryStale, Comp: "ui", EntryID: uint64(msg.ID)})
	case err != nil:
		logging.Warn("completion rejected", "id", msg.ID, "err", err)
		a.cfg.Events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindEntryIllegal, Comp: "ui", EntryID: uint64(msg.ID), Err: err.Error()})
	}
	return a, nil
}

func (a App) handleEntryMsg(msg EntryMsg) (tea.Model, tea.Cmd) {
	r := a.rows[msg.ID]
	if r == nil {
		a.cfg.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindEntryStale, Comp: "ui", EntryID: uint64(msg.ID), Msg: fmt.Sprintf("%T", msg.Msg)})
		return a, nil
	}
	r.update(msg.Msg)
	return a, nil
}

func (a App) handleSceneAdvance() (tea.Model, tea.Cmd) {
	if a.scene != SceneIndex {
		return a, nil
	}
	if !keyAccepted(a.credential) {
		a.cfg.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSceneRejected, Comp: "ui", Msg: "key too short"})
		return a, nil
	}
	a.scene = SceneFileIndex
	a.key.Blur()
	a.cfg.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSceneAdvance, Comp: "ui", Msg: a.scene.String()})
	return a, nil
}

func keyAccepted(key string) bool {
	return utf8.RuneCountInString(key) > minKeyLen
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	if a.scene == SceneIndex {
		if msg.Type == tea.KeyEnter {
			return a.handleSceneAdvance()
		}
		return a.updateKey(msg)
	}

	if msg.Paste {
		return a.handlePaste(string(msg.Runes))
	}

	// Clear any existing error on key press
	a.err = nil

	switch msg.String() {
	case "q":
		return a, tea.Quit

	case "j", "down":
		if a.cursor < a.registry.Len()-1 {
			a.cursor++
		}
	case "k", "up":
		if a.cursor > 0 {
			a.cursor--
		}
	case "g", "home":
		a.cursor = 0
	case "G", "end":
		if n := a.registry.Len(); n > 0 {
			a.cursor = n - 1
		}

	case "enter", " ":
		entries := a.registry.Snapshot()
		if a.cursor < len(entries) {
			return a.handleEntryMsg(EntryMsg{ID: entries[a.cursor].ID, Msg: ToggleDetail{}})
		}

	case "D":
		a.showDebug = !a.showDebug
	}
	return a, nil
}

// handlePaste treats pasted text as a drop of one or more paths.
func (a App) handlePaste(text string) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var model tea.Model = a
	for _, p := range media.ParseDrop(text) {
		var cmd tea.Cmd
		model, cmd = model.(App).handlePathDropped(PathDropped{Path: p})
		cmds = append(cmds, cmd)
	}
	return model, tea.Batch(cmds...)
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.showDebug {
		return debugOverlay(a.cfg.Ring, a.width, a.height-1) + "\n" + debugStatusBar(a.width)
	}
	if a.scene == SceneIndex {
		return a.viewIndex()
	}
	return a.viewFileIndex()
}

func (a App) viewIndex() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("mx"))
	b.WriteString("\n\n")
	b.WriteString(KeyPrompt.Render("Access key"))
	b.WriteString("\n")
	b.WriteString(a.key.View())
	b.WriteString("\n")
	if keyAccepted(a.credential) {
		b.WriteString(NextHint.Render("Next  [enter]"))
	} else {
		b.WriteString(HelpStyle.Render(fmt.Sprintf("at least %d characters", minKeyLen+1)))
	}
	return b.String()
}

func (a App) viewFileIndex() string {
	title := TitleStyle.Render("mx")

	errorBar := ""
	if a.err != nil {
		errorBar = ErrorStyle.Width(a.width).Render("Error: "+a.err.Error()+" (press any key to dismiss)") + "\n"
	}
	statusBar := RenderStatusBar(a.registry.Counts(), a.registry.Len(), a.scanning, a.width, a.note)

	// title, error bar, status bar, zone border
	chrome := 1 + 1 + 2
	if errorBar != "" {
		chrome++
	}
	listHeight := max(a.height-chrome, 1)

	var body string
	if a.registry.Len() == 0 {
		body = EmptyHint.Render("Drag and drop files here")
	} else {
		body = strings.TrimSuffix(RenderEntries(a.registry.Snapshot(), a.rows, a.cursor, a.width-4, listHeight), "\n")
	}

	zone := DropZone
	if a.hovering {
		zone = DropZoneHover
	}
	zoneWidth := max(a.width-2, 20)
	box := zone.Width(zoneWidth).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, title, box) + "\n" + errorBar + statusBar
}

// Entries returns a snapshot of all tracked entries in insertion order.
func (a App) Entries() []library.Entry {
	return a.registry.Snapshot()
}

// Scene returns the current scene.
func (a App) Scene() Scene {
	return a.scene
}

// Hovering reports whether a drag is over the window.
func (a App) Hovering() bool {
	return a.hovering
}

// Credential returns the access key. It is never persisted.
func (a App) Credential() string {
	return a.credential
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Expanded reports whether the row for id shows its detail line.
func (a App) Expanded(id library.ID) bool {
	r := a.rows[id]
	return r != nil && r.expanded
}
