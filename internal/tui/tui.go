// Package tui provides a Bubble Tea terminal user interface for running
// stimulus experiments.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/stimulus/internal/config"
	"github.com/handiism/stimulus/internal/model"
	"github.com/handiism/stimulus/internal/session"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	stageStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#F8B500")).
			Width(50).
			Height(5).
			Align(lipgloss.Center, lipgloss.Center)

	groupStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateLoading
	StateReady
	StateRunning
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   session.ProgressLevel
}

// stage is what the terminal presenter currently shows. It is shared between
// the run goroutine and the Bubble Tea model, which is copied on every
// update.
type stage struct {
	mu      sync.Mutex
	current *model.Exhibition
	missing bool
}

func (s *stage) show(ex model.Exhibition, stim *session.Stimulus) {
	s.mu.Lock()
	s.current = &ex
	s.missing = stim == nil || stim.Missing
	s.mu.Unlock()
}

func (s *stage) clear() {
	s.mu.Lock()
	s.current = nil
	s.missing = false
	s.mu.Unlock()
}

func (s *stage) get() (*model.Exhibition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.missing
}

// presenter shows exhibitions as text on the stage.
func (s *stage) presenter() session.Presenter {
	return session.PresenterFuncs{
		ShowFunc: func(_ context.Context, ex model.Exhibition, stim *session.Stimulus) error {
			s.show(ex, stim)
			return nil
		},
		ClearFunc: func(context.Context) error {
			s.clear()
			return nil
		},
	}
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	groups    []string
	err       error

	// Run context
	ctx    context.Context
	cancel context.CancelFunc

	manager *session.Manager
	events  chan session.ProgressEvent
	stage   *stage

	// Run progress
	shown     int
	total     int
	run       *model.Run
	report    string
	cancelled bool

	// Options
	verbose bool
	archive bool

	width  int
	height int
}

// NewModel creates a new TUI model. A nil settings uses the defaults.
func NewModel(settings *config.Settings) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	ti := textinput.New()
	ti.Placeholder = "experiments/faces.yaml"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan session.ProgressEvent, 256),
		stage:     &stage{},
		verbose:   settings.Verbose,
		archive:   settings.ArchiveExperiment,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForEvent())
}

// Message types
type (
	// ProgressMsg is sent for every session progress event.
	ProgressMsg struct {
		Event session.ProgressEvent
	}

	// InitDoneMsg is sent when the experiment is loaded.
	InitDoneMsg struct {
		Groups  []string
		Manager *session.Manager
		Err     error
	}

	// RunDoneMsg is sent when the run ends and its report is written.
	RunDoneMsg struct {
		Run    *model.Run
		Report string
		Err    error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			switch m.state {
			case StateInput:
				return m, tea.Quit
			case StateLoading, StateReady:
				m.cancel()
				m.state = StateError
				m.err = fmt.Errorf("cancelled by user")
			case StateRunning:
				// The run returns ErrAborted and its partial report is saved.
				m.cancel()
			}
			return m, nil
		}

		switch m.state {
		case StateRunning:
			if m.manager != nil {
				m.manager.Respond(key)
			}
			return m, nil

		case StateInput:
			switch key {
			case "enter":
				if m.textInput.Value() != "" {
					m.state = StateLoading
					return m, tea.Batch(m.initializeSession(), m.spinner.Tick)
				}
			case "ctrl+v":
				m.verbose = !m.verbose
				return m, nil
			case "ctrl+a":
				m.archive = !m.archive
				return m, nil
			}

		case StateReady:
			if key == "enter" || key == "s" {
				m.state = StateRunning
				_, m.total = m.manager.GetProgress()
				return m, tea.Batch(m.startRun(), m.tickProgress())
			}

		case StateComplete, StateError:
			switch key {
			case "q":
				return m, tea.Quit
			case "r":
				m.reset()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		cmds = append(cmds, m.waitForEvent())
		if msg.Event.Level == session.LevelVerbose && !m.verbose {
			return m, tea.Batch(cmds...)
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		// Keep only last 10 logs
		if len(m.logs) > 10 {
			m.logs = m.logs[len(m.logs)-10:]
		}

	case InitDoneMsg:
		if m.state != StateLoading {
			return m, nil
		}
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.groups = msg.Groups
			m.manager = msg.Manager
			m.state = StateReady
		}

	case RunDoneMsg:
		m.run = msg.Run
		m.report = msg.Report
		if m.manager != nil {
			m.shown, m.total = m.manager.GetProgress()
		}
		m.stage.clear()
		switch {
		case errors.Is(msg.Err, session.ErrAborted):
			m.state = StateComplete
			m.cancelled = true
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateRunning {
			m.shown, m.total = m.manager.GetProgress()

			var percent float64
			if m.total > 0 {
				percent = float64(m.shown) / float64(m.total)
			}
			progressCmd := m.progress.SetPercent(percent)
			cmds = append(cmds, progressCmd, m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) reset() {
	m.state = StateInput
	m.logs = nil
	m.groups = nil
	m.err = nil
	m.shown = 0
	m.total = 0
	m.run = nil
	m.report = ""
	m.cancelled = false
	m.manager = nil
	m.stage.clear()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.textInput.SetValue("")
	m.textInput.Focus()
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent delivers the next session progress event.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("Stimulus"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Image presentation experiments"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateLoading:
		b.WriteString(m.viewLoading())
	case StateReady:
		b.WriteString(m.viewReady())
	case StateRunning:
		b.WriteString(m.viewRunning())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Experiment file:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[×]"
	}
	archiveCheck := "[ ]"
	if m.archive {
		archiveCheck = "[×]"
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Archive experiment with results (ctrl+a)\n", archiveCheck))
	b.WriteString(fmt.Sprintf("  %s Verbose/debug output (ctrl+v)\n", verboseCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Results path: %s", m.settings.OutputDir)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewLoading() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Loading experiment..."))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewReady() string {
	var b strings.Builder

	exp := m.manager.Experiment()
	b.WriteString(successStyle.Render(fmt.Sprintf("%s: %d group(s)", exp.Name, len(m.groups))))
	b.WriteString("\n")
	for _, g := range m.groups {
		b.WriteString(groupStyle.Render("  ▪ " + g))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	pres := exp.Presentation
	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Exhibitions: %d | Show: %s | Interval: %s | Seed: %d",
		exp.Config.AmountOfExhibitions, pres.ShowTime, pres.IntervalTime, m.manager.Seed(),
	)))
	b.WriteString("\n")
	if key := pres.InteractionKey; key != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("Responses are recorded for %q", key)))
		b.WriteString("\n")
	}
	if n := m.manager.MissingCount(); n > 0 {
		b.WriteString(warningStyle.Render(fmt.Sprintf("! %d image file(s) could not be read", n)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewRunning() string {
	var b strings.Builder

	content := dimStyle.Render("+")
	if ex, missing := m.stage.get(); ex != nil {
		name := ex.Image.Name()
		if missing {
			name = warningStyle.Render(name + " (missing)")
		}
		content = groupStyle.Render(ex.Group.Name) + "\n\n" + name
	}
	b.WriteString(stageStyle.Render(content))
	b.WriteString("\n\n")

	var percent float64
	if m.total > 0 {
		percent = float64(m.shown) / float64(m.total)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Exhibitions: %d/%d", m.shown, m.total)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	responses := 0
	if m.run != nil {
		responses = len(m.run.Responses())
	}

	if m.cancelled {
		b.WriteString(dimStyle.Render(fmt.Sprintf("Run cancelled after %d/%d exhibitions.", m.shown, m.total)))
		b.WriteString("\n")
		if m.report != "" {
			b.WriteString(dimStyle.Render(fmt.Sprintf("Partial report: %s", m.report)))
			b.WriteString("\n")
		}
		return b.String()
	}

	box := boxStyle.Render(fmt.Sprintf(
		"✨ Run Complete!\n\n"+
			"Exhibitions: %d\n"+
			"Responses: %d\n"+
			"Report: %s",
		m.shown,
		responses,
		m.report,
	))
	b.WriteString(box)

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	if m.report != "" {
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("Partial report: %s", m.report)))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case session.LevelError:
			style = errorStyle
			prefix = "✗"
		case session.LevelWarning:
			style = warningStyle
			prefix = "!"
		case session.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case session.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: load • ctrl+a: archive • ctrl+v: verbose • esc: quit"
	case StateLoading:
		return "esc: cancel"
	case StateReady:
		return "enter: start • esc: cancel"
	case StateRunning:
		return "any key: respond • esc: abort"
	case StateComplete, StateError:
		return "r: new run • q: quit"
	}
	return ""
}

// initializeSession loads the experiment and creates the manager.
func (m *Model) initializeSession() tea.Cmd {
	path := strings.TrimSpace(m.textInput.Value())
	settings := *m.settings
	settings.Verbose = m.verbose
	settings.ArchiveExperiment = m.archive
	ctx := m.ctx
	events := m.events

	return func() tea.Msg {
		manager := session.NewManager(&settings, func(event session.ProgressEvent) {
			// Drop events rather than stall the run when the UI falls behind.
			select {
			case events <- event:
			default:
			}
		})

		if err := manager.Initialize(ctx, path); err != nil {
			return InitDoneMsg{Err: err}
		}

		return InitDoneMsg{
			Groups:  manager.GetGroupNames(),
			Manager: manager,
		}
	}
}

// startRun presents the experiment in background and saves its report,
// including the partial report of an aborted run.
func (m *Model) startRun() tea.Cmd {
	manager := m.manager
	ctx := m.ctx
	presenter := m.stage.presenter()

	return func() tea.Msg {
		if manager == nil {
			return RunDoneMsg{Err: fmt.Errorf("no session")}
		}

		run, err := manager.Run(ctx, presenter)
		if run == nil {
			return RunDoneMsg{Err: err}
		}

		// The run context may be cancelled already; the report is still due.
		report, serr := manager.SaveReport(context.Background())
		if err == nil {
			err = serr
		}
		return RunDoneMsg{Run: run, Report: report, Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
