package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pointer-app/pointer/internal/host"
	"github.com/pointer-app/pointer/internal/overlay"
	"github.com/pointer-app/pointer/pkg/models"
)

// HistoryRecorder receives finished sessions.
type HistoryRecorder interface {
	Record(e models.HistoryEntry) bool
}

// OverlayOptions configures an overlay window.
type OverlayOptions struct {
	Agent    overlay.Agent
	Bridge   host.Bridge
	Recorder HistoryRecorder
	Logger   *slog.Logger

	PhraseInterval time.Duration
	// AutoDismiss closes the overlay this long after a successful answer; 0 keeps it open.
	AutoDismiss time.Duration
	Width       int

	// Context seeds the session; when nil it is pulled from Bridge on Init.
	Context *models.HotkeyContext
	// Embedded overlays live inside the main window and never quit the program.
	Embedded bool
	// ID tags the overlay's hide request; the main window sets it per instance.
	ID int
}

// generations is shared by every overlay so a message issued for one
// instance never matches another.
var generations atomic.Int64

func nextGeneration() int {
	return int(generations.Add(1))
}

// OverlayModel is the bubbletea model of the overlay window.
type OverlayModel struct {
	opts    OverlayOptions
	session *overlay.Session
	input   textinput.Model
	loading *LoadingIndicator

	gen    int
	tick   int
	cancel context.CancelFunc
	notice string
	closed bool
}

// NewOverlayModel creates an idle overlay.
func NewOverlayModel(opts OverlayOptions) OverlayModel {
	if opts.PhraseInterval <= 0 {
		opts.PhraseInterval = overlay.PhraseInterval
	}
	if opts.Width <= 0 {
		opts.Width = 64
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	input := textinput.New()
	input.Placeholder = "Ask anything..."
	input.Prompt = "› "
	input.CharLimit = 2000
	input.Width = opts.Width - 6
	input.Focus()

	return OverlayModel{
		opts:    opts,
		session: overlay.NewSession(opts.Context),
		input:   input,
		loading: NewLoadingIndicator(overlay.PhraseAt(0)),
	}
}

// Session exposes the underlying session.
func (m OverlayModel) Session() *overlay.Session {
	return m.session
}

// ID returns the instance ID set in OverlayOptions.
func (m OverlayModel) ID() int {
	return m.opts.ID
}

// Closed reports whether the overlay was dismissed.
func (m OverlayModel) Closed() bool {
	return m.closed
}

func (m OverlayModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.opts.Context == nil && m.opts.Bridge != nil && !m.opts.Embedded {
		cmds = append(cmds, loadContextCmd(m.opts.Bridge))
	}
	return tea.Batch(cmds...)
}

func (m OverlayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case ContextLoadedMsg:
		if msg.Err != nil {
			if !isNoContext(msg.Err) {
				m.opts.Logger.Warn("failed to load overlay context", "error", msg.Err)
			}
			return m, nil
		}
		m.session.ApplyContext(msg.Context)

	case host.ContextMsg:
		m.session.ApplyContext(msg.Context)

	case PhraseTickMsg:
		if msg.Generation != m.gen || m.session.Phase != overlay.PhaseSubmitting {
			return m, nil
		}
		m.tick++
		m.loading.SetMessage(overlay.PhraseAt(m.tick))
		return m, phraseTickCmd(m.opts.PhraseInterval, m.gen)

	case SpinnerTickMsg:
		if msg.Generation != m.gen || m.session.Phase != overlay.PhaseSubmitting {
			return m, nil
		}
		m.loading.Tick()
		return m, spinnerTickCmd(m.gen)

	case AgentRespondedMsg:
		return m.handleResponse(msg)

	case AutoDismissMsg:
		if msg.Generation == m.gen && m.session.Phase == overlay.PhaseDone {
			return m.dismiss()
		}

	case DismissedMsg:
		if msg.Err != nil {
			m.opts.Logger.Warn("failed to hide overlay", "error", msg.Err)
		}
		if !m.opts.Embedded {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m OverlayModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.closed {
		return m, nil
	}
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		return m.dismiss()
	case tea.KeyEnter:
		return m.submit()
	}

	if m.session.Phase != overlay.PhaseIdle {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.session.SetQuery(m.input.Value())
	m.notice = ""
	return m, cmd
}

func (m OverlayModel) submit() (tea.Model, tea.Cmd) {
	m.session.SetQuery(m.input.Value())
	req, err := m.session.Begin(time.Now())
	if err != nil {
		if errors.Is(err, overlay.ErrEmptyQuery) {
			m.notice = "Type a question first"
		}
		return m, nil
	}

	m.gen = nextGeneration()
	m.tick = 0
	m.loading.SetMessage(overlay.PhraseAt(0))
	m.input.Blur()
	m.notice = ""

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.opts.Logger.Info("submitting overlay query", "has_context", len(req.ContextParts) > 0)
	return m, tea.Batch(
		submitCmd(ctx, m.opts.Agent, req, m.gen),
		phraseTickCmd(m.opts.PhraseInterval, m.gen),
		spinnerTickCmd(m.gen),
	)
}

func (m OverlayModel) handleResponse(msg AgentRespondedMsg) (tea.Model, tea.Cmd) {
	if msg.Generation != m.gen || m.closed || m.session.Phase != overlay.PhaseSubmitting {
		return m, nil
	}
	m.abort()

	now := time.Now()
	if msg.Err != nil {
		_ = m.session.Fail(msg.Err, now)
		m.opts.Logger.Warn("overlay query failed", "error", msg.Err)
	} else {
		_ = m.session.Succeed(msg.Response, now)
	}
	// stale ticks from the submitting generation stop here
	m.gen = nextGeneration()

	if m.opts.Recorder != nil {
		m.opts.Recorder.Record(m.session.Entry())
	}
	if m.session.Phase == overlay.PhaseDone && m.opts.AutoDismiss > 0 {
		return m, autoDismissCmd(m.opts.AutoDismiss, m.gen)
	}
	return m, nil
}

// dismiss closes the overlay from any phase. An in-flight request is aborted.
func (m OverlayModel) dismiss() (tea.Model, tea.Cmd) {
	if m.closed {
		return m, nil
	}
	m.closed = true
	m.gen = nextGeneration()
	m.abort()
	return m, hideCmd(m.opts.Bridge, m.opts.ID)
}

// abort cancels an in-flight request without asking the host for anything.
func (m *OverlayModel) abort() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

var (
	overlayFrame = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	overlayTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	contextStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m OverlayModel) View() string {
	var s strings.Builder
	s.WriteString(overlayTitle.Render("Pointer") + "\n")

	if c := m.session.Context; c != nil && c.SelectedText != "" {
		s.WriteString(contextStyle.Render(truncate("Selected: "+oneLine(c.SelectedText), m.opts.Width-4)) + "\n")
	}
	s.WriteString("\n")

	switch m.session.Phase {
	case overlay.PhaseIdle:
		s.WriteString(m.input.View() + "\n")
		if m.notice != "" {
			s.WriteString(noticeStyle.Render(m.notice) + "\n")
		}
	case overlay.PhaseSubmitting:
		s.WriteString(hintStyle.Render("› "+truncate(m.session.Query, m.opts.Width-8)) + "\n")
		s.WriteString(m.loading.View() + "\n")
	case overlay.PhaseDone:
		s.WriteString(successStyle.Render("✓ ") + wrap(m.session.Result, m.opts.Width-6) + "\n")
	case overlay.PhaseErrored:
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", wrap(m.session.Result, m.opts.Width-6))) + "\n")
	}

	s.WriteString("\n")
	if m.session.Phase == overlay.PhaseIdle {
		s.WriteString(hintStyle.Render("enter: submit • esc: close"))
	} else {
		s.WriteString(hintStyle.Render("esc: close"))
	}
	return overlayFrame.Width(m.opts.Width).Render(s.String())
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxLen int) string {
	if maxLen <= 3 || len([]rune(s)) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}

// wrap wraps text to fit within the specified width
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			if len(line)+1+len(word) > width {
				out = append(out, line)
				line = word
			} else {
				line += " " + word
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// RunOverlay runs a standalone overlay until it is dismissed and returns
// the final session.
func RunOverlay(ctx context.Context, opts OverlayOptions) (*overlay.Session, error) {
	opts.Embedded = false
	p := tea.NewProgram(NewOverlayModel(opts), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return nil, err
	}
	if m, ok := final.(OverlayModel); ok {
		return m.session, nil
	}
	return nil, err
}
