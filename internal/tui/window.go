package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/pointer-app/pointer/internal/channel"
	"github.com/pointer-app/pointer/internal/controller"
	"github.com/pointer-app/pointer/internal/host"
	"github.com/pointer-app/pointer/pkg/models"
)

// Window is what the main window view needs from its controller.
type Window interface {
	State() channel.State
	Reconnect() bool
	Toasts() ToastSource
}

// ToastSource lists live toasts and accepts new ones.
type ToastSource interface {
	Active(now time.Time) []models.Toast
	Push(kind models.ToastKind, message string) string
	DismissAll()
}

type windowAdapter struct {
	*controller.MainWindow
}

func (w windowAdapter) Toasts() ToastSource {
	return w.MainWindow.Toasts()
}

// WindowModel is the main window: connection status, toasts and, with the
// inline host, the embedded overlay.
type WindowModel struct {
	win         Window
	overlayOpts OverlayOptions
	maxAttempts int

	state   channel.State
	toasts  []models.Toast
	overlay *OverlayModel
	width   int
}

// NewWindowModel creates the main window view.
func NewWindowModel(win Window, overlayOpts OverlayOptions, maxAttempts int) WindowModel {
	overlayOpts.Embedded = true
	return WindowModel{
		win:         win,
		overlayOpts: overlayOpts,
		maxAttempts: maxAttempts,
		state:       win.State(),
	}
}

func (m WindowModel) Init() tea.Cmd {
	return tickCmd()
}

func (m WindowModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case ConnectionStateMsg:
		m.state = channel.State(msg)
		return m, nil

	case TickMsg:
		m.toasts = m.win.Toasts().Active(time.Time(msg))
		m.state = m.win.State()
		return m, tickCmd()

	case host.ShowOverlayMsg:
		// a newer hotkey replaces the open overlay and aborts its request
		if m.overlay != nil {
			m.overlay.abort()
		}
		opts := m.overlayOpts
		opts.ID = msg.Seq
		ov := NewOverlayModel(opts)
		m.overlay = &ov
		return m, ov.Init()

	case host.HideOverlayMsg:
		if m.overlay != nil && m.overlay.ID() == msg.Seq {
			m.overlay = nil
		}
		return m, nil

	case DismissedMsg:
		if m.overlay == nil || m.overlay.ID() != msg.Overlay {
			return m, nil
		}
		return m.forward(msg)

	case tea.KeyMsg:
		if m.overlay != nil {
			return m.forward(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			if m.win.Reconnect() {
				m.win.Toasts().Push(models.ToastInfo, "Reconnecting...")
			}
			return m, nil
		case "c":
			m.win.Toasts().DismissAll()
			m.toasts = nil
			return m, nil
		}
		return m, nil
	}

	if m.overlay != nil {
		return m.forward(msg)
	}
	return m, nil
}

func (m WindowModel) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := m.overlay.Update(msg)
	ov := updated.(OverlayModel)
	m.overlay = &ov
	if _, ok := msg.(DismissedMsg); ok {
		m.overlay = nil
	}
	return m, cmd
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("63")).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func statusDot(status models.ConnectionStatus) string {
	switch status {
	case models.StatusConnected:
		return successStyle.Render("●") + " connected"
	case models.StatusConnecting:
		return noticeStyle.Render("◌") + " connecting"
	default:
		return errorStyle.Render("○") + " disconnected"
	}
}

func toastLine(t models.Toast) string {
	switch t.Kind {
	case models.ToastSuccess:
		return successStyle.Render("✓ " + t.Message)
	case models.ToastError:
		return errorStyle.Render("✗ " + t.Message)
	default:
		return noticeStyle.Render("• " + t.Message)
	}
}

func (m WindowModel) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Pointer") + "\n\n")

	s.WriteString("Backend: " + statusDot(m.state.Status))
	if m.state.ReconnectAttempts > 0 {
		s.WriteString(hintStyle.Render(fmt.Sprintf("  (attempt %d/%d)", m.state.ReconnectAttempts, m.maxAttempts)))
	}
	s.WriteString("\n\n")

	if m.overlay != nil {
		s.WriteString(m.overlay.View() + "\n\n")
	} else if m.state.Status == models.StatusConnected {
		s.WriteString(hintStyle.Render("Waiting for the hotkey...") + "\n\n")
	}

	for _, t := range m.toasts {
		s.WriteString(toastLine(t) + "\n")
	}
	if len(m.toasts) > 0 {
		s.WriteString("\n")
	}

	s.WriteString(footerStyle.Render("r: reconnect • c: clear notifications • q: quit"))
	return s.String()
}

// MainWindowOptions configures RunMainWindow.
type MainWindowOptions struct {
	Controller controller.Options
	Overlay    OverlayOptions
	// Inline, when set, is attached to the program so hotkeys open the
	// overlay inside the main window.
	Inline *host.Inline
}

// RunMainWindow mounts the main window, runs its view until the user quits
// or ctx is done, then unmounts.
func RunMainWindow(ctx context.Context, opts MainWindowOptions) error {
	var running atomic.Bool
	var p *tea.Program
	send := func(msg any) {
		if running.Load() {
			p.Send(msg)
		}
	}

	ctrlOpts := opts.Controller
	userHook := ctrlOpts.Channel.OnStateChange
	ctrlOpts.Channel.OnStateChange = func(s channel.State) {
		if userHook != nil {
			userHook(s)
		}
		send(ConnectionStateMsg(s))
	}
	win := controller.New(ctrlOpts)

	overlayOpts := opts.Overlay
	if opts.Inline != nil {
		overlayOpts.Bridge = opts.Inline
		opts.Inline.Attach(send)
	}
	p = tea.NewProgram(
		NewWindowModel(windowAdapter{win}, overlayOpts, ctrlOpts.Channel.MaxAttempts),
		tea.WithAltScreen(),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	running.Store(true)
	win.Mount(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		running.Store(false)
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		p.Quit()
		return nil
	})

	err := g.Wait()
	if uerr := win.Unmount(); uerr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close event channel: %w", uerr))
	}
	return err
}
