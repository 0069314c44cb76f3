package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pointer-app/pointer/internal/channel"
	"github.com/pointer-app/pointer/internal/handoff"
	"github.com/pointer-app/pointer/internal/host"
	"github.com/pointer-app/pointer/internal/overlay"
	"github.com/pointer-app/pointer/pkg/models"
)

// Message types. Timer and response messages carry the generation they were
// issued for; the overlay drops any whose generation is stale.
type (
	// AgentRespondedMsg is the result of the overlay's backend call
	AgentRespondedMsg struct {
		Generation int
		Response   models.AgentResponse
		Err        error
	}

	// PhraseTickMsg rotates the loading phrase
	PhraseTickMsg struct {
		Generation int
	}

	// SpinnerTickMsg advances the spinner frame
	SpinnerTickMsg struct {
		Generation int
	}

	// AutoDismissMsg closes a finished overlay
	AutoDismissMsg struct {
		Generation int
	}

	// ContextLoadedMsg is the result of pulling context from the host
	ContextLoadedMsg struct {
		Context models.HotkeyContext
		Err     error
	}

	// DismissedMsg is sent once the host was asked to hide overlay Overlay
	DismissedMsg struct {
		Overlay int
		Err     error
	}

	// ConnectionStateMsg reports a connection manager transition
	ConnectionStateMsg channel.State

	// TickMsg refreshes the main window's toasts
	TickMsg time.Time
)

// submitCmd runs the agent call off the event loop
func submitCmd(ctx context.Context, agent overlay.Agent, req models.AgentRequest, gen int) tea.Cmd {
	return func() tea.Msg {
		resp, err := agent.Agent(ctx, req)
		return AgentRespondedMsg{Generation: gen, Response: resp, Err: err}
	}
}

// loadContextCmd pulls pending context from the host on mount
func loadContextCmd(bridge host.Bridge) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		hc, err := bridge.GetOverlayContext(ctx)
		return ContextLoadedMsg{Context: hc, Err: err}
	}
}

// hideCmd asks the host to hide overlay id. Failures are reported but never
// keep the overlay open.
func hideCmd(bridge host.Bridge, id int) tea.Cmd {
	return func() tea.Msg {
		if bridge == nil {
			return DismissedMsg{Overlay: id}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if d, ok := bridge.(host.Dismisser); ok && id != 0 {
			return DismissedMsg{Overlay: id, Err: d.Dismiss(ctx, id)}
		}
		return DismissedMsg{Overlay: id, Err: bridge.HideOverlay(ctx)}
	}
}

func phraseTickCmd(d time.Duration, gen int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return PhraseTickMsg{Generation: gen}
	})
}

func spinnerTickCmd(gen int) tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return SpinnerTickMsg{Generation: gen}
	})
}

func autoDismissCmd(d time.Duration, gen int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return AutoDismissMsg{Generation: gen}
	})
}

// tickCmd drives toast expiry in the main window
func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func isNoContext(err error) bool {
	return errors.Is(err, handoff.ErrNoContext)
}
