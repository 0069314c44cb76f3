package host

import (
	"context"
	"sync"

	"github.com/pointer-app/pointer/internal/handoff"
	"github.com/pointer-app/pointer/pkg/models"
)

// ShowOverlayMsg asks the main window to open its embedded overlay. Seq
// identifies the overlay instance.
type ShowOverlayMsg struct {
	Seq int
}

// HideOverlayMsg asks the main window to close overlay Seq.
type HideOverlayMsg struct {
	Seq int
}

// ContextMsg pushes hotkey context into an open overlay. It may arrive after
// the overlay rendered.
type ContextMsg struct {
	Context models.HotkeyContext
}

// Sender delivers a message to a running program, e.g. a wrapped
// (*tea.Program).Send.
type Sender func(msg any)

// Inline hosts the overlay inside the main-window program and pushes the
// context to it as a message.
type Inline struct {
	mu      sync.Mutex
	send    Sender
	pending *models.HotkeyContext
	seq     int
	Launch  Launcher
}

// NewInline returns a host that is not yet attached.
func NewInline() *Inline {
	return &Inline{}
}

// Attach sets the program messages are delivered to.
func (h *Inline) Attach(send Sender) {
	h.mu.Lock()
	h.send = send
	h.mu.Unlock()
}

func (h *Inline) sender() Sender {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.send
}

// ShowOverlay opens a new overlay instance, then pushes the context.
func (h *Inline) ShowOverlay(ctx context.Context, hc models.HotkeyContext) error {
	h.mu.Lock()
	send := h.send
	var seq int
	if send != nil {
		c := hc
		h.pending = &c
		h.seq++
		seq = h.seq
	}
	h.mu.Unlock()
	if send == nil {
		return ErrNotAttached
	}
	send(ShowOverlayMsg{Seq: seq})
	send(ContextMsg{Context: hc})
	return nil
}

// HideOverlay closes the most recently shown overlay.
func (h *Inline) HideOverlay(ctx context.Context) error {
	h.mu.Lock()
	seq := h.seq
	h.mu.Unlock()
	return h.Dismiss(ctx, seq)
}

// Dismiss closes overlay seq. The pending context is only dropped when seq
// is still the latest overlay.
func (h *Inline) Dismiss(ctx context.Context, seq int) error {
	h.mu.Lock()
	if seq == h.seq {
		h.pending = nil
	}
	send := h.send
	h.mu.Unlock()
	if send == nil {
		return ErrNotAttached
	}
	send(HideOverlayMsg{Seq: seq})
	return nil
}

// GetOverlayContext returns the context of the open overlay.
func (h *Inline) GetOverlayContext(ctx context.Context) (models.HotkeyContext, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		return models.HotkeyContext{}, handoff.ErrNoContext
	}
	return *h.pending, nil
}

// OpenURL opens rawURL in the system browser.
func (h *Inline) OpenURL(ctx context.Context, rawURL string) error {
	return OpenBrowser(h.Launch, rawURL)
}
