// Package controller wires the main window: event channel in, overlay
// requests and toasts out.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pointer-app/pointer/internal/channel"
	"github.com/pointer-app/pointer/internal/host"
	"github.com/pointer-app/pointer/internal/toast"
	"github.com/pointer-app/pointer/pkg/models"
)

const showOverlayTimeout = 5 * time.Second

// Options configures a MainWindow. Channel.OnHotkey and Channel.Notifier are
// owned by the window and overwritten.
type Options struct {
	Channel channel.Options
	Bridge  host.Bridge
	Toasts  *toast.Queue
	Logger  *slog.Logger
}

// MainWindow owns one connection manager between Mount and Unmount.
type MainWindow struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	manager *channel.Manager
}

// New creates an unmounted main window.
func New(opts Options) *MainWindow {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Toasts == nil {
		opts.Toasts = toast.NewQueue(toast.DefaultTTL)
	}
	return &MainWindow{opts: opts, logger: opts.Logger.With("component", "main-window")}
}

// Toasts returns the notification queue.
func (w *MainWindow) Toasts() *toast.Queue {
	return w.opts.Toasts
}

// Mount builds the connection manager and schedules the first connection.
// Mounting twice is a no-op.
func (w *MainWindow) Mount(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.manager != nil {
		return
	}
	chOpts := w.opts.Channel
	chOpts.OnHotkey = w.handleHotkey
	chOpts.Notifier = w.opts.Toasts
	if chOpts.Logger == nil {
		chOpts.Logger = w.opts.Logger
	}
	w.manager = channel.New(chOpts)
	w.manager.Start(ctx)
}

// Unmount cancels pending reconnects and closes the channel deliberately.
func (w *MainWindow) Unmount() error {
	w.mu.Lock()
	m := w.manager
	w.manager = nil
	w.mu.Unlock()
	if m == nil {
		return nil
	}
	return m.Close()
}

// State returns the connection state, disconnected when unmounted.
func (w *MainWindow) State() channel.State {
	w.mu.Lock()
	m := w.manager
	w.mu.Unlock()
	if m == nil {
		return channel.State{Status: models.StatusDisconnected}
	}
	return m.State()
}

// Reconnect retries after the manager gave up.
func (w *MainWindow) Reconnect() bool {
	w.mu.Lock()
	m := w.manager
	w.mu.Unlock()
	if m == nil {
		return false
	}
	return m.Reconnect()
}

func (w *MainWindow) handleHotkey(hc models.HotkeyContext) {
	ctx, cancel := context.WithTimeout(context.Background(), showOverlayTimeout)
	defer cancel()
	if err := w.opts.Bridge.ShowOverlay(ctx, hc); err != nil {
		w.logger.Error("failed to show overlay", "error", err)
		w.opts.Toasts.Push(models.ToastError, "Failed to show overlay")
	}
}
