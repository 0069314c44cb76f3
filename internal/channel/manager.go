// Package channel keeps the main window connected to the backend's event
// channel and turns hotkey notifications into overlay requests.
package channel

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pointer-app/pointer/pkg/models"
)

// Notifier receives user-facing notifications.
type Notifier interface {
	Notify(t models.Toast)
}

// State is a snapshot of the connection.
type State struct {
	Status            models.ConnectionStatus
	ReconnectAttempts int
}

// Options configures a Manager. Zero Dialer, Scheduler and Logger fall back
// to gorilla/websocket, time.AfterFunc and slog.Default.
type Options struct {
	URL            string
	InitialDelay   time.Duration
	ReconnectDelay time.Duration
	MaxAttempts    int

	Dialer    Dialer
	Scheduler Scheduler
	Logger    *slog.Logger
	Notifier  Notifier

	// OnHotkey is called for every hotkey-pressed event, in arrival order.
	OnHotkey func(models.HotkeyContext)
	// OnEvent sees every well-formed envelope before it is dispatched.
	OnEvent func(models.Envelope)
	// OnStateChange is called outside the manager lock after every transition.
	OnStateChange func(State)
}

// Manager owns one event channel for the lifetime of the main window.
// Callbacks must not call Close.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	conn      Conn
	connGen   int
	timer     Timer
	exhausted bool
	started   bool
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a manager in the disconnected state. Nothing is dialed until Start.
func New(opts Options) *Manager {
	if opts.Dialer == nil {
		opts.Dialer = WebSocketDialer{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		opts:   opts,
		logger: opts.Logger.With("component", "channel", "url", opts.URL),
		state:  State{Status: models.StatusDisconnected},
		ctx:    context.Background(),
	}
}

// Start schedules the first connection attempt after InitialDelay.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.closed {
		return
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.scheduleLocked(m.opts.InitialDelay)
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reconnect starts a fresh round of attempts once the previous one gave up.
// It reports whether an attempt was scheduled.
func (m *Manager) Reconnect() bool {
	m.mu.Lock()
	if m.closed || !m.started || m.timer != nil || m.state.Status != models.StatusDisconnected {
		m.mu.Unlock()
		return false
	}
	m.state.ReconnectAttempts = 0
	m.exhausted = false
	m.scheduleLocked(0)
	st := m.state
	m.mu.Unlock()

	m.logger.Info("manual reconnect requested")
	m.emit(st)
	return true
}

// Close cancels any pending reconnect and closes the channel with a normal
// closure so the backend does not see an abnormal disconnect.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	conn := m.conn
	m.conn = nil
	m.state = State{Status: models.StatusDisconnected}
	st := m.state
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		err = conn.CloseWithCode(CloseNormal, "client closing")
	}
	m.wg.Wait()
	m.emit(st)
	return err
}

// scheduleLocked arms the single reconnect timer. Callers hold m.mu.
func (m *Manager) scheduleLocked(d time.Duration) bool {
	if m.timer != nil || m.closed {
		return false
	}
	m.timer = m.opts.Scheduler.AfterFunc(d, m.fire)
	return true
}

func (m *Manager) fire() {
	m.mu.Lock()
	m.timer = nil
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.connect()
}

func (m *Manager) connect() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.state.Status = models.StatusConnecting
	st := m.state
	ctx := m.ctx
	m.mu.Unlock()
	m.emit(st)

	conn, err := m.opts.Dialer.DialContext(ctx, m.opts.URL)
	if err != nil {
		m.handleError(err)
		m.handleClose(CloseAbnormal)
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.CloseWithCode(CloseNormal, "client closing")
		return
	}
	m.conn = conn
	m.connGen++
	gen := m.connGen
	m.state = State{Status: models.StatusConnected}
	m.exhausted = false
	st = m.state
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("event channel connected")
	m.emit(st)
	m.notify(models.ToastInfo, "Connected to backend", false)
	go m.readLoop(conn, gen)
}

func (m *Manager) readLoop(conn Conn, gen int) {
	defer m.wg.Done()
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			stale := m.closed || gen != m.connGen
			if !stale {
				m.conn = nil
			}
			m.mu.Unlock()
			if stale {
				return
			}
			code := closeCode(err)
			if code != CloseNormal {
				m.handleError(err)
			}
			m.handleClose(code)
			return
		}
		m.dispatch(data)
	}
}

func (m *Manager) handleError(err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.state.Status = models.StatusDisconnected
	st := m.state
	m.mu.Unlock()

	m.logger.Warn("event channel error", "error", err)
	m.emit(st)
}

// handleClose applies the reconnect policy for a channel that closed with code.
func (m *Manager) handleClose(code int) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.state.Status = models.StatusDisconnected

	var scheduled, giveUp bool
	if code != CloseNormal {
		if m.state.ReconnectAttempts < m.opts.MaxAttempts {
			if m.scheduleLocked(m.opts.ReconnectDelay) {
				m.state.ReconnectAttempts++
				scheduled = true
			}
		} else if !m.exhausted {
			m.exhausted = true
			giveUp = true
		}
	}
	st := m.state
	m.mu.Unlock()

	switch {
	case scheduled:
		m.logger.Info("event channel closed, reconnecting",
			"code", code,
			"attempt", st.ReconnectAttempts,
			"max_attempts", m.opts.MaxAttempts,
			"delay", m.opts.ReconnectDelay)
	case giveUp:
		m.logger.Error("event channel gave up", "code", code, "attempts", st.ReconnectAttempts)
	default:
		m.logger.Info("event channel closed", "code", code)
	}
	m.emit(st)
	if giveUp {
		m.notify(models.ToastError, "Failed to connect to backend", true)
	}
}

// dispatch handles one inbound frame. Malformed frames are dropped.
func (m *Manager) dispatch(data []byte) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		m.logger.Warn("dropping malformed event", "error", err, "bytes", len(data))
		return
	}
	if m.opts.OnEvent != nil {
		m.opts.OnEvent(env)
	}

	switch env.Type {
	case models.EventHotkeyPressed:
		var hc models.HotkeyContext
		if err := json.Unmarshal(env.Data, &hc); err != nil {
			m.logger.Warn("dropping malformed hotkey event", "error", err)
			return
		}
		m.logger.Debug("hotkey pressed", "x", hc.Position.X, "y", hc.Position.Y, "has_selection", hc.SelectedText != "")
		if m.opts.OnHotkey != nil {
			m.opts.OnHotkey(hc)
		}
	default:
		m.logger.Debug("ignoring event", "type", env.Type)
	}
}

func (m *Manager) emit(st State) {
	if m.opts.OnStateChange != nil {
		m.opts.OnStateChange(st)
	}
}

func (m *Manager) notify(kind models.ToastKind, msg string, persistent bool) {
	if m.opts.Notifier != nil {
		m.opts.Notifier.Notify(models.Toast{Kind: kind, Message: msg, Persistent: persistent})
	}
}
