package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pointer-app/pointer/internal/backend"
	"github.com/pointer-app/pointer/internal/channel"
	"github.com/pointer-app/pointer/internal/host"
	"github.com/pointer-app/pointer/internal/logging"
	"github.com/pointer-app/pointer/internal/overlay"
	"github.com/pointer-app/pointer/internal/toast"
	"github.com/pointer-app/pointer/pkg/models"
)

type blockingAgent struct {
	requests chan models.AgentRequest
}

func (a *blockingAgent) Agent(ctx context.Context, req models.AgentRequest) (models.AgentResponse, error) {
	if a.requests != nil {
		a.requests <- req
	}
	<-ctx.Done()
	return models.AgentResponse{}, ctx.Err()
}

type fakeBridge struct {
	hidden int
}

func (b *fakeBridge) ShowOverlay(ctx context.Context, hc models.HotkeyContext) error { return nil }
func (b *fakeBridge) HideOverlay(ctx context.Context) error { b.hidden++; return nil }
func (b *fakeBridge) GetOverlayContext(ctx context.Context) (models.HotkeyContext, error) {
	return models.HotkeyContext{SelectedText: "pulled"}, nil
}
func (b *fakeBridge) OpenURL(ctx context.Context, rawURL string) error { return nil }

type fakeRecorder struct {
	entries []models.HistoryEntry
}

func (r *fakeRecorder) Record(e models.HistoryEntry) bool {
	r.entries = append(r.entries, e)
	return true
}

func newOverlay(opts OverlayOptions) OverlayModel {
	if opts.Agent == nil {
		opts.Agent = &blockingAgent{}
	}
	if opts.Bridge == nil {
		opts.Bridge = &fakeBridge{}
	}
	opts.Logger = logging.Discard()
	return NewOverlayModel(opts)
}

func typeText(m OverlayModel, text string) OverlayModel {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(OverlayModel)
}

func press(m OverlayModel, key tea.KeyType) (OverlayModel, tea.Cmd) {
	updated, cmd := m.Update(tea.KeyMsg{Type: key})
	return updated.(OverlayModel), cmd
}

func send(m OverlayModel, msg tea.Msg) (OverlayModel, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(OverlayModel), cmd
}

// TestOverlaySubmitSuccess walks idle -> submitting -> done
func TestOverlaySubmitSuccess(t *testing.T) {
	rec := &fakeRecorder{}
	m := newOverlay(OverlayOptions{
		Recorder: rec,
		Context:  &models.HotkeyContext{SelectedText: "Hello world"},
	})

	m = typeText(m, "add to calendar")
	if m.Session().Query != "add to calendar" {
		t.Fatalf("Query not tracked, got %q", m.Session().Query)
	}

	m, cmd := press(m, tea.KeyEnter)
	if cmd == nil {
		t.Fatal("Submitting should return a command")
	}
	if m.Session().Phase != overlay.PhaseSubmitting {
		t.Fatalf("Expected submitting, got %s", m.Session().Phase)
	}

	m, _ = send(m, AgentRespondedMsg{
		Generation: m.gen,
		Response:   models.AgentResponse{Response: "Event added to your calendar."},
	})
	if m.Session().Phase != overlay.PhaseDone {
		t.Fatalf("Expected done, got %s", m.Session().Phase)
	}
	if !strings.Contains(m.View(), "Event added to your calendar.") {
		t.Error("Result should be rendered")
	}
	if len(rec.entries) != 1 || rec.entries[0].Phase != "done" {
		t.Errorf("Expected one recorded done entry, got %+v", rec.entries)
	}

	// escape closes the window from the terminal phase
	m, cmd = press(m, tea.KeyEsc)
	if !m.Closed() || cmd == nil {
		t.Error("Escape should dismiss a finished overlay")
	}
}

// TestOverlayEmptyQueryRejected checks that whitespace never submits
func TestOverlayEmptyQueryRejected(t *testing.T) {
	m := newOverlay(OverlayOptions{})
	m = typeText(m, "   ")

	m, cmd := press(m, tea.KeyEnter)
	if cmd != nil {
		t.Error("Empty submit should not issue a command")
	}
	if m.Session().Phase != overlay.PhaseIdle {
		t.Errorf("Expected idle, got %s", m.Session().Phase)
	}
	if !strings.Contains(m.View(), "Type a question first") {
		t.Error("Empty submit should show a notice")
	}
}

// TestOverlaySecondSubmitIsNoop checks that only one request is in flight
func TestOverlaySecondSubmitIsNoop(t *testing.T) {
	m := newOverlay(OverlayOptions{})
	m = typeText(m, "hello")
	m, _ = press(m, tea.KeyEnter)
	gen := m.gen

	m, cmd := press(m, tea.KeyEnter)
	if cmd != nil {
		t.Error("Second submit should not issue a command")
	}
	if m.gen != gen {
		t.Error("Second submit should not start a new generation")
	}
}

// TestPhraseRotationStopsOnTerminal checks that ticks are dropped after the answer
func TestPhraseRotationStopsOnTerminal(t *testing.T) {
	m := newOverlay(OverlayOptions{PhraseInterval: time.Second})
	m = typeText(m, "hello")
	m, _ = press(m, tea.KeyEnter)
	gen := m.gen

	if m.loading.Message() != overlay.PhraseAt(0) {
		t.Errorf("Expected first phrase, got %q", m.loading.Message())
	}
	m, cmd := send(m, PhraseTickMsg{Generation: gen})
	if cmd == nil || m.loading.Message() != overlay.PhraseAt(1) {
		t.Fatalf("Tick while submitting should rotate, got %q", m.loading.Message())
	}

	m, _ = send(m, AgentRespondedMsg{Generation: gen, Err: &backend.APIError{StatusCode: 500, Detail: "rate limited"}})
	if m.Session().Phase != overlay.PhaseErrored {
		t.Fatalf("Expected errored, got %s", m.Session().Phase)
	}
	if !strings.Contains(m.View(), "rate limited") {
		t.Error("Backend detail should be shown")
	}

	before := m.loading.Message()
	m, cmd = send(m, PhraseTickMsg{Generation: gen})
	if cmd != nil {
		t.Error("Stale tick must not reschedule")
	}
	if m.loading.Message() != before {
		t.Error("Stale tick must not rotate the phrase")
	}
	_, cmd = send(m, SpinnerTickMsg{Generation: gen})
	if cmd != nil {
		t.Error("Stale spinner tick must not reschedule")
	}
}

// TestEscapeAbortsInFlightRequest checks that dismissal cancels the backend call
func TestEscapeAbortsInFlightRequest(t *testing.T) {
	agent := &blockingAgent{requests: make(chan models.AgentRequest, 1)}
	bridge := &fakeBridge{}
	m := newOverlay(OverlayOptions{Agent: agent, Bridge: bridge})
	m = typeText(m, "slow question")
	m, cmd := press(m, tea.KeyEnter)

	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) == 0 {
		t.Fatalf("Expected a batch of commands, got %T", cmd())
	}
	result := make(chan tea.Msg, 1)
	go func() { result <- batch[0]() }()

	select {
	case req := <-agent.requests:
		if req.Message != "slow question" {
			t.Errorf("Unexpected request %+v", req)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Request was never sent")
	}

	m, cmd = press(m, tea.KeyEsc)
	if !m.Closed() {
		t.Fatal("Escape should close while submitting")
	}

	select {
	case msg := <-result:
		resp := msg.(AgentRespondedMsg)
		if !errors.Is(resp.Err, context.Canceled) {
			t.Errorf("Expected cancellation, got %v", resp.Err)
		}
		// the late response is ignored
		m, _ = send(m, resp)
		if m.Session().Phase != overlay.PhaseSubmitting {
			t.Errorf("Late response should not be applied, phase %s", m.Session().Phase)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("In-flight request was not aborted")
	}

	if _, ok := cmd().(DismissedMsg); !ok {
		t.Error("Dismiss command should report DismissedMsg")
	}
	if bridge.hidden != 1 {
		t.Errorf("Expected one hide call, got %d", bridge.hidden)
	}
}

// TestAutoDismissAfterDone checks the delayed close after success
func TestAutoDismissAfterDone(t *testing.T) {
	m := newOverlay(OverlayOptions{AutoDismiss: 2 * time.Second})
	m = typeText(m, "hi")
	m, _ = press(m, tea.KeyEnter)
	m, cmd := send(m, AgentRespondedMsg{Generation: m.gen, Response: models.AgentResponse{Response: "ok"}})
	if cmd == nil {
		t.Fatal("Done should schedule auto dismiss")
	}

	m, _ = send(m, AutoDismissMsg{Generation: m.gen - 1})
	if m.Closed() {
		t.Error("Stale auto dismiss must be ignored")
	}
	m, _ = send(m, AutoDismissMsg{Generation: m.gen})
	if !m.Closed() {
		t.Error("Auto dismiss should close the overlay")
	}
}

// TestLateContextKeepsQuery checks the push handoff arriving after typing
func TestLateContextKeepsQuery(t *testing.T) {
	m := newOverlay(OverlayOptions{})
	m = typeText(m, "what is this")
	m, _ = send(m, host.ContextMsg{Context: models.HotkeyContext{SelectedText: "Hello world"}})

	if m.Session().Query != "what is this" {
		t.Errorf("Query was lost: %q", m.Session().Query)
	}
	if m.Session().Context == nil || m.Session().Context.SelectedText != "Hello world" {
		t.Error("Context was not applied")
	}
	if !strings.Contains(m.View(), "Selected: Hello world") {
		t.Error("Context should be rendered")
	}
}

// TestPulledContext checks the pull handoff
func TestPulledContext(t *testing.T) {
	m := newOverlay(OverlayOptions{})
	if m.Init() == nil {
		t.Fatal("Init should return commands")
	}
	m, _ = send(m, loadContextCmd(&fakeBridge{})())
	if m.Session().Context == nil || m.Session().Context.SelectedText != "pulled" {
		t.Error("Pulled context was not applied")
	}
}

// TestStandaloneQuitsAfterDismiss checks the popup process exits
func TestStandaloneQuitsAfterDismiss(t *testing.T) {
	m := newOverlay(OverlayOptions{})
	_, cmd := send(m, DismissedMsg{})
	if cmd == nil {
		t.Fatal("Standalone overlay should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}

	m = newOverlay(OverlayOptions{Embedded: true})
	_, cmd = send(m, DismissedMsg{})
	if cmd != nil {
		t.Error("Embedded overlay must not quit the program")
	}
}

type fakeWindow struct {
	state      channel.State
	reconnects int
	toasts     *toast.Queue
}

func (w *fakeWindow) State() channel.State { return w.state }
func (w *fakeWindow) Reconnect() bool { w.reconnects++; return true }
func (w *fakeWindow) Toasts() ToastSource { return w.toasts }

func sendWindow(m WindowModel, msg tea.Msg) (WindowModel, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(WindowModel), cmd
}

// TestWindowEmbedsOverlay checks the inline host message flow
func TestWindowEmbedsOverlay(t *testing.T) {
	win := &fakeWindow{state: channel.State{Status: models.StatusConnected}, toasts: toast.NewQueue(time.Minute)}
	m := NewWindowModel(win, OverlayOptions{Agent: &blockingAgent{}, Logger: logging.Discard()}, 10)

	m, _ = sendWindow(m, host.ShowOverlayMsg{Seq: 1})
	if m.overlay == nil {
		t.Fatal("Overlay should open")
	}
	m, _ = sendWindow(m, host.ContextMsg{Context: models.HotkeyContext{SelectedText: "Hello world"}})
	if m.overlay.Session().Context == nil {
		t.Error("Context should reach the embedded overlay")
	}

	// keys go to the overlay, not the window
	m, _ = sendWindow(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if m.overlay == nil || m.overlay.Session().Query != "q" {
		t.Errorf("Expected query q, got %q", m.overlay.Session().Query)
	}

	m, _ = sendWindow(m, host.HideOverlayMsg{Seq: 1})
	if m.overlay != nil {
		t.Error("Overlay should close")
	}
}

func typeWindow(m WindowModel, text string) WindowModel {
	m, _ = sendWindow(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

// TestWindowNewOverlayIgnoresPreviousResponse checks that a second hotkey
// aborts the first query and its late answer never lands in the new overlay
func TestWindowNewOverlayIgnoresPreviousResponse(t *testing.T) {
	agent := &blockingAgent{requests: make(chan models.AgentRequest, 2)}
	win := &fakeWindow{toasts: toast.NewQueue(time.Minute)}
	m := NewWindowModel(win, OverlayOptions{Agent: agent, Logger: logging.Discard()}, 10)

	m, _ = sendWindow(m, host.ShowOverlayMsg{Seq: 1})
	m = typeWindow(m, "query A")
	m, cmd := sendWindow(m, tea.KeyMsg{Type: tea.KeyEnter})
	genA := m.overlay.gen
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatal("Expected a batch of commands")
	}
	result := make(chan tea.Msg, 1)
	go func() { result <- batch[0]() }()
	<-agent.requests

	m, _ = sendWindow(m, host.ShowOverlayMsg{Seq: 2})
	select {
	case msg := <-result:
		if !errors.Is(msg.(AgentRespondedMsg).Err, context.Canceled) {
			t.Error("First query should be cancelled")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("First query was not aborted")
	}

	m = typeWindow(m, "query B")
	m, _ = sendWindow(m, tea.KeyMsg{Type: tea.KeyEnter})
	genB := m.overlay.gen
	if genA == genB {
		t.Fatalf("Overlays share generation %d", genA)
	}

	m, _ = sendWindow(m, AgentRespondedMsg{Generation: genA, Response: models.AgentResponse{Response: "answer to A"}})
	m, _ = sendWindow(m, PhraseTickMsg{Generation: genA})
	if m.overlay.Session().Phase != overlay.PhaseSubmitting {
		t.Fatalf("Old response was applied: %s %q", m.overlay.Session().Phase, m.overlay.Session().Result)
	}
	if m.overlay.loading.Message() != overlay.PhraseAt(0) {
		t.Error("Old phrase tick rotated the new overlay")
	}

	m, _ = sendWindow(m, AgentRespondedMsg{Generation: genB, Response: models.AgentResponse{Response: "answer to B"}})
	s := m.overlay.Session()
	if s.Query != "query B" || s.Phase != overlay.PhaseDone || s.Result != "answer to B" {
		t.Errorf("Unexpected session %q %s %q", s.Query, s.Phase, s.Result)
	}
}

// TestWindowLateDismissKeepsNewOverlay checks that the hide of a dismissed
// overlay never closes the one opened after it
func TestWindowLateDismissKeepsNewOverlay(t *testing.T) {
	win := &fakeWindow{toasts: toast.NewQueue(time.Minute)}
	inline := host.NewInline()
	var pushed []any
	inline.Attach(func(msg any) { pushed = append(pushed, msg) })
	m := NewWindowModel(win, OverlayOptions{Agent: &blockingAgent{}, Bridge: inline, Logger: logging.Discard()}, 10)

	if err := inline.ShowOverlay(context.Background(), models.HotkeyContext{SelectedText: "first"}); err != nil {
		t.Fatal(err)
	}
	m, _ = sendWindow(m, pushed[0])
	m, hide := sendWindow(m, tea.KeyMsg{Type: tea.KeyEsc})
	if hide == nil {
		t.Fatal("Escape should ask the host to hide")
	}

	// a new hotkey arrives before the hide is processed
	if err := inline.ShowOverlay(context.Background(), models.HotkeyContext{SelectedText: "second"}); err != nil {
		t.Fatal(err)
	}
	m, _ = sendWindow(m, pushed[2])
	m, _ = sendWindow(m, pushed[3])

	dismissed := hide()
	m, _ = sendWindow(m, pushed[len(pushed)-1])
	m, _ = sendWindow(m, dismissed)

	if m.overlay == nil || m.overlay.ID() != 2 {
		t.Fatal("New overlay was closed by the previous overlay's hide")
	}
	if m.overlay.Closed() {
		t.Error("New overlay should still be open")
	}
	hc, err := inline.GetOverlayContext(context.Background())
	if err != nil || hc.SelectedText != "second" {
		t.Errorf("Pending context lost: %v %q", err, hc.SelectedText)
	}
}

// TestWindowKeysAndToasts checks reconnect, quit and toast refresh
func TestWindowKeysAndToasts(t *testing.T) {
	win := &fakeWindow{
		state:  channel.State{Status: models.StatusDisconnected, ReconnectAttempts: 10},
		toasts: toast.NewQueue(time.Minute),
	}
	win.toasts.Notify(models.Toast{Kind: models.ToastError, Message: "Failed to connect to backend", Persistent: true})
	m := NewWindowModel(win, OverlayOptions{}, 10)

	m, cmd := sendWindow(m, TickMsg(time.Now()))
	if cmd == nil {
		t.Error("Tick should reschedule")
	}
	view := m.View()
	if !strings.Contains(view, "Failed to connect to backend") {
		t.Error("Toast should be rendered")
	}
	if !strings.Contains(view, "attempt 10/10") {
		t.Error("Attempts should be rendered")
	}

	m, _ = sendWindow(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if win.reconnects != 1 {
		t.Errorf("Expected one reconnect, got %d", win.reconnects)
	}

	m, _ = sendWindow(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if len(win.toasts.Active(time.Now())) != 0 || strings.Contains(m.View(), "Failed to connect") {
		t.Error("c should clear notifications")
	}

	m, _ = sendWindow(m, ConnectionStateMsg(channel.State{Status: models.StatusConnected}))
	if !strings.Contains(m.View(), "● connected") {
		t.Error("Status should be rendered")
	}

	_, cmd = sendWindow(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

// TestLoadingIndicator checks the phrase and spinner rendering
func TestLoadingIndicator(t *testing.T) {
	l := NewLoadingIndicator("Thinking...")
	first := l.View()
	l.Tick()
	if l.View() == first {
		t.Error("Tick should change the spinner frame")
	}
	l.SetMessage("Almost there...")
	if !strings.Contains(l.View(), "Almost there...") {
		t.Error("Message should be rendered")
	}
}

func TestWrapAndTruncate(t *testing.T) {
	if got := wrap("one two three", 7); got != "one two\nthree" {
		t.Errorf("Unexpected wrap %q", got)
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("Unexpected truncate %q", got)
	}
}
