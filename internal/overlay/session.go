// Package overlay is the request lifecycle of the overlay window: one query,
// one backend call, one terminal message.
package overlay

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pointer-app/pointer/internal/backend"
	"github.com/pointer-app/pointer/pkg/models"
)

// Phase is where a session is in its lifecycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseDone       Phase = "done"
	PhaseErrored    Phase = "errored"
)

var (
	ErrEmptyQuery = errors.New("query is empty")
	ErrInFlight   = errors.New("a query is already in flight")
	ErrTerminal   = errors.New("session already finished")
	ErrNotPending = errors.New("no query in flight")
)

// Agent answers one overlay query.
type Agent interface {
	Agent(ctx context.Context, req models.AgentRequest) (models.AgentResponse, error)
}

// Session is one overlay query lifecycle. It is not safe for concurrent use;
// the owning window serializes access.
type Session struct {
	Query     string
	Phase     Phase
	Result    string
	Context   *models.HotkeyContext
	SessionID *string

	SubmittedAt time.Time
	FinishedAt  time.Time
}

// NewSession returns an idle session, optionally seeded with context.
func NewSession(hc *models.HotkeyContext) *Session {
	s := &Session{Phase: PhaseIdle}
	if hc != nil {
		s.ApplyContext(*hc)
	}
	return s
}

// Terminal reports whether the session reached done or errored.
func (s *Session) Terminal() bool {
	return s.Phase == PhaseDone || s.Phase == PhaseErrored
}

// SetQuery replaces the query text. Input is frozen outside idle.
func (s *Session) SetQuery(q string) bool {
	if s.Phase != PhaseIdle {
		return false
	}
	s.Query = q
	return true
}

// ApplyContext installs context that may arrive after the window rendered.
// The typed query is left untouched.
func (s *Session) ApplyContext(hc models.HotkeyContext) {
	c := hc
	s.Context = &c
}

// Begin moves idle to submitting and returns the request to send.
func (s *Session) Begin(now time.Time) (models.AgentRequest, error) {
	switch s.Phase {
	case PhaseSubmitting:
		return models.AgentRequest{}, ErrInFlight
	case PhaseDone, PhaseErrored:
		return models.AgentRequest{}, ErrTerminal
	}
	if strings.TrimSpace(s.Query) == "" {
		return models.AgentRequest{}, ErrEmptyQuery
	}
	s.Phase = PhaseSubmitting
	s.SubmittedAt = now
	return BuildRequest(s.Query, s.Context, s.SessionID), nil
}

// Succeed records the backend's answer.
func (s *Session) Succeed(resp models.AgentResponse, now time.Time) error {
	if s.Phase != PhaseSubmitting {
		return ErrNotPending
	}
	s.Phase = PhaseDone
	s.Result = resp.Response
	if resp.SessionID != nil {
		s.SessionID = resp.SessionID
	}
	s.FinishedAt = now
	return nil
}

// Fail records a failed call with a message fit for the user.
func (s *Session) Fail(err error, now time.Time) error {
	if s.Phase != PhaseSubmitting {
		return ErrNotPending
	}
	s.Phase = PhaseErrored
	s.Result = ErrorMessage(err)
	s.FinishedAt = now
	return nil
}

// Submit runs the whole lifecycle synchronously against agent.
func (s *Session) Submit(ctx context.Context, agent Agent) error {
	req, err := s.Begin(time.Now())
	if err != nil {
		return err
	}
	resp, err := agent.Agent(ctx, req)
	if err != nil {
		return s.Fail(err, time.Now())
	}
	return s.Succeed(resp, time.Now())
}

// Entry converts a finished session into a history row.
func (s *Session) Entry() models.HistoryEntry {
	return models.HistoryEntry{
		Query:       s.Query,
		Phase:       string(s.Phase),
		Message:     s.Result,
		HasContext:  s.Context != nil && s.Context.SelectedText != "",
		SubmittedAt: s.SubmittedAt,
		FinishedAt:  s.FinishedAt,
	}
}

// BuildRequest assembles the agent payload. Non-empty selected text becomes
// the single context part; otherwise context_parts is null.
func BuildRequest(query string, hc *models.HotkeyContext, sessionID *string) models.AgentRequest {
	req := models.AgentRequest{Message: query, SessionID: sessionID}
	if hc != nil && hc.SelectedText != "" {
		req.ContextParts = []models.ContextPart{{
			Type:    "text",
			Content: "Selected text: " + hc.SelectedText,
		}}
	}
	return req
}

// ErrorMessage derives the user-facing text for a failed call: the backend's
// detail when it sent one, the transport error otherwise.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if detail, ok := backend.DetailOf(err); ok {
		return detail
	}
	if errors.Is(err, context.Canceled) {
		return "Request cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Request timed out"
	}
	return err.Error()
}
