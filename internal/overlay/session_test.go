package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointer-app/pointer/internal/backend"
	"github.com/pointer-app/pointer/internal/logging"
	"github.com/pointer-app/pointer/pkg/models"
)

func TestBuildRequestContextParts(t *testing.T) {
	hc := &models.HotkeyContext{SelectedText: "Hello world", HasScreenshot: false}
	req := BuildRequest("summarize", hc, nil)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"message": "summarize",
		"context_parts": [{"type": "text", "content": "Selected text: Hello world"}],
		"session_id": null
	}`, string(raw))

	raw, err = json.Marshal(BuildRequest("summarize", &models.HotkeyContext{}, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"summarize","context_parts":null,"session_id":null}`, string(raw))

	assert.Nil(t, BuildRequest("q", nil, nil).ContextParts)
}

func TestBeginRejectsBlankQueries(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		s := NewSession(nil)
		s.SetQuery(q)
		_, err := s.Begin(time.Now())
		assert.ErrorIs(t, err, ErrEmptyQuery)
		assert.Equal(t, PhaseIdle, s.Phase)
	}
}

func TestBeginWhileSubmittingIsRejected(t *testing.T) {
	s := NewSession(nil)
	s.SetQuery("add lunch tomorrow")
	_, err := s.Begin(time.Now())
	require.NoError(t, err)
	assert.Equal(t, PhaseSubmitting, s.Phase)

	_, err = s.Begin(time.Now())
	assert.ErrorIs(t, err, ErrInFlight)
	assert.False(t, s.SetQuery("changed"), "input is frozen while submitting")
	assert.Equal(t, "add lunch tomorrow", s.Query)
}

func TestTerminalPhasesDoNotReturnToIdle(t *testing.T) {
	s := NewSession(nil)
	s.SetQuery("q")
	_, err := s.Begin(time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Succeed(models.AgentResponse{Response: "ok"}, time.Now()))

	assert.True(t, s.Terminal())
	_, err = s.Begin(time.Now())
	assert.ErrorIs(t, err, ErrTerminal)
	assert.ErrorIs(t, s.Fail(errors.New("late"), time.Now()), ErrNotPending)
	assert.Equal(t, PhaseDone, s.Phase)
}

func TestApplyContextKeepsTypedQuery(t *testing.T) {
	s := NewSession(nil)
	s.SetQuery("what is this")
	s.ApplyContext(models.HotkeyContext{SelectedText: "late arrival"})

	assert.Equal(t, "what is this", s.Query)
	require.NotNil(t, s.Context)
	assert.Equal(t, "late arrival", s.Context.SelectedText)
}

func TestPhraseAtCycles(t *testing.T) {
	n := len(loadingPhrases)
	require.Greater(t, n, 1)
	assert.Equal(t, PhraseAt(0), PhraseAt(n))
	assert.NotEqual(t, PhraseAt(0), PhraseAt(1))
	for i := 0; i < 2*n; i++ {
		assert.NotEmpty(t, PhraseAt(i))
	}
}

func TestPhraseAtNegativeTicks(t *testing.T) {
	n := len(loadingPhrases)
	assert.Equal(t, PhraseAt(n-1), PhraseAt(-1))
	assert.NotPanics(t, func() { PhraseAt(math.MinInt) })
	assert.NotPanics(t, func() { PhraseAt(math.MaxInt) })
}

func newAgentServer(t *testing.T, status int, body string, calls *int32) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/api/agent", r.URL.Path)
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return backend.New(srv.URL, backend.WithLogger(logging.Discard()))
}

func TestSubmitSuccess(t *testing.T) {
	var calls int32
	client := newAgentServer(t, http.StatusOK, `{"response":"Event added to your calendar."}`, &calls)

	s := NewSession(nil)
	s.SetQuery("lunch with Sam on Friday")
	require.NoError(t, s.Submit(context.Background(), client))

	assert.Equal(t, PhaseDone, s.Phase)
	assert.Equal(t, "Event added to your calendar.", s.Result)
	assert.EqualValues(t, 1, calls)

	// a second submit never reaches the backend
	assert.ErrorIs(t, s.Submit(context.Background(), client), ErrTerminal)
	assert.EqualValues(t, 1, calls)
}

func TestSubmitBackendDetail(t *testing.T) {
	var calls int32
	client := newAgentServer(t, http.StatusInternalServerError, `{"detail":"rate limited"}`, &calls)

	s := NewSession(nil)
	s.SetQuery("hi")
	require.NoError(t, s.Submit(context.Background(), client))

	assert.Equal(t, PhaseErrored, s.Phase)
	assert.Contains(t, s.Result, "rate limited")
}

func TestSubmitMalformedResponse(t *testing.T) {
	var calls int32
	client := newAgentServer(t, http.StatusOK, `<html>oops</html>`, &calls)

	s := NewSession(nil)
	s.SetQuery("hi")
	require.NoError(t, s.Submit(context.Background(), client))
	assert.Equal(t, PhaseErrored, s.Phase)
	assert.Contains(t, s.Result, "malformed")
}

func TestSubmitTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := NewSession(nil)
	s.SetQuery("hi")
	require.NoError(t, s.Submit(context.Background(), backend.New(url, backend.WithLogger(logging.Discard()))))
	assert.Equal(t, PhaseErrored, s.Phase)
	assert.NotEmpty(t, s.Result)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", ErrorMessage(nil))
	assert.Equal(t, "rate limited", ErrorMessage(&backend.APIError{StatusCode: 500, Detail: "rate limited"}))
	assert.Equal(t, "Request cancelled", ErrorMessage(context.Canceled))
	assert.Equal(t, "dial tcp: refused", ErrorMessage(errors.New("dial tcp: refused")))
}

func TestEntry(t *testing.T) {
	s := NewSession(&models.HotkeyContext{SelectedText: "x"})
	s.SetQuery("q")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := s.Begin(start)
	require.NoError(t, err)
	require.NoError(t, s.Fail(errors.New("boom"), start.Add(time.Second)))

	e := s.Entry()
	assert.Equal(t, "q", e.Query)
	assert.Equal(t, "errored", e.Phase)
	assert.Equal(t, "boom", e.Message)
	assert.True(t, e.HasContext)
	assert.Equal(t, time.Second, e.FinishedAt.Sub(e.SubmittedAt))
}
