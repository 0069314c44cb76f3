// Package calendar drives the OAuth link between the backend and a calendar
// account: start the flow, open the browser, wait for the backend to see it.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/pointer-app/pointer/internal/backend"
	"github.com/pointer-app/pointer/pkg/models"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 5 * time.Minute
)

var (
	// ErrTimeout means the account was not linked before the poll gave up.
	ErrTimeout = errors.New("timed out waiting for calendar authorization")
	// ErrCancelled means the poll was stopped with Cancel.
	ErrCancelled = errors.New("calendar authorization cancelled")
	// ErrNoCredentials means OAuth client credentials must be saved first.
	ErrNoCredentials = errors.New("calendar OAuth credentials not found")

	errNotLinked = errors.New("calendar not linked yet")
)

// StatusSource reports the link state.
type StatusSource interface {
	CalendarStatus(ctx context.Context) (models.CalendarStatus, error)
}

// API is the subset of the backend client the connector needs.
type API interface {
	StatusSource
	StartCalendarAuth(ctx context.Context) (string, error)
}

// PollTask polls the status endpoint until the account is linked, the task
// is cancelled, or the timeout passes.
type PollTask struct {
	cancel context.CancelFunc
	done   chan struct{}

	status models.CalendarStatus
	err    error
}

// StartPoll begins polling src every interval for at most timeout.
func StartPoll(ctx context.Context, src StatusSource, interval, timeout time.Duration, logger *slog.Logger) *PollTask {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &PollTask{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(p.done)
		defer cancel()

		attempt := 0
		op := func() (models.CalendarStatus, error) {
			attempt++
			st, err := src.CalendarStatus(ctx)
			if err != nil {
				var apiErr *backend.APIError
				if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
					return st, backoff.Permanent(err)
				}
				logger.Debug("calendar status poll failed", "attempt", attempt, "error", err)
				return st, err
			}
			if !st.Connected {
				return st, errNotLinked
			}
			return st, nil
		}

		st, err := backoff.Retry(ctx, op,
			backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
			backoff.WithMaxElapsedTime(timeout),
		)
		switch {
		case err == nil:
			p.status = st
		case ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled):
			p.err = ErrCancelled
		case errors.Is(err, errNotLinked):
			p.err = ErrTimeout
		default:
			p.err = fmt.Errorf("calendar status: %w", err)
		}
		logger.Info("calendar poll finished", "attempts", attempt, "connected", p.status.Connected, "error", p.err)
	}()
	return p
}

// Cancel stops polling. Wait then returns ErrCancelled.
func (p *PollTask) Cancel() {
	p.cancel()
}

// Done is closed when polling stops.
func (p *PollTask) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until polling stops and returns the final status.
func (p *PollTask) Wait() (models.CalendarStatus, error) {
	<-p.done
	return p.status, p.err
}

// Connector runs the whole link flow.
type Connector struct {
	API      API
	OpenURL  func(ctx context.Context, rawURL string) error
	Interval time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Connect starts the OAuth flow, opens the authorization page and returns
// the poll waiting for completion.
func (c *Connector) Connect(ctx context.Context) (*PollTask, error) {
	authURL, err := c.API.StartCalendarAuth(ctx)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || strings.Contains(apiErr.Detail, "not found")) {
			return nil, fmt.Errorf("%w: %s", ErrNoCredentials, apiErr.Detail)
		}
		return nil, fmt.Errorf("failed to start calendar authorization: %w", err)
	}
	if err := c.OpenURL(ctx, authURL); err != nil {
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}
	return StartPoll(ctx, c.API, c.Interval, c.Timeout, c.Logger), nil
}
