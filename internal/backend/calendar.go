package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pointer-app/pointer/pkg/models"
)

// CalendarStatus reports whether a calendar account is linked.
func (c *Client) CalendarStatus(ctx context.Context) (models.CalendarStatus, error) {
	var st models.CalendarStatus
	err := c.do(ctx, http.MethodGet, "/api/calendar/status", nil, &st)
	return st, err
}

// SaveCalendarCredentials uploads the OAuth client JSON.
func (c *Client) SaveCalendarCredentials(ctx context.Context, credentialsJSON string) error {
	body := map[string]string{"credentials": credentialsJSON}
	return c.do(ctx, http.MethodPost, "/api/calendar/credentials", body, nil)
}

// StartCalendarAuth begins the OAuth flow and returns the URL to open.
func (c *Client) StartCalendarAuth(ctx context.Context) (string, error) {
	var resp struct {
		AuthURL string `json:"auth_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/calendar/auth/start", nil, &resp); err != nil {
		return "", err
	}
	if resp.AuthURL == "" {
		return "", fmt.Errorf("%w: missing auth_url", ErrMalformedResponse)
	}
	return resp.AuthURL, nil
}

// DisconnectCalendar unlinks the calendar account.
func (c *Client) DisconnectCalendar(ctx context.Context) error {
	var resp successResponse
	if err := c.do(ctx, http.MethodPost, "/api/calendar/disconnect", nil, &resp); err != nil {
		return err
	}
	return resp.err("disconnect calendar")
}
