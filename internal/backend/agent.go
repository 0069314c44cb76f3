package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pointer-app/pointer/pkg/models"
)

// Agent sends one overlay query to POST /api/agent.
func (c *Client) Agent(ctx context.Context, req models.AgentRequest) (models.AgentResponse, error) {
	var wire struct {
		Response  *string        `json:"response"`
		SessionID *string        `json:"session_id"`
		Metadata  map[string]any `json:"metadata"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/agent", req, &wire); err != nil {
		return models.AgentResponse{}, err
	}
	if wire.Response == nil {
		return models.AgentResponse{}, fmt.Errorf("%w: missing response field", ErrMalformedResponse)
	}
	return models.AgentResponse{
		Response:  *wire.Response,
		SessionID: wire.SessionID,
		Metadata:  wire.Metadata,
	}, nil
}

// ProcessQuery calls the legacy POST /api/process-query endpoint.
func (c *Client) ProcessQuery(ctx context.Context, req models.ProcessQueryRequest) (models.ProcessQueryResponse, error) {
	var resp models.ProcessQueryResponse
	if err := c.do(ctx, http.MethodPost, "/api/process-query", req, &resp); err != nil {
		return models.ProcessQueryResponse{}, err
	}
	if !resp.Success {
		return resp, successResponse{}.err("process query")
	}
	return resp, nil
}

// Health pings GET /api/health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}
