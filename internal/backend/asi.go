package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pointer-app/pointer/pkg/models"
)

// Agents lists the registered marketplace agents.
func (c *Client) Agents(ctx context.Context) ([]models.Agent, error) {
	var resp struct {
		Agents []models.Agent `json:"agents"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/asi/agents", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// AgentByID fetches one agent.
func (c *Client) AgentByID(ctx context.Context, id string) (models.Agent, error) {
	var a models.Agent
	err := c.do(ctx, http.MethodGet, "/api/asi/agents/"+url.PathEscape(id), nil, &a)
	return a, err
}

// AddAgent registers an agent and returns it with its assigned ID.
func (c *Client) AddAgent(ctx context.Context, a models.Agent) (models.Agent, error) {
	var resp struct {
		successResponse
		Agent models.Agent `json:"agent"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/asi/agents", a, &resp); err != nil {
		return models.Agent{}, err
	}
	if err := resp.err("add agent"); err != nil {
		return models.Agent{}, err
	}
	return resp.Agent, nil
}

// RemoveAgent deletes an agent by ID.
func (c *Client) RemoveAgent(ctx context.Context, id string) error {
	var resp successResponse
	if err := c.do(ctx, http.MethodDelete, "/api/asi/agents/"+url.PathEscape(id), nil, &resp); err != nil {
		return err
	}
	return resp.err("remove agent")
}

// APIKeys returns the stored marketplace keys.
func (c *Client) APIKeys(ctx context.Context) (models.APIKeys, error) {
	var keys models.APIKeys
	err := c.do(ctx, http.MethodGet, "/api/asi/keys", nil, &keys)
	return keys, err
}

// SetAPIKeys stores the marketplace keys.
func (c *Client) SetAPIKeys(ctx context.Context, keys models.APIKeys) error {
	var resp successResponse
	if err := c.do(ctx, http.MethodPost, "/api/asi/keys", keys, &resp); err != nil {
		return err
	}
	return resp.err("save API keys")
}
