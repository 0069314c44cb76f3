package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/pointer-app/pointer/pkg/models"
)

// GetHotkey returns the current global hotkey.
func (c *Client) GetHotkey(ctx context.Context) (models.HotkeyConfig, error) {
	var hk models.HotkeyConfig
	err := c.do(ctx, http.MethodGet, "/api/hotkey", nil, &hk)
	return hk, err
}

// SetHotkey stores a new global hotkey.
func (c *Client) SetHotkey(ctx context.Context, hk models.HotkeyConfig) error {
	return c.do(ctx, http.MethodPost, "/api/hotkey", hk, nil)
}

// ResetHotkey restores the default hotkey and returns it.
func (c *Client) ResetHotkey(ctx context.Context) (models.HotkeyConfig, error) {
	var resp struct {
		models.HotkeyConfig
		Hotkey *models.HotkeyConfig `json:"hotkey"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/hotkey/reset", nil, &resp); err != nil {
		return models.HotkeyConfig{}, err
	}
	if resp.Hotkey != nil {
		return *resp.Hotkey, nil
	}
	return resp.HotkeyConfig, nil
}

// SettingCategories lists the setting categories.
func (c *Client) SettingCategories(ctx context.Context) ([]string, error) {
	var resp struct {
		Categories []string `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/settings/categories", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// Settings returns every setting in category sorted by key. Secrets come back
// as models.SecretMask unless includeSecrets is set.
func (c *Client) Settings(ctx context.Context, category string, includeSecrets bool) ([]models.Setting, error) {
	path := "/api/settings/" + url.PathEscape(category)
	if includeSecrets {
		path += "?include_secrets=true"
	}
	var resp struct {
		Settings map[string]json.RawMessage `json:"settings"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Setting, 0, len(resp.Settings))
	for key, raw := range resp.Settings {
		s, err := decodeSetting(category, key, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// decodeSetting accepts both a bare value and a {value, is_secret, ...} object.
func decodeSetting(category, key string, raw json.RawMessage) (models.Setting, error) {
	s := models.Setting{Category: category, Key: key}
	var obj struct {
		Value       any    `json:"value"`
		IsSecret    bool   `json:"is_secret"`
		Description string `json:"description"`
	}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return s, fmt.Errorf("%w: setting %s.%s: %v", ErrMalformedResponse, category, key, err)
		}
		s.Value = stringify(obj.Value)
		s.IsSecret = obj.IsSecret
		s.Description = obj.Description
	} else {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return s, fmt.Errorf("%w: setting %s.%s: %v", ErrMalformedResponse, category, key, err)
		}
		s.Value = stringify(v)
	}
	if s.Value == models.SecretMask {
		s.IsSecret = true
	}
	return s, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// Setting fetches a single decrypted value.
func (c *Client) Setting(ctx context.Context, category, key string) (models.Setting, error) {
	var resp struct {
		Value    any `json:"value"`
		Metadata struct {
			IsSecret    bool   `json:"is_secret"`
			Description string `json:"description"`
		} `json:"metadata"`
	}
	path := "/api/settings/" + url.PathEscape(category) + "/" + url.PathEscape(key)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return models.Setting{}, err
	}
	return models.Setting{
		Category:    category,
		Key:         key,
		Value:       stringify(resp.Value),
		IsSecret:    resp.Metadata.IsSecret,
		Description: resp.Metadata.Description,
	}, nil
}

// SetSetting stores one value.
func (c *Client) SetSetting(ctx context.Context, s models.Setting) error {
	var resp successResponse
	if err := c.do(ctx, http.MethodPost, "/api/settings", s, &resp); err != nil {
		return err
	}
	return resp.err("save setting")
}

// DeleteSetting removes one value.
func (c *Client) DeleteSetting(ctx context.Context, category, key string) error {
	var resp successResponse
	path := "/api/settings/" + url.PathEscape(category) + "/" + url.PathEscape(key)
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return err
	}
	return resp.err("delete setting")
}

// ImportSettings loads .env formatted text into category and returns how
// many variables were imported.
func (c *Client) ImportSettings(ctx context.Context, category, envText string) (int, error) {
	body := map[string]string{
		"category": category,
		"content":  envText,
		"env_text": envText,
	}
	var resp struct {
		Count         *int `json:"count"`
		ImportedCount *int `json:"imported_count"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/settings/import", body, &resp); err != nil {
		return 0, err
	}
	switch {
	case resp.ImportedCount != nil:
		return *resp.ImportedCount, nil
	case resp.Count != nil:
		return *resp.Count, nil
	}
	return 0, nil
}

// ExportSettings returns category as .env text.
func (c *Client) ExportSettings(ctx context.Context, category string) (string, error) {
	var resp struct {
		Content string `json:"content"`
		EnvText string `json:"env_text"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/settings/export/"+url.PathEscape(category), nil, &resp); err != nil {
		return "", err
	}
	if resp.EnvText != "" {
		return resp.EnvText, nil
	}
	return resp.Content, nil
}
