package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/pointer-app/pointer/pkg/models"
)

// DefaultSearchLimit is the number of matches requested when none is given.
const DefaultSearchLimit = 10

// AddDocument stores text in the knowledge base and returns its ID.
func (c *Client) AddDocument(ctx context.Context, text, source string) (string, error) {
	if source == "" {
		source = "manual"
	}
	body := map[string]string{"text": text, "source": source}
	var resp struct {
		successResponse
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/rag/add", body, &resp); err != nil {
		return "", err
	}
	if err := resp.err("add document"); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UploadDocument sends r as a multipart file named filename.
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/rag/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		successResponse
		ID string `json:"id"`
	}
	if err := c.send(req, &resp); err != nil {
		return "", err
	}
	if err := resp.err("upload document"); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// SearchDocuments runs a similarity search.
func (c *Client) SearchDocuments(ctx context.Context, query string, k int) ([]models.SearchMatch, error) {
	if k <= 0 {
		k = DefaultSearchLimit
	}
	body := map[string]any{"query": query, "k": k}
	var resp struct {
		successResponse
		Matches []models.SearchMatch `json:"matches"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/rag/search", body, &resp); err != nil {
		return nil, err
	}
	if err := resp.err("search"); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// Documents lists stored documents.
func (c *Client) Documents(ctx context.Context, skip, limit int) ([]models.Document, int, error) {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", fmt.Sprint(skip))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	path := "/api/rag/documents"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Total     int               `json:"total"`
		Documents []models.Document `json:"documents"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Documents, resp.Total, nil
}

// DeleteDocument removes one document.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	var resp successResponse
	if err := c.do(ctx, http.MethodDelete, "/api/rag/documents/"+url.PathEscape(id), nil, &resp); err != nil {
		return err
	}
	return resp.err("delete document")
}

// ClearDocuments empties the knowledge base.
func (c *Client) ClearDocuments(ctx context.Context) error {
	var resp successResponse
	if err := c.do(ctx, http.MethodPost, "/api/rag/clear", nil, &resp); err != nil {
		return err
	}
	return resp.err("clear knowledge base")
}

// RAGStats summarizes the knowledge base.
func (c *Client) RAGStats(ctx context.Context) (models.RAGStats, error) {
	var st models.RAGStats
	err := c.do(ctx, http.MethodGet, "/api/rag/stats", nil, &st)
	return st, err
}

// StoragePaths lists the backend's on-disk locations.
func (c *Client) StoragePaths(ctx context.Context) ([]models.StorageLocation, string, error) {
	var resp struct {
		Locations     []models.StorageLocation `json:"locations"`
		DataDirectory string                   `json:"data_directory"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/storage/paths", nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Locations, resp.DataDirectory, nil
}

// StorageStats summarizes the backend data directory.
func (c *Client) StorageStats(ctx context.Context) (models.StorageStats, error) {
	var st models.StorageStats
	err := c.do(ctx, http.MethodGet, "/api/storage/stats", nil, &st)
	return st, err
}
