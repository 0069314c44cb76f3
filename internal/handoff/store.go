// Package handoff passes the hotkey context from the main window to an
// overlay running in another process.
package handoff

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pointer-app/pointer/pkg/models"
)

// ErrNoContext is returned by Read when nothing has been handed off.
var ErrNoContext = errors.New("no overlay context")

// FileStore keeps one context in a JSON file. Writes are atomic so a reader
// never sees a half-written payload.
type FileStore struct {
	Path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Write replaces the stored context.
func (s *FileStore) Write(hc models.HotkeyContext) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create handoff directory: %w", err)
	}
	data, err := json.Marshal(hc)
	if err != nil {
		return fmt.Errorf("failed to encode overlay context: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".overlay-context-*")
	if err != nil {
		return fmt.Errorf("failed to create handoff file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write handoff file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write handoff file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("failed to publish handoff file: %w", err)
	}
	return nil
}

// Read returns the stored context or ErrNoContext.
func (s *FileStore) Read() (models.HotkeyContext, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return models.HotkeyContext{}, ErrNoContext
	}
	if err != nil {
		return models.HotkeyContext{}, fmt.Errorf("failed to read handoff file: %w", err)
	}
	var hc models.HotkeyContext
	if err := json.Unmarshal(data, &hc); err != nil {
		return models.HotkeyContext{}, fmt.Errorf("failed to decode handoff file: %w", err)
	}
	return hc, nil
}

// Clear removes the stored context. Clearing an empty store is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear handoff file: %w", err)
	}
	return nil
}
