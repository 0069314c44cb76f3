package handoff

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointer-app/pointer/pkg/models"
)

func TestRoundTrip(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "state", "overlay-context.json"))

	_, err := s.Read()
	assert.ErrorIs(t, err, ErrNoContext)

	want := models.HotkeyContext{
		Position:      models.Position{X: 5, Y: 9},
		SelectedText:  "Hello world",
		HasScreenshot: true,
		Timestamp:     1712345678.25,
	}
	require.NoError(t, s.Write(want))

	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	entries, err := os.ReadDir(filepath.Dir(s.Path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not linger")

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	_, err = s.Read()
	assert.ErrorIs(t, err, ErrNoContext)
}

func TestReadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := NewFileStore(path).Read()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoContext)
}
