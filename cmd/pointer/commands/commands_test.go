package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointer-app/pointer/pkg/models"
)

func TestParseHotkey(t *testing.T) {
	hk, err := parseHotkey("Cmd+Shift+K")
	require.NoError(t, err)
	assert.Equal(t, []string{"cmd", "shift"}, hk.Modifiers)
	assert.Equal(t, "k", hk.Key)
	assert.Equal(t, "cmd+shift+k", formatHotkey(hk))

	hk, err = parseHotkey("ctrl+ctrl+a")
	require.NoError(t, err)
	assert.Equal(t, []string{"ctrl"}, hk.Modifiers)

	for _, bad := range []string{"k", "shift+", "meta+k", "ctrl+1", "ctrl+kk", ""} {
		_, err := parseHotkey(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateHotkey(t *testing.T) {
	assert.Error(t, validateHotkey(models.HotkeyConfig{Key: "k"}))
	assert.NoError(t, validateHotkey(models.HotkeyConfig{Modifiers: []string{"alt"}, Key: "z"}))
}

func TestValidateAgent(t *testing.T) {
	assert.EqualError(t, validateAgent(models.Agent{Address: "agent1q"}), "agent name is required")
	assert.EqualError(t, validateAgent(models.Agent{Name: "Weather"}), "agent address is required")
	assert.NoError(t, validateAgent(models.Agent{Name: "Weather", Address: "agent1q"}))
}

func TestParseAssignment(t *testing.T) {
	key, value, err := parseAssignment("OPENAI_API_KEY=sk-a=b")
	require.NoError(t, err)
	assert.Equal(t, "OPENAI_API_KEY", key)
	assert.Equal(t, "sk-a=b", value)

	_, _, err = parseAssignment("NOVALUE")
	assert.Error(t, err)
	_, _, err = parseAssignment("=x")
	assert.Error(t, err)
	_, _, err = parseAssignment("BAD KEY=x")
	assert.Error(t, err)
}

func TestValidateCredentials(t *testing.T) {
	assert.NoError(t, validateCredentials(`{"installed":{"client_id":"x"}}`))
	assert.Error(t, validateCredentials(`not json`))
	assert.Error(t, validateCredentials(`{}`))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "(not set)", maskKey(""))
	assert.Equal(t, models.SecretMask, maskKey("abc"))
	assert.Equal(t, models.SecretMask+"6789", maskKey("sk-123456789"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcd...", truncateString("abcdefghij", 7))
}

func TestLegacyRequest(t *testing.T) {
	req, err := legacyRequest("summarize", "Hello world", models.QueryModeKnowledge)
	require.NoError(t, err)
	assert.Equal(t, "Add to knowledge", req.Mode)
	assert.Equal(t, "Hello world", req.Context.SelectedText)
	assert.NotNil(t, req.Settings)

	_, err = legacyRequest("summarize", "", "insert")
	assert.EqualError(t, err, `unknown mode "insert"`)
	_, err = legacyRequest("  ", "", models.QueryModeExecute)
	assert.Error(t, err)
}

// Validation errors come back before any config or network access.
func TestValidationRunsBeforeNetwork(t *testing.T) {
	for _, args := range [][]string{
		{"hotkey", "set", "k"},
		{"agents", "add", "--name", "Weather"},
		{"settings", "set", "general", "NOEQUALS"},
		{"rag", "clear"},
		{"ask", "--legacy", "--mode", "insert", "hi"},
	} {
		root := NewRootCommand()
		root.SetArgs(append(args, "--backend-url", "http://127.0.0.1:1"))
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		assert.Error(t, root.Execute(), args)
	}
}
