package models

import (
	"encoding/json"
	"time"
)

// EventHotkeyPressed is the envelope type the backend sends when the global hotkey fires
const EventHotkeyPressed = "hotkey-pressed"

// SecretMask is what the backend returns in place of a secret value
const SecretMask = "********"

// ConnectionStatus represents the status of the event channel to the backend
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
)

// Envelope wraps every message on the event channel
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Position is a screen coordinate. Some platforms report fractional points.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HotkeyContext is the cursor/selection snapshot captured when the hotkey was pressed
type HotkeyContext struct {
	Position      Position `json:"position"`
	SelectedText  string   `json:"selected_text"`
	HasScreenshot bool     `json:"has_screenshot"`
	Timestamp     float64  `json:"timestamp"` // seconds since epoch, as sent by the backend
}

// ToastKind is the severity of a toast
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
)

// Toast is an ephemeral user notification
type Toast struct {
	ID         string
	Message    string
	Kind       ToastKind
	CreatedAt  time.Time
	Persistent bool // never expires on its own
}

// ContextPart is one structured context entry sent along with an agent message
type ContextPart struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// AgentRequest is the body of POST /api/agent
type AgentRequest struct {
	Message      string        `json:"message"`
	ContextParts []ContextPart `json:"context_parts"`
	SessionID    *string       `json:"session_id"`
}

// AgentResponse is the body returned by POST /api/agent
type AgentResponse struct {
	Response  string         `json:"response"`
	SessionID *string        `json:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// QueryContext is the context block of the legacy process-query call
type QueryContext struct {
	SelectedText  string `json:"selected_text"`
	HasScreenshot bool   `json:"has_screenshot"`
}

// Modes accepted by the legacy process-query call
const (
	QueryModeExecute   = "execute"
	QueryModeKnowledge = "Add to knowledge"
)

// ProcessQueryRequest is the body of POST /api/process-query
type ProcessQueryRequest struct {
	Query    string         `json:"query"`
	Mode     string         `json:"mode"`
	Settings map[string]any `json:"settings"`
	Context  QueryContext   `json:"context"`
}

// ProcessQueryResponse is returned by POST /api/process-query
type ProcessQueryResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

// HotkeyConfig is the global hotkey binding
type HotkeyConfig struct {
	Modifiers []string `json:"modifiers"`
	Key       string   `json:"key"`
}

// Setting is one category-scoped key/value entry
type Setting struct {
	Category    string `json:"category"`
	Key         string `json:"key"`
	Value       string `json:"value"`
	IsSecret    bool   `json:"is_secret"`
	Description string `json:"description,omitempty"`
}

// Agent is an entry in the agent registry
type Agent struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description,omitempty"`
}

// APIKeys holds the marketplace credentials
type APIKeys struct {
	ASIOneKey     string `json:"asi_one_key"`
	AgentverseKey string `json:"agentverse_key"`
}

// CalendarStatus reports whether a calendar account is linked
type CalendarStatus struct {
	Connected bool    `json:"connected"`
	Email     *string `json:"email"`
}

// Document is a knowledge-base entry
type Document struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Source    string  `json:"source"`
	Filename  *string `json:"filename"`
	CreatedAt any     `json:"created_at"`
	Preview   string  `json:"preview"`
}

// SearchMatch is a knowledge-base search hit
type SearchMatch struct {
	Document
	Score float64 `json:"score"`
}

// RAGStats summarizes the knowledge base
type RAGStats struct {
	TotalDocuments int            `json:"total_documents"`
	BySource       map[string]int `json:"by_source"`
	DatabasePath   string         `json:"database_path"`
}

// StorageLocation is one on-disk location owned by the backend
type StorageLocation struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Path        string `json:"path"`
	Description string `json:"description"`
	Exists      bool   `json:"exists"`
	Size        string `json:"size"`
}

// StorageStats summarizes the backend data directory
type StorageStats struct {
	TotalSize     string `json:"total_size"`
	TotalFiles    int    `json:"total_files"`
	DataDirectory string `json:"data_directory"`
}

// HistoryEntry is a finished overlay session kept in the local history store
type HistoryEntry struct {
	ID          string
	Query       string
	Phase       string
	Message     string
	HasContext  bool
	SubmittedAt time.Time
	FinishedAt  time.Time
}
