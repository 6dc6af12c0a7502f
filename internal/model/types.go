package model

// LogEntry represents a single log observation used across the system.
// It is the canonical type for storage, ingestion, and the HTTP API.
// An entry is immutable once persisted; ID is 0 until the store assigns one.
type LogEntry struct {
	ID         int64     `json:"id,omitempty"`
	Source     string    `json:"source"`   // producer class: "client", "server", "file-tailer"
	Category   string    `json:"category"` // producer subsystem tag, e.g. "LogTemp"
	Verbosity  Verbosity `json:"verbosity"`
	Message    string    `json:"message"`
	Timestamp  float64   `json:"timestamp"` // unix seconds, producer clock domain
	Frame      *int64    `json:"frame,omitempty"`
	File       *string   `json:"file,omitempty"`
	Line       *int      `json:"line,omitempty"`
	ReceivedAt float64   `json:"received_at"` // unix seconds, server clock domain
	SessionID  string    `json:"session_id"`
	InstanceID string    `json:"instance_id"`
}

// LogFilter is a query predicate. Every field is optional; absent fields
// (zero values, nil pointers) leave the query unconstrained on that axis,
// and present fields combine with logical AND.
//
// When SessionID is empty and AllSessions is false, queries implicitly
// restrict to the session of the most-recently-received entry in the store.
type LogFilter struct {
	Source       string
	MinVerbosity Verbosity // inclusive: keep verbosity <= MinVerbosity; 0 = any
	Category     string
	Since        *float64 // timestamp >=
	Until        *float64 // timestamp <=
	SessionID    string
	InstanceID   string
	AllSessions  bool
	Limit        int // <= 0 means DefaultQueryLimit
	Offset       int
}

// LogStats is the aggregate view over the store.
type LogStats struct {
	Total          int64            `json:"total"`
	Client         int64            `json:"client"`
	Server         int64            `json:"server"`
	Errors         int64            `json:"errors"` // Fatal + Error
	Warnings       int64            `json:"warnings"`
	ByCategory     map[string]int64 `json:"by_category"` // top 20 by volume
	SessionCount   int64            `json:"session_count"`
	InstanceCount  int64            `json:"instance_count"`
	CurrentSession string           `json:"current_session"`
}

// SessionInfo describes one distinct session_id observed in the store.
type SessionInfo struct {
	SessionID string   `json:"session_id"`
	FirstSeen float64  `json:"first_seen"`
	LastSeen  float64  `json:"last_seen"`
	LogCount  int64    `json:"log_count"`
	Instances []string `json:"instances"`
}

// SourceInfo describes one registered dynamic ingestion source.
type SourceInfo struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	Running bool   `json:"running"`
}
