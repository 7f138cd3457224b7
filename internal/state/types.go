package state

import "time"

// ToggleEntry is the last confirmed state of a single toggle.
type ToggleEntry struct {
	ID          string    `json:"id"` // kind:identity
	Identity    string    `json:"external_id"`
	Kind        string    `json:"integration"`
	Title       string    `json:"title,omitempty"`
	Enabled     bool      `json:"enabled"` // last server-confirmed value
	LastApplied time.Time `json:"last_applied"`
	Status      string    `json:"status"` // success, failed, superseded
	LastError   string    `json:"last_error,omitempty"`
}

// TransactionChange represents a single toggle interaction within a transaction.
type TransactionChange struct {
	Kind     string `json:"integration"`
	Identity string `json:"external_id"`
	Action   string `json:"action"` // enable, disable
	Title    string `json:"title,omitempty"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

// Transaction represents one interaction or one apply run.
type Transaction struct {
	ID        string              `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	Status    string              `json:"status"` // success, failed, superseded, reverted
	Changes   []TransactionChange `json:"changes"`
}

// State is the snapshot persisted to disk.
type State struct {
	Version string                 `json:"version"`
	LastRun time.Time              `json:"last_run"`
	Toggles map[string]ToggleEntry `json:"toggles"`
	History []Transaction          `json:"history,omitempty"`
}

func NewState() *State {
	return &State{
		Version: "1.0",
		Toggles: make(map[string]ToggleEntry),
	}
}
