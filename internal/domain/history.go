package domain

import "time"

// HistoryRecord captures one processed turn.
type HistoryRecord struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Prompt       string    `json:"prompt"`
	Intent       string    `json:"intent"`
	State        TurnState `json:"state"`
	Commands     []string  `json:"commands,omitempty"`
	FilesChanged []string  `json:"files_changed,omitempty"`
	Error        string    `json:"error,omitempty"`
	WorkingDir   string    `json:"working_dir"`
}
