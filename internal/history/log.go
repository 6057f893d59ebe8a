// Package history keeps an auditable record of dispatched remote
// commands.
package history

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"loopremote/internal/models"
)

// maxEntries bounds the log; the oldest entries are dropped first
const maxEntries = 200

// Entry records one dispatch attempt and its outcome
type Entry struct {
	ID          string             `json:"id"`
	Kind        models.CommandKind `json:"kind"`
	Description string             `json:"description"`
	Transport   string             `json:"transport"`
	Success     bool               `json:"success"`
	Error       string             `json:"error,omitempty"`
	At          time.Time          `json:"at"`
}

// Log is a bounded, persisted dispatch history
type Log struct {
	mu      sync.Mutex
	path    string
	entries []Entry // Oldest first
	now     func() time.Time
}

// Open loads the history file, starting empty if it does not exist
func Open(path string) (*Log, error) {
	l := &Log{path: path, now: time.Now}

	data, err := os.ReadFile(path) //nolint:gosec // App-controlled path
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &l.entries); err != nil {
		return nil, err
	}

	return l, nil
}

// Record appends a dispatch outcome and persists the log. sendErr nil
// means the command was committed to its transport.
func (l *Log) Record(cmd models.Command, description, transport string, sendErr error) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		ID:          uuid.NewString(),
		Kind:        cmd.Kind,
		Description: description,
		Transport:   transport,
		Success:     sendErr == nil,
		At:          l.now(),
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}

	l.entries = append(l.entries, entry)
	if len(l.entries) > maxEntries {
		l.entries = l.entries[len(l.entries)-maxEntries:]
	}

	return entry, l.saveLocked()
}

// List returns the recorded entries, newest first
func (l *Log) List() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	for i, entry := range l.entries {
		out[len(l.entries)-1-i] = entry
	}
	return out
}

// Clear drops all entries and persists the empty log
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	return l.saveLocked()
}

func (l *Log) saveLocked() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0600)
}
