package mojo

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one message in the conversation log.
type Entry struct {
	ID        string
	Content   string
	IsUser    bool
	Timestamp time.Time
}

// Transcript is the append-only in-memory message log for a session's
// lifetime. Ordering is arrival order; entries are never mutated or removed.
// Nothing is persisted beyond process memory.
type Transcript struct {
	mu      sync.Mutex
	entries []Entry
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append records a message and returns the stored entry.
func (t *Transcript) Append(content string, isUser bool) Entry {
	entry := Entry{
		ID:        uuid.NewString(),
		Content:   content,
		IsUser:    isUser,
		Timestamp: time.Now(),
	}
	t.mu.Lock()
	t.entries = append(t.entries, entry)
	t.mu.Unlock()
	return entry
}

// Entries returns a copy of the log in arrival order.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of logged messages.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
