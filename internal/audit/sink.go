// Package audit keeps a short, append-only trail of webhook processing
// attempts for operator inspection.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// DefaultCap bounds the trail length. The oldest entries are evicted first.
const DefaultCap = 50

// UnknownOrderID stands in for entries recorded before the payload could be
// decoded far enough to know what order the attempt was about.
const UnknownOrderID = "unknown"

// UnknownStatus stands in for entries recorded before a provider status was
// available.
const UnknownStatus = "unknown"

// Entry is one recorded webhook processing attempt.
type Entry struct {
	OrderID      string          `json:"order_id"`
	Status       string          `json:"status"`
	Success      bool            `json:"success"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Sink stores entries newest first up to a fixed capacity.
type Sink interface {
	Append(ctx context.Context, e Entry) error
	// ReadRecent returns up to n entries, newest first. n <= 0 means the
	// sink capacity.
	ReadRecent(ctx context.Context, n int) ([]Entry, error)
	Clear(ctx context.Context) error
}

// MemorySink is an in-process Sink used by tests and single-node setups.
type MemorySink struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
}

// NewMemorySink builds a MemorySink holding at most cap entries.
func NewMemorySink(cap int) *MemorySink {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &MemorySink{cap: cap}
}

// Append records an entry, evicting the oldest one when full.
func (s *MemorySink) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if len(s.entries) > s.cap {
		s.entries = s.entries[len(s.entries)-s.cap:]
	}
	return nil
}

// ReadRecent returns up to n entries, newest first.
func (s *MemorySink) ReadRecent(_ context.Context, n int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(s.entries) - 1; i >= len(s.entries)-n; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Clear drops every entry.
func (s *MemorySink) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}
