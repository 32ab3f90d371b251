// Package errlog keeps a bounded, in-memory list of the most recent errors
// reported by any part of a ground station session. Every fetcher and
// consumer records its failures here before retrying, and the display reads
// the tail back for the operator.
package errlog

import (
	"fmt"
	"sync"
	"time"
)

// DefaultCapacity bounds the log to the number of entries the display shows.
const DefaultCapacity = 5

// Entry is a single recorded error.
type Entry struct {
	Time    time.Time
	Message string
}

// String renders the entry the way it appears on the display.
func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
}

// Log is a fixed-capacity FIFO of recent errors. Appends from concurrent
// goroutines are serialized so insertion order is preserved; the oldest entry
// is evicted once the capacity is exceeded.
type Log struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
}

// New returns a Log bounded to capacity entries. A capacity below one falls
// back to DefaultCapacity.
func New(capacity int) *Log {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity}
}

// Record appends a timestamped entry, evicting the oldest when full.
func (l *Log) Record(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Entry{Time: time.Now(), Message: message})
	if len(l.entries) > l.capacity {
		l.entries = l.entries[1:]
	}
}

// Recordf formats and records an entry.
func (l *Log) Recordf(format string, args ...any) {
	l.Record(fmt.Sprintf(format, args...))
}

// Recent returns up to n of the most recent entries, oldest first. The
// returned slice is a copy and safe to use while other goroutines keep
// recording.
func (l *Log) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > len(l.entries) {
		n = len(l.entries)
	}
	if n <= 0 {
		return nil
	}

	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Len returns the current number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
