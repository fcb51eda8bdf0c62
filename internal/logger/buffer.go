package logger

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/fx"
)

const defaultBufferSize = 200

// LogEntry is one captured warning or error.
type LogEntry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Logger  string         `json:"logger,omitempty"`
	Message string         `json:"message"`
	Caller  string         `json:"caller,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// LogBuffer keeps the most recent entries in memory. Entries are handed
// to a background worker so logging never waits on readers.
type LogBuffer struct {
	logChan chan LogEntry
	done    chan struct{}

	closeMu sync.RWMutex
	closed  bool

	mu      sync.RWMutex
	entries []LogEntry
	next    int
	full    bool
}

func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = defaultBufferSize
	}
	b := &LogBuffer{
		logChan: make(chan LogEntry, 256),
		done:    make(chan struct{}),
		entries: make([]LogEntry, size),
	}
	go b.process()
	return b
}

// NewLifecycleLogBuffer stops the worker when the app shuts down.
func NewLifecycleLogBuffer(lc fx.Lifecycle) *LogBuffer {
	b := NewLogBuffer(defaultBufferSize)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			b.Close()
			return nil
		},
	})
	return b
}

// Add never blocks. When the worker falls behind, or after Close, the
// entry is dropped.
func (b *LogBuffer) Add(entry LogEntry) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.logChan <- entry:
	default:
		fmt.Fprintln(os.Stderr, "log buffer full, dropping:", entry.Message)
	}
}

func (b *LogBuffer) process() {
	defer close(b.done)
	for entry := range b.logChan {
		b.mu.Lock()
		b.entries[b.next] = entry
		b.next = (b.next + 1) % len(b.entries)
		if b.next == 0 {
			b.full = true
		}
		b.mu.Unlock()
	}
}

// Recent returns up to limit entries, newest first.
func (b *LogBuffer) Recent(limit int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := b.next
	if b.full {
		n = len(b.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]LogEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (b.next - i + len(b.entries)) % len(b.entries)
		out = append(out, b.entries[idx])
	}
	return out
}

// Close stops the worker after it drains queued entries.
func (b *LogBuffer) Close() {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return
	}
	b.closed = true
	close(b.logChan)
	b.closeMu.Unlock()
	<-b.done
}
