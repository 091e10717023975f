package telemetry

import (
	"sync"
	"time"
)

// DefaultSpan is the retention of every sliding window
const DefaultSpan = time.Hour

// Entry is a timestamped window value
type Entry[T any] struct {
	At    time.Time
	Value T
}

// Window is a self-pruning sequence of timestamped events. Entries older than
// span relative to the latest write are discarded on every Record.
type Window[T any] struct {
	mu      sync.Mutex
	span    time.Duration
	entries []Entry[T]
}

func NewWindow[T any](span time.Duration) *Window[T] {
	return &Window[T]{span: span}
}

// Record appends v and prunes entries not after at-span
func (w *Window[T]) Record(at time.Time, v T) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.entries = append(w.entries, Entry[T]{At: at, Value: v})

	cutoff := at.Add(-w.span)
	keep := w.entries[:0]
	for _, e := range w.entries {
		if e.At.After(cutoff) {
			keep = append(keep, e)
		}
	}
	clear(w.entries[len(keep):])
	w.entries = keep
}

func (w *Window[T]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Entries returns a copy in insertion order
func (w *Window[T]) Entries() []Entry[T] {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Entry[T], len(w.entries))
	copy(out, w.entries)
	return out
}
