// Package transcript persists the pipeline's event stream. It consumes the
// bus tap, appends one JSONL line per event to transcript.jsonl, and keeps
// the most recent command entries in memory for the history builtin.
//
// All Writer methods are nil-safe so callers never need a nil check when log
// setup failed; the pipeline keeps running without a transcript.
package transcript

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sunwoolee/simvoice/internal/bus"
)

// historyCap bounds the in-memory command history.
const historyCap = 50

// Entry is one remembered user command, newest first in Recent().
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// Writer appends events to a single JSONL file.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	recent []Entry
	done   chan struct{}
}

// New opens (creating if needed) dir/transcript.jsonl in append mode.
// Returns nil on failure; nil is safe to use.
func New(dir string) *Writer {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("[TRANSCRIPT] could not create dir", "dir", dir, "error", err)
		return nil
	}
	path := filepath.Join(dir, "transcript.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("[TRANSCRIPT] could not open file", "path", path, "error", err)
		return nil
	}
	return &Writer{f: f, done: make(chan struct{})}
}

// Record writes one event as a JSONL line and, for received commands, adds
// it to the in-memory history.
func (w *Writer) Record(evt bus.Event) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if evt.Type == bus.EvtCommandReceived {
		entry := Entry{Timestamp: evt.Timestamp, Text: evt.Detail}
		w.recent = append([]Entry{entry}, w.recent...)
		if len(w.recent) > historyCap {
			w.recent = w.recent[:historyCap]
		}
	}

	if w.f == nil {
		return
	}
	line, err := json.Marshal(evt)
	if err != nil {
		slog.Error("[TRANSCRIPT] could not marshal event", "type", evt.Type, "error", err)
		return
	}
	if _, err := w.f.Write(append(line, '\n')); err != nil {
		slog.Error("[TRANSCRIPT] write failed", "error", err)
	}
}

// Consume drains the bus tap until Close is called. Run it in a goroutine.
func (w *Writer) Consume(tap <-chan bus.Event) {
	if w == nil {
		return
	}
	for {
		select {
		case evt := <-tap:
			w.Record(evt)
		case <-w.done:
			return
		}
	}
}

// Recent returns up to n remembered commands, newest first.
func (w *Writer) Recent(n int) []Entry {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if n > len(w.recent) {
		n = len(w.recent)
	}
	out := make([]Entry, n)
	copy(out, w.recent[:n])
	return out
}

// Close stops the consumer and closes the file.
func (w *Writer) Close() {
	if w == nil {
		return
	}
	close(w.done)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
}
