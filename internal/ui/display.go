// Package ui renders the terminal view: a live flow line per pipeline event
// and a bordered question card with CJK-aware alignment.
package ui

import (
	"context"
	"fmt"

	"github.com/sunwoolee/simvoice/internal/bus"
)

// ANSI codes
const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiCyan   = "\033[36m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
	ansiBlue   = "\033[34m"
)

// renderedTypes are the event types the display shows as flow lines.
var renderedTypes = []bus.EventType{
	bus.EvtCommandReceived,
	bus.EvtActionParsed,
	bus.EvtAnswerSaved,
	bus.EvtAnswerRemoved,
	bus.EvtNavigation,
	bus.EvtFeedback,
	bus.EvtCommandError,
	bus.EvtSessionStarted,
	bus.EvtSessionReset,
	bus.EvtTestCompleted,
}

var evtColor = map[bus.EventType]string{
	bus.EvtCommandReceived: ansiCyan,
	bus.EvtActionParsed:    ansiBlue,
	bus.EvtAnswerSaved:     ansiGreen,
	bus.EvtAnswerRemoved:   ansiYellow,
	bus.EvtNavigation:      ansiBlue,
	bus.EvtFeedback:        ansiYellow,
	bus.EvtCommandError:    ansiRed,
	bus.EvtTestCompleted:   ansiGreen,
}

// Display renders an inter-stage flow visualization to stdout. It subscribes
// to every rendered event type and serializes all terminal writes inside Run.
type Display struct {
	events chan bus.Event
}

// New creates a Display.
func New() *Display {
	return &Display{events: make(chan bus.Event, 64)}
}

// Attach subscribes the display to b. Call before Run.
func (d *Display) Attach(b *bus.Bus) {
	for _, t := range renderedTypes {
		ch := b.Subscribe(t)
		go func(ch <-chan bus.Event) {
			for evt := range ch {
				d.events <- evt
			}
		}(ch)
	}
}

// Run prints flow lines until ctx is cancelled. All terminal writes happen
// in this goroutine.
func (d *Display) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-d.events:
			fmt.Println(FlowLine(evt))
		}
	}
}

// FlowLine renders one event as "from ──[label]──► to". Session lifecycle
// events are infrastructure and rendered dim.
func FlowLine(evt bus.Event) string {
	from, to := endpoints(evt.Type)

	label := string(evt.Type)
	if evt.Detail != "" {
		label += ": " + clip(evt.Detail, 50)
	}

	if evt.Type == bus.EvtSessionStarted || evt.Type == bus.EvtSessionReset {
		return fmt.Sprintf("%s  %s ──[%s]──► %s%s", ansiDim, from, label, to, ansiReset)
	}

	color := evtColor[evt.Type]
	if color == "" {
		color = ansiDim
	}
	return fmt.Sprintf("  %s ──[%s%s%s]──► %s", from, color, label, ansiReset, to)
}

func endpoints(t bus.EventType) (from, to string) {
	switch t {
	case bus.EvtCommandReceived:
		return "👤 user", "🧠 interpreter"
	case bus.EvtActionParsed:
		return "🧠 interpreter", "⚙️  dispatcher"
	case bus.EvtAnswerSaved, bus.EvtAnswerRemoved, bus.EvtNavigation, bus.EvtTestCompleted:
		return "⚙️  dispatcher", "📋 session"
	case bus.EvtFeedback:
		return "⚙️  dispatcher", "🔊 tts"
	case bus.EvtCommandError:
		return "⚙️  dispatcher", "👤 user"
	case bus.EvtSessionStarted, bus.EvtSessionReset:
		return "👤 user", "📋 session"
	default:
		return "•", "•"
	}
}

// clip truncates s to at most n characters, appending "…" if trimmed.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
