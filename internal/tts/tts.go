// Package tts is the speech-output collaborator boundary. The core hands it
// strings; actual synthesis is pluggable. Console simulates playback with
// log lines, matching the behavior a real backend replaces.
package tts

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/sunwoolee/simvoice/internal/catalog"
)

// Options configures one spoken utterance.
type Options struct {
	Voice    string  // synthesis voice name
	Speed    float64 // 0.25–4.0
	Language string  // BCP-47-ish code, e.g. "ko"
}

// DefaultOptions are used when the caller passes a zero Options.
func DefaultOptions() Options {
	return Options{Voice: "alloy", Speed: 1.0, Language: "ko"}
}

// Speaker accepts text for spoken output and returns when playback is done.
type Speaker interface {
	Speak(ctx context.Context, text string, opts Options) error
	Stop()
}

// Console is the simulation Speaker: playback becomes log lines.
type Console struct{}

// Speak logs the utterance and returns immediately.
func (Console) Speak(ctx context.Context, text string, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if opts == (Options{}) {
		opts = DefaultOptions()
	}
	log.Printf("[TTS] %q (voice=%s speed=%.2f lang=%s)", text, opts.Voice, opts.Speed, opts.Language)
	return nil
}

// Stop halts playback; a no-op for the console simulation.
func (Console) Stop() {
	log.Printf("[TTS] stop")
}

// QuestionText verbalizes a question: "3번 문항. 밤에 잠을 잘 자지 못한다".
func QuestionText(q catalog.Question) string {
	return fmt.Sprintf("%d번 문항. %s", q.ID, q.Text)
}

// ChoicesText verbalizes the choice list: "선택지는 다음과 같습니다. A. …".
func ChoicesText(q catalog.Question) string {
	parts := make([]string, len(q.Choices))
	for i, ch := range q.Choices {
		parts[i] = ch.Value + ". " + ch.Label
	}
	return "선택지는 다음과 같습니다. " + strings.Join(parts, ". ")
}

// QuestionWithChoices verbalizes the question followed by its choices.
func QuestionWithChoices(q catalog.Question) string {
	return QuestionText(q) + ". " + ChoicesText(q)
}
