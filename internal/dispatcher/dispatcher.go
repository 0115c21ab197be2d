// Package dispatcher applies interpreted actions to the session state
// machine. It is the second validation line: everything the model produced
// is re-checked against the catalog and the session bounds before any state
// changes, so a hallucinated answer value or question number dies here.
package dispatcher

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/sunwoolee/simvoice/internal/action"
	"github.com/sunwoolee/simvoice/internal/bus"
	"github.com/sunwoolee/simvoice/internal/catalog"
	"github.com/sunwoolee/simvoice/internal/session"
	"github.com/sunwoolee/simvoice/internal/tts"
)

// Dispatcher routes actions onto session operations and turns the outcome
// into spoken Korean feedback.
type Dispatcher struct {
	session *session.Session
	catalog *catalog.Catalog
	speaker tts.Speaker
	bus     *bus.Bus
}

// New creates a Dispatcher. The bus may be nil in tests; events are then
// skipped.
func New(s *session.Session, c *catalog.Catalog, sp tts.Speaker, b *bus.Bus) *Dispatcher {
	return &Dispatcher{session: s, catalog: c, speaker: sp, bus: b}
}

// Dispatch executes one action and returns the feedback lines it produced.
// A multiple action applies its sub-actions in order and short-circuits on
// the first failure; feedback accumulated before the failure is still
// returned. State is never touched by a rejected action.
func (d *Dispatcher) Dispatch(ctx context.Context, act action.Action) ([]string, error) {
	if act.Kind == action.KindMultiple {
		var out []string
		for _, sub := range act.Actions {
			lines, err := d.dispatchOne(ctx, sub)
			out = append(out, lines...)
			if err != nil {
				d.publish(bus.EvtCommandError, err.Error(), nil)
				return out, err
			}
		}
		return out, nil
	}

	lines, err := d.dispatchOne(ctx, act)
	if err != nil {
		d.publish(bus.EvtCommandError, err.Error(), nil)
	}
	return lines, err
}

func (d *Dispatcher) dispatchOne(ctx context.Context, act action.Action) ([]string, error) {
	switch act.Kind {
	case action.KindCheckAnswer:
		return d.checkAnswer(ctx, act.QuestionNum, act.Answer)
	case action.KindNextQuestion:
		pos := d.session.NextQuestion()
		return d.moveTo(ctx, pos, fmt.Sprintf("%d번 문항으로 이동합니다", pos))
	case action.KindPreviousQuestion:
		pos := d.session.PreviousQuestion()
		return d.moveTo(ctx, pos, fmt.Sprintf("%d번 문항으로 이동합니다", pos))
	case action.KindSkipQuestion:
		pos := d.session.NextQuestion()
		return d.moveTo(ctx, pos, fmt.Sprintf("건너뛰고 %d번 문항으로 이동합니다", pos))
	case action.KindGoToQuestion:
		if err := d.session.GoToQuestion(act.QuestionNum); err != nil {
			return nil, fmt.Errorf("dispatcher: %w", err)
		}
		return d.moveTo(ctx, act.QuestionNum, fmt.Sprintf("%d번 문항으로 이동합니다", act.QuestionNum))
	case action.KindGetProgress:
		return d.progress(ctx)
	case action.KindRepeatQuestion:
		return d.repeatQuestion(ctx)
	case action.KindGetAnswer:
		return d.getAnswer(ctx, act.QuestionNum)
	case action.KindGetAllAnswers:
		return d.allAnswers(ctx)
	case action.KindUnknown:
		msg := act.Message
		if msg == "" {
			msg = "명령을 이해하지 못했습니다. 다시 말씀해주세요"
		}
		d.say(ctx, msg)
		return []string{msg}, nil
	default:
		return nil, fmt.Errorf("dispatcher: unsupported action %q", act.Kind)
	}
}

// checkAnswer records an answer after re-validating the question number and
// the answer value against the live choice set.
func (d *Dispatcher) checkAnswer(ctx context.Context, questionNum int, answer string) ([]string, error) {
	q, ok := d.catalog.Lookup(questionNum)
	if !ok {
		return nil, fmt.Errorf("dispatcher: question %d not in catalog", questionNum)
	}
	if !catalog.HasValue(q, answer) {
		return nil, fmt.Errorf("dispatcher: %q is not a choice of question %d", answer, questionNum)
	}
	if err := d.session.SetAnswer(questionNum, answer); err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}

	msg := fmt.Sprintf("%d번 문항에 %s로 답변했습니다", questionNum, answer)
	d.say(ctx, msg)
	d.publish(bus.EvtAnswerSaved, fmt.Sprintf("%d → %s", questionNum, answer), nil)
	out := []string{msg}

	if d.session.IsCompleted() {
		done := "모든 문항에 답변했습니다. 검사가 완료되었습니다"
		d.say(ctx, done)
		d.publish(bus.EvtTestCompleted, "", d.session.Snapshot())
		out = append(out, done)
	}
	return out, nil
}

// moveTo announces the new position and re-reads the question with its
// choices.
func (d *Dispatcher) moveTo(ctx context.Context, pos int, msg string) ([]string, error) {
	d.say(ctx, msg)
	d.publish(bus.EvtNavigation, fmt.Sprintf("→ %d", pos), nil)
	out := []string{msg}
	if q, ok := d.catalog.Lookup(pos); ok {
		spoken := tts.QuestionWithChoices(q)
		d.say(ctx, spoken)
		out = append(out, spoken)
	}
	return out, nil
}

func (d *Dispatcher) progress(ctx context.Context) ([]string, error) {
	snap := d.session.Snapshot()
	remaining := snap.TotalQuestions - snap.AnsweredCount
	msg := fmt.Sprintf("전체 %d개 문항 중 %d개에 답변했습니다. 남은 문항은 %d개, 진행률은 %.0f%%입니다",
		snap.TotalQuestions, snap.AnsweredCount, remaining, snap.Progress)
	d.say(ctx, msg)
	return []string{msg}, nil
}

func (d *Dispatcher) repeatQuestion(ctx context.Context) ([]string, error) {
	pos := d.session.Current()
	q, ok := d.catalog.Lookup(pos)
	if !ok {
		return nil, fmt.Errorf("dispatcher: question %d not in catalog", pos)
	}
	spoken := tts.QuestionWithChoices(q)
	d.say(ctx, spoken)
	return []string{spoken}, nil
}

func (d *Dispatcher) getAnswer(ctx context.Context, questionNum int) ([]string, error) {
	if _, ok := d.catalog.Lookup(questionNum); !ok {
		return nil, fmt.Errorf("dispatcher: question %d not in catalog", questionNum)
	}
	var msg string
	if v, ok := d.session.Answer(questionNum); ok {
		msg = fmt.Sprintf("%d번 문항의 답변은 %s입니다", questionNum, v)
	} else {
		msg = fmt.Sprintf("%d번 문항은 아직 답변하지 않았습니다", questionNum)
	}
	d.say(ctx, msg)
	return []string{msg}, nil
}

func (d *Dispatcher) allAnswers(ctx context.Context) ([]string, error) {
	answers := d.session.Answers()
	if len(answers) == 0 {
		msg := "아직 답변한 문항이 없습니다"
		d.say(ctx, msg)
		return []string{msg}, nil
	}

	nums := make([]int, 0, len(answers))
	for n := range answers {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d번 %s", n, answers[n])
	}
	msg := "지금까지의 답변입니다. " + strings.Join(parts, ", ")
	d.say(ctx, msg)
	return []string{msg}, nil
}

// say speaks one feedback line and mirrors it on the bus. Speech failures
// are logged, not fatal: feedback text still reaches the caller.
func (d *Dispatcher) say(ctx context.Context, msg string) {
	if d.speaker != nil {
		if err := d.speaker.Speak(ctx, msg, tts.Options{}); err != nil {
			log.Printf("[DISPATCH] tts failed: %v", err)
		}
	}
	d.publish(bus.EvtFeedback, msg, nil)
}

func (d *Dispatcher) publish(t bus.EventType, detail string, payload any) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(t, d.session.ID(), detail, payload)
}
