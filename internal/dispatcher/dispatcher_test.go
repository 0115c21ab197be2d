package dispatcher

import (
	"context"
	"strings"
	"testing"

	"github.com/sunwoolee/simvoice/internal/action"
	"github.com/sunwoolee/simvoice/internal/bus"
	"github.com/sunwoolee/simvoice/internal/catalog"
	"github.com/sunwoolee/simvoice/internal/session"
	"github.com/sunwoolee/simvoice/internal/tts"
)

// recorder captures every spoken line.
type recorder struct {
	lines []string
}

func (r *recorder) Speak(ctx context.Context, text string, opts tts.Options) error {
	r.lines = append(r.lines, text)
	return nil
}

func (r *recorder) Stop() {}

func newFixture() (*Dispatcher, *session.Session, *recorder) {
	c := catalog.New()
	s := session.New(c.Total())
	s.Start()
	r := &recorder{}
	return New(s, c, r, bus.New()), s, r
}

func TestDispatch_CheckAnswerSaves(t *testing.T) {
	// A valid answer is recorded and confirmed in the feedback
	d, s, _ := newFixture()
	lines, err := d.Dispatch(context.Background(), action.Action{
		Kind: action.KindCheckAnswer, QuestionNum: 3, Answer: "C",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := s.Answer(3); !ok || v != "C" {
		t.Errorf("answer not saved: %q %v", v, ok)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "3번 문항에 C로") {
		t.Errorf("got %q", lines)
	}
}

func TestDispatch_CheckAnswerRejectsBadValue(t *testing.T) {
	// A value outside the choice set is rejected without touching state
	d, s, _ := newFixture()
	_, err := d.Dispatch(context.Background(), action.Action{
		Kind: action.KindCheckAnswer, QuestionNum: 3, Answer: "Z",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), `"Z"`) {
		t.Errorf("error does not name the value: %v", err)
	}
	if _, ok := s.Answer(3); ok {
		t.Error("state changed despite rejection")
	}
}

func TestDispatch_CheckAnswerRejectsBadQuestion(t *testing.T) {
	// A question number outside the catalog is rejected
	d, _, _ := newFixture()
	_, err := d.Dispatch(context.Background(), action.Action{
		Kind: action.KindCheckAnswer, QuestionNum: 99, Answer: "A",
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDispatch_CheckAnswerRejectedWhenIdle(t *testing.T) {
	// Without an active run the answer is refused
	c := catalog.New()
	s := session.New(c.Total())
	d := New(s, c, &recorder{}, nil)
	_, err := d.Dispatch(context.Background(), action.Action{
		Kind: action.KindCheckAnswer, QuestionNum: 1, Answer: "A",
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDispatch_LastAnswerAnnouncesCompletion(t *testing.T) {
	// Answering the final open question appends the completion message
	d, s, _ := newFixture()
	for n := 1; n < s.Total(); n++ {
		if _, err := d.Dispatch(context.Background(), action.Action{
			Kind: action.KindCheckAnswer, QuestionNum: n, Answer: "A",
		}); err != nil {
			t.Fatalf("question %d: %v", n, err)
		}
	}
	lines, err := d.Dispatch(context.Background(), action.Action{
		Kind: action.KindCheckAnswer, QuestionNum: s.Total(), Answer: "A",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 || !strings.Contains(lines[1], "완료") {
		t.Errorf("got %q", lines)
	}
	if !s.IsCompleted() {
		t.Error("session not completed")
	}
}

func TestDispatch_NextMovesAndReadsQuestion(t *testing.T) {
	// Navigation announces the move and re-reads the question with choices
	d, s, r := newFixture()
	lines, err := d.Dispatch(context.Background(), action.Action{Kind: action.KindNextQuestion})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Current() != 2 {
		t.Errorf("position: got %d, want 2", s.Current())
	}
	if len(lines) != 2 || !strings.Contains(lines[0], "2번 문항으로") || !strings.Contains(lines[1], "선택지는") {
		t.Errorf("got %q", lines)
	}
	if len(r.lines) != 2 {
		t.Errorf("spoken %d lines, want 2", len(r.lines))
	}
}

func TestDispatch_NextClampsAtLastQuestion(t *testing.T) {
	// Advancing past the end stays on the last question without error
	d, s, _ := newFixture()
	if err := s.GoToQuestion(s.Total()); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Dispatch(context.Background(), action.Action{Kind: action.KindNextQuestion}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Current() != s.Total() {
		t.Errorf("position: got %d, want %d", s.Current(), s.Total())
	}
}

func TestDispatch_GoToRejectsOutOfRange(t *testing.T) {
	// An out-of-range jump is an error and the position does not move
	d, s, _ := newFixture()
	_, err := d.Dispatch(context.Background(), action.Action{
		Kind: action.KindGoToQuestion, QuestionNum: 99,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if s.Current() != 1 {
		t.Errorf("position moved to %d", s.Current())
	}
}

func TestDispatch_SkipAdvances(t *testing.T) {
	// Skip moves forward and says so
	d, s, _ := newFixture()
	lines, err := d.Dispatch(context.Background(), action.Action{Kind: action.KindSkipQuestion})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Current() != 2 || !strings.Contains(lines[0], "건너뛰고") {
		t.Errorf("pos=%d lines=%q", s.Current(), lines)
	}
}

func TestDispatch_ProgressReportsCounts(t *testing.T) {
	// Progress names answered, remaining, and the percentage
	d, _, _ := newFixture()
	for n := 1; n <= 3; n++ {
		if _, err := d.Dispatch(context.Background(), action.Action{
			Kind: action.KindCheckAnswer, QuestionNum: n, Answer: "B",
		}); err != nil {
			t.Fatal(err)
		}
	}
	lines, err := d.Dispatch(context.Background(), action.Action{Kind: action.KindGetProgress})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"10개 문항 중 3개", "남은 문항은 7개", "30%"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("missing %q in %q", want, lines[0])
		}
	}
}

func TestDispatch_RepeatReadsCurrentQuestion(t *testing.T) {
	// Repeat re-verbalizes the current question and its choices
	d, s, _ := newFixture()
	if err := s.GoToQuestion(3); err != nil {
		t.Fatal(err)
	}
	lines, err := d.Dispatch(context.Background(), action.Action{Kind: action.KindRepeatQuestion})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(lines[0], "3번 문항") || !strings.Contains(lines[0], "선택지는") {
		t.Errorf("got %q", lines)
	}
}

func TestDispatch_GetAnswerAnsweredAndNot(t *testing.T) {
	// Lookup distinguishes answered from unanswered questions
	d, s, _ := newFixture()
	if err := s.SetAnswer(2, "D"); err != nil {
		t.Fatal(err)
	}
	lines, err := d.Dispatch(context.Background(), action.Action{Kind: action.KindGetAnswer, QuestionNum: 2})
	if err != nil || !strings.Contains(lines[0], "D입니다") {
		t.Errorf("answered: lines=%q err=%v", lines, err)
	}
	lines, err = d.Dispatch(context.Background(), action.Action{Kind: action.KindGetAnswer, QuestionNum: 5})
	if err != nil || !strings.Contains(lines[0], "아직 답변하지 않았습니다") {
		t.Errorf("unanswered: lines=%q err=%v", lines, err)
	}
}

func TestDispatch_GetAnswerRejectsOutOfRange(t *testing.T) {
	// Lookup outside the catalog is an error
	d, _, _ := newFixture()
	if _, err := d.Dispatch(context.Background(), action.Action{
		Kind: action.KindGetAnswer, QuestionNum: 0,
	}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDispatch_AllAnswersSortedByQuestion(t *testing.T) {
	// The full listing is ordered by question number
	d, s, _ := newFixture()
	for _, pair := range []struct {
		n int
		v string
	}{{7, "E"}, {2, "B"}, {5, "C"}} {
		if err := s.SetAnswer(pair.n, pair.v); err != nil {
			t.Fatal(err)
		}
	}
	lines, err := d.Dispatch(context.Background(), action.Action{Kind: action.KindGetAllAnswers})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i2 := strings.Index(lines[0], "2번 B")
	i5 := strings.Index(lines[0], "5번 C")
	i7 := strings.Index(lines[0], "7번 E")
	if i2 == -1 || i5 == -1 || i7 == -1 || !(i2 < i5 && i5 < i7) {
		t.Errorf("got %q", lines[0])
	}
}

func TestDispatch_AllAnswersEmpty(t *testing.T) {
	// With nothing answered the listing says so
	d, _, _ := newFixture()
	lines, err := d.Dispatch(context.Background(), action.Action{Kind: action.KindGetAllAnswers})
	if err != nil || !strings.Contains(lines[0], "아직 답변한 문항이 없습니다") {
		t.Errorf("lines=%q err=%v", lines, err)
	}
}

func TestDispatch_UnknownIsGentleNotError(t *testing.T) {
	// Unknown speaks the model's explanation and succeeds
	d, _, _ := newFixture()
	lines, err := d.Dispatch(context.Background(), action.Action{
		Kind: action.KindUnknown, Message: "무슨 말씀인지 모르겠어요",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lines[0] != "무슨 말씀인지 모르겠어요" {
		t.Errorf("got %q", lines)
	}
}

func TestDispatch_MultipleAppliesInOrder(t *testing.T) {
	// Sub-actions run in order; all feedback is returned
	d, s, _ := newFixture()
	lines, err := d.Dispatch(context.Background(), action.Action{
		Kind: action.KindMultiple,
		Actions: []action.Action{
			{Kind: action.KindCheckAnswer, QuestionNum: 1, Answer: "A"},
			{Kind: action.KindNextQuestion},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Current() != 2 {
		t.Errorf("position: got %d", s.Current())
	}
	if len(lines) < 2 || !strings.Contains(lines[0], "1번 문항에 A로") {
		t.Errorf("got %q", lines)
	}
}

func TestDispatch_MultipleShortCircuitsKeepingFeedback(t *testing.T) {
	// The first failing sub-action stops the rest; prior feedback survives
	d, s, _ := newFixture()
	lines, err := d.Dispatch(context.Background(), action.Action{
		Kind: action.KindMultiple,
		Actions: []action.Action{
			{Kind: action.KindCheckAnswer, QuestionNum: 1, Answer: "A"},
			{Kind: action.KindCheckAnswer, QuestionNum: 2, Answer: "Z"},
			{Kind: action.KindNextQuestion},
		},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "1번 문항에 A로") {
		t.Errorf("got %q", lines)
	}
	if s.Current() != 1 {
		t.Errorf("later sub-action ran: position %d", s.Current())
	}
}

func TestDispatch_UnsupportedKindIsError(t *testing.T) {
	// A kind outside the schema is rejected
	d, _, _ := newFixture()
	if _, err := d.Dispatch(context.Background(), action.Action{Kind: "explode"}); err == nil {
		t.Fatal("expected error")
	}
}
