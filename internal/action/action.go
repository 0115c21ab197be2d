// Package action defines the closed vocabulary of commands the model may
// select, the tool definitions offered to it, and the validation that turns
// an untrusted tool invocation into a typed Action.
package action

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sunwoolee/simvoice/internal/llm"
)

// Kind identifies one action in the closed vocabulary.
type Kind string

const (
	KindCheckAnswer      Kind = "check_answer"
	KindNextQuestion     Kind = "next_question"
	KindPreviousQuestion Kind = "previous_question"
	KindGoToQuestion     Kind = "go_to_question"
	KindSkipQuestion     Kind = "skip_question"
	KindGetProgress      Kind = "get_progress"
	KindRepeatQuestion   Kind = "repeat_question"
	KindGetAnswer        Kind = "get_answer"
	KindGetAllAnswers    Kind = "get_all_answers"
	KindUnknown          Kind = "unknown"
	KindMultiple         Kind = "multiple"
)

// Action is a tagged variant over the schema kinds. Only the fields a kind
// requires are set; it is produced by the interpreter and consumed
// immediately by the dispatcher, never persisted.
type Action struct {
	Kind        Kind     `json:"action"`
	QuestionNum int      `json:"question_num,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	Message     string   `json:"message,omitempty"`
	Actions     []Action `json:"actions,omitempty"` // multiple only
}

// answerMap converts single Korean jamo answers to canonical letters.
var answerMap = map[string]string{
	"가": "A",
	"나": "B",
	"다": "C",
	"라": "D",
	"마": "E",
}

// NormalizeAnswer maps a Korean jamo answer to its canonical letter and
// uppercases everything else. The dispatcher still validates the result
// against the live choice set.
//
// Expectations:
//   - "가".."마" map to "A".."E"
//   - other values are uppercased as given
func NormalizeAnswer(s string) string {
	if v, ok := answerMap[s]; ok {
		return v
	}
	return strings.ToUpper(s)
}

// Tools renders the callable tool definitions offered to the model. The
// check_answer answer enum is bound to the current question's live choice
// values so the model can only name a legal value by schema.
func Tools(choiceValues []string) []llm.Tool {
	vals := make([]any, len(choiceValues))
	for i, v := range choiceValues {
		vals[i] = v
	}
	obj := func(props map[string]any, required []string) map[string]any {
		if required == nil {
			required = []string{}
		}
		return map[string]any{"type": "object", "properties": props, "required": required}
	}
	fn := func(name Kind, desc string, params map[string]any) llm.Tool {
		return llm.Tool{Type: "function", Function: llm.Function{
			Name:        string(name),
			Description: desc,
			Parameters:  params,
		}}
	}
	questionNum := func(desc string) map[string]any {
		return map[string]any{"type": "integer", "description": desc}
	}
	return []llm.Tool{
		fn(KindCheckAnswer, "특정 문항에 답변을 체크합니다", obj(map[string]any{
			"question_num": questionNum("문항 번호 (1부터 시작)"),
			"answer": map[string]any{
				"type":        "string",
				"enum":        vals,
				"description": fmt.Sprintf("답변 (%s 중 하나)", strings.Join(choiceValues, ", ")),
			},
		}, []string{"question_num", "answer"})),
		fn(KindNextQuestion, "다음 문항으로 이동합니다", obj(map[string]any{}, nil)),
		fn(KindPreviousQuestion, "이전 문항으로 이동합니다", obj(map[string]any{}, nil)),
		fn(KindGoToQuestion, "특정 문항 번호로 이동합니다", obj(map[string]any{
			"question_num": questionNum("이동할 문항 번호"),
		}, []string{"question_num"})),
		fn(KindSkipQuestion, "현재 문항을 건너뛰고 다음 문항으로 이동합니다", obj(map[string]any{}, nil)),
		fn(KindGetProgress, "현재 검사 진행 상황을 조회합니다 (완료된 문항 수, 남은 문항 수, 진행률)", obj(map[string]any{}, nil)),
		fn(KindRepeatQuestion, "현재 문항을 다시 읽어줍니다", obj(map[string]any{}, nil)),
		fn(KindGetAnswer, "특정 문항의 답변을 조회합니다", obj(map[string]any{
			"question_num": questionNum("조회할 문항 번호"),
		}, []string{"question_num"})),
		fn(KindGetAllAnswers, "지금까지 답변한 모든 문항을 조회합니다", obj(map[string]any{}, nil)),
	}
}

// callArgs is the argument object shared by all tool kinds.
type callArgs struct {
	QuestionNum int    `json:"question_num"`
	Answer      string `json:"answer"`
}

// FromToolCall revalidates one untrusted tool invocation against the schema
// and returns the typed Action. The answer parameter is normalized here so
// single and multi-action paths behave identically.
//
// Expectations:
//   - Unknown function names are rejected
//   - Malformed argument JSON is rejected
//   - Kinds requiring question_num reject a missing/non-positive value
//   - check_answer additionally rejects an empty answer
func FromToolCall(name string, args string) (Action, error) {
	kind := Kind(name)
	switch kind {
	case KindCheckAnswer, KindNextQuestion, KindPreviousQuestion, KindGoToQuestion,
		KindSkipQuestion, KindGetProgress, KindRepeatQuestion, KindGetAnswer, KindGetAllAnswers:
	default:
		return Action{}, fmt.Errorf("action: unknown tool %q", name)
	}

	var a callArgs
	if strings.TrimSpace(args) != "" {
		if err := json.Unmarshal([]byte(args), &a); err != nil {
			return Action{}, fmt.Errorf("action: parse %s arguments: %w", name, err)
		}
	}

	act := Action{Kind: kind}
	switch kind {
	case KindCheckAnswer:
		if a.QuestionNum <= 0 {
			return Action{}, fmt.Errorf("action: %s missing question_num", name)
		}
		if a.Answer == "" {
			return Action{}, fmt.Errorf("action: %s missing answer", name)
		}
		act.QuestionNum = a.QuestionNum
		act.Answer = NormalizeAnswer(a.Answer)
	case KindGoToQuestion, KindGetAnswer:
		if a.QuestionNum <= 0 {
			return Action{}, fmt.Errorf("action: %s missing question_num", name)
		}
		act.QuestionNum = a.QuestionNum
	}
	return act, nil
}

// Unknown builds the soft-failure action carrying the model's explanation.
func Unknown(message string) Action {
	if strings.TrimSpace(message) == "" {
		message = "명령을 이해하지 못했습니다"
	}
	return Action{Kind: KindUnknown, Message: message}
}

// Multiple wraps sub-actions in invocation order.
func Multiple(actions []Action) Action {
	return Action{
		Kind:    KindMultiple,
		Actions: actions,
		Message: fmt.Sprintf("%d개 명령 실행", len(actions)),
	}
}
