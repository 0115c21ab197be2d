// Package interpreter turns free-form Korean commands into structured
// Actions via an external model in mandatory tool-calling mode. It is the
// only component that talks to the model; everything it returns has been
// revalidated against the action schema.
package interpreter

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/sunwoolee/simvoice/internal/action"
	"github.com/sunwoolee/simvoice/internal/catalog"
	"github.com/sunwoolee/simvoice/internal/llm"
)

// Context is the read-only state snapshot the interpreter works from. It
// never mutates session state.
type Context struct {
	CurrentQuestion int
	TotalQuestions  int
	AnsweredCount   int
	Progress        float64
}

// ChatClient is the model invocation boundary. *llm.Client satisfies it;
// tests substitute a fake.
type ChatClient interface {
	ChatTools(ctx context.Context, system, user string, tools []llm.Tool) (llm.Reply, error)
}

// Interpreter builds prompts from the current question and parses model
// replies into Actions.
type Interpreter struct {
	llm     ChatClient
	catalog *catalog.Catalog
}

// New creates an Interpreter over the given catalog and model client.
func New(c *catalog.Catalog, client ChatClient) *Interpreter {
	return &Interpreter{llm: client, catalog: c}
}

const systemPromptFormat = `당신은 심리검사 음성 인터페이스 어시스턴트입니다.

**중요: 반드시 제공된 도구(tool)를 호출해야 합니다. 텍스트 응답만 하지 마세요!**

현재 상황:
- 현재 문항 번호: %d번
- 전체 문항 수: %d개
- 답변 완료 문항 수: %d개
- 진행률: %.0f%%
- 현재 문항 질문: "%s"
- 답변 선택지: %s

답변 인식 규칙 (매우 중요!):
1. 사용자가 선택지의 "레이블(텍스트)"로 답하면, 반드시 해당하는 "값(알파벳)"으로 변환하세요:
   %s

2. 사용자가 알파벳으로 답하면 그대로 사용:
   - "A", "B", "C", "D", "E" → 그대로 사용

3. 사용자가 한글 자모로 답하면 변환:
   - "가" → A, "나" → B, "다" → C, "라" → D, "마" → E

4. 문항 번호 처리:
   - 문항 번호 없이 답변만 말하면 → 현재 문항(%d번)
   - "3번 보통" 처럼 문항 번호를 명시하면 → 해당 문항 번호 사용

5. 네비게이션 명령 (문항 이동):
   - "다음", "다음 문항", "넘어가" → next_question 호출
   - "이전", "이전 문항", "뒤로", "돌아가" → previous_question 호출
   - "건너뛰기", "스킵", "패스" → skip_question 호출
   - "3번으로 가", "5번 보여줘" → go_to_question 호출 (question_num 지정)

6. 조회 명령:
   - "진행 상황", "몇 번", "퍼센트", "남은 문항" → get_progress 호출
   - "다시 읽어", "반복", "다시 들려줘" → repeat_question 호출
   - "3번 뭐라고 했어", "5번 답변" → get_answer 호출 (question_num 지정)
   - "전체 답변", "지금까지 답변" → get_all_answers 호출

**필수 규칙:**
- 사용자의 모든 명령은 반드시 위의 도구(tool) 중 하나를 호출해야 합니다.
- 도구를 호출하지 않고 텍스트만 응답하면 안 됩니다.

사용자의 명령을 분석하고 적절한 도구(tool)를 호출하세요.`

// buildSystemPrompt fills the instruction with the live situation: position,
// totals, and the current question's label↔value table so the model can map
// a spoken label to its canonical value.
func buildSystemPrompt(q catalog.Question, ic Context) string {
	return fmt.Sprintf(systemPromptFormat,
		ic.CurrentQuestion,
		ic.TotalQuestions,
		ic.AnsweredCount,
		ic.Progress,
		q.Text,
		catalog.FormatChoices(q),
		catalog.LabelMapping(q),
		ic.CurrentQuestion,
	)
}

// Interpret turns one user command into an Action. Empty input and
// configuration/transport failures are errors; a model reply that carries no
// usable tool call degrades to an unknown action, never an error.
func (i *Interpreter) Interpret(ctx context.Context, text string, ic Context) (action.Action, error) {
	if strings.TrimSpace(text) == "" {
		return action.Action{}, fmt.Errorf("interpreter: empty command")
	}

	q, ok := i.catalog.Lookup(ic.CurrentQuestion)
	if !ok {
		return action.Action{}, fmt.Errorf("interpreter: question %d not in catalog", ic.CurrentQuestion)
	}

	reply, err := i.llm.ChatTools(ctx, buildSystemPrompt(q, ic), text, action.Tools(catalog.ChoiceValues(q)))
	if err != nil {
		return action.Action{}, fmt.Errorf("interpreter: %w", err)
	}

	return i.parseReply(reply), nil
}

// parseReply maps the model reply onto the action schema: several tool calls
// become a multiple action in invocation order, one becomes that action, and
// none triggers the embedded-call recovery before degrading to unknown.
func (i *Interpreter) parseReply(reply llm.Reply) action.Action {
	if len(reply.ToolCalls) >= 2 {
		acts := make([]action.Action, 0, len(reply.ToolCalls))
		for _, tc := range reply.ToolCalls {
			act, err := action.FromToolCall(tc.Function.Name, tc.Function.Arguments)
			if err != nil {
				log.Printf("[INTERP] bad tool call in multi response: %v", err)
				return action.Unknown(reply.Content)
			}
			acts = append(acts, act)
		}
		return action.Multiple(acts)
	}

	if len(reply.ToolCalls) == 1 {
		tc := reply.ToolCalls[0]
		act, err := action.FromToolCall(tc.Function.Name, tc.Function.Arguments)
		if err != nil {
			log.Printf("[INTERP] bad tool call: %v", err)
			return action.Unknown(reply.Content)
		}
		return act
	}

	// No structured invocation. Some models serialize the call into the
	// text instead; try to recover it before giving up.
	if name, args, ok := recoverToolCall(reply.Content); ok {
		act, err := action.FromToolCall(name, args)
		if err != nil {
			log.Printf("[INTERP] embedded tool call recovery failed: %v", err)
			return action.Unknown(reply.Content)
		}
		log.Printf("[INTERP] recovered embedded tool call %s", name)
		return act
	}

	return action.Unknown(reply.Content)
}

// Embedded tool-call serializations seen in the wild:
//
//	[TOOL_CALLScheck_answer{"question_num": 3, "answer": "C"}
//	[TOOL_CALLScheck_answer[ARGS{"question_num": 3, "answer": "C"}
var (
	embeddedCallRe     = regexp.MustCompile(`(?i)\[TOOL_CALLS([a-z_]+)(\{.*?\})`)
	embeddedCallArgsRe = regexp.MustCompile(`(?i)\[TOOL_CALLS([a-z_]+)\[ARGS(\{.*?\})`)
)

// recoverToolCall extracts a function name and its JSON argument object from
// a non-standard text serialization. Returns ok=false when neither pattern
// matches; the caller falls through to unknown.
func recoverToolCall(content string) (name, args string, ok bool) {
	if !strings.Contains(content, "[TOOL_CALLS") {
		return "", "", false
	}
	if m := embeddedCallRe.FindStringSubmatch(content); m != nil {
		return strings.ToLower(m[1]), m[2], true
	}
	if m := embeddedCallArgsRe.FindStringSubmatch(content); m != nil {
		return strings.ToLower(m[1]), m[2], true
	}
	return "", "", false
}
