// Package catalog holds the questionnaire items. The set is immutable once
// loaded; the interpreter and dispatcher reference questions by number and
// never copy them into mutable state.
package catalog

import "strings"

// Choice is one selectable option of a question. Value is the canonical
// single-letter code; Label is the Korean display text the user speaks.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question is one questionnaire item. IDs are 1-based and contiguous.
type Question struct {
	ID       int      `json:"id"`
	Text     string   `json:"text"`
	Category string   `json:"category"`
	Choices  []Choice `json:"choices"`
}

// Catalog is an ordered, read-only question bank.
type Catalog struct {
	questions []Question
}

// New returns a Catalog over the built-in question set.
func New() *Catalog {
	return &Catalog{questions: questions}
}

// NewFrom returns a Catalog over qs. Used by tests and future DB loading.
func NewFrom(qs []Question) *Catalog {
	return &Catalog{questions: qs}
}

// Lookup returns the question with the given 1-based number.
func (c *Catalog) Lookup(id int) (Question, bool) {
	for _, q := range c.questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Total returns the number of questions in the bank.
func (c *Catalog) Total() int {
	return len(c.questions)
}

// Categories returns the distinct categories in first-appearance order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range c.questions {
		if !seen[q.Category] {
			seen[q.Category] = true
			out = append(out, q.Category)
		}
	}
	return out
}

// ByCategory returns all questions in the given category, in bank order.
func (c *Catalog) ByCategory(category string) []Question {
	var out []Question
	for _, q := range c.questions {
		if q.Category == category {
			out = append(out, q)
		}
	}
	return out
}

// FormatChoices renders a question's choices as "A: 전혀 그렇지 않다, B: …"
// for inclusion in the model prompt and spoken output.
func FormatChoices(q Question) string {
	parts := make([]string, len(q.Choices))
	for i, ch := range q.Choices {
		parts[i] = ch.Value + ": " + ch.Label
	}
	return strings.Join(parts, ", ")
}

// ChoiceValues returns the bare list of legal choice values, e.g. [A B C D E].
func ChoiceValues(q Question) []string {
	vals := make([]string, len(q.Choices))
	for i, ch := range q.Choices {
		vals[i] = ch.Value
	}
	return vals
}

// LabelMapping renders the label→value table the prompt uses to teach the
// model how to turn a spoken label into its canonical value.
func LabelMapping(q Question) string {
	parts := make([]string, len(q.Choices))
	for i, ch := range q.Choices {
		parts[i] = `"` + ch.Label + `" → ` + ch.Value
	}
	return strings.Join(parts, ", ")
}

// HasValue reports whether v is a legal choice value for q.
func HasValue(q Question, v string) bool {
	for _, ch := range q.Choices {
		if ch.Value == v {
			return true
		}
	}
	return false
}
