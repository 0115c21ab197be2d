package catalog

import (
	"strings"
	"testing"
)

func TestLookup_ReturnsQuestionByID(t *testing.T) {
	// Returns the question whose ID matches
	c := New()
	q, ok := c.Lookup(3)
	if !ok {
		t.Fatal("expected question 3 to exist")
	}
	if q.ID != 3 {
		t.Errorf("got ID %d, want 3", q.ID)
	}
	if len(q.Choices) != 5 {
		t.Errorf("got %d choices, want 5", len(q.Choices))
	}
}

func TestLookup_FalseForUnknownID(t *testing.T) {
	// Returns ok=false for an ID outside the bank
	c := New()
	if _, ok := c.Lookup(99); ok {
		t.Error("expected ok=false for question 99")
	}
}

func TestTotal_CountsBuiltinSet(t *testing.T) {
	// Built-in bank has 10 contiguous 1-based items
	c := New()
	if c.Total() != 10 {
		t.Fatalf("got %d, want 10", c.Total())
	}
	for i := 1; i <= c.Total(); i++ {
		if _, ok := c.Lookup(i); !ok {
			t.Errorf("question %d missing", i)
		}
	}
}

func TestCategories_DistinctFirstAppearanceOrder(t *testing.T) {
	// Categories are deduplicated and keep bank order
	c := New()
	got := c.Categories()
	want := []string{"스트레스", "대인관계", "수면", "성격", "감정표현"}
	if len(got) != len(want) {
		t.Fatalf("got %d categories, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("category[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestByCategory_FiltersInBankOrder(t *testing.T) {
	// Returns only matching questions, preserving order
	c := New()
	got := c.ByCategory("수면")
	if len(got) != 2 {
		t.Fatalf("got %d questions, want 2", len(got))
	}
	if got[0].ID != 3 || got[1].ID != 8 {
		t.Errorf("got IDs %d,%d, want 3,8", got[0].ID, got[1].ID)
	}
}

func TestFormatChoices_ValueColonLabelCommaSeparated(t *testing.T) {
	// Renders "value: label" pairs joined by ", "
	q := Question{Choices: []Choice{{Value: "A", Label: "전혀 그렇지 않다"}, {Value: "B", Label: "그렇지 않다"}}}
	got := FormatChoices(q)
	want := "A: 전혀 그렇지 않다, B: 그렇지 않다"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestChoiceValues_BareOrderedValues(t *testing.T) {
	// Returns values only, in choice order
	c := New()
	q, _ := c.Lookup(1)
	got := ChoiceValues(q)
	want := []string{"A", "B", "C", "D", "E"}
	if len(got) != len(want) {
		t.Fatalf("got %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLabelMapping_QuotedLabelArrowValue(t *testing.T) {
	// Renders `"label" → value` pairs for the prompt
	q := Question{Choices: []Choice{{Value: "C", Label: "보통이다"}}}
	got := LabelMapping(q)
	if !strings.Contains(got, `"보통이다" → C`) {
		t.Errorf("expected mapping entry in %q", got)
	}
}

func TestHasValue_TrueOnlyForLegalValues(t *testing.T) {
	// Accepts live choice values and rejects everything else
	c := New()
	q, _ := c.Lookup(1)
	if !HasValue(q, "C") {
		t.Error("expected C to be legal")
	}
	if HasValue(q, "Z") {
		t.Error("expected Z to be illegal")
	}
}
