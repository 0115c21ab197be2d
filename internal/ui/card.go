package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/sunwoolee/simvoice/internal/catalog"
)

const (
	cardWidth = 56 // interior columns, excluding the border runes
	barWidth  = 20
)

// QuestionCard renders a bordered view of one question: header with
// position, category and progress, the question text, the choice list with
// the recorded answer marked, and a progress bar. Korean text is padded by
// display width so the right border stays aligned.
func QuestionCard(q catalog.Question, current, total, answered int, progress float64, answer string) string {
	var b strings.Builder

	b.WriteString("┌" + strings.Repeat("─", cardWidth) + "┐\n")

	header := fmt.Sprintf("%d/%d 문항  [%s]", current, total, q.Category)
	writeRow(&b, header)
	writeRow(&b, "")
	writeRow(&b, q.Text)
	writeRow(&b, "")

	for _, ch := range q.Choices {
		marker := "  "
		if answer != "" && ch.Value == answer {
			marker = "▶ "
		}
		writeRow(&b, fmt.Sprintf("%s%s: %s", marker, ch.Value, ch.Label))
	}

	writeRow(&b, "")
	writeRow(&b, fmt.Sprintf("%s %d/%d (%.0f%%)", ProgressBar(progress, barWidth), answered, total, progress))

	b.WriteString("└" + strings.Repeat("─", cardWidth) + "┘")
	return b.String()
}

// writeRow emits one interior line, truncated and padded to the card width.
func writeRow(b *strings.Builder, text string) {
	text = runewidth.Truncate(text, cardWidth-2, "…")
	b.WriteString("│ " + runewidth.FillRight(text, cardWidth-2) + " │\n")
}

// ProgressBar renders a fixed-width bar, e.g. "██████░░░░░░░░░░░░░░".
func ProgressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	filled := int(progress / 100 * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
