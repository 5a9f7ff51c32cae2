package todo

import (
	"regexp"
	"strings"
)

// planMarker is the heading line that introduces a plan in an assistant
// message. Matching is case-sensitive; without this marker a message
// carries no plan at all, no matter how well-formed its numbered lines.
const planMarker = "Plan:"

// maxStepTextLen is the maximum display length of a step's text,
// including the ellipsis appended on truncation.
const maxStepTextLen = 60

var (
	// topLevelPattern matches a top-level item after trimming: one or
	// more digits, a "." or ")" delimiter, whitespace, then text.
	topLevelPattern = regexp.MustCompile(`^(\d+)[.)]\s+(.+)$`)

	// subItemPattern matches a sub-item after trimming: a dotted pair
	// like "1.2" followed by "." or ")" and text. The parent number in
	// the source is not trusted; sub-items attach to whichever
	// top-level item is currently open.
	subItemPattern = regexp.MustCompile(`^\d+\.\d+[.)]\s*(\S.*)$`)
)

// ExtractTodoItems parses a free-form assistant message into an ordered
// list of plan steps. It is pure and deterministic: malformed input
// yields partial or empty results, never an error.
//
// The scanner looks for a line beginning with the "Plan:" marker and
// then classifies every line after it. Lines matching the top-level
// pattern open a new step; indented lines matching the sub-item pattern
// attach to the currently open step; everything else (prose, separators,
// blank lines) is ignored. Sibling numbering is assigned sequentially
// from 1 regardless of the numbers in the source text.
func ExtractTodoItems(message string) []TodoStep {
	if message == "" {
		return nil
	}

	// CRLF input parses identically to LF input.
	normalized := strings.ReplaceAll(message, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")

	marker := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), planMarker) {
			marker = i
			break
		}
	}
	if marker == -1 {
		return nil
	}

	var items []TodoStep
	for _, line := range lines[marker+1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if indented && len(items) > 0 {
			if m := subItemPattern.FindStringSubmatch(trimmed); m != nil {
				parent := &items[len(items)-1]
				parent.Subtasks = append(parent.Subtasks, TodoStep{
					Step: len(parent.Subtasks) + 1,
					Text: truncateStepText(m[1]),
				})
				continue
			}
		}

		if m := topLevelPattern.FindStringSubmatch(trimmed); m != nil {
			items = append(items, TodoStep{
				Step: len(items) + 1,
				Text: truncateStepText(m[2]),
			})
		}
		// Anything else is descriptive prose or a separator; it never
		// gets appended to a neighboring item's text.
	}

	return items
}

// truncateStepText caps a step's display text at maxStepTextLen
// characters, replacing the tail with "..." when over the limit.
// Truncation is rune-based so multi-byte text is never split
// mid-character.
func truncateStepText(s string) string {
	runes := []rune(s)
	if len(runes) <= maxStepTextLen {
		return s
	}
	return string(runes[:maxStepTextLen-3]) + "..."
}
