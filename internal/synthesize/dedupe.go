package synthesize

import (
	"strings"

	"minuteflow/internal/minutes"
)

// dedupe removes duplicate key points, decisions, and action items by
// case-insensitive, whitespace-normalized text, keeping first occurrences.
// Decisions key on the decision text, action items on the task. Questions
// are intentionally left untouched: the contract is "all open questions".
func dedupe(doc *minutes.Document) {
	doc.KeyPoints = dedupeStrings(doc.KeyPoints)

	seenDecisions := make(map[string]struct{}, len(doc.Decisions))
	decisions := doc.Decisions[:0]
	for _, d := range doc.Decisions {
		key := normalizeKey(d.Decision)
		if _, ok := seenDecisions[key]; ok {
			continue
		}
		seenDecisions[key] = struct{}{}
		decisions = append(decisions, d)
	}
	doc.Decisions = decisions

	seenItems := make(map[string]struct{}, len(doc.ActionItems))
	items := doc.ActionItems[:0]
	for _, a := range doc.ActionItems {
		key := normalizeKey(a.Task)
		if _, ok := seenItems[key]; ok {
			continue
		}
		seenItems[key] = struct{}{}
		items = append(items, a)
	}
	doc.ActionItems = items
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		key := normalizeKey(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
