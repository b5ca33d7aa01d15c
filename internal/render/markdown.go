package render

import (
	"fmt"
	"strings"
	"time"

	"minuteflow/internal/minutes"
)

// Markdown renders a minutes document as a human-readable Markdown page,
// suitable for dropping into a wiki or attaching to a follow-up message.
func Markdown(title string, doc minutes.Document) string {
	var b strings.Builder

	if title == "" {
		title = "Meeting Minutes"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if !doc.Metadata.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "- Generated: %s\n", doc.Metadata.GeneratedAt.Format(time.RFC3339))
	}
	if doc.Metadata.DurationSeconds > 0 {
		fmt.Fprintf(&b, "- Duration: %.1f minutes\n", doc.Metadata.DurationSeconds/60)
	}
	if doc.Metadata.WordCount > 0 {
		fmt.Fprintf(&b, "- Words: %d\n", doc.Metadata.WordCount)
	}
	if doc.Metadata.ProcessingMethod != "" {
		fmt.Fprintf(&b, "- Processing: %s", doc.Metadata.ProcessingMethod)
		if doc.Metadata.ChunksProcessed > 0 {
			fmt.Fprintf(&b, " (%d chunks)", doc.Metadata.ChunksProcessed)
		}
		b.WriteString("\n")
	}
	if len(doc.Attendees) > 0 {
		fmt.Fprintf(&b, "- Attendees: %s\n", strings.Join(doc.Attendees, ", "))
	}
	b.WriteString("\n")

	if doc.Summary != "" {
		b.WriteString("## Summary\n\n")
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(doc.Summary))
	}

	if len(doc.KeyPoints) > 0 {
		b.WriteString("## Key Points\n\n")
		for _, point := range doc.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", point)
		}
		b.WriteString("\n")
	}

	if len(doc.Decisions) > 0 {
		b.WriteString("## Decisions\n\n")
		for i, d := range doc.Decisions {
			fmt.Fprintf(&b, "%d. %s — decided by %s", i+1, d.Decision, d.MadeBy)
			if d.Timestamp != "" {
				fmt.Fprintf(&b, " (%s)", d.Timestamp)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(doc.ActionItems) > 0 {
		b.WriteString("## Action Items\n\n")
		b.WriteString("| Task | Owner | Deadline | Priority |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, a := range doc.ActionItems {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", escapeCell(a.Task), escapeCell(a.Owner), escapeCell(a.Deadline), a.Priority)
		}
		b.WriteString("\n")
	}

	if len(doc.Questions) > 0 {
		b.WriteString("## Open Questions\n\n")
		for _, q := range doc.Questions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		b.WriteString("\n")
	}

	if doc.NextSteps != "" {
		b.WriteString("## Next Steps\n\n")
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(doc.NextSteps))
	}

	if len(doc.TopicsDiscussed) > 0 {
		b.WriteString("## Topics Discussed\n\n")
		for _, topic := range doc.TopicsDiscussed {
			fmt.Fprintf(&b, "- %s\n", topic)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "|", "\\|")
}
