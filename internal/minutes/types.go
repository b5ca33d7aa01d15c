package minutes

import (
	"strings"
	"time"
)

const (
	MethodNormal  = "normal"
	MethodChunked = "chunked"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Transcript is the read-only output of the transcription collaborator.
type Transcript struct {
	Text            string
	DurationSeconds float64
}

func (t Transcript) WordCount() int {
	return len(strings.Fields(t.Text))
}

type Decision struct {
	Decision  string `json:"decision"`
	MadeBy    string `json:"made_by"`
	Timestamp string `json:"timestamp,omitempty"`
}

type ActionItem struct {
	Task     string `json:"task"`
	Owner    string `json:"owner"`
	Deadline string `json:"deadline"`
	Priority string `json:"priority"`
}

// ExtractionResult is the per-segment output of the Segment Extractor.
// Any field may be empty; a missing field in the capability response is
// treated as empty, not as an error.
type ExtractionResult struct {
	KeyPoints   []string     `json:"key_points"`
	Decisions   []Decision   `json:"decisions"`
	ActionItems []ActionItem `json:"action_items"`
	Questions   []string     `json:"questions"`
}

// AggregatedCandidates accumulates extraction results across all segments
// in original segment order. Key points are capped by the aggregator; the
// other lists are carried in full.
type AggregatedCandidates struct {
	KeyPoints   []string     `json:"key_points"`
	Decisions   []Decision   `json:"decisions"`
	ActionItems []ActionItem `json:"action_items"`
	Questions   []string     `json:"questions"`
}

type ProcessingMetadata struct {
	GeneratedAt      time.Time `json:"generated_at"`
	DurationSeconds  float64   `json:"duration"`
	WordCount        int       `json:"word_count"`
	ProcessingMethod string    `json:"processing_method"`
	ChunksProcessed  int       `json:"chunks_processed,omitempty"`
}

// Document is the final minutes artifact produced by one pipeline run.
type Document struct {
	Summary         string             `json:"summary"`
	KeyPoints       []string           `json:"key_points"`
	Decisions       []Decision         `json:"decisions"`
	ActionItems     []ActionItem       `json:"action_items"`
	Questions       []string           `json:"questions"`
	NextSteps       string             `json:"next_steps"`
	TopicsDiscussed []string           `json:"topics_discussed,omitempty"`
	Attendees       []string           `json:"attendees,omitempty"`
	Metadata        ProcessingMetadata `json:"metadata"`
}

// Normalize fills the defaults the capability is allowed to omit.
func (d *Decision) Normalize() {
	d.Decision = strings.TrimSpace(d.Decision)
	if d.Decision == "" {
		d.Decision = "N/A"
	}
	d.MadeBy = strings.TrimSpace(d.MadeBy)
	if d.MadeBy == "" {
		d.MadeBy = "Team"
	}
	d.Timestamp = strings.TrimSpace(d.Timestamp)
}

func (a *ActionItem) Normalize() {
	a.Task = strings.TrimSpace(a.Task)
	if a.Task == "" {
		a.Task = "N/A"
	}
	a.Owner = strings.TrimSpace(a.Owner)
	if a.Owner == "" {
		a.Owner = "Unassigned"
	}
	a.Deadline = strings.TrimSpace(a.Deadline)
	if a.Deadline == "" {
		a.Deadline = "Not specified"
	}
	switch strings.ToLower(strings.TrimSpace(a.Priority)) {
	case PriorityHigh:
		a.Priority = PriorityHigh
	case PriorityLow:
		a.Priority = PriorityLow
	default:
		a.Priority = PriorityMedium
	}
}

// Normalize applies per-item defaults and replaces nil slices with empty
// ones so downstream consumers never see null lists.
func (r *ExtractionResult) Normalize() {
	if r.KeyPoints == nil {
		r.KeyPoints = []string{}
	}
	if r.Decisions == nil {
		r.Decisions = []Decision{}
	}
	if r.ActionItems == nil {
		r.ActionItems = []ActionItem{}
	}
	if r.Questions == nil {
		r.Questions = []string{}
	}
	for i := range r.Decisions {
		r.Decisions[i].Normalize()
	}
	for i := range r.ActionItems {
		r.ActionItems[i].Normalize()
	}
}

func (d *Document) Normalize() {
	if d.KeyPoints == nil {
		d.KeyPoints = []string{}
	}
	if d.Decisions == nil {
		d.Decisions = []Decision{}
	}
	if d.ActionItems == nil {
		d.ActionItems = []ActionItem{}
	}
	if d.Questions == nil {
		d.Questions = []string{}
	}
	for i := range d.Decisions {
		d.Decisions[i].Normalize()
	}
	for i := range d.ActionItems {
		d.ActionItems[i].Normalize()
	}
}
