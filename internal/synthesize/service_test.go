package synthesize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"minuteflow/internal/minutes"
)

type fakeCapability struct {
	payload      []byte
	err          error
	systemPrompt string
	userPrompt   string
}

func (f *fakeCapability) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error) {
	f.systemPrompt = systemPrompt
	f.userPrompt = userPrompt
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func TestFromCandidatesBuildsPromptFromAggregate(t *testing.T) {
	capability := &fakeCapability{payload: []byte(`{
		"summary": "Quarterly planning covered hiring and the release schedule.",
		"key_points": ["hiring plan approved"],
		"decisions": [{"decision": "freeze scope for 2.0", "made_by": "Priya"}],
		"action_items": [{"task": "draft release notes", "owner": "Lee"}],
		"questions": ["do we need a beta?"],
		"next_steps": "Kick off the release branch next Monday.",
		"topics_discussed": ["hiring", "release"]
	}`)}
	svc := New(capability)

	candidates := minutes.AggregatedCandidates{
		KeyPoints: []string{"hiring plan approved", "2.0 scope frozen"},
		Decisions: []minutes.Decision{{Decision: "freeze scope for 2.0", MadeBy: "Priya"}},
		Questions: []string{"do we need a beta?"},
	}

	doc, err := svc.FromCandidates(context.Background(), candidates)
	if err != nil {
		t.Fatalf("FromCandidates() error = %v", err)
	}

	if !strings.Contains(capability.userPrompt, `"hiring plan approved"`) {
		t.Fatal("aggregated key points missing from prompt")
	}
	if !strings.Contains(capability.userPrompt, `"freeze scope for 2.0"`) {
		t.Fatal("aggregated decisions missing from prompt")
	}
	if doc.Summary == "" || len(doc.KeyPoints) != 1 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.Attendees != nil {
		t.Fatalf("chunked synthesis must not report attendees, got %v", doc.Attendees)
	}
	if len(doc.TopicsDiscussed) != 2 {
		t.Fatalf("unexpected topics: %v", doc.TopicsDiscussed)
	}
}

func TestFromCandidatesDeduplicates(t *testing.T) {
	capability := &fakeCapability{payload: []byte(`{
		"summary": "s",
		"key_points": ["Launch on Friday", "launch  on friday", "prepare rollback plan"],
		"decisions": [
			{"decision": "Use feature flags", "made_by": "Ana"},
			{"decision": "use feature  flags", "made_by": "Team"}
		],
		"action_items": [
			{"task": "Write the runbook", "owner": "Sam"},
			{"task": "write the runbook", "owner": "Lee"}
		],
		"questions": ["is QA ready?", "is QA ready?"]
	}`)}
	svc := New(capability)

	doc, err := svc.FromCandidates(context.Background(), minutes.AggregatedCandidates{})
	if err != nil {
		t.Fatalf("FromCandidates() error = %v", err)
	}

	if len(doc.KeyPoints) != 2 {
		t.Fatalf("key points not deduplicated: %v", doc.KeyPoints)
	}
	if len(doc.Decisions) != 1 || doc.Decisions[0].MadeBy != "Ana" {
		t.Fatalf("decisions must keep the first occurrence: %+v", doc.Decisions)
	}
	if len(doc.ActionItems) != 1 || doc.ActionItems[0].Owner != "Sam" {
		t.Fatalf("action items must keep the first occurrence: %+v", doc.ActionItems)
	}
	// Open questions are reported in full, duplicates included.
	if len(doc.Questions) != 2 {
		t.Fatalf("questions must not be deduplicated: %v", doc.Questions)
	}
}

func TestFromTranscriptBuildsDirectPrompt(t *testing.T) {
	capability := &fakeCapability{payload: []byte(`{
		"summary": "Standup sync.",
		"key_points": ["deploy went fine"],
		"attendees": ["Ana", "Sam"],
		"topics_discussed": ["deploy"]
	}`)}
	svc := New(capability)

	doc, err := svc.FromTranscript(context.Background(), "Ana: deploy went fine. Sam: great.")
	if err != nil {
		t.Fatalf("FromTranscript() error = %v", err)
	}

	if !strings.Contains(capability.userPrompt, "Ana: deploy went fine.") {
		t.Fatal("transcript missing from prompt")
	}
	if !strings.Contains(capability.systemPrompt, "meeting assistant") {
		t.Fatalf("unexpected system prompt: %q", capability.systemPrompt)
	}
	if len(doc.Attendees) != 2 {
		t.Fatalf("unexpected attendees: %v", doc.Attendees)
	}
	if doc.TopicsDiscussed != nil {
		t.Fatalf("direct synthesis must not report topics, got %v", doc.TopicsDiscussed)
	}
}

func TestSynthesisNormalizesDefaults(t *testing.T) {
	capability := &fakeCapability{payload: []byte(`{
		"summary": "s",
		"decisions": [{"decision": "adopt the proposal"}],
		"action_items": [{"task": "circulate notes", "priority": "LOW"}]
	}`)}
	svc := New(capability)

	doc, err := svc.FromTranscript(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("FromTranscript() error = %v", err)
	}
	if doc.Decisions[0].MadeBy != "Team" {
		t.Fatalf("unexpected made_by: %q", doc.Decisions[0].MadeBy)
	}
	item := doc.ActionItems[0]
	if item.Owner != "Unassigned" || item.Priority != minutes.PriorityLow {
		t.Fatalf("unexpected action item: %+v", item)
	}
	if doc.KeyPoints == nil || doc.Questions == nil {
		t.Fatal("missing lists should normalize to empty slices")
	}
}

func TestSynthesisPropagatesCapabilityError(t *testing.T) {
	wantErr := errors.New("upstream down")
	svc := New(&fakeCapability{err: wantErr})

	if _, err := svc.FromCandidates(context.Background(), minutes.AggregatedCandidates{}); !errors.Is(err, wantErr) {
		t.Fatalf("FromCandidates() error = %v, want %v", err, wantErr)
	}
	if _, err := svc.FromTranscript(context.Background(), "text"); !errors.Is(err, wantErr) {
		t.Fatalf("FromTranscript() error = %v, want %v", err, wantErr)
	}
}

func TestSynthesisRejectsMismatchedShape(t *testing.T) {
	svc := New(&fakeCapability{payload: []byte(`{"summary": ["not", "a", "string"]}`)})

	_, err := svc.FromTranscript(context.Background(), "text")
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !strings.Contains(err.Error(), "decode minutes document") {
		t.Fatalf("unexpected error: %v", err)
	}
}
