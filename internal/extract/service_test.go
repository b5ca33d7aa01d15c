package extract

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

func TestExtractParsesSegmentResult(t *testing.T) {
	capability := &fakeCapability{payload: []byte(`{
		"key_points": ["budget approved"],
		"decisions": [{"decision": "hire two engineers", "made_by": "Dana"}],
		"action_items": [{"task": "post the job listing", "owner": "Sam", "priority": "high"}],
		"questions": ["when does onboarding start?"]
	}`)}
	svc := New(capability)

	result, err := svc.Extract(context.Background(), "the team discussed hiring")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if !strings.Contains(capability.userPrompt, "the team discussed hiring") {
		t.Fatal("segment text missing from prompt")
	}
	if !strings.Contains(capability.userPrompt, "key_points, decisions, action_items, questions") {
		t.Fatal("prompt does not name the expected JSON keys")
	}

	if len(result.KeyPoints) != 1 || result.KeyPoints[0] != "budget approved" {
		t.Fatalf("unexpected key points: %v", result.KeyPoints)
	}
	if len(result.Decisions) != 1 || result.Decisions[0].MadeBy != "Dana" {
		t.Fatalf("unexpected decisions: %+v", result.Decisions)
	}
	if len(result.ActionItems) != 1 || result.ActionItems[0].Priority != minutes.PriorityHigh {
		t.Fatalf("unexpected action items: %+v", result.ActionItems)
	}
	if len(result.Questions) != 1 {
		t.Fatalf("unexpected questions: %v", result.Questions)
	}
}

func TestExtractAppliesDefaults(t *testing.T) {
	capability := &fakeCapability{payload: []byte(`{
		"decisions": [{"decision": "ship friday"}],
		"action_items": [{"task": "update changelog"}]
	}`)}
	svc := New(capability)

	result, err := svc.Extract(context.Background(), "segment")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if result.KeyPoints == nil || result.Questions == nil {
		t.Fatal("missing lists should normalize to empty slices")
	}
	if result.Decisions[0].MadeBy != "Team" {
		t.Fatalf("unexpected made_by default: %q", result.Decisions[0].MadeBy)
	}
	item := result.ActionItems[0]
	if item.Owner != "Unassigned" || item.Deadline != "Not specified" || item.Priority != minutes.PriorityMedium {
		t.Fatalf("unexpected action item defaults: %+v", item)
	}
}

func TestExtractPropagatesCapabilityError(t *testing.T) {
	wantErr := errors.New("upstream down")
	svc := New(&fakeCapability{err: wantErr})

	_, err := svc.Extract(context.Background(), "segment")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Extract() error = %v, want %v", err, wantErr)
	}
}

func TestExtractRejectsMismatchedShape(t *testing.T) {
	svc := New(&fakeCapability{payload: []byte(`{"key_points": "not a list"}`)})

	_, err := svc.Extract(context.Background(), "segment")
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !strings.Contains(err.Error(), "decode extraction result") {
		t.Fatalf("unexpected error: %v", err)
	}
}
