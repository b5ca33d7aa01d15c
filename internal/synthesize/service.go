package synthesize

import (
	"context"
	"encoding/json"
	"fmt"

	"minuteflow/internal/minutes"
)

const synthesisSystemPrompt = "Create comprehensive meeting minutes. Return valid JSON."

const synthesisPromptFormat = `Based on the extracted information from a long meeting, create a comprehensive Minutes of Meeting.

EXTRACTED INFORMATION:
Key Points: %s
Decisions: %s
Action Items: %s
Questions: %s

Create a final MOM with:
1. summary: 3-5 sentence overall summary
2. key_points: Top 8-10 most important points
3. decisions: All decisions (remove duplicates), each with decision, made_by, timestamp
4. action_items: All action items (remove duplicates), each with task, owner, deadline, priority
5. questions: All unresolved questions
6. next_steps: Recommended next steps
7. topics_discussed: Main topics covered

Return valid JSON only.`

const directSystemPrompt = "You are a professional meeting assistant that creates clear, structured minutes of meetings. Always respond with valid JSON."

const directPromptFormat = `You are an expert meeting assistant. Analyze the following meeting transcript and generate a structured Minutes of Meeting (MOM).

TRANSCRIPT:
%s

Please extract and format the following information in JSON format:

1. summary: A comprehensive 3-5 sentence overview of what was discussed
2. key_points: Array of main discussion points (5-8 bullet points)
3. decisions: Array of decisions made, each with:
   - decision: The decision text
   - made_by: Who made the decision (if mentioned, otherwise "Team")
   - timestamp: Approximate time in transcript (if possible)
4. action_items: Array of tasks, each with:
   - task: What needs to be done
   - owner: Who is responsible (if mentioned, otherwise "Unassigned")
   - deadline: Deadline if mentioned (otherwise "Not specified")
   - priority: high/medium/low based on context
5. questions: Array of unresolved questions or concerns raised
6. next_steps: What should happen after this meeting
7. attendees: List of people mentioned in the meeting (if identifiable)

Return ONLY valid JSON, no additional text.`

type Capability interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error)
}

// Service produces the final minutes document: either from aggregated
// per-segment candidates (chunked path) or from the raw transcript in one
// comprehensive call (direct path).
type Service struct {
	capability Capability
}

func New(capability Capability) *Service {
	return &Service{capability: capability}
}

// FromCandidates runs the final synthesis call over the aggregated candidate
// set. Its input is bounded by the aggregation caps, not transcript length.
// The model is asked to deduplicate; a mechanical case-insensitive exact-text
// pass afterwards guarantees the contract even when the model misses.
func (s *Service) FromCandidates(ctx context.Context, candidates minutes.AggregatedCandidates) (minutes.Document, error) {
	keyPoints, _ := json.Marshal(candidates.KeyPoints)
	decisions, _ := json.Marshal(candidates.Decisions)
	actionItems, _ := json.Marshal(candidates.ActionItems)
	questions, _ := json.Marshal(candidates.Questions)

	prompt := fmt.Sprintf(synthesisPromptFormat, keyPoints, decisions, actionItems, questions)

	doc, err := s.complete(ctx, synthesisSystemPrompt, prompt)
	if err != nil {
		return minutes.Document{}, err
	}
	doc.Attendees = nil
	dedupe(&doc)
	return doc, nil
}

// FromTranscript generates comprehensive minutes in a single call, for
// transcripts small enough to fit one capability call.
func (s *Service) FromTranscript(ctx context.Context, transcript string) (minutes.Document, error) {
	doc, err := s.complete(ctx, directSystemPrompt, fmt.Sprintf(directPromptFormat, transcript))
	if err != nil {
		return minutes.Document{}, err
	}
	doc.TopicsDiscussed = nil
	return doc, nil
}

func (s *Service) complete(ctx context.Context, system, user string) (minutes.Document, error) {
	payload, err := s.capability.CompleteJSON(ctx, system, user)
	if err != nil {
		return minutes.Document{}, err
	}

	var doc minutes.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return minutes.Document{}, fmt.Errorf("decode minutes document: %w", err)
	}
	doc.Normalize()
	return doc, nil
}
