package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"minuteflow/internal/minutes"
)

const systemPrompt = "Extract key information from meeting segments. Return valid JSON."

const userPromptFormat = `Analyze this portion of a meeting transcript and extract key information.

TRANSCRIPT SEGMENT:
%s

Extract:
1. Key points discussed in this segment
2. Any decisions made
3. Any action items assigned
4. Any questions raised

Return as JSON with keys: key_points, decisions, action_items, questions`

type Capability interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error)
}

// Service pulls key points, decisions, action items, and questions out of a
// single transcript segment. The full summary is deferred to synthesis.
type Service struct {
	capability Capability
}

func New(capability Capability) *Service {
	return &Service{capability: capability}
}

func (s *Service) Extract(ctx context.Context, segment string) (minutes.ExtractionResult, error) {
	payload, err := s.capability.CompleteJSON(ctx, systemPrompt, fmt.Sprintf(userPromptFormat, segment))
	if err != nil {
		return minutes.ExtractionResult{}, err
	}

	var result minutes.ExtractionResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return minutes.ExtractionResult{}, fmt.Errorf("decode extraction result: %w", err)
	}
	result.Normalize()
	return result, nil
}
