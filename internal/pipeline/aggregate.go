package pipeline

import "minuteflow/internal/minutes"

// maxAggregatedKeyPoints bounds the synthesis prompt size regardless of how
// many segments the transcript produced.
const maxAggregatedKeyPoints = 20

// aggregate merges per-segment extraction results in segment order. Key
// points are truncated to the first maxAggregatedKeyPoints; decisions,
// action items, and questions are carried in full. Deduplication is
// deliberately deferred to synthesis, which sees across segment boundaries.
func aggregate(results []minutes.ExtractionResult) minutes.AggregatedCandidates {
	candidates := minutes.AggregatedCandidates{
		KeyPoints:   []string{},
		Decisions:   []minutes.Decision{},
		ActionItems: []minutes.ActionItem{},
		Questions:   []string{},
	}

	for _, result := range results {
		candidates.KeyPoints = append(candidates.KeyPoints, result.KeyPoints...)
		candidates.Decisions = append(candidates.Decisions, result.Decisions...)
		candidates.ActionItems = append(candidates.ActionItems, result.ActionItems...)
		candidates.Questions = append(candidates.Questions, result.Questions...)
	}

	if len(candidates.KeyPoints) > maxAggregatedKeyPoints {
		candidates.KeyPoints = candidates.KeyPoints[:maxAggregatedKeyPoints]
	}
	return candidates
}
