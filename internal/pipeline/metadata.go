package pipeline

import (
	"time"

	"minuteflow/internal/minutes"
)

// Stamp attaches processing metadata to a synthesized document. It is the
// last write to the document; metadata is never mutated afterwards.
func Stamp(doc *minutes.Document, transcript minutes.Transcript, method string, chunksProcessed int, generatedAt time.Time) {
	doc.Metadata = minutes.ProcessingMetadata{
		GeneratedAt:      generatedAt,
		DurationSeconds:  transcript.DurationSeconds,
		WordCount:        transcript.WordCount(),
		ProcessingMethod: method,
	}
	if method == minutes.MethodChunked {
		doc.Metadata.ChunksProcessed = chunksProcessed
	}
}
