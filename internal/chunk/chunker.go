package chunk

import (
	"strings"

	"minuteflow/internal/minutes"
)

// Split cuts text into whitespace-joined groups of at most maxWords words,
// preserving order with no overlap and no loss. Concatenating the returned
// segments' words reproduces the original word sequence exactly; only
// inter-word spacing is normalized.
func Split(text string, maxWords int) ([]string, error) {
	if maxWords <= 0 {
		return nil, minutes.ErrInvalidChunkSize
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	segments := make([]string, 0, (len(words)+maxWords-1)/maxWords)
	for start := 0; start < len(words); start += maxWords {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}
		segments = append(segments, strings.Join(words[start:end], " "))
	}
	return segments, nil
}
