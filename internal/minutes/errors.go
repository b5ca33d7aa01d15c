package minutes

import "errors"

var (
	// ErrEmptyTranscript is returned when the transcript text is empty or
	// whitespace-only. Fatal, never retried.
	ErrEmptyTranscript = errors.New("transcript is empty")

	// ErrInvalidChunkSize is returned for a non-positive max-words-per-chunk
	// configuration, before any capability call is made.
	ErrInvalidChunkSize = errors.New("max words per chunk must be > 0")

	// ErrSynthesisFailed wraps a failure of the final synthesis call. Unlike
	// segment extraction, synthesis is the sole source of the final document
	// and its failure aborts the run.
	ErrSynthesisFailed = errors.New("minutes synthesis failed")
)
