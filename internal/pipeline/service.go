package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"minuteflow/internal/chunk"
	"minuteflow/internal/minutes"
)

type Extractor interface {
	Extract(ctx context.Context, segment string) (minutes.ExtractionResult, error)
}

type Synthesizer interface {
	FromCandidates(ctx context.Context, candidates minutes.AggregatedCandidates) (minutes.Document, error)
	FromTranscript(ctx context.Context, transcript string) (minutes.Document, error)
}

type MetricsObserver interface {
	ObserveRun(method string, chunks int, duration time.Duration)
	IncSegmentFailure()
}

type Options struct {
	// ThresholdWords routes transcripts strictly above it to the chunked path.
	ThresholdWords int
	// MaxWordsPerChunk bounds each segment on the chunked path.
	MaxWordsPerChunk int
	// ExtractConcurrency caps concurrent segment extraction calls.
	ExtractConcurrency int
}

// Service routes a transcript to the direct or chunked summarization path
// and produces the final minutes document. Runs are independent; a single
// Service may serve concurrent runs.
type Service struct {
	extractor   Extractor
	synthesizer Synthesizer
	opts        Options
	logger      *zap.Logger
	metrics     MetricsObserver
	now         func() time.Time
}

func New(extractor Extractor, synthesizer Synthesizer, opts Options, logger *zap.Logger, metrics MetricsObserver) *Service {
	if opts.ThresholdWords <= 0 {
		opts.ThresholdWords = 4000
	}
	if opts.ExtractConcurrency <= 0 {
		opts.ExtractConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		extractor:   extractor,
		synthesizer: synthesizer,
		opts:        opts,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Route inspects the transcript word count and dispatches to the direct
// single-pass path or the chunked extract/aggregate/synthesize path.
func (s *Service) Route(ctx context.Context, transcript minutes.Transcript) (minutes.Document, error) {
	if strings.TrimSpace(transcript.Text) == "" {
		return minutes.Document{}, minutes.ErrEmptyTranscript
	}
	if s.opts.MaxWordsPerChunk <= 0 {
		return minutes.Document{}, minutes.ErrInvalidChunkSize
	}

	started := s.now()
	runID := uuid.NewString()
	wordCount := transcript.WordCount()
	logger := s.logger.With(zap.String("run_id", runID), zap.Int("word_count", wordCount))

	if wordCount > s.opts.ThresholdWords {
		logger.Info("long transcript, using chunked processing",
			zap.Int("threshold_words", s.opts.ThresholdWords),
			zap.Int("max_words_per_chunk", s.opts.MaxWordsPerChunk),
		)
		return s.routeChunked(ctx, transcript, logger, started)
	}

	logger.Info("transcript within single-pass budget, using direct processing")
	return s.routeDirect(ctx, transcript, logger, started)
}

func (s *Service) routeDirect(ctx context.Context, transcript minutes.Transcript, logger *zap.Logger, started time.Time) (minutes.Document, error) {
	doc, err := s.synthesizer.FromTranscript(ctx, transcript.Text)
	if err != nil {
		if ctx.Err() != nil {
			return minutes.Document{}, ctx.Err()
		}
		return minutes.Document{}, fmt.Errorf("%w: %w", minutes.ErrSynthesisFailed, err)
	}

	Stamp(&doc, transcript, minutes.MethodNormal, 0, s.now())
	duration := s.now().Sub(started)
	if s.metrics != nil {
		s.metrics.ObserveRun(minutes.MethodNormal, 0, duration)
	}
	logger.Info("minutes generated", zap.String("method", minutes.MethodNormal), zap.Duration("duration", duration))
	return doc, nil
}

func (s *Service) routeChunked(ctx context.Context, transcript minutes.Transcript, logger *zap.Logger, started time.Time) (minutes.Document, error) {
	segments, err := chunk.Split(transcript.Text, s.opts.MaxWordsPerChunk)
	if err != nil {
		return minutes.Document{}, err
	}
	logger.Info("transcript split into segments", zap.Int("segments", len(segments)))

	results := s.extractAll(ctx, segments, logger)
	if ctx.Err() != nil {
		return minutes.Document{}, ctx.Err()
	}

	candidates := aggregate(results)
	doc, err := s.synthesizer.FromCandidates(ctx, candidates)
	if err != nil {
		if ctx.Err() != nil {
			return minutes.Document{}, ctx.Err()
		}
		return minutes.Document{}, fmt.Errorf("%w: %w", minutes.ErrSynthesisFailed, err)
	}

	Stamp(&doc, transcript, minutes.MethodChunked, len(segments), s.now())
	duration := s.now().Sub(started)
	if s.metrics != nil {
		s.metrics.ObserveRun(minutes.MethodChunked, len(segments), duration)
	}
	logger.Info("minutes generated",
		zap.String("method", minutes.MethodChunked),
		zap.Int("chunks_processed", len(segments)),
		zap.Duration("duration", duration),
	)
	return doc, nil
}

// extractAll runs segment extraction with bounded concurrency. Results keep
// original segment order regardless of completion order. A failed segment
// contributes an empty result; only cancellation stops the run.
func (s *Service) extractAll(ctx context.Context, segments []string, logger *zap.Logger) []minutes.ExtractionResult {
	results := make([]minutes.ExtractionResult, len(segments))
	sem := make(chan struct{}, s.opts.ExtractConcurrency)

	var wg sync.WaitGroup
	for i, segment := range segments {
		wg.Add(1)
		go func(i int, segment string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			if ctx.Err() != nil {
				return
			}

			result, err := s.extractor.Extract(ctx, segment)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("segment extraction failed, continuing with remaining segments",
						zap.Int("segment", i+1),
						zap.Int("segments", len(segments)),
						zap.Error(err),
					)
					if s.metrics != nil {
						s.metrics.IncSegmentFailure()
					}
				}
				return
			}
			results[i] = result
		}(i, segment)
	}
	wg.Wait()

	for i := range results {
		results[i].Normalize()
	}
	return results
}
