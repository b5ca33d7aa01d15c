package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"minuteflow/internal/upstream/openai"
)

// Kind classifies a capability failure for retry purposes.
type Kind string

const (
	KindRateLimited       Kind = "rate_limited"
	KindServerError       Kind = "server_error"
	KindMalformedResponse Kind = "malformed_response"
	KindPermanent         Kind = "permanent"
)

// Error is a failed capability call after classification. Rate-limit,
// server-error, and malformed-response failures are transient and eligible
// for retry; permanent failures are propagated immediately.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capability %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Transient() bool { return e.Kind != KindPermanent }

type ChatClient interface {
	ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type RetryObserver interface {
	IncCapabilityRetry(kind string)
}

type Options struct {
	Model           string
	Temperature     float64
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	CallTimeout     time.Duration
}

// Service is the summarization capability boundary: prompt in, structured
// JSON out. It owns retry policy so callers see either a JSON document or a
// classified *Error.
type Service struct {
	client   ChatClient
	opts     Options
	logger   *zap.Logger
	observer RetryObserver
}

func New(client ChatClient, opts Options, logger *zap.Logger, observer RetryObserver) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = time.Second
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, opts: opts, logger: logger, observer: observer}
}

// CompleteJSON issues one capability call per attempt and returns the raw
// JSON object from the model. Transient failures are retried up to
// MaxAttempts with a cancellable delay: linearly increasing for rate limits,
// exponential for server errors and malformed responses.
func (s *Service) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.opts.InitialInterval
	bo.MaxInterval = s.opts.MaxInterval
	bo.Reset()

	var lastErr *Error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		payload, capErr := s.attempt(ctx, systemPrompt, userPrompt)
		if capErr == nil {
			return payload, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !capErr.Transient() {
			return nil, capErr
		}

		lastErr = capErr
		if attempt == s.opts.MaxAttempts {
			break
		}

		delay := bo.NextBackOff()
		if capErr.Kind == KindRateLimited {
			// Rate limits recover on the provider's schedule; back off on a
			// linear ramp instead of the exponential curve.
			delay = time.Duration(attempt) * s.opts.InitialInterval
		}
		if s.observer != nil {
			s.observer.IncCapabilityRetry(string(capErr.Kind))
		}
		s.logger.Warn("capability call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.opts.MaxAttempts),
			zap.String("kind", string(capErr.Kind)),
			zap.Duration("delay", delay),
			zap.Error(capErr.Err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

func (s *Service) attempt(ctx context.Context, systemPrompt, userPrompt string) ([]byte, *Error) {
	callCtx := ctx
	if s.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.CallTimeout)
		defer cancel()
	}

	resp, err := s.client.ChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:          s.opts.Model,
		Temperature:    s.opts.Temperature,
		Messages: []openai.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: &openai.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, classify(err)
	}

	payload := []byte(extractJSON(resp.Content))
	if !json.Valid(payload) {
		// Providers intermittently violate their own structured-output
		// contract; treat it like a server error and retry.
		return nil, &Error{Kind: KindMalformedResponse, Err: fmt.Errorf("response is not valid JSON")}
	}
	return payload, nil
}

func classify(err error) *Error {
	var upstreamErr *openai.Error
	if errors.As(err, &upstreamErr) {
		switch {
		case upstreamErr.StatusCode == http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Err: err}
		case upstreamErr.StatusCode >= http.StatusInternalServerError:
			return &Error{Kind: KindServerError, Err: err}
		default:
			return &Error{Kind: KindPermanent, Err: err}
		}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindPermanent, Err: err}
	}
	// Transport failures and per-call timeouts may clear on their own.
	return &Error{Kind: KindServerError, Err: err}
}

// extractJSON strips markdown code fences some models wrap around their
// JSON output.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}
