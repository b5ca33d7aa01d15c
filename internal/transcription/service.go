package transcription

import (
	"context"
	"io"
	"strings"
	"time"

	"minuteflow/internal/minutes"
	"minuteflow/internal/upstream/openai"
)

type Client interface {
	Transcribe(ctx context.Context, file io.Reader, fileName, model string) (openai.Transcription, error)
}

// Service wraps the transcription collaborator. A failure here is terminal
// for the run; retries happen inside the collaborator, not here.
type Service struct {
	client       Client
	defaultModel string
	timeout      time.Duration
}

func New(client Client, defaultModel string, timeout time.Duration) *Service {
	return &Service{
		client:       client,
		defaultModel: strings.TrimSpace(defaultModel),
		timeout:      timeout,
	}
}

func (s *Service) Transcribe(ctx context.Context, file io.Reader, fileName, model string) (minutes.Transcript, error) {
	selectedModel := strings.TrimSpace(model)
	if selectedModel == "" {
		selectedModel = s.defaultModel
	}
	if fileName == "" {
		fileName = "audio.wav"
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.client.Transcribe(ctx, file, fileName, selectedModel)
	if err != nil {
		return minutes.Transcript{}, err
	}
	return minutes.Transcript{
		Text:            strings.TrimSpace(result.Text),
		DurationSeconds: result.DurationSeconds,
	}, nil
}
