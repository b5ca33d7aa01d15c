package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTranscribeRequestsVerboseJSON(t *testing.T) {
	var gotAuth, gotModel, gotFormat, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("read file part: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotFile = string(data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text": "hello from the meeting", "duration": 123.4}`)
	}))
	defer srv.Close()

	client := New(srv.URL, "key-123", srv.Client())
	result, err := client.Transcribe(context.Background(), strings.NewReader("audio-bytes"), "meeting.wav", "whisper-1")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if gotAuth != "Bearer key-123" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotModel != "whisper-1" || gotFormat != "verbose_json" {
		t.Fatalf("unexpected form fields: model=%q response_format=%q", gotModel, gotFormat)
	}
	if gotFile != "audio-bytes" {
		t.Fatalf("unexpected file contents: %q", gotFile)
	}
	if result.Text != "hello from the meeting" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if result.DurationSeconds != 123.4 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds)
	}
}

func TestTranscribeFallsBackToPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "line one\nline two\n")
	}))
	defer srv.Close()

	client := New(srv.URL, "key", srv.Client())
	result, err := client.Transcribe(context.Background(), strings.NewReader("a"), "a.wav", "whisper-1")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if result.Text != "line one line two" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if result.DurationSeconds != 0 {
		t.Fatalf("plain text responses carry no duration, got %v", result.DurationSeconds)
	}
}

func TestTranscribeReturnsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error": "overloaded"}`)
	}))
	defer srv.Close()

	client := New(srv.URL, "key", srv.Client())
	_, err := client.Transcribe(context.Background(), strings.NewReader("a"), "a.wav", "whisper-1")

	var upstreamErr *Error
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if upstreamErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", upstreamErr.StatusCode)
	}
	if !strings.Contains(upstreamErr.Body, "overloaded") {
		t.Fatalf("unexpected body: %q", upstreamErr.Body)
	}
}

func TestChatCompletion(t *testing.T) {
	var gotRequest ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"choices": [{"message": {"content": "{\"summary\":\"ok\"}"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)
	}))
	defer srv.Close()

	client := New(srv.URL, "key", srv.Client())
	resp, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
		Model:          "gpt-4o-mini",
		Temperature:    0.3,
		Messages:       []ChatMessage{{Role: "user", Content: "hi"}},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}

	if gotRequest.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %q", gotRequest.Model)
	}
	if gotRequest.ResponseFormat == nil || gotRequest.ResponseFormat.Type != "json_object" {
		t.Fatalf("response_format not forwarded: %+v", gotRequest.ResponseFormat)
	}
	if resp.Content != `{"summary":"ok"}` {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
}

func TestChatCompletionMissingChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices": []}`)
	}))
	defer srv.Close()

	client := New(srv.URL, "key", srv.Client())
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})
	if err == nil || !strings.Contains(err.Error(), "missing choices") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestAPIKeyOverridesConfiguredKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"choices": [{"message": {"content": "x"}}]}`)
	}))
	defer srv.Close()

	client := New(srv.URL, "configured-key", srv.Client())
	ctx := WithRequestAPIKey(context.Background(), "caller-key")
	if _, err := client.ChatCompletion(ctx, ChatCompletionRequest{Model: "m"}); err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if gotAuth != "Bearer caller-key" {
		t.Fatalf("caller key not used: %q", gotAuth)
	}
}

func TestObserverSeesFinalStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var mu sync.Mutex
	var gotEndpoint string
	var gotStatus int
	observer := func(endpoint string, status int, duration time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		gotEndpoint = endpoint
		gotStatus = status
	}

	client := New(srv.URL, "key", srv.Client(), WithObserver(observer))
	_, _ = client.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})

	mu.Lock()
	defer mu.Unlock()
	if gotEndpoint != "chat_completions" {
		t.Fatalf("unexpected endpoint: %q", gotEndpoint)
	}
	if gotStatus != http.StatusBadGateway {
		t.Fatalf("observer saw status %d, want %d", gotStatus, http.StatusBadGateway)
	}
}

func TestCheckModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"data": []}`)
	}))
	defer srv.Close()

	client := New(srv.URL, "key", srv.Client())
	if err := client.CheckModels(context.Background()); err != nil {
		t.Fatalf("CheckModels() error = %v", err)
	}
}
