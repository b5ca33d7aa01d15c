package model

import "minuteflow/internal/minutes"

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id,omitempty"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type ReadyResponse struct {
	OK          bool   `json:"ok"`
	ServiceName string `json:"service_name,omitempty"`
}

type TranscriptRequest struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

type MinutesResponse struct {
	Minutes    minutes.Document `json:"minutes"`
	Transcript string           `json:"transcript,omitempty"`
	TimingsMS  MinutesTimings   `json:"timings_ms"`
}

type MinutesTimings struct {
	Transcription int64 `json:"transcription,omitempty"`
	Minutes       int64 `json:"minutes"`
	Total         int64 `json:"total"`
}
