// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"genaikit/orchestrator/history"
	"genaikit/orchestrator/llm"
)

// Version is reported by /health and the CLI. Overridden at build time with
// -ldflags "-X genaikit/orchestrator.Version=...".
var Version = "0.1.0"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Providers map[string]bool `json:"providers"`
	Timestamp string          `json:"timestamp"`
}

// ChatResponse is the body of POST /chat.
type ChatResponse struct {
	Message  llm.ChatMessage `json:"message"`
	Provider string          `json:"provider"`
	Model    string          `json:"model"`
	Usage    *llm.Usage      `json:"usage,omitempty"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

// BatchResponse is the body of POST /batch.
type BatchResponse struct {
	Results        []*llm.GenerationResponse `json:"results"`
	TotalProcessed int                       `json:"total_processed"`
	SuccessCount   int                       `json:"success_count"`
	ErrorCount     int                       `json:"error_count"`
	Errors         []string                  `json:"errors"`
}

// ProvidersResponse is the body of GET /providers.
type ProvidersResponse struct {
	AvailableProviders []string                   `json:"available_providers"`
	ProviderInfo       map[string]ProviderDetails `json:"provider_info"`
}

// ModelsResponse is the body of GET /providers/{provider}/models.
type ModelsResponse struct {
	Provider string   `json:"provider"`
	Models   []string `json:"models"`
}

// HistoryResponse is the body of GET /history.
type HistoryResponse struct {
	Records []history.Record `json:"records"`
	Summary history.Summary  `json:"summary"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func newBatchResponse(r *llm.BatchResult) BatchResponse {
	return BatchResponse{
		Results:        r.Responses(),
		TotalProcessed: len(r.Items),
		SuccessCount:   r.SuccessCount(),
		ErrorCount:     r.ErrorCount(),
		Errors:         r.ErrorMessages(),
	}
}
