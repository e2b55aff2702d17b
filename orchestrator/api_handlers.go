// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"genaikit/orchestrator/history"
	"genaikit/orchestrator/llm"
	"genaikit/shared/logger"
)

const (
	maxRequestBody      = 1 << 20
	defaultHistoryLimit = 50
)

// APIHandler serves the JSON API on top of a Client.
type APIHandler struct {
	client *Client
	log    *logger.Logger
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(client *Client, log *logger.Logger) *APIHandler {
	if log == nil {
		log = logger.New("api")
	}
	return &APIHandler{client: client, log: log}
}

// RegisterRoutes registers the API routes on r.
func (h *APIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/generate", h.handleGenerate).Methods(http.MethodPost)
	r.HandleFunc("/chat", h.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/batch", h.handleBatch).Methods(http.MethodPost)
	r.HandleFunc("/providers", h.handleProviders).Methods(http.MethodGet)
	r.HandleFunc("/providers/{provider}/models", h.handleProviderModels).Methods(http.MethodGet)
	r.HandleFunc("/history", h.handleHistory).Methods(http.MethodGet)
}

func (h *APIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Providers: h.client.HealthCheck(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *APIHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())

	var req llm.GenerationRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info(requestID, "Text generation request", map[string]interface{}{
		"provider":      req.Provider,
		"model":         req.Model,
		"prompt_length": len(req.Prompt),
	})

	resp, err := h.client.Generate(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info(requestID, "Text generation completed", map[string]interface{}{
		"provider":        resp.Provider,
		"model":           resp.Model,
		"response_length": len(resp.Text),
	})
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())

	var req llm.ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info(requestID, "Chat completion request", map[string]interface{}{
		"provider":      req.Provider,
		"model":         req.Model,
		"message_count": len(req.Messages),
	})

	resp, err := h.client.Chat(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		Message:  llm.ChatMessage{Role: llm.RoleAssistant, Content: resp.Text},
		Provider: resp.Provider,
		Model:    resp.Model,
		Usage:    resp.Usage,
		Metadata: resp.Metadata,
	})
}

func (h *APIHandler) handleBatch(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())

	var req llm.BatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info(requestID, "Batch generation request", map[string]interface{}{
		"provider":            req.Provider,
		"model":               req.Model,
		"prompt_count":        len(req.Prompts),
		"concurrent_requests": req.Concurrency(),
	})

	result, err := h.client.BatchGenerate(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := newBatchResponse(result)
	h.log.Info(requestID, "Batch generation completed", map[string]interface{}{
		"total_processed": resp.TotalProcessed,
		"success_count":   resp.SuccessCount,
		"error_count":     resp.ErrorCount,
	})
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) handleProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ProvidersResponse{
		AvailableProviders: h.client.AvailableProviders(),
		ProviderInfo:       h.client.ProviderInfo(),
	})
}

func (h *APIHandler) handleProviderModels(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	models, err := h.client.AvailableModels(provider)
	if errors.Is(err, llm.ErrProviderUnavailable) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: err.Error()})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ModelsResponse{Provider: provider, Models: models})
}

func (h *APIHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, r, &llm.ValidationError{Field: "limit", Message: fmt.Sprintf("must be a positive integer, got %q", v)})
			return
		}
		limit = n
	}

	records, err := h.client.History().Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Records: records, Summary: history.Summarize(records)})
}

// statusForError maps an error to the HTTP status returned to the caller.
// Unavailable providers surface as 500 on generation endpoints.
func statusForError(err error) int {
	var verr *llm.ValidationError
	var decErr *decodeError
	switch {
	case errors.As(err, &verr), errors.As(err, &decErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	fields := map[string]interface{}{"path": r.URL.Path}
	var perr *llm.ProviderError
	if errors.As(err, &perr) {
		fields["provider"] = perr.Provider
		fields["code"] = perr.Code
	}
	if status >= http.StatusInternalServerError {
		h.log.ErrorWithCode(RequestIDFromContext(r.Context()), "Request failed", status, err, fields)
	}
	writeJSON(w, status, ErrorResponse{Detail: err.Error()})
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "invalid request body: " + e.err.Error() }

func (e *decodeError) Unwrap() error { return e.err }

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
