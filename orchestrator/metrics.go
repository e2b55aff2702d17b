// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics
var (
	promRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_requests_total",
			Help: "Total number of API requests by endpoint and status code",
		},
		[]string{"endpoint", "status"},
	)
	promRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genai_request_duration_milliseconds",
			Help:    "API request duration in milliseconds",
			Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000, 30000},
		},
		[]string{"endpoint"},
	)
	promLLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_llm_calls_total",
			Help: "Total number of provider calls",
		},
		[]string{"provider", "operation", "status"},
	)
	promLLMTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_llm_tokens_total",
			Help: "Tokens reported by providers",
		},
		[]string{"provider", "kind"},
	)
	promBatchItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_batch_items_total",
			Help: "Batch prompts processed by outcome",
		},
		[]string{"provider", "status"},
	)
)

func init() {
	prometheus.MustRegister(promRequestsTotal)
	prometheus.MustRegister(promRequestDuration)
	prometheus.MustRegister(promLLMCalls)
	prometheus.MustRegister(promLLMTokens)
	prometheus.MustRegister(promBatchItems)
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func recordLLMCall(provider, operation string, err error) {
	promLLMCalls.WithLabelValues(provider, operation, statusLabel(err)).Inc()
}

func recordTokens(provider string, prompt, completion int) {
	if prompt > 0 {
		promLLMTokens.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		promLLMTokens.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}

func recordBatchItem(provider string, err error) {
	promBatchItems.WithLabelValues(provider, statusLabel(err)).Inc()
}

func recordRequest(endpoint string, status int, start time.Time) {
	promRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	promRequestDuration.WithLabelValues(endpoint).Observe(float64(time.Since(start).Milliseconds()))
}
