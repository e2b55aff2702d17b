// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package llm

import (
	"fmt"
	"time"
)

// BatchItem is the outcome of one prompt. Exactly one of Response and Err is set.
type BatchItem struct {
	Index    int
	Prompt   string
	Response *GenerationResponse
	Err      error
}

// BatchResult holds one item per prompt, in prompt order.
type BatchResult struct {
	Items    []BatchItem
	Duration time.Duration
}

// Responses returns the successful responses in prompt order.
func (r *BatchResult) Responses() []*GenerationResponse {
	out := make([]*GenerationResponse, 0, len(r.Items))
	for _, it := range r.Items {
		if it.Err == nil {
			out = append(out, it.Response)
		}
	}
	return out
}

// ErrorMessages formats failures as "Prompt <index>: <error>".
func (r *BatchResult) ErrorMessages() []string {
	out := []string{}
	for _, it := range r.Items {
		if it.Err != nil {
			out = append(out, fmt.Sprintf("Prompt %d: %v", it.Index, it.Err))
		}
	}
	return out
}

// SuccessCount is the number of prompts that produced a response.
func (r *BatchResult) SuccessCount() int {
	n := 0
	for _, it := range r.Items {
		if it.Err == nil {
			n++
		}
	}
	return n
}

// ErrorCount is the number of failed prompts.
func (r *BatchResult) ErrorCount() int {
	return len(r.Items) - r.SuccessCount()
}
