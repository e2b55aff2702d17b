// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genaikit/orchestrator/history"
	"genaikit/orchestrator/llm"
)

func TestBatchGeneratePreservesOrder(t *testing.T) {
	p := newFakeProvider(llm.ProviderOpenAI)
	p.failOn = "fail"
	c, store := newTestClient(t, p)

	prompts := []string{"one", "two fail", "three", "four"}
	result, err := c.BatchGenerate(context.Background(), llm.BatchRequest{
		Prompts:  prompts,
		Provider: "openai",
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 4)

	for i, it := range result.Items {
		assert.Equal(t, i, it.Index)
		assert.Equal(t, prompts[i], it.Prompt)
	}
	assert.Equal(t, 3, result.SuccessCount())
	assert.Equal(t, 1, result.ErrorCount())

	responses := result.Responses()
	require.Len(t, responses, 3)
	assert.Equal(t, "echo: one", responses[0].Text)
	assert.Equal(t, "echo: four", responses[2].Text)

	errs := result.ErrorMessages()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Prompt 1: ")

	recent, _ := store.Recent(context.Background(), 0)
	assert.Len(t, recent, 3)
	assert.Equal(t, history.OpBatch, recent[0].Operation)
}

func TestBatchGenerateBoundsConcurrency(t *testing.T) {
	p := newFakeProvider(llm.ProviderGemini)
	p.delay = 20 * time.Millisecond
	c, _ := newTestClient(t, p)

	prompts := make([]string, 12)
	for i := range prompts {
		prompts[i] = fmt.Sprintf("prompt %d", i)
	}
	result, err := c.BatchGenerate(context.Background(), llm.BatchRequest{
		Prompts:            prompts,
		Provider:           "gemini",
		ConcurrentRequests: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, result.SuccessCount())
	assert.LessOrEqual(t, p.maxInFlight.Load(), int32(3))
	assert.Greater(t, p.maxInFlight.Load(), int32(1))
}

func TestBatchGenerateEmpty(t *testing.T) {
	c, _ := newTestClient(t, newFakeProvider(llm.ProviderOpenAI))

	result, err := c.BatchGenerate(context.Background(), llm.BatchRequest{Prompts: []string{}, Provider: "openai"})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, []string{}, result.ErrorMessages())
}

func TestBatchGenerateCancelled(t *testing.T) {
	c, _ := newTestClient(t, newFakeProvider(llm.ProviderOpenAI))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := c.BatchGenerate(ctx, llm.BatchRequest{Prompts: []string{"a", "b"}, Provider: "openai"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ErrorCount())
	for _, it := range result.Items {
		assert.ErrorIs(t, it.Err, context.Canceled)
	}
}

func TestBatchGenerateUnavailable(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.BatchGenerate(context.Background(), llm.BatchRequest{Prompts: []string{"a"}, Provider: "bedrock"})
	assert.ErrorIs(t, err, llm.ErrProviderUnavailable)
}
