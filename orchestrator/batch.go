// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"genaikit/orchestrator/history"
	"genaikit/orchestrator/llm"
)

// BatchGenerate runs req.Prompts through one provider with at most
// req.Concurrency() calls in flight. Failures are reported per item and never
// retried. Once ctx is done, prompts not yet started fail with ctx.Err().
func (c *Client) BatchGenerate(ctx context.Context, req llm.BatchRequest) (*llm.BatchResult, error) {
	if _, err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := c.Provider(req.Provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &llm.BatchResult{Items: make([]llm.BatchItem, len(req.Prompts))}
	sem := semaphore.NewWeighted(int64(req.Concurrency()))
	opts := req.Sampling.Options("")
	provider := string(p.Type())

	var wg sync.WaitGroup
	for i, prompt := range req.Prompts {
		result.Items[i] = llm.BatchItem{Index: i, Prompt: prompt}
		if err := sem.Acquire(ctx, 1); err != nil {
			result.Items[i].Err = err
			recordBatchItem(provider, err)
			continue
		}
		wg.Add(1)
		go func(idx int, prompt string) {
			defer wg.Done()
			defer sem.Release(1)

			resp, err := c.call(ctx, p, history.OpBatch, prompt, func(ctx context.Context) (*llm.GenerationResponse, error) {
				return p.Generate(ctx, prompt, opts)
			})
			result.Items[idx].Response = resp
			result.Items[idx].Err = err
			recordBatchItem(provider, err)
		}(i, prompt)
	}
	wg.Wait()

	result.Duration = time.Since(start)
	c.log.InfoWithDuration("", "Batch completed", float64(result.Duration.Milliseconds()), map[string]interface{}{
		"provider":  provider,
		"total":     len(req.Prompts),
		"succeeded": result.SuccessCount(),
		"failed":    result.ErrorCount(),
	})
	return result, nil
}
