// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"genaikit/orchestrator/llm"
)

// fakeProvider is a scripted llm.Provider for facade and handler tests.
type fakeProvider struct {
	kind    llm.ProviderType
	models  []string
	healthy bool
	delay   time.Duration

	// failOn makes Generate fail for prompts containing the substring.
	failOn string

	mu       sync.Mutex
	lastOpts llm.Options
	lastMsgs []llm.ChatMessage

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeProvider(kind llm.ProviderType) *fakeProvider {
	return &fakeProvider{
		kind:    kind,
		models:  []string{"model-a", "model-b", "model-c", "model-d"},
		healthy: true,
	}
}

func (f *fakeProvider) Name() string { return "Fake " + string(f.kind) }

func (f *fakeProvider) Type() llm.ProviderType { return f.kind }

func (f *fakeProvider) Models() []string { return f.models }

func (f *fakeProvider) DefaultModel() string { return f.models[0] }

func (f *fakeProvider) options() llm.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOpts
}

func (f *fakeProvider) messages() []llm.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMsgs
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, opts llm.Options) (*llm.GenerationResponse, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.lastOpts = opts
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.failOn != "" && strings.Contains(prompt, f.failOn) {
		return nil, llm.WrapError(string(f.kind), "generation failed", 500, errors.New("boom"))
	}
	model := opts.Model
	if model == "" {
		model = f.DefaultModel()
	}
	return &llm.GenerationResponse{
		Text:     "echo: " + prompt,
		Provider: string(f.kind),
		Model:    model,
		Usage:    llm.NewUsage(len(prompt), 3, 0),
		Metadata: map[string]any{"finish_reason": "stop"},
	}, nil
}

func (f *fakeProvider) Chat(ctx context.Context, messages []llm.ChatMessage, opts llm.Options) (*llm.GenerationResponse, error) {
	f.mu.Lock()
	f.lastMsgs = messages
	f.mu.Unlock()
	return f.Generate(ctx, fmt.Sprintf("%d messages", len(messages)), opts)
}

func (f *fakeProvider) HealthCheck(context.Context) (*llm.HealthCheckResult, error) {
	if !f.healthy {
		return nil, errors.New("unreachable")
	}
	return llm.NewHealthResult(time.Now(), nil), nil
}
