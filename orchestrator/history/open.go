// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package history

import (
	"context"
	"fmt"

	"genaikit/shared/config"
)

// Open builds the store selected by settings.HistoryBackend.
func Open(ctx context.Context, s *config.Settings) (Store, error) {
	switch s.HistoryBackend {
	case config.HistoryNone, "":
		return NopStore{}, nil
	case config.HistoryMemory:
		return NewMemoryStore(s.HistoryLimit), nil
	case config.HistoryRedis:
		store, err := NewRedisStore(ctx, s.RedisURL, s.HistoryLimit)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.HistoryPostgres:
		store, err := OpenPostgres(ctx, s.DatabaseURL, s.HistoryLimit)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", s.HistoryBackend)
	}
}
