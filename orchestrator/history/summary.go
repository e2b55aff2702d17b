// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package history

import (
	"sort"
	"unicode/utf8"
)

// ProviderCount is the number of records for one provider.
type ProviderCount struct {
	Provider string `json:"provider"`
	Count    int    `json:"count"`
}

// Summary aggregates a set of records for the analytics view.
type Summary struct {
	Total             int             `json:"total"`
	ByProvider        []ProviderCount `json:"by_provider"`
	PromptChars       int64           `json:"prompt_chars"`
	ResponseChars     int64           `json:"response_chars"`
	AvgResponseLength float64         `json:"avg_response_length"`
	TotalTokens       int             `json:"total_tokens"`
	AvgDurationMS     float64         `json:"avg_duration_ms"`
}

// Summarize computes aggregates over records. ByProvider is sorted by count,
// then name.
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records), ByProvider: []ProviderCount{}}
	if len(records) == 0 {
		return s
	}

	counts := map[string]int{}
	var duration int64
	for _, r := range records {
		counts[r.Provider]++
		s.PromptChars += int64(utf8.RuneCountInString(r.Prompt))
		s.ResponseChars += int64(utf8.RuneCountInString(r.Response))
		duration += r.DurationMS
		s.TotalTokens += r.TotalTokens
	}
	for p, c := range counts {
		s.ByProvider = append(s.ByProvider, ProviderCount{Provider: p, Count: c})
	}
	sort.Slice(s.ByProvider, func(i, j int) bool {
		if s.ByProvider[i].Count != s.ByProvider[j].Count {
			return s.ByProvider[i].Count > s.ByProvider[j].Count
		}
		return s.ByProvider[i].Provider < s.ByProvider[j].Provider
	})
	s.AvgResponseLength = float64(s.ResponseChars) / float64(len(records))
	s.AvgDurationMS = float64(duration) / float64(len(records))
	return s
}
