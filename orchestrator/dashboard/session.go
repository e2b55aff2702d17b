// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package dashboard

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"genaikit/orchestrator/llm"
)

const (
	sessionCookie = "genai_session"
	maxSessions   = 1000
)

// settings are the sidebar generation parameters.
type settings struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

func defaultSettings() settings {
	d := llm.StandardDefaults()
	return settings{MaxTokens: d.MaxTokens, Temperature: d.Temperature, TopP: d.TopP}
}

func (s settings) sampling() llm.Sampling {
	return llm.Sampling{
		Model:       s.Model,
		MaxTokens:   s.MaxTokens,
		Temperature: llm.Float(s.Temperature),
		TopP:        llm.Float(s.TopP),
	}
}

// session is the per-browser state. Fields are guarded by mu.
type session struct {
	mu           sync.Mutex
	lastSeen     time.Time
	settings     settings
	systemPrompt string
	messages     []llm.ChatMessage
	health       map[string]bool
	generate     *generateView
	chatError    string
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

// get returns the caller's session, creating one and setting the cookie when
// the request carries no known id.
func (s *sessionStore) get(w http.ResponseWriter, r *http.Request) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions[c.Value]; ok {
			sess.lastSeen = time.Now()
			return sess
		}
	}

	if len(s.sessions) >= maxSessions {
		s.evictOldest()
	}
	id := uuid.NewString()
	sess := &session{lastSeen: time.Now(), settings: defaultSettings()}
	s.sessions[id] = sess
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/dashboard",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (s *sessionStore) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastSeen.Before(oldest) {
			oldestID, oldest = id, sess.lastSeen
		}
	}
	delete(s.sessions, oldestID)
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
