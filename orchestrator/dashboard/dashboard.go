// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package dashboard serves the browser UI: chat, single-prompt generation,
// batch processing and usage analytics, with a sidebar for provider and
// sampling settings.
package dashboard

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"genaikit/orchestrator/history"
	"genaikit/orchestrator/llm"
	"genaikit/shared/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// Prefix is where the dashboard is mounted.
const Prefix = "/dashboard"

const analyticsLimit = 500

// Backend is the client surface the dashboard needs.
type Backend interface {
	Generate(ctx context.Context, req llm.GenerationRequest) (*llm.GenerationResponse, error)
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.GenerationResponse, error)
	BatchGenerate(ctx context.Context, req llm.BatchRequest) (*llm.BatchResult, error)
	HealthCheck(ctx context.Context) map[string]bool
	AvailableProviders() []string
	AvailableModels(provider string) ([]string, error)
	History() history.Store
}

// Dashboard renders the UI pages.
type Dashboard struct {
	backend  Backend
	log      *logger.Logger
	tmpl     *template.Template
	sessions *sessionStore
	auth     Authenticator
}

// New parses the embedded templates.
func New(backend Backend, log *logger.Logger, opts ...Option) (*Dashboard, error) {
	if log == nil {
		log = logger.New("dashboard")
	}
	tmpl, err := template.New("layout.html").Funcs(template.FuncMap{
		"markdown": renderMarkdown,
		"inc":      func(i int) int { return i + 1 },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard templates: %w", err)
	}
	d := &Dashboard{backend: backend, log: log, tmpl: tmpl, sessions: newSessionStore()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Register mounts the dashboard under Prefix.
func (d *Dashboard) Register(r *mux.Router) {
	r.HandleFunc(Prefix, d.redirect("chat")).Methods(http.MethodGet)
	sub := r.PathPrefix(Prefix).Subrouter()
	sub.HandleFunc("/", d.redirect("chat")).Methods(http.MethodGet)
	sub.HandleFunc("/{tab:chat|generate|batch|analytics}", d.handlePage).Methods(http.MethodGet)
	sub.HandleFunc("/settings", d.handleSettings).Methods(http.MethodPost)
	sub.HandleFunc("/health", d.handleHealth).Methods(http.MethodPost)
	sub.HandleFunc("/chat", d.handleChat).Methods(http.MethodPost)
	sub.HandleFunc("/chat/clear", d.handleChatClear).Methods(http.MethodPost)
	sub.HandleFunc("/generate", d.handleGenerate).Methods(http.MethodPost)
	sub.HandleFunc("/generate/clear", d.handleGenerateClear).Methods(http.MethodPost)
	sub.HandleFunc("/batch", d.handleBatch).Methods(http.MethodPost)
	sub.HandleFunc("/analytics/clear", d.handleAnalyticsClear).Methods(http.MethodPost)
	if d.auth != nil {
		sub.HandleFunc("/login", d.handleLoginForm).Methods(http.MethodGet)
		sub.HandleFunc("/login", d.handleLogin).Methods(http.MethodPost)
		sub.HandleFunc("/logout", d.handleLogout).Methods(http.MethodPost)
	}
}

type chatTurn struct {
	Role string
	HTML template.HTML
}

type generateView struct {
	Prompt   string
	Response *llm.GenerationResponse
	Error    string
}

type batchRow struct {
	Index    int
	Prompt   string
	Response string
	Error    string
}

type batchView struct {
	Prompts     string
	Concurrency int
	Ran         bool
	Rows        []batchRow
	Total       int
	Succeeded   int
	Failed      int
	Error       string
}

type analyticsView struct {
	Summary history.Summary
	Records []history.Record
	Error   string
}

type page struct {
	Tab          string
	Tabs         []string
	Settings     settings
	Providers    []string
	Models       []string
	Health       map[string]bool
	SystemPrompt string
	Chat         []chatTurn
	ChatError    string
	Generate     *generateView
	Batch        *batchView
	Analytics    *analyticsView
	Auth         bool
}

var tabs = []string{"chat", "generate", "batch", "analytics"}

func (d *Dashboard) redirect(tab string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, Prefix+"/"+tab, http.StatusSeeOther)
	}
}

// newPage snapshots the session into a view model. The caller holds sess.mu.
func (d *Dashboard) newPage(tab string, sess *session) *page {
	p := &page{
		Tab:          tab,
		Tabs:         tabs,
		Auth:         d.auth != nil,
		Providers:    d.backend.AvailableProviders(),
		SystemPrompt: sess.systemPrompt,
		Health:       sess.health,
		ChatError:    sess.chatError,
		Generate:     sess.generate,
	}
	p.Settings = d.currentSettings(sess)
	if p.Settings.Provider != "" {
		if models, err := d.backend.AvailableModels(p.Settings.Provider); err == nil {
			p.Models = models
		}
	}
	for _, m := range sess.messages {
		p.Chat = append(p.Chat, chatTurn{Role: string(m.Role), HTML: renderMarkdown(m.Content)})
	}
	return p
}

// currentSettings returns the session settings, selecting the first available
// provider when none is chosen yet. The caller holds sess.mu.
func (d *Dashboard) currentSettings(sess *session) settings {
	if sess.settings.Provider == "" {
		if providers := d.backend.AvailableProviders(); len(providers) > 0 {
			sess.settings.Provider = providers[0]
		}
	}
	return sess.settings
}

func (d *Dashboard) render(w http.ResponseWriter, p *page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.tmpl.ExecuteTemplate(w, "layout.html", p); err != nil {
		d.log.Error("", "Failed to render dashboard", map[string]interface{}{"tab": p.Tab, "error": err.Error()})
	}
}

func (d *Dashboard) handlePage(w http.ResponseWriter, r *http.Request) {
	tab := mux.Vars(r)["tab"]
	sess := d.sessions.get(w, r)
	sess.mu.Lock()
	p := d.newPage(tab, sess)
	sess.mu.Unlock()

	switch tab {
	case "batch":
		p.Batch = &batchView{Concurrency: llm.DefaultConcurrency}
	case "analytics":
		p.Analytics = d.analytics(r.Context())
	}
	d.render(w, p)
}

func (d *Dashboard) analytics(ctx context.Context) *analyticsView {
	records, err := d.backend.History().Recent(ctx, analyticsLimit)
	if err != nil {
		return &analyticsView{Error: err.Error(), Summary: history.Summarize(nil)}
	}
	return &analyticsView{Summary: history.Summarize(records), Records: records}
}

func (d *Dashboard) handleSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess := d.sessions.get(w, r)
	sess.mu.Lock()
	s := sess.settings
	if v := r.PostFormValue("provider"); v != "" && v != s.Provider {
		s.Provider = v
		s.Model = ""
	} else {
		s.Model = r.PostFormValue("model")
	}
	s.MaxTokens = formInt(r, "max_tokens", s.MaxTokens, 1, 4000)
	s.Temperature = formFloat(r, "temperature", s.Temperature, 0, 2)
	s.TopP = formFloat(r, "top_p", s.TopP, 0, 1)
	sess.settings = s
	sess.mu.Unlock()

	http.Redirect(w, r, returnTo(r), http.StatusSeeOther)
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := d.backend.HealthCheck(r.Context())
	sess := d.sessions.get(w, r)
	sess.mu.Lock()
	sess.health = status
	sess.mu.Unlock()
	http.Redirect(w, r, returnTo(r), http.StatusSeeOther)
}

func (d *Dashboard) handleChat(w http.ResponseWriter, r *http.Request) {
	sess := d.sessions.get(w, r)
	message := strings.TrimSpace(r.PostFormValue("message"))

	sess.mu.Lock()
	sess.systemPrompt = r.PostFormValue("system_prompt")
	sess.chatError = ""
	if message == "" {
		sess.mu.Unlock()
		http.Redirect(w, r, Prefix+"/chat", http.StatusSeeOther)
		return
	}
	sess.messages = append(sess.messages, llm.ChatMessage{Role: llm.RoleUser, Content: message})
	msgs := make([]llm.ChatMessage, 0, len(sess.messages)+1)
	if sess.systemPrompt != "" {
		msgs = append(msgs, llm.ChatMessage{Role: llm.RoleSystem, Content: sess.systemPrompt})
	}
	msgs = append(msgs, sess.messages...)
	s := d.currentSettings(sess)
	sess.mu.Unlock()

	resp, err := d.backend.Chat(r.Context(), llm.ChatRequest{Messages: msgs, Provider: s.Provider, Sampling: s.sampling()})

	sess.mu.Lock()
	if err != nil {
		sess.chatError = err.Error()
		d.log.Warn("", "Dashboard chat failed", map[string]interface{}{"provider": s.Provider, "error": err.Error()})
	} else {
		sess.messages = append(sess.messages, llm.ChatMessage{Role: llm.RoleAssistant, Content: resp.Text})
	}
	sess.mu.Unlock()
	http.Redirect(w, r, Prefix+"/chat", http.StatusSeeOther)
}

func (d *Dashboard) handleChatClear(w http.ResponseWriter, r *http.Request) {
	sess := d.sessions.get(w, r)
	sess.mu.Lock()
	sess.messages = nil
	sess.chatError = ""
	sess.mu.Unlock()
	http.Redirect(w, r, Prefix+"/chat", http.StatusSeeOther)
}

func (d *Dashboard) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := d.sessions.get(w, r)
	prompt := r.PostFormValue("prompt")

	sess.mu.Lock()
	s := d.currentSettings(sess)
	sess.mu.Unlock()

	view := &generateView{Prompt: prompt}
	if strings.TrimSpace(prompt) == "" {
		view.Error = "Please enter a prompt."
	} else {
		resp, err := d.backend.Generate(r.Context(), llm.GenerationRequest{Prompt: prompt, Provider: s.Provider, Sampling: s.sampling()})
		if err != nil {
			view.Error = err.Error()
		} else {
			view.Response = resp
		}
	}

	sess.mu.Lock()
	sess.generate = view
	sess.mu.Unlock()
	http.Redirect(w, r, Prefix+"/generate", http.StatusSeeOther)
}

func (d *Dashboard) handleGenerateClear(w http.ResponseWriter, r *http.Request) {
	sess := d.sessions.get(w, r)
	sess.mu.Lock()
	sess.generate = nil
	sess.mu.Unlock()
	http.Redirect(w, r, Prefix+"/generate", http.StatusSeeOther)
}

// handleBatch renders results directly; they are not kept in the session.
func (d *Dashboard) handleBatch(w http.ResponseWriter, r *http.Request) {
	sess := d.sessions.get(w, r)
	view := &batchView{
		Prompts:     r.PostFormValue("prompts"),
		Concurrency: formInt(r, "concurrent", llm.DefaultConcurrency, 1, 10),
	}
	prompts := SplitPrompts(view.Prompts)

	sess.mu.Lock()
	p := d.newPage("batch", sess)
	s := p.Settings
	sess.mu.Unlock()
	p.Batch = view

	if len(prompts) == 0 {
		view.Error = "Please enter at least one prompt."
		d.render(w, p)
		return
	}

	result, err := d.backend.BatchGenerate(r.Context(), llm.BatchRequest{
		Prompts:            prompts,
		Provider:           s.Provider,
		ConcurrentRequests: view.Concurrency,
		Sampling:           s.sampling(),
	})
	if err != nil {
		view.Error = err.Error()
		d.render(w, p)
		return
	}

	view.Ran = true
	view.Total = len(result.Items)
	view.Succeeded = result.SuccessCount()
	view.Failed = result.ErrorCount()
	for _, it := range result.Items {
		row := batchRow{Index: it.Index, Prompt: it.Prompt}
		if it.Err != nil {
			row.Error = it.Err.Error()
		} else {
			row.Response = it.Response.Text
		}
		view.Rows = append(view.Rows, row)
	}
	d.render(w, p)
}

func (d *Dashboard) handleAnalyticsClear(w http.ResponseWriter, r *http.Request) {
	if err := d.backend.History().Clear(r.Context()); err != nil {
		d.log.Error("", "Failed to clear history", map[string]interface{}{"error": err.Error()})
	}
	http.Redirect(w, r, Prefix+"/analytics", http.StatusSeeOther)
}

// SplitPrompts splits newline separated text into prompts, dropping blank lines.
func SplitPrompts(text string) []string {
	var prompts []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			prompts = append(prompts, line)
		}
	}
	return prompts
}

func returnTo(r *http.Request) string {
	tab := r.PostFormValue("tab")
	if slices.Contains(tabs, tab) {
		return Prefix + "/" + tab
	}
	return Prefix + "/chat"
}

func formInt(r *http.Request, key string, def, lo, hi int) int {
	n, err := strconv.Atoi(r.PostFormValue(key))
	if err != nil || n < lo || n > hi {
		return def
	}
	return n
}

func formFloat(r *http.Request, key string, def, lo, hi float64) float64 {
	f, err := strconv.ParseFloat(r.PostFormValue(key), 64)
	if err != nil || f < lo || f > hi {
		return def
	}
	return f
}
