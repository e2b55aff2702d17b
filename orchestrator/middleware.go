// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"genaikit/orchestrator/dashboard"
	"genaikit/shared/logger"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDFromContext returns the id set by the request id middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestIDMiddleware accepts a caller supplied X-Request-ID or generates one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs each request and records request metrics under the
// matched route template.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			endpoint := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					endpoint = tpl
				}
			}
			recordRequest(endpoint, rec.status, start)
			log.InfoWithDuration(RequestIDFromContext(r.Context()), "HTTP request",
				float64(time.Since(start).Milliseconds()), map[string]interface{}{
					"method":   r.Method,
					"endpoint": endpoint,
					"status":   rec.status,
				})
		})
	}
}

// publicPaths skip authentication.
var publicPaths = []string{"/health", "/metrics", dashboard.LoginPath}

func isPublic(path string) bool {
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func isDashboard(path string) bool {
	return path == dashboard.Prefix || strings.HasPrefix(path, dashboard.Prefix+"/")
}

// validateToken accepts an HS256 token signed with secret.
func validateToken(secret []byte, tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("token is not valid")
	}
	return nil
}

// jwtMiddleware requires an HS256 token signed with secret on every
// non-public path. API callers send it as a bearer token; dashboard pages
// may instead carry it in the cookie set by the login page.
func jwtMiddleware(secret []byte) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			browser := isDashboard(r.URL.Path)
			tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				tokenString = ""
			}
			if tokenString == "" && browser {
				if c, err := r.Cookie(dashboard.TokenCookie); err == nil {
					tokenString = c.Value
				}
			}

			if tokenString == "" {
				deny(w, r, browser, "missing bearer token")
				return
			}
			if err := validateToken(secret, tokenString); err != nil {
				deny(w, r, browser, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// deny sends dashboard page loads to the login page and answers everything
// else with 401.
func deny(w http.ResponseWriter, r *http.Request, browser bool, detail string) {
	if browser && r.Method == http.MethodGet {
		http.Redirect(w, r, dashboard.LoginPath, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{Detail: detail})
}
