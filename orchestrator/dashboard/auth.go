// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package dashboard

import (
	"net/http"
	"strings"
)

const (
	// TokenCookie carries the API token once the browser has logged in.
	TokenCookie = "genai_token"

	// LoginPath accepts a token and sets TokenCookie.
	LoginPath = Prefix + "/login"
)

// Authenticator reports whether token grants API access.
type Authenticator func(token string) error

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithAuthenticator enables the login page. Requests are checked by the
// router middleware; the dashboard only validates the submitted token.
func WithAuthenticator(auth Authenticator) Option {
	return func(d *Dashboard) {
		d.auth = auth
	}
}

type loginView struct {
	Error string
}

func (d *Dashboard) renderLogin(w http.ResponseWriter, status int, v loginView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := d.tmpl.ExecuteTemplate(w, "login.html", v); err != nil {
		d.log.Error("", "Failed to render login page", map[string]interface{}{"error": err.Error()})
	}
}

func (d *Dashboard) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	d.renderLogin(w, http.StatusOK, loginView{})
}

func (d *Dashboard) handleLogin(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.FormValue("token"))
	if token == "" || d.auth(token) != nil {
		d.log.Warn("", "Dashboard login rejected", map[string]interface{}{"remote": r.RemoteAddr})
		d.renderLogin(w, http.StatusUnauthorized, loginView{Error: "Invalid token"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     Prefix,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	http.Redirect(w, r, Prefix+"/chat", http.StatusSeeOther)
}

func (d *Dashboard) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     Prefix,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}
