// ABOUTME: Bearer token authentication middleware for dashboard routes.
// ABOUTME: Supports the Authorization header and a neurogems_token cookie for browser sessions.
package web

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const tokenCookie = "neurogems_token"

const loginPage = `<!DOCTYPE html><html><head><title>NeuroGeMS Login</title></head><body style="font-family:sans-serif;display:flex;justify-content:center;align-items:center;height:100vh;margin:0;background:#1a1a2e;color:#e0e0e0"><div style="text-align:center"><h1>NeuroGeMS</h1><p>%s</p></div></body></html>`

// AuthMiddleware validates bearer tokens on every route except health, login and static assets.
func AuthMiddleware(token string) func(http.Handler) http.Handler {
	expected := "Bearer " + token
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/health" || path == "/login" || strings.HasPrefix(path, "/static/") {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if subtle.ConstantTimeCompare([]byte(auth), []byte(expected)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			if cookie, err := r.Cookie(tokenCookie); err == nil {
				if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(token)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}

			if !strings.Contains(r.Header.Get("Accept"), "text/html") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		})
	}
}

// LoginHandler validates a token query parameter and sets the session cookie.
func LoginHandler(expectedToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeLoginPage(w, "Authentication required. Append <code>?token=YOUR_TOKEN</code> to this URL.")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			writeLoginPage(w, "Invalid token.")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     tokenCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteStrictMode,
		})
		http.Redirect(w, r, "/dashboard/home", http.StatusSeeOther)
	}
}

func writeLoginPage(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(strings.Replace(loginPage, "%s", msg, 1)))
}
