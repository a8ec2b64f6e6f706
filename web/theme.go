// ABOUTME: Light/dark theme preference stored in a browser cookie.
package web

import "net/http"

const (
	themeCookie = "neurogems_theme"
	themeLight  = "light"
	themeDark   = "dark"
)

func themeFrom(r *http.Request) string {
	if c, err := r.Cookie(themeCookie); err == nil && c.Value == themeDark {
		return themeDark
	}
	return themeLight
}

// handleTheme toggles the theme, or sets it from the "theme" form value.
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	next := r.FormValue("theme")
	if next != themeLight && next != themeDark {
		next = themeDark
		if themeFrom(r) == themeDark {
			next = themeLight
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     themeCookie,
		Value:    next,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
	})
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"theme": next})
		return
	}
	http.Redirect(w, r, backTo(r, "/dashboard/settings"), http.StatusSeeOther)
}
