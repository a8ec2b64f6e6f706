// ABOUTME: NeuroGeMS dashboard HTTP server: home, data, model, experiment and settings pages
// ABOUTME: behind a single chi router, plus JSON, websocket, metrics and artifact routes.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/2389-research/neurogems/activity"
	"github.com/2389-research/neurogems/gateway"
	"github.com/2389-research/neurogems/render"
	"github.com/2389-research/neurogems/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ActivityReader lists recent backend mutations for the home page.
type ActivityReader interface {
	Recent(ctx context.Context, limit int) ([]activity.Entry, error)
}

// Server is the dashboard HTTP server.
type Server struct {
	gw        gateway.Gateway
	sessions  *session.Store
	activity  ActivityReader
	templates *TemplateEngine
	renders   *render.Cache
	registry  *prometheus.Registry
	router    chi.Router
	addr      string
	mlrunsDir string
	authToken string
}

// ServerConfig holds the configuration for the dashboard server.
type ServerConfig struct {
	Addr      string // listen address (default: "127.0.0.1:3000")
	MLRunsDir string // artifact directory served under /mlruns, optional
	AuthToken string // bearer token required on dashboard routes, optional

	Gateway  gateway.Gateway
	Sessions *session.Store
	Activity ActivityReader       // optional
	Registry *prometheus.Registry // optional, a fresh registry is used when nil
}

// NewServer creates a Server and sets up routing.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("gateway must not be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:3000"
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewStore(session.Deps{Gateway: cfg.Gateway}, 100, 2*time.Hour)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	tmpl, err := NewTemplateEngine()
	if err != nil {
		return nil, fmt.Errorf("initializing templates: %w", err)
	}

	s := &Server{
		gw:        cfg.Gateway,
		sessions:  cfg.Sessions,
		activity:  cfg.Activity,
		templates: tmpl,
		renders:   render.NewCache(render.RenderDOTSource, 10*time.Minute, 64),
		registry:  cfg.Registry,
		addr:      cfg.Addr,
		mlrunsDir: cfg.MLRunsDir,
		authToken: cfg.AuthToken,
	}
	s.router = s.buildRouter()
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Printf("web listening addr=%s", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.sessions.CloseAll()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(webRequestLogger)
	r.Use(middleware.Recoverer)
	if s.authToken != "" {
		r.Use(AuthMiddleware(s.authToken))
		r.Get("/login", LoginHandler(s.authToken))
	}

	r.Get("/", redirectTo("/dashboard/home"))
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Handle("/static/*", http.FileServer(http.FS(StaticFS)))
	if s.mlrunsDir != "" {
		r.Handle("/mlruns/*", http.StripPrefix("/mlruns/", http.FileServer(http.Dir(s.mlrunsDir))))
	}
	r.Post("/theme", s.handleTheme)

	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", redirectTo("/dashboard/home"))
		r.Get("/home", s.handleHome)
		r.Get("/settings", s.handleSettings)
		r.Get("/404", s.handleNotFoundPage)
		r.Post("/alerts/{alertID}/dismiss", s.handleAlertDismiss)
		r.Route("/data", s.dataRouter)
		r.Route("/model", s.modelRouter)
		r.Route("/experiment", s.experimentRouter)
	})

	r.NotFound(redirectTo("/dashboard/404"))
	return r
}

func redirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// handleHealth returns a JSON health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "settings.html", PageData{Title: "Settings", Active: "settings"})
}

func (s *Server) handleNotFoundPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	s.renderPage(w, r, "404.html", PageData{Title: "Page Not Found"})
}

func (s *Server) handleAlertDismiss(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	var id uint64
	if _, err := fmt.Sscan(chi.URLParam(r, "alertID"), &id); err != nil {
		http.Error(w, "bad alert id", http.StatusBadRequest)
		return
	}
	sess.Alerts().Dismiss(id)
	s.finish(w, r, sess, backTo(r, "/dashboard/home"))
}

// renderPage fills the shared layout fields and renders a page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, data PageData) {
	data.Theme = themeFrom(r)
	if data.Alerts == nil {
		if sess, ok := s.existingSession(r); ok {
			data.Alerts = sess.Alerts().Active()
		}
	}
	if err := s.templates.Render(w, name, data); err != nil {
		log.Printf("web render page=%s err=%v", name, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// finish answers a form post: JSON clients get the session view, browsers a redirect.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, sess *session.Session, target string) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, sess.View())
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// backTo returns the local referer path, or fallback.
func backTo(r *http.Request, fallback string) string {
	ref := r.Header.Get("Referer")
	if i := strings.Index(ref, "/dashboard/"); i >= 0 {
		return ref[i:]
	}
	return fallback
}

// wantsJSON returns true if the request prefers JSON over HTML based on the Accept header.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "text/html") {
		return false
	}
	return strings.Contains(accept, "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web encode err=%v", err)
	}
}

// isMaxBytesError reports whether err indicates the request body exceeded the size limit.
func isMaxBytesError(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
