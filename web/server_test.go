// ABOUTME: Tests for the dashboard HTTP server and chi router.
// ABOUTME: Covers health, redirects, pages, auth, theme and http.Handler compliance.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/2389-research/neurogems/activity"
	"github.com/2389-research/neurogems/gateway/gatewaytest"
	"github.com/2389-research/neurogems/session"
)

func newTestServer(t *testing.T, opts ...func(*ServerConfig)) (*Server, *gatewaytest.Fake) {
	t.Helper()
	fake := gatewaytest.New("ds1", "ds2")
	cfg := ServerConfig{
		Gateway:  fake,
		Sessions: session.NewStore(session.Deps{Gateway: fake}, 10, time.Hour),
	}
	for _, o := range opts {
		o(&cfg)
	}
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(srv.sessions.CloseAll)
	return srv, fake
}

// browser replays cookies between requests against a Server.
type browser struct {
	t       *testing.T
	srv     http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, srv http.Handler) *browser {
	return &browser{t: t, srv: srv, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, path string, form url.Values, accept string) *httptest.ResponseRecorder {
	b.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.srv.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) json(method, path string, form url.Values) *httptest.ResponseRecorder {
	return b.do(method, path, form, "application/json")
}

func (b *browser) html(method, path string, form url.Values) *httptest.ResponseRecorder {
	return b.do(method, path, form, "text/html")
}

func TestServerImplementsHTTPHandler(t *testing.T) {
	srv, _ := newTestServer(t)
	var _ http.Handler = srv
}

func TestNewServerRequiresGateway(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Fatal("expected error for nil gateway")
	}
}

func TestServerHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := newBrowser(t, srv).json(http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status %q, got %q", "ok", body["status"])
	}
}

func TestServerRedirects(t *testing.T) {
	srv, _ := newTestServer(t)
	b := newBrowser(t, srv)

	cases := map[string]string{
		"/":            "/dashboard/home",
		"/dashboard":   "/dashboard/home",
		"/nope":        "/dashboard/404",
		"/dashboard/x": "/dashboard/404",
	}
	for path, want := range cases {
		rec := b.html(http.MethodGet, path, nil)
		if rec.Code != http.StatusFound {
			t.Errorf("%s: expected 302, got %d", path, rec.Code)
			continue
		}
		if loc := rec.Header().Get("Location"); loc != want {
			t.Errorf("%s: expected redirect to %s, got %s", path, want, loc)
		}
	}
}

func TestServerNotFoundPage(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := newBrowser(t, srv).html(http.MethodGet, "/dashboard/404", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "does not exist") {
		t.Errorf("expected not found message, got %q", rec.Body.String())
	}
}

func TestServerHomeListsStrategiesAndRuns(t *testing.T) {
	srv, fake := newTestServer(t)
	ctx := context.Background()
	if _, err := fake.CreateStrategy(ctx, "alpha", "unimodal"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := newBrowser(t, srv).html(http.MethodGet, "/dashboard/home", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"alpha", "NeuroGeMS", "Saved strategies", `class="active"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected home to contain %q", want)
		}
	}
}

func TestServerHomeReportsBackendErrors(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.Fail("get-experiment-runs", gatewaytest.ErrNetwork)

	rec := newBrowser(t, srv).json(http.MethodGet, "/dashboard/home", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var view HomeView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Errors) != 1 || view.Errors[0] != gatewaytest.ErrNetwork.Error() {
		t.Fatalf("expected one network error, got %v", view.Errors)
	}
	if len(view.Datasets) != 2 {
		t.Errorf("expected datasets despite run failure, got %d", len(view.Datasets))
	}
}

type stubActivity struct{ entries []activity.Entry }

func (s stubActivity) Recent(ctx context.Context, limit int) ([]activity.Entry, error) {
	return s.entries, nil
}

func TestServerHomeShowsActivity(t *testing.T) {
	entry := activity.NewEntry(activity.ActionCreateStrategy, "alpha", nil, "created")
	srv, _ := newTestServer(t, func(c *ServerConfig) {
		c.Activity = stubActivity{entries: []activity.Entry{entry}}
	})

	rec := newBrowser(t, srv).html(http.MethodGet, "/dashboard/home", nil)
	body := rec.Body.String()
	if !strings.Contains(body, activity.ActionCreateStrategy) || !strings.Contains(body, "alpha") {
		t.Errorf("expected activity row in home page, got %q", body)
	}
}

func TestServerSettingsAndTheme(t *testing.T) {
	srv, _ := newTestServer(t)
	b := newBrowser(t, srv)

	rec := b.html(http.MethodGet, "/dashboard/settings", nil)
	if !strings.Contains(rec.Body.String(), `data-theme="light"`) {
		t.Fatalf("expected light theme by default")
	}

	rec = b.html(http.MethodPost, "/theme", url.Values{"theme": {"dark"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	rec = b.html(http.MethodGet, "/dashboard/settings", nil)
	if !strings.Contains(rec.Body.String(), `data-theme="dark"`) {
		t.Errorf("expected dark theme after toggle")
	}

	rec = b.json(http.MethodPost, "/theme", url.Values{})
	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["theme"] != "light" {
		t.Errorf("expected toggle back to light, got %q", body["theme"])
	}
}

func TestServerMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := newBrowser(t, srv).do(http.MethodGet, "/metrics", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServerStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t)
	b := newBrowser(t, srv)
	for _, path := range []string{"/static/css/dashboard.css", "/static/js/dashboard.js"} {
		if rec := b.do(http.MethodGet, path, nil, ""); rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := newTestServer(t, func(c *ServerConfig) { c.AuthToken = "s3cret" })
	b := newBrowser(t, srv)

	if rec := b.json(http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected health to bypass auth, got %d", rec.Code)
	}
	if rec := b.json(http.MethodGet, "/dashboard/home", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for API client, got %d", rec.Code)
	}
	rec := b.html(http.MethodGet, "/dashboard/home", nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected browser redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	if rec := b.html(http.MethodGet, "/login?token=wrong", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong token, got %d", rec.Code)
	}
	if rec := b.html(http.MethodGet, "/login?token=s3cret", nil); rec.Code != http.StatusSeeOther {
		t.Fatalf("expected login redirect, got %d", rec.Code)
	}
	if rec := b.html(http.MethodGet, "/dashboard/home", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected cookie to authorize, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard/home", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected bearer header to authorize, got %d", rec.Code)
	}
}

func TestWantsJSON(t *testing.T) {
	cases := map[string]bool{
		"application/json":                true,
		"text/html,application/xhtml+xml": false,
		"":                                false,
		"text/html, application/json":     false,
	}
	for accept, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept", accept)
		if got := wantsJSON(req); got != want {
			t.Errorf("Accept %q: expected %v, got %v", accept, want, got)
		}
	}
}
