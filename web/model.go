// ABOUTME: Model page handlers: the two-step strategy configuration session bound to a browser cookie.
// ABOUTME: Form posts mutate the session; JSON clients receive the session view after each action.
package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/2389-research/neurogems/pipeline"
	"github.com/2389-research/neurogems/render"
	"github.com/2389-research/neurogems/session"
	"github.com/go-chi/chi/v5"
)

const sessionCookie = "neurogems_session"

const modelPage = "/dashboard/model"

func (s *Server) modelRouter(r chi.Router) {
	r.Get("/", s.handleModelPage)
	r.Get("/session", s.handleSessionJSON)
	r.Get("/ws", s.handleSessionWS)
	r.Get("/graph", s.handleGraph)
	r.Get("/graph.{format}", s.handleGraphExport)

	r.Post("/name", s.handleSetName)
	r.Post("/kind", s.handleSelectKind)
	r.Post("/auto-name", s.handleAutoName)
	r.Post("/submit", s.handleSubmit)
	r.Post("/back", s.handleBack)
	r.Post("/form", s.handleForm)
	r.Post("/attach", s.handleAttach)
	r.Post("/reload", s.handleReloadForm)
	r.Post("/refresh", s.handleRefresh)
	r.Post("/new", s.handleNewSession)
	r.Post("/edit/{name}", s.handleEditSaved)
	r.Post("/delete/{name}", s.handleDeleteSaved)
}

// existingSession returns the browser's session without creating one.
func (s *Server) existingSession(r *http.Request) (*session.Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	return s.sessions.Get(c.Value)
}

// sessionFor returns the browser's session, starting a fresh one if needed.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	sess, _ := s.sessionOrNew(w, r)
	return sess
}

// sessionOrNew is sessionFor that also reports whether the session was created by this request.
func (s *Server) sessionOrNew(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	if sess, ok := s.existingSession(r); ok {
		return sess, false
	}
	sess := s.sessions.Create()
	s.bindSession(w, sess)
	s.primeSession(r.Context(), sess)
	return sess, true
}

func (s *Server) bindSession(w http.ResponseWriter, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// primeSession loads the strategy kinds and saved list; failures surface as session alerts.
func (s *Server) primeSession(ctx context.Context, sess *session.Session) {
	if err := sess.LoadStrategies(ctx); err != nil {
		log.Printf("web session prime id=%s strategies err=%v", sess.ID, err)
	}
	if err := sess.Refresh(ctx); err != nil {
		log.Printf("web session prime id=%s saved err=%v", sess.ID, err)
	}
}

func (s *Server) handleModelPage(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	view := sess.View()
	s.renderPage(w, r, "model.html", PageData{
		Title:  "Model",
		Active: "model",
		Alerts: view.Alerts,
		Model:  &view,
	})
}

func (s *Server) handleSessionJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionFor(w, r).View())
}

// actionError maps session errors onto a status and either JSON or a redirect with the alert.
func (s *Server) actionError(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, session.ErrWrongStep):
		status = http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		status = http.StatusGone
	case errors.Is(err, session.ErrIncomplete), errors.Is(err, session.ErrNoForm),
		errors.Is(err, session.ErrUnknownModelType), errors.Is(err, session.ErrUnknownInput),
		errors.Is(err, session.ErrInputNotSupported):
	default:
		status = http.StatusBadGateway
	}
	if wantsJSON(r) {
		writeJSON(w, status, map[string]any{"error": err.Error(), "session": sess.View()})
		return
	}
	if status != http.StatusBadGateway {
		sess.Alerts().Error(err.Error())
	}
	http.Redirect(w, r, modelPage, http.StatusSeeOther)
}

func (s *Server) handleSetName(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if err := sess.SetName(r.FormValue("name")); err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	s.finish(w, r, sess, modelPage)
}

func (s *Server) handleSelectKind(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if err := sess.SelectKind(r.FormValue("kind")); err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	s.finish(w, r, sess, modelPage)
}

func (s *Server) handleAutoName(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if _, err := sess.AutoName(); err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	s.finish(w, r, sess, modelPage)
}

// handleSubmit accepts name and kind in the same post so a plain HTML form works.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if sess.Step() == session.StepNamingAndKind {
		if name, ok := formValue(r, "name"); ok {
			_ = sess.SetName(name)
		}
		if kind, ok := formValue(r, "kind"); ok {
			_ = sess.SelectKind(kind)
		}
	}
	if err := sess.Submit(); err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	s.finish(w, r, sess, modelPage)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if err := sess.Back(); err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	s.finish(w, r, sess, modelPage)
}

// handleForm applies attach form fields. Input is applied first since it resets the catalog;
// action=attach then posts the model.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	form := sess.Form()
	if form == nil {
		err := session.ErrNoForm
		if sess.Step() != session.StepPipelineDefinition {
			err = session.ErrWrongStep
		}
		s.actionError(w, r, sess, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	if input, ok := formValue(r, "input"); ok && input != form.View().Input {
		if err := form.SetInput(input); err != nil {
			s.actionError(w, r, sess, err)
			return
		}
		if err := form.Load(r.Context()); err != nil {
			log.Printf("web form load id=%s input=%s err=%v", sess.ID, input, err)
		}
	}
	if id, ok := formValue(r, "model_type"); ok && id != form.View().ModelType {
		if err := form.SelectModelType(id); err != nil {
			s.actionError(w, r, sess, err)
			return
		}
	}
	if name, ok := formValue(r, "model_name"); ok {
		form.SetModelName(name)
	}
	for key, vals := range r.PostForm {
		if k, ok := strings.CutPrefix(key, "param_"); ok && len(vals) > 0 {
			form.EditParamToken(k, vals[0])
		}
	}

	if r.PostForm.Get("action") == "attach" {
		s.handleAttach(w, r)
		return
	}
	s.finish(w, r, sess, modelPage)
}

func (s *Server) handleAttach(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if _, err := sess.AttachModel(r.Context()); err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	s.finish(w, r, sess, modelPage)
}

func (s *Server) handleReloadForm(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if err := sess.ReloadForm(r.Context()); err != nil && errors.Is(err, session.ErrNoForm) {
		s.actionError(w, r, sess, err)
		return
	}
	s.finish(w, r, sess, modelPage)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if len(sess.Strategies()) == 0 {
		_ = sess.LoadStrategies(r.Context())
	}
	_ = sess.Refresh(r.Context())
	s.finish(w, r, sess, backTo(r, modelPage))
}

// replaceSession closes the browser's current session and binds next in its place.
func (s *Server) replaceSession(w http.ResponseWriter, r *http.Request, next *session.Session) {
	if old, ok := s.existingSession(r); ok {
		s.sessions.Remove(old.ID)
	}
	s.bindSession(w, next)
	s.primeSession(r.Context(), next)
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.replaceSession(w, r, sess)
	s.finish(w, r, sess, modelPage)
}

// handleEditSaved seeds a fresh session from a saved strategy.
func (s *Server) handleEditSaved(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	current, created := s.sessionOrNew(w, r)
	saved, ok := current.SavedEntry(name)
	if !ok {
		if err := current.Refresh(r.Context()); err == nil {
			saved, ok = current.SavedEntry(name)
		}
	}
	if !ok {
		if wantsJSON(r) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "strategy not found: " + name})
			return
		}
		current.Alerts().Error("Strategy not found: " + name)
		http.Redirect(w, r, modelPage, http.StatusSeeOther)
		return
	}

	sess := s.sessions.CreateEdit(saved)
	s.replaceSession(w, r, sess)
	if created {
		// The request carried no cookie, so replaceSession cannot see current.
		s.sessions.Remove(current.ID)
	}
	s.finish(w, r, sess, modelPage)
}

func (s *Server) handleDeleteSaved(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if err := sess.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.actionError(w, r, sess, err)
		return
	}
	s.finish(w, r, sess, backTo(r, modelPage))
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	g := sess.Graph()
	levels, err := pipeline.Levels(g)
	resp := map[string]any{
		"name":     sess.Name(),
		"graph":    g,
		"levels":   levels,
		"problems": pipeline.Validate(g),
	}
	if err != nil {
		resp["levelsError"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGraphExport serves the current graph as DOT source or a Graphviz rendering.
func (s *Server) handleGraphExport(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	format := chi.URLParam(r, "format")
	dot, err := render.DOT(sess.Name(), sess.Graph())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if format == "dot" {
		w.Header().Set("Content-Type", render.ContentType("dot"))
		_, _ = w.Write([]byte(dot))
		return
	}

	out, err := s.renders.Render(r.Context(), dot, format)
	switch {
	case errors.Is(err, render.ErrGraphvizMissing):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", render.ContentType(format))
	_, _ = w.Write(out)
}

// formValue reports a trimmed form value and whether the field was posted at all.
func formValue(r *http.Request, key string) (string, bool) {
	if err := r.ParseForm(); err != nil {
		return "", false
	}
	vals, ok := r.Form[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return strings.TrimSpace(vals[0]), true
}
