// ABOUTME: Experiment page handlers: train a saved strategy, list and remove runs, show run results.
// ABOUTME: Results come from a train response or are rebuilt from a tracked run's logged params.
package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/2389-research/neurogems/catalog"
	"github.com/2389-research/neurogems/experiment"
	"github.com/2389-research/neurogems/gateway"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const experimentPage = "/dashboard/experiment"

func (s *Server) experimentRouter(r chi.Router) {
	r.Get("/", s.handleExperimentPage)
	r.Post("/train", s.handleTrain)
	r.Get("/runs/{runID}/report.md", s.handleRunReport)
	r.Post("/runs/{runID}/remove", s.handleRemoveRun)
}

// loadExperiment fetches strategies, validations and runs concurrently.
func (s *Server) loadExperiment(ctx context.Context, form *experiment.TrainForm) ExperimentView {
	var (
		view ExperimentView
		errs [3]error
	)
	var g errgroup.Group
	g.Go(func() error {
		view.Strategies, errs[0] = s.gw.ListSavedStrategies(ctx)
		return nil
	})
	g.Go(func() error {
		errs[1] = form.Load(ctx)
		return nil
	})
	g.Go(func() error {
		view.Runs, errs[2] = s.gw.ListExperimentRuns(ctx)
		return nil
	})
	_ = g.Wait()

	var msgs []string
	for _, err := range errs {
		if err != nil {
			log.Printf("web experiment load err=%v", err)
			msgs = append(msgs, gateway.Message(err))
		}
	}
	view.Error = strings.Join(msgs, "; ")
	for _, v := range form.Validations() {
		view.Validations = append(view.Validations, ValidationView{ID: v.ID})
	}
	return view
}

func fillForm(view *ExperimentView, form *experiment.TrainForm, runName, strategy, validation string) {
	view.RunName = runName
	view.Strategy = strategy
	view.Validation = validation
	d, ok := form.Validation()
	if !ok {
		return
	}
	assign := form.Params()
	for _, k := range assign.Keys() {
		cur, _ := assign.Get(k)
		opts, _ := d.Params.Options(k)
		view.Params = append(view.Params, ParamRow{Name: k, Value: cur.Display(), Options: displayTokens(opts)})
	}
}

func displayTokens(opts []catalog.Value) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Display()
	}
	return out
}

// handleExperimentPage shows the train form; ?validation= preselects a method and ?run= a run.
func (s *Server) handleExperimentPage(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	form := experiment.NewTrainForm(s.gw, nil)
	view := s.loadExperiment(r.Context(), form)

	q := r.URL.Query()
	validation := q.Get("validation")
	if validation != "" {
		if err := form.SelectValidation(validation); err != nil {
			validation = ""
		}
	}
	fillForm(&view, form, q.Get("run_name"), q.Get("strategy"), validation)

	if runID := q.Get("run"); runID != "" {
		view.Selected = runView(view.Runs, runID)
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}
	s.renderPage(w, r, "experiment.html", PageData{
		Title:      "Experiment",
		Active:     "experiment",
		Alerts:     sess.Alerts().Active(),
		Experiment: &view,
	})
}

// runView rebuilds the results of runID from the run list.
func runView(runs []gateway.Run, runID string) *RunView {
	for _, run := range runs {
		if run.ID != runID {
			continue
		}
		rv := &RunView{Run: run}
		res, err := experiment.FromRun(run)
		if err != nil {
			log.Printf("web experiment run=%s parse err=%v", runID, err)
			rv.Error = err.Error()
			return rv
		}
		rv.Results = res
		rv.Report = experiment.Report(res)
		rv.ShapPlot = shapLinks(res.ArtifactURI)
		return rv
	}
	return nil
}

func shapLinks(uri string) map[string]string {
	links := map[string]string{}
	for _, kind := range []string{experiment.ShapSummary, experiment.ShapBar} {
		if p := experiment.ShapPlotPath(uri, kind); p != "" {
			links[kind] = p
		}
	}
	return links
}

// handleTrain runs training synchronously and renders the returned results.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	form := experiment.NewTrainForm(s.gw, nil)
	view := s.loadExperiment(r.Context(), form)

	runName := r.PostForm.Get("run_name")
	strategy := r.PostForm.Get("strategy")
	validation := r.PostForm.Get("validation")
	form.SetRunName(runName)
	form.SetStrategy(strategy)
	if err := form.SelectValidation(validation); err != nil {
		validation = ""
	}
	for key, vals := range r.PostForm {
		if k, ok := strings.CutPrefix(key, "param_"); ok && len(vals) > 0 {
			form.EditParamToken(k, vals[0])
		}
	}
	fillForm(&view, form, runName, strategy, validation)

	status := http.StatusOK
	res, err := form.Train(r.Context(), s.gw)
	switch {
	case errors.Is(err, experiment.ErrIncomplete):
		status = http.StatusBadRequest
		sess.Alerts().Error("Run name, strategy and validation method are required")
	case err != nil:
		log.Printf("web experiment train strategy=%s err=%v", strategy, err)
		status = http.StatusBadGateway
		sess.Alerts().Error(gateway.Message(err))
	default:
		sess.Alerts().Success(experiment.MsgTrainingComplete)
		view.Selected = &RunView{
			Run:      gateway.Run{Name: runName},
			Results:  res,
			Report:   experiment.Report(res),
			ShapPlot: shapLinks(res.ArtifactURI),
		}
		if runs, err := s.gw.ListExperimentRuns(r.Context()); err == nil {
			view.Runs = runs
		}
	}

	if wantsJSON(r) {
		if err != nil {
			writeJSON(w, status, map[string]string{"error": gateway.Message(err)})
			return
		}
		writeJSON(w, status, res)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	s.renderPage(w, r, "experiment.html", PageData{
		Title:      "Experiment",
		Active:     "experiment",
		Alerts:     sess.Alerts().Active(),
		Experiment: &view,
	})
}

// handleRunReport downloads a run's results as a markdown table.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	runs, err := s.gw.ListExperimentRuns(r.Context())
	if err != nil {
		http.Error(w, gateway.Message(err), http.StatusBadGateway)
		return
	}
	rv := runView(runs, chi.URLParam(r, "runID"))
	if rv == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if rv.Error != "" {
		http.Error(w, rv.Error, http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+rv.Run.ID+`.md"`)
	_, _ = w.Write([]byte(experiment.ReportMarkdown(rv.Results)))
}

func (s *Server) handleRemoveRun(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	runID := chi.URLParam(r, "runID")
	msg, err := s.gw.RemoveRun(r.Context(), runID)
	if err != nil {
		log.Printf("web experiment remove run=%s err=%v", runID, err)
		sess.Alerts().Error(gateway.Message(err))
		if wantsJSON(r) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": gateway.Message(err)})
			return
		}
		http.Redirect(w, r, experimentPage, http.StatusSeeOther)
		return
	}
	sess.Alerts().Success(msg)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"message": msg})
		return
	}
	http.Redirect(w, r, experimentPage, http.StatusSeeOther)
}
