// ABOUTME: Home page handler: saved strategies, datasets, runs and recent activity fetched concurrently.
package web

import (
	"log"
	"net/http"

	"github.com/2389-research/neurogems/datasets"
	"github.com/2389-research/neurogems/gateway"
	"golang.org/x/sync/errgroup"
)

const homeActivityLimit = 15

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	var (
		view     HomeView
		errs     [4]error
		saved    []gateway.SavedStrategy
		dsets []datasets.Dataset
		runs     []gateway.Run
	)

	var g errgroup.Group
	g.Go(func() error {
		saved, errs[0] = s.gw.ListSavedStrategies(r.Context())
		return nil
	})
	g.Go(func() error {
		dsets, errs[1] = s.gw.ListDatasets(r.Context(), false)
		return nil
	})
	g.Go(func() error {
		runs, errs[2] = s.gw.ListExperimentRuns(r.Context())
		return nil
	})
	if s.activity != nil {
		g.Go(func() error {
			entries, err := s.activity.Recent(r.Context(), homeActivityLimit)
			errs[3] = err
			for _, e := range entries {
				view.Activity = append(view.Activity, ActivityRow{
					At:      e.At.Format("2006-01-02 15:04:05"),
					Action:  e.Action,
					Subject: e.Subject,
					Outcome: e.Outcome,
					Detail:  e.Detail,
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			log.Printf("web home err=%v", err)
			view.Errors = append(view.Errors, gateway.Message(err))
		}
	}
	view.Strategies = saved
	view.Datasets = dsets
	view.Runs = runs

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}
	s.renderPage(w, r, "home.html", PageData{Title: "Home", Active: "home", Home: &view})
}
