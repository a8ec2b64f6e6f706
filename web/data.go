// ABOUTME: Data page handlers: list, profile, add and remove datasets.
// ABOUTME: Outcomes are raised on the browser session's alert channel.
package web

import (
	"log"
	"net/http"
	"strings"

	"github.com/2389-research/neurogems/datasets"
	"github.com/2389-research/neurogems/gateway"
	"github.com/go-chi/chi/v5"
)

const dataPage = "/dashboard/data"

const maxFormBytes = 1 << 20

func (s *Server) dataRouter(r chi.Router) {
	r.Get("/", s.handleDataPage)
	r.Post("/add", s.handleAddDataset)
	r.Post("/remove/{name}", s.handleRemoveDataset)
}

// handleDataPage lists datasets; ?name= selects one and renders its profile.
func (s *Server) handleDataPage(w http.ResponseWriter, r *http.Request) {
	selected := r.URL.Query().Get("name")
	view := DataView{}

	list, err := s.gw.ListDatasets(r.Context(), selected != "")
	if err != nil {
		log.Printf("web data list err=%v", err)
		view.Error = gateway.Message(err)
	}
	view.Datasets = list
	for i := range list {
		if list[i].Name == selected {
			view.Selected = &list[i]
			break
		}
	}
	if view.Selected != nil {
		profileView(&view)
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}
	s.renderPage(w, r, "data.html", PageData{Title: "Data", Active: "data", Data: &view})
}

func profileView(v *DataView) {
	p := v.Selected.Profile
	if p == nil {
		return
	}
	v.Overview = datasets.Overview(p.Table)
	v.Classes = datasets.ClassCounts(p, v.Selected.TargetColumn)
	for _, name := range datasets.Columns(p) {
		col := p.Variables[name]
		v.Columns = append(v.Columns, ColumnView{Name: name, Type: col.Type, Stats: datasets.ColumnStats(col)})
	}
}

func (s *Server) handleAddDataset(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		if isMaxBytesError(err) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	req := gateway.AddDatasetRequest{
		Name:         strings.TrimSpace(r.PostForm.Get("name")),
		Path:         strings.TrimSpace(r.PostForm.Get("path")),
		TargetColumn: strings.TrimSpace(r.PostForm.Get("target_column")),
		TimeColumn:   strings.TrimSpace(r.PostForm.Get("time_column")),
		WithProfile:  r.PostForm.Get("profile") != "",
	}
	if req.Name == "" || req.Path == "" || req.TargetColumn == "" {
		msg := "Dataset name, path and target column are required"
		if wantsJSON(r) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
			return
		}
		sess.Alerts().Error(msg)
		http.Redirect(w, r, dataPage, http.StatusSeeOther)
		return
	}

	ds, err := s.gw.AddDataset(r.Context(), req)
	if err != nil {
		log.Printf("web data add name=%s err=%v", req.Name, err)
		sess.Alerts().Error(gateway.Message(err))
		if wantsJSON(r) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": gateway.Message(err)})
			return
		}
		http.Redirect(w, r, dataPage, http.StatusSeeOther)
		return
	}
	sess.Alerts().Success("Dataset added: " + ds.Name)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, ds)
		return
	}
	http.Redirect(w, r, dataPage+"?name="+ds.Name, http.StatusSeeOther)
}

func (s *Server) handleRemoveDataset(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	name := chi.URLParam(r, "name")
	msg, err := s.gw.RemoveDataset(r.Context(), name)
	if err != nil {
		log.Printf("web data remove name=%s err=%v", name, err)
		sess.Alerts().Error(gateway.Message(err))
		if wantsJSON(r) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": gateway.Message(err)})
			return
		}
		http.Redirect(w, r, dataPage, http.StatusSeeOther)
		return
	}
	sess.Alerts().Success(msg)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"message": msg})
		return
	}
	http.Redirect(w, r, dataPage, http.StatusSeeOther)
}
