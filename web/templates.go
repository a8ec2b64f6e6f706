// ABOUTME: TemplateEngine loads embedded HTML templates and renders them with Go's html/template.
// ABOUTME: Every dashboard page is parsed together with the shared layout and sidebar.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2389-research/neurogems/datasets"
	"github.com/2389-research/neurogems/experiment"
	"github.com/2389-research/neurogems/gateway"
	"github.com/2389-research/neurogems/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData holds all data passed to templates for rendering.
type PageData struct {
	Title  string
	Active string // sidebar entry to highlight
	Theme  string // "light" or "dark"
	Alerts []session.Alert

	Home       *HomeView
	Data       *DataView
	Model      *session.View
	Experiment *ExperimentView
}

// HomeView is the overview shown on the landing page.
type HomeView struct {
	Strategies []gateway.SavedStrategy
	Datasets   []datasets.Dataset
	Runs       []gateway.Run
	Activity   []ActivityRow
	Errors     []string
}

// ActivityRow is one recent mutation on the home page.
type ActivityRow struct {
	At      string
	Action  string
	Subject string
	Outcome string
	Detail  string
}

// DataView lists datasets and the profile of the selected one.
type DataView struct {
	Datasets []datasets.Dataset
	Selected *datasets.Dataset
	Overview []datasets.Stat
	Classes  []datasets.Stat
	Columns  []ColumnView
	Error    string
}

// ColumnView is a profiled column with its display statistics.
type ColumnView struct {
	Name  string
	Type  string
	Stats []datasets.Stat
}

// ExperimentView holds the train form, the run list and the selected run's results.
type ExperimentView struct {
	Strategies  []gateway.SavedStrategy
	Validations []ValidationView
	RunName     string
	Strategy    string
	Validation  string
	Params      []ParamRow
	Runs        []gateway.Run
	Selected    *RunView
	Error       string
}

// ValidationView is one selectable validation method.
type ValidationView struct {
	ID   string
	Name string
}

// ParamRow is one editable parameter with its option tokens.
type ParamRow struct {
	Name    string
	Value   string
	Options []string
}

// RunView is a run's results with rendered report and SHAP links.
type RunView struct {
	Run      gateway.Run
	Results  experiment.Results
	Report   template.HTML
	ShapPlot map[string]string
	Error    string
}

// templateFuncs returns the FuncMap available to all templates.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"lower":   strings.ToLower,
		"percent": datasets.FormatPercent,
		"kindLabel": func(kind string) string {
			return strings.ReplaceAll(kind, "_", " ")
		},
		"at": func(list []string, i int) string {
			if i < 0 || i >= len(list) {
				return ""
			}
			return list[i]
		},
		"dateTime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Format("2006-01-02 15:04")
		},
	}
}

var pages = []string{
	"home.html",
	"data.html",
	"model.html",
	"experiment.html",
	"settings.html",
	"404.html",
}

// TemplateEngine loads and renders embedded HTML templates.
type TemplateEngine struct {
	templates map[string]*template.Template
}

// NewTemplateEngine parses all embedded templates and returns a ready-to-use engine.
func NewTemplateEngine() (*TemplateEngine, error) {
	funcs := templateFuncs()
	engine := &TemplateEngine{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(
			templateFS,
			"templates/layout.html",
			"templates/"+page,
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		engine.templates[page] = t
	}
	return engine, nil
}

// Render executes the named template with the given data and writes the result
// to w. It sets the Content-Type header to text/html.
func (e *TemplateEngine) Render(w http.ResponseWriter, name string, data any) error {
	t, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return t.ExecuteTemplate(w, "layout.html", data)
}

// RenderTo executes the named template into an arbitrary io.Writer.
func (e *TemplateEngine) RenderTo(w io.Writer, name string, data any) error {
	t, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}
