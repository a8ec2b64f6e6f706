// ABOUTME: Training results shaped for the experiment page, from a train response or a run record.
// ABOUTME: Run records carry classwise metrics as Python literal strings that are parsed here.
package experiment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/2389-research/neurogems/gateway"
)

// SHAP plot kinds stored as run artifacts.
const (
	ShapSummary = "summary"
	ShapBar     = "bar"
)

// Results is what the experiment page charts.
type Results struct {
	RunID           string      `json:"runId,omitempty"`
	Accuracy        float64     `json:"accuracy"`
	ConfusionMatrix [][]float64 `json:"confusionMatrix"`
	Labels          []string    `json:"labels"`
	Precision       []float64   `json:"precision"`
	Recall          []float64   `json:"recall"`
	F1Score         []float64   `json:"f1Score"`
	ArtifactURI     string      `json:"artifactUri"`
}

// FromTrain shapes a synchronous train response.
func FromTrain(r *gateway.TrainResult) Results {
	return Results{
		Accuracy:        r.Accuracy,
		ConfusionMatrix: r.ConfusionMatrix,
		Labels:          r.Labels,
		Precision:       r.Precision,
		Recall:          r.Recall,
		F1Score:         r.F1Score,
		ArtifactURI:     r.ArtifactURI,
	}
}

// FromRun rebuilds results from a tracked run's logged params and metrics.
func FromRun(run gateway.Run) (Results, error) {
	res := Results{
		RunID:       run.ID,
		Accuracy:    run.Metrics["accuracy"],
		ArtifactURI: run.ArtifactURI,
	}

	labels, err := parseLiteral[[]any](run.Params["labels"])
	if err != nil {
		return Results{}, fmt.Errorf("run %s labels: %w", run.ID, err)
	}
	for _, l := range labels {
		res.Labels = append(res.Labels, fmt.Sprint(l))
	}

	fields := []struct {
		key string
		dst *[]float64
	}{
		{"precision_classwise", &res.Precision},
		{"recall_classwise", &res.Recall},
		{"f1_score_classwise", &res.F1Score},
	}
	for _, f := range fields {
		v, err := parseLiteral[[]float64](run.Params[f.key])
		if err != nil {
			return Results{}, fmt.Errorf("run %s %s: %w", run.ID, f.key, err)
		}
		*f.dst = v
	}

	res.ConfusionMatrix, err = parseLiteral[[][]float64](run.Params["confusion_matrix"])
	if err != nil {
		return Results{}, fmt.Errorf("run %s confusion_matrix: %w", run.ID, err)
	}
	return res, nil
}

// parseLiteral decodes a Python list literal such as "['a', 'b']" or "[0.5, None]".
// An empty string decodes to the zero value.
func parseLiteral[T any](s string) (T, error) {
	var out T
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(pythonToJSON(s))))
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("parse %q: %w", s, err)
	}
	return out, nil
}

// pythonToJSON rewrites quotes and the None/True/False constants outside of strings.
func pythonToJSON(s string) string {
	var b strings.Builder
	var quote rune
	for i := 0; i < len(s); i++ {
		c := rune(s[i])
		if quote != 0 {
			switch {
			case c == '\\' && i+1 < len(s):
				b.WriteByte(s[i])
				i++
				b.WriteByte(s[i])
				continue
			case c == quote:
				quote = 0
				b.WriteByte('"')
				continue
			case c == '"':
				b.WriteString(`\"`)
				continue
			}
			b.WriteByte(s[i])
			continue
		}
		switch {
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte('"')
		case strings.HasPrefix(s[i:], "None"):
			b.WriteString("null")
			i += len("None") - 1
		case strings.HasPrefix(s[i:], "True"):
			b.WriteString("true")
			i += len("True") - 1
		case strings.HasPrefix(s[i:], "False"):
			b.WriteString("false")
			i += len("False") - 1
		case c == '(':
			b.WriteByte('[')
		case c == ')':
			b.WriteByte(']')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// ArtifactPath returns the part of an artifact URI after "/mlruns/", or "" when absent.
func ArtifactPath(uri string) string {
	_, after, ok := strings.Cut(uri, "/mlruns/")
	if !ok {
		return ""
	}
	return after
}

// ShapPlotPath is the dashboard URL of a run's SHAP plot image.
func ShapPlotPath(uri, kind string) string {
	p := ArtifactPath(uri)
	if p == "" {
		return ""
	}
	if kind != ShapBar {
		kind = ShapSummary
	}
	return "/mlruns/" + p + "/shap_" + kind + "_plot.png"
}
