// ABOUTME: Backend wire shapes (snake_case, react-flow graph nodes) and their normalization.
// ABOUTME: Nothing outside this file sees the wire structs.
package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/2389-research/neurogems/catalog"
	"github.com/2389-research/neurogems/datasets"
	"github.com/2389-research/neurogems/pipeline"
)

type wireStrategy struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Group       string `json:"group"`
}

type wireModelType struct {
	ID          string         `json:"id"`
	Group       string         `json:"group"`
	Description string         `json:"description"`
	Library     string         `json:"library"`
	Params      catalog.Params `json:"params"`
}

func (w wireModelType) normalize() catalog.ModelTypeDescriptor {
	return catalog.ModelTypeDescriptor{
		ID:          w.ID,
		Group:       w.Group,
		Description: w.Description,
		Library:     w.Library,
		Params:      w.Params,
	}
}

func normalizeModelTypes(in []wireModelType) []catalog.ModelTypeDescriptor {
	out := make([]catalog.ModelTypeDescriptor, len(in))
	for i, w := range in {
		out[i] = w.normalize()
	}
	return out
}

type wireSaved struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Version int    `json:"version"`
}

type wireGraph struct {
	Nodes []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Label string `json:"label"`
		} `json:"data"`
		Position struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"position"`
	} `json:"nodes"`
	Edges []struct {
		ID       string `json:"id"`
		Source   string `json:"source"`
		Target   string `json:"target"`
		Type     string `json:"type"`
		Animated bool   `json:"animated"`
	} `json:"edges"`
}

func (w wireGraph) normalize() pipeline.Graph {
	g := pipeline.Graph{
		Nodes: make([]pipeline.Node, 0, len(w.Nodes)),
		Edges: make([]pipeline.Edge, 0, len(w.Edges)),
	}
	for _, n := range w.Nodes {
		kind := n.Type
		if kind == "" {
			kind = pipeline.NodeDefault
		}
		g.Nodes = append(g.Nodes, pipeline.Node{
			ID:       n.ID,
			Label:    n.Data.Label,
			Kind:     kind,
			Position: pipeline.Position{X: n.Position.X, Y: n.Position.Y},
		})
	}
	for _, e := range w.Edges {
		id := e.ID
		if id == "" {
			id = e.Source + "-" + e.Target
		}
		g.Edges = append(g.Edges, pipeline.Edge{
			ID:       id,
			Source:   e.Source,
			Target:   e.Target,
			Kind:     e.Type,
			Animated: e.Animated,
		})
	}
	return g
}

type wireAddModel struct {
	StrategyName    string          `json:"strategy_name"`
	ModelName       string          `json:"model_name"`
	ModelType       string          `json:"model_type"`
	ModelParameters json.RawMessage `json:"model_parameters"`
	ModelInput      string          `json:"model_input,omitempty"`
}

type wireTrain struct {
	RunName              string          `json:"run_name"`
	StrategyName         string          `json:"strategy_name"`
	Validation           string          `json:"validation"`
	ValidationParameters json.RawMessage `json:"validation_parameters"`
}

type wireTrainResult struct {
	Accuracy        float64           `json:"accuracy"`
	ConfusionMatrix [][]float64       `json:"confusion_matrix"`
	Precision       []float64         `json:"precision"`
	Recall          []float64         `json:"recall"`
	F1Score         []float64         `json:"f1_score"`
	Labels          []json.RawMessage `json:"labels"`
	ArtifactURI     string            `json:"artifact_uri"`
}

func (w wireTrainResult) normalize() *TrainResult {
	return &TrainResult{
		Accuracy:        w.Accuracy,
		ConfusionMatrix: w.ConfusionMatrix,
		Precision:       w.Precision,
		Recall:          w.Recall,
		F1Score:         w.F1Score,
		Labels:          rawLabels(w.Labels),
		ArtifactURI:     w.ArtifactURI,
	}
}

// rawLabels renders class labels that may arrive as strings or numbers.
func rawLabels(in []json.RawMessage) []string {
	out := make([]string, len(in))
	for i, raw := range in {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			out[i] = s
			continue
		}
		out[i] = strings.TrimSpace(string(raw))
	}
	return out
}

type wireRun struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	CreatedAt   int64              `json:"created_at"`
	Status      string             `json:"status"`
	ArtifactURI string             `json:"artifact_uri"`
	Params      map[string]string  `json:"params"`
	Metrics     map[string]float64 `json:"metrics"`
}

func (w wireRun) normalize() Run {
	return Run{
		ID:          w.ID,
		Name:        w.Name,
		CreatedAt:   time.UnixMilli(w.CreatedAt).UTC(),
		Status:      w.Status,
		ArtifactURI: w.ArtifactURI,
		Params:      w.Params,
		Metrics:     w.Metrics,
	}
}

type wireDataset struct {
	Name         string       `json:"name"`
	Path         string       `json:"path"`
	TargetColumn string       `json:"target_column"`
	TimeColumn   *string      `json:"time_column"`
	Description  string       `json:"description"`
	Profile      *wireProfile `json:"profile"`
}

type wireProfile struct {
	Table struct {
		N             int            `json:"n"`
		NVar          int            `json:"n_var"`
		NCellsMissing int            `json:"n_cells_missing"`
		PCellsMissing float64        `json:"p_cells_missing"`
		MemorySize    float64        `json:"memory_size"`
		RecordSize    float64        `json:"record_size"`
		Types         map[string]int `json:"types"`
	} `json:"table"`
	Variables map[string]struct {
		Type        string         `json:"type"`
		NDistinct   int            `json:"n_distinct"`
		NMissing    int            `json:"n_missing"`
		PMissing    float64        `json:"p_missing"`
		Imbalance   *float64       `json:"imbalance"`
		Mean        *float64       `json:"mean"`
		Std         *float64       `json:"std"`
		Min         *float64       `json:"min"`
		Max         *float64       `json:"max"`
		Kurtosis    *float64       `json:"kurtosis"`
		Skewness    *float64       `json:"skewness"`
		ValueCounts map[string]int `json:"value_counts_index_sorted"`
		Histogram   *struct {
			BinEdges []float64 `json:"bin_edges"`
			Counts   []float64 `json:"counts"`
		} `json:"histogram"`
	} `json:"variables"`
}

func (w wireDataset) normalize() datasets.Dataset {
	d := datasets.Dataset{
		Name:         w.Name,
		Path:         w.Path,
		TargetColumn: w.TargetColumn,
		Description:  w.Description,
	}
	if w.TimeColumn != nil {
		d.TimeColumn = *w.TimeColumn
	}
	if w.Profile == nil {
		return d
	}
	p := &datasets.Profile{
		Table: datasets.Table{
			Observations:  w.Profile.Table.N,
			Variables:     w.Profile.Table.NVar,
			CellsMissing:  w.Profile.Table.NCellsMissing,
			PCellsMissing: w.Profile.Table.PCellsMissing,
			MemorySize:    w.Profile.Table.MemorySize,
			RecordSize:    w.Profile.Table.RecordSize,
			Types:         w.Profile.Table.Types,
		},
		Variables: make(map[string]datasets.Variable, len(w.Profile.Variables)),
	}
	for name, v := range w.Profile.Variables {
		out := datasets.Variable{
			Type:        v.Type,
			Distinct:    v.NDistinct,
			Missing:     v.NMissing,
			PMissing:    v.PMissing,
			Imbalance:   v.Imbalance,
			Mean:        v.Mean,
			Std:         v.Std,
			Min:         v.Min,
			Max:         v.Max,
			Kurtosis:    v.Kurtosis,
			Skewness:    v.Skewness,
			ValueCounts: v.ValueCounts,
		}
		if v.Histogram != nil {
			out.Histogram = &datasets.Histogram{BinEdges: v.Histogram.BinEdges, Counts: v.Histogram.Counts}
		}
		p.Variables[name] = out
	}
	d.Profile = p
	return d
}

// decodeRequirements accepts both the count form and the per-input list form.
func decodeRequirements(raw []byte) (*Requirements, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []struct {
			Name    string          `json:"name"`
			Options []wireModelType `json:"options"`
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode input requirements: %w", err)
		}
		req := &Requirements{}
		for _, in := range list {
			req.Inputs = append(req.Inputs, InputRequirement{Name: in.Name, Options: normalizeModelTypes(in.Options)})
		}
		return req, nil
	}

	var counts struct {
		NModels   int             `json:"n_models"`
		NDatasets json.RawMessage `json:"n_datasets"`
	}
	if err := json.Unmarshal(raw, &counts); err != nil {
		return nil, fmt.Errorf("decode requirements: %w", err)
	}
	req := &Requirements{Models: counts.NModels}
	nd := bytes.TrimSpace(counts.NDatasets)
	switch {
	case len(nd) == 0:
	case nd[0] == '[':
		var bounds []*int
		if err := json.Unmarshal(nd, &bounds); err != nil {
			return nil, fmt.Errorf("decode n_datasets: %w", err)
		}
		if len(bounds) > 0 && bounds[0] != nil {
			req.MinDatasets = *bounds[0]
		}
		if len(bounds) > 1 && bounds[1] != nil {
			req.MaxDatasets = *bounds[1]
		}
	default:
		n, err := strconv.Atoi(string(nd))
		if err != nil {
			return nil, fmt.Errorf("decode n_datasets %s: %w", nd, err)
		}
		req.MinDatasets, req.MaxDatasets = n, n
	}
	return req, nil
}
