// ABOUTME: Backend gateway contract: one request/response call per backend endpoint.
// ABOUTME: Types here are the normalized shapes consumers see; wire shapes stay in wire.go.
package gateway

import (
	"context"
	"time"

	"github.com/2389-research/neurogems/catalog"
	"github.com/2389-research/neurogems/datasets"
	"github.com/2389-research/neurogems/params"
	"github.com/2389-research/neurogems/pipeline"
)

// Success messages the backend returns as bare JSON strings.
const (
	MsgStrategyCreated = "Strategy created successfully!"
	MsgStrategyRemoved = "Model deleted successfully!"
	MsgDatasetRemoved  = "Dataset removed successfully!"
	MsgRunRemoved      = "Experiment run deleted successfully!"
)

// OutputInput is the late fusion input name that configures the combiner.
const OutputInput = "Output"

// Gateway is the backend surface used by the dashboard. Every call is a single
// request; failures are returned, never retried.
type Gateway interface {
	ListSupportedStrategies(ctx context.Context) ([]catalog.StrategyDescriptor, error)
	ListSupportedModels(ctx context.Context, strategyName string) ([]catalog.ModelTypeDescriptor, error)
	ListSavedStrategies(ctx context.Context) ([]SavedStrategy, error)
	StrategyRequirements(ctx context.Context, strategyName string) (*Requirements, error)
	CreateStrategy(ctx context.Context, name, kind string) (string, error)
	AddModelToStrategy(ctx context.Context, req AddModelRequest) (pipeline.Graph, error)
	RemoveStrategy(ctx context.Context, name string) (string, error)

	ListDatasets(ctx context.Context, withProfile bool) ([]datasets.Dataset, error)
	AddDataset(ctx context.Context, req AddDatasetRequest) (*datasets.Dataset, error)
	RemoveDataset(ctx context.Context, name string) (string, error)

	ListSupportedValidations(ctx context.Context) ([]catalog.ModelTypeDescriptor, error)
	ListSupportedMetrics(ctx context.Context) ([]Metric, error)
	TrainStrategy(ctx context.Context, req TrainRequest) (*TrainResult, error)
	ListExperimentRuns(ctx context.Context) ([]Run, error)
	RemoveRun(ctx context.Context, runID string) (string, error)

	Close() error
}

// SavedStrategy is an entry of get-saved-strategies.
type SavedStrategy struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Version int    `json:"version"`
}

func (s SavedStrategy) Key() string { return s.Name }

// Requirements describe what a saved strategy needs before training.
// Unimodal and early fusion report counts; late fusion reports per-input catalogs.
type Requirements struct {
	Models      int                `json:"models,omitempty"`
	MinDatasets int                `json:"minDatasets,omitempty"`
	MaxDatasets int                `json:"maxDatasets,omitempty"`
	Inputs      []InputRequirement `json:"inputs,omitempty"`
}

// InputRequirement lists the model types allowed for one late fusion input.
type InputRequirement struct {
	Name    string                        `json:"name"`
	Options []catalog.ModelTypeDescriptor `json:"options"`
}

func (in InputRequirement) Key() string { return in.Name }

// Input returns the requirement for name.
func (r *Requirements) Input(name string) (InputRequirement, bool) {
	if r == nil {
		return InputRequirement{}, false
	}
	for _, in := range r.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return InputRequirement{}, false
}

// AddModelRequest attaches (or replaces) a model on a saved strategy.
type AddModelRequest struct {
	Strategy  string            `json:"strategy"`
	Model     string            `json:"model"`
	ModelType string            `json:"modelType"`
	Params    params.Assignment `json:"params"`
	Input     string            `json:"input,omitempty"`
}

type AddDatasetRequest struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	TargetColumn string `json:"targetColumn"`
	TimeColumn   string `json:"timeColumn,omitempty"`
	WithProfile  bool   `json:"withProfile"`
}

// TrainRequest starts a training run for a saved strategy.
type TrainRequest struct {
	RunName    string            `json:"runName"`
	Strategy   string            `json:"strategy"`
	Validation string            `json:"validation"`
	Params     params.Assignment `json:"params"`
}

// TrainResult is the backend's synchronous training outcome.
type TrainResult struct {
	Accuracy        float64     `json:"accuracy"`
	ConfusionMatrix [][]float64 `json:"confusionMatrix"`
	Precision       []float64   `json:"precision"`
	Recall          []float64   `json:"recall"`
	F1Score         []float64   `json:"f1Score"`
	Labels          []string    `json:"labels"`
	ArtifactURI     string      `json:"artifactUri"`
}

// Run is a tracked experiment run. Params hold the backend's logged string values.
type Run struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	CreatedAt   time.Time          `json:"createdAt"`
	Status      string             `json:"status"`
	ArtifactURI string             `json:"artifactUri"`
	Params      map[string]string  `json:"params"`
	Metrics     map[string]float64 `json:"metrics"`
}

type Metric struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}
