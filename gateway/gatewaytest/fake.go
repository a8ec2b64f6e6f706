// ABOUTME: In-memory Gateway that behaves like the backend for tests and offline demos.
// ABOUTME: Supports per-endpoint failure injection and gates for forcing completion order.
package gatewaytest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/2389-research/neurogems/catalog"
	"github.com/2389-research/neurogems/datasets"
	"github.com/2389-research/neurogems/gateway"
	"github.com/2389-research/neurogems/params"
	"github.com/2389-research/neurogems/pipeline"
)

// ErrNetwork is a convenience error for simulated transport failures.
var ErrNetwork = errors.New("connection refused")

type model struct {
	name      string
	modelType string
	input     string
	params    params.Assignment
}

type strategy struct {
	kind    string
	version int
	models  []model
	voting  *params.Assignment
}

// Fake implements gateway.Gateway in memory.
type Fake struct {
	mu         sync.Mutex
	strategies map[string]*strategy
	order      []string
	datasets   []datasets.Dataset
	runs       []gateway.Run
	failures   map[string][]error
	gates      map[string]chan struct{}
	calls      []string
	nextRun    int
}

// New returns a fake seeded with the given dataset names.
func New(datasetNames ...string) *Fake {
	f := &Fake{
		strategies: make(map[string]*strategy),
		failures:   make(map[string][]error),
		gates:      make(map[string]chan struct{}),
	}
	for _, n := range datasetNames {
		f.datasets = append(f.datasets, datasets.Dataset{Name: n, Path: "/data/" + n + ".csv", TargetColumn: "label"})
	}
	return f
}

// Fail queues err for the next call to endpoint.
func (f *Fake) Fail(endpoint string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[endpoint] = append(f.failures[endpoint], err)
}

// Gate makes calls to endpoint block until the returned function is called.
func (f *Fake) Gate(endpoint string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[endpoint] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.gates[endpoint] == ch {
				delete(f.gates, endpoint)
			}
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns the endpoints invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount counts invocations of endpoint.
func (f *Fake) CallCount(endpoint string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == endpoint {
			n++
		}
	}
	return n
}

// enter records the call, waits on any gate and pops a queued failure.
func (f *Fake) enter(ctx context.Context, endpoint string) error {
	f.mu.Lock()
	f.calls = append(f.calls, endpoint)
	gate := f.gates[endpoint]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if q := f.failures[endpoint]; len(q) > 0 {
		err := q[0]
		f.failures[endpoint] = q[1:]
		return err
	}
	return nil
}

func backendErr(endpoint, format string, args ...any) error {
	return &gateway.BackendError{Endpoint: endpoint, Message: fmt.Sprintf(format, args...)}
}

// --- catalogs ---

func (f *Fake) ListSupportedStrategies(ctx context.Context) ([]catalog.StrategyDescriptor, error) {
	if err := f.enter(ctx, "get-supported-strategies"); err != nil {
		return nil, err
	}
	return []catalog.StrategyDescriptor{
		{Name: "unimodal", Description: "Unimodal", Group: catalog.GroupUnimodal},
		{Name: "early_fusion", Description: "Early Fusion", Group: catalog.GroupFusion},
		{Name: "late_fusion", Description: "Late Fusion", Group: catalog.GroupFusion},
	}, nil
}

// ModelTypes is the catalog served for every strategy kind.
func ModelTypes() []catalog.ModelTypeDescriptor {
	svc := catalog.NewParams()
	svc.Set("C", catalog.Number(1), catalog.Number(10), catalog.Number(100))
	svc.Set("kernel", catalog.String("rbf"), catalog.String("linear"), catalog.String("poly"))
	svc.Set("probability", catalog.Bool(true), catalog.Bool(false))

	knn := catalog.NewParams()
	knn.Set("n_neighbors", catalog.Number(5), catalog.Number(3), catalog.Number(7))
	knn.Set("weights", catalog.String("uniform"), catalog.String("distance"))

	rf := catalog.NewParams()
	rf.Set("n_estimators", catalog.Number(100), catalog.Number(200))
	rf.Set("max_depth", catalog.Null(), catalog.Number(5), catalog.Number(10))

	return []catalog.ModelTypeDescriptor{
		{ID: "svc", Group: "SVM", Description: "Support Vector Classifier", Library: "sklearn", Params: svc},
		{ID: "knn", Group: "Neighbors", Description: "K-Nearest Neighbors", Library: "sklearn", Params: knn},
		{ID: "random_forest", Group: "Ensemble", Description: "Random Forest", Library: "sklearn", Params: rf},
	}
}

// VotingType is the late fusion combiner catalog entry.
func VotingType(nEstimators int) catalog.ModelTypeDescriptor {
	p := catalog.NewParams()
	p.Set("voting", catalog.String("hard"), catalog.String("soft"))
	weights := []catalog.Value{catalog.Null()}
	for _, perm := range permutations(nEstimators) {
		items := make([]catalog.Value, len(perm))
		for i, n := range perm {
			items[i] = catalog.Number(float64(n))
		}
		weights = append(weights, catalog.List(items...))
	}
	p.Set("weights", weights...)
	return catalog.ModelTypeDescriptor{ID: "voting", Group: "Ensemble", Description: "Voting (VT)", Library: "sklearn", Params: p}
}

func permutations(n int) [][]int {
	if n <= 0 {
		return nil
	}
	base := make([]int, n)
	for i := range base {
		base[i] = i + 1
	}
	var out [][]int
	var rec func(k int)
	rec = func(k int) {
		if k == n {
			cp := make([]int, n)
			copy(cp, base)
			out = append(out, cp)
			return
		}
		for i := k; i < n; i++ {
			base[k], base[i] = base[i], base[k]
			rec(k + 1)
			base[k], base[i] = base[i], base[k]
		}
	}
	rec(0)
	return out
}

func (f *Fake) ListSupportedModels(ctx context.Context, strategyName string) ([]catalog.ModelTypeDescriptor, error) {
	if err := f.enter(ctx, "get-supported-models"); err != nil {
		return nil, err
	}
	return ModelTypes(), nil
}

func (f *Fake) ListSupportedValidations(ctx context.Context) ([]catalog.ModelTypeDescriptor, error) {
	if err := f.enter(ctx, "get-supported-validations"); err != nil {
		return nil, err
	}
	holdout := catalog.NewParams()
	holdout.Set("test_size", catalog.Number(0.2), catalog.Number(0.1), catalog.Number(0.3))
	holdout.Set("random_state", catalog.Null(), catalog.Number(1), catalog.Number(42))
	holdout.Set("shuffle", catalog.Bool(true), catalog.Bool(false))
	kfold := catalog.NewParams()
	kfold.Set("n_splits", catalog.Number(5), catalog.Number(10))
	kfold.Set("shuffle", catalog.Bool(false), catalog.Bool(true))
	return []catalog.ModelTypeDescriptor{
		{ID: "holdout", Description: "Train-Test Split", Library: "sklearn", Params: holdout},
		{ID: "kfold", Description: "K-Fold", Library: "sklearn", Params: kfold},
		{ID: "leave_one_out", Description: "Leave One Out", Library: "sklearn", Params: catalog.NewParams()},
	}, nil
}

func (f *Fake) ListSupportedMetrics(ctx context.Context) ([]gateway.Metric, error) {
	if err := f.enter(ctx, "get-supported-metrics"); err != nil {
		return nil, err
	}
	return []gateway.Metric{
		{Name: "accuracy", Description: "Accuracy", Type: "classification"},
		{Name: "f1_score", Description: "F1 Score", Type: "classification"},
	}, nil
}

// --- strategies ---

func (f *Fake) ListSavedStrategies(ctx context.Context) ([]gateway.SavedStrategy, error) {
	if err := f.enter(ctx, "get-saved-strategies"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]gateway.SavedStrategy, 0, len(f.order))
	for _, name := range f.order {
		s := f.strategies[name]
		out = append(out, gateway.SavedStrategy{Name: name, Kind: s.kind, Version: s.version})
	}
	return out, nil
}

func (f *Fake) StrategyRequirements(ctx context.Context, strategyName string) (*gateway.Requirements, error) {
	if err := f.enter(ctx, "get-strategy-requirements"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.strategies[strategyName]
	if !ok {
		return nil, backendErr("get-strategy-requirements", "'%s'", strategyName)
	}
	switch s.kind {
	case "unimodal":
		return &gateway.Requirements{Models: 1, MinDatasets: 1, MaxDatasets: 1}, nil
	case "early_fusion":
		return &gateway.Requirements{Models: 1, MinDatasets: 2}, nil
	}
	req := &gateway.Requirements{}
	for _, d := range f.datasets {
		req.Inputs = append(req.Inputs, gateway.InputRequirement{Name: d.Name, Options: ModelTypes()})
	}
	req.Inputs = append(req.Inputs, gateway.InputRequirement{
		Name:    gateway.OutputInput,
		Options: []catalog.ModelTypeDescriptor{VotingType(len(f.datasets))},
	})
	return req, nil
}

func (f *Fake) CreateStrategy(ctx context.Context, name, kind string) (string, error) {
	if err := f.enter(ctx, "create-strategy"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch kind {
	case "unimodal", "early_fusion", "late_fusion":
	default:
		return "", backendErr("create-strategy", "Strategy type %s is not supported", kind)
	}
	if _, exists := f.strategies[name]; !exists {
		f.order = append(f.order, name)
	}
	// An existing strategy of the same name is replaced, models included.
	f.strategies[name] = &strategy{kind: kind, version: 1}
	return gateway.MsgStrategyCreated, nil
}

func (f *Fake) AddModelToStrategy(ctx context.Context, req gateway.AddModelRequest) (pipeline.Graph, error) {
	const endpoint = "add-model-to-strategy"
	if err := f.enter(ctx, endpoint); err != nil {
		return pipeline.Graph{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.strategies[req.Strategy]
	if !ok {
		return pipeline.Graph{}, backendErr(endpoint, "'%s'", req.Strategy)
	}
	m := model{name: req.Model, modelType: req.ModelType, input: req.Input, params: req.Params}

	switch s.kind {
	case "unimodal":
		if len(s.models) > 0 && m.input == "" {
			m.input = s.models[0].input
		}
		if m.input != "" && !f.hasDataset(m.input) {
			return pipeline.Graph{}, backendErr(endpoint, "Dataset %s does not exist", m.input)
		}
		s.models = []model{m}
	case "early_fusion":
		s.models = []model{m}
	case "late_fusion":
		if m.input == "" {
			return pipeline.Graph{}, backendErr(endpoint, "model_input cannot be None for late fusion strategy")
		}
		if m.input == gateway.OutputInput {
			p := req.Params
			s.voting = &p
			break
		}
		if !f.hasDataset(m.input) {
			return pipeline.Graph{}, backendErr(endpoint, "Dataset %s does not exist", m.input)
		}
		replaced := false
		for i, existing := range s.models {
			if existing.name == m.name && existing.input != m.input {
				return pipeline.Graph{}, backendErr(endpoint, "Model %s already exists", m.name)
			}
			if existing.input == m.input {
				s.models[i] = m
				replaced = true
			}
		}
		if !replaced {
			s.models = append(s.models, m)
		}
	}
	s.version++
	return f.graphLocked(s), nil
}

func (f *Fake) hasDataset(name string) bool {
	for _, d := range f.datasets {
		if d.Name == name {
			return true
		}
	}
	return false
}

func (f *Fake) graphLocked(s *strategy) pipeline.Graph {
	g := pipeline.Graph{Nodes: []pipeline.Node{}, Edges: []pipeline.Edge{}}
	switch s.kind {
	case "late_fusion":
		for i, m := range s.models {
			x := float64(200*i + 100)
			g.Nodes = append(g.Nodes,
				pipeline.Node{ID: pipeline.DatasetPrefix + m.input, Label: m.input, Kind: pipeline.NodeInput, Position: pipeline.Position{X: x, Y: 50}},
				pipeline.Node{ID: pipeline.ModelPrefix + m.name, Label: m.name, Kind: pipeline.NodeDefault, Position: pipeline.Position{X: x, Y: 200}},
			)
		}
		g.Nodes = append(g.Nodes, pipeline.Node{ID: pipeline.OutputID, Label: "Output", Kind: pipeline.NodeOutput, Position: pipeline.Position{X: float64(100*len(s.models) + 100), Y: 350}})
		for _, m := range s.models {
			g.Edges = append(g.Edges,
				pipeline.Edge{ID: "e_" + m.input + "_" + m.name, Source: pipeline.DatasetPrefix + m.input, Target: pipeline.ModelPrefix + m.name, Kind: "smoothstep", Animated: true},
				pipeline.Edge{ID: "e_" + m.name + "_output", Source: pipeline.ModelPrefix + m.name, Target: pipeline.OutputID, Kind: "smoothstep", Animated: true},
			)
		}
	case "unimodal":
		for _, m := range s.models {
			if m.input != "" {
				g.Nodes = append(g.Nodes, pipeline.Node{ID: pipeline.DatasetPrefix + m.input, Label: m.input, Kind: pipeline.NodeInput, Position: pipeline.Position{X: 100, Y: 50}})
				g.Edges = append(g.Edges, pipeline.Edge{ID: "e_" + m.input + "_" + m.name, Source: pipeline.DatasetPrefix + m.input, Target: pipeline.ModelPrefix + m.name, Kind: "smoothstep", Animated: true})
			}
			g.Nodes = append(g.Nodes, pipeline.Node{ID: pipeline.ModelPrefix + m.name, Label: m.name, Kind: pipeline.NodeOutput, Position: pipeline.Position{X: 100, Y: 200}})
		}
	default:
		for i, d := range f.datasets {
			g.Nodes = append(g.Nodes, pipeline.Node{ID: pipeline.DatasetPrefix + d.Name, Label: d.Name, Kind: pipeline.NodeInput, Position: pipeline.Position{X: float64(100*i + 100), Y: 100}})
		}
		for _, m := range s.models {
			g.Nodes = append(g.Nodes, pipeline.Node{ID: pipeline.ModelPrefix + m.name, Label: m.name, Kind: pipeline.NodeOutput, Position: pipeline.Position{X: 150, Y: 200}})
			for _, d := range f.datasets {
				g.Edges = append(g.Edges, pipeline.Edge{ID: "e_" + d.Name + "_" + m.name, Source: pipeline.DatasetPrefix + d.Name, Target: pipeline.ModelPrefix + m.name, Kind: "smoothstep", Animated: true})
			}
		}
	}
	return g
}

// Graph returns the backend-side graph of a saved strategy.
func (f *Fake) Graph(name string) (pipeline.Graph, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.strategies[name]
	if !ok {
		return pipeline.Graph{}, false
	}
	return f.graphLocked(s), true
}

func (f *Fake) RemoveStrategy(ctx context.Context, name string) (string, error) {
	if err := f.enter(ctx, "rm-strategy"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.strategies[name]; !ok {
		return "", backendErr("rm-strategy", "'%s'", name)
	}
	delete(f.strategies, name)
	for i, n := range f.order {
		if n == name {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return gateway.MsgStrategyRemoved, nil
}

// --- datasets ---

func (f *Fake) ListDatasets(ctx context.Context, withProfile bool) ([]datasets.Dataset, error) {
	if err := f.enter(ctx, "get-datasets-information"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]datasets.Dataset, len(f.datasets))
	copy(out, f.datasets)
	if withProfile {
		for i := range out {
			out[i].Profile = sampleProfile(out[i].TargetColumn)
		}
	}
	return out, nil
}

func sampleProfile(target string) *datasets.Profile {
	mean, std := 0.5, 0.1
	return &datasets.Profile{
		Table: datasets.Table{Observations: 10, Variables: 2, PCellsMissing: 0, MemorySize: 4096, RecordSize: 128, Types: map[string]int{"Numeric": 1, "Categorical": 1}},
		Variables: map[string]datasets.Variable{
			"feature": {Type: "Numeric", Distinct: 10, Mean: &mean, Std: &std, Histogram: &datasets.Histogram{BinEdges: []float64{0, 0.5, 1}, Counts: []float64{4, 6}}},
			target:    {Type: "Categorical", Distinct: 2, ValueCounts: map[string]int{"a": 6, "b": 4}},
		},
	}
}

func (f *Fake) AddDataset(ctx context.Context, req gateway.AddDatasetRequest) (*datasets.Dataset, error) {
	if err := f.enter(ctx, "add-dataset"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hasDataset(req.Name) {
		return nil, backendErr("add-dataset", "Dataset %s already exists", req.Name)
	}
	d := datasets.Dataset{Name: req.Name, Path: req.Path, TargetColumn: req.TargetColumn, TimeColumn: req.TimeColumn}
	f.datasets = append(f.datasets, d)
	if req.WithProfile {
		d.Profile = sampleProfile(req.TargetColumn)
	}
	return &d, nil
}

func (f *Fake) RemoveDataset(ctx context.Context, name string) (string, error) {
	if err := f.enter(ctx, "rm-dataset"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.datasets {
		if d.Name == name {
			f.datasets = append(f.datasets[:i], f.datasets[i+1:]...)
			return gateway.MsgDatasetRemoved, nil
		}
	}
	return "", backendErr("rm-dataset", "Dataset not found:%s", name)
}

// --- experiments ---

func (f *Fake) TrainStrategy(ctx context.Context, req gateway.TrainRequest) (*gateway.TrainResult, error) {
	if err := f.enter(ctx, "train-strategy"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.strategies[req.Strategy]
	if !ok {
		return nil, backendErr("train-strategy", "'%s'", req.Strategy)
	}
	if len(s.models) == 0 {
		return nil, backendErr("train-strategy", "Strategy %s has no models", req.Strategy)
	}
	f.nextRun++
	id := fmt.Sprintf("run%04d", f.nextRun)
	uri := "file:///srv/neurogems/mlruns/0/" + id + "/artifacts"
	res := &gateway.TrainResult{
		Accuracy:        0.8,
		ConfusionMatrix: [][]float64{{4, 1}, {1, 4}},
		Precision:       []float64{0.8, 0.8},
		Recall:          []float64{0.8, 0.8},
		F1Score:         []float64{0.8, 0.8},
		Labels:          []string{"a", "b"},
		ArtifactURI:     uri,
	}
	f.runs = append(f.runs, gateway.Run{
		ID:          id,
		Name:        req.RunName,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, f.nextRun, 0, time.UTC),
		Status:      "FINISHED",
		ArtifactURI: uri,
		Params: map[string]string{
			"labels":              "['a', 'b']",
			"precision_classwise": "[0.8, 0.8]",
			"recall_classwise":    "[0.8, 0.8]",
			"f1_score_classwise":  "[0.8, 0.8]",
			"confusion_matrix":    "[[4, 1], [1, 4]]",
			"strategy":            req.Strategy,
			"validation":          req.Validation,
		},
		Metrics: map[string]float64{"accuracy": 0.8, "precision": 0.8, "recall": 0.8, "f1_score": 0.8},
	})
	return res, nil
}

func (f *Fake) ListExperimentRuns(ctx context.Context) ([]gateway.Run, error) {
	if err := f.enter(ctx, "get-experiment-runs"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]gateway.Run, len(f.runs))
	copy(out, f.runs)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *Fake) RemoveRun(ctx context.Context, runID string) (string, error) {
	if err := f.enter(ctx, "rm-run"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.runs {
		if r.ID == runID {
			f.runs = append(f.runs[:i], f.runs[i+1:]...)
			break
		}
	}
	return gateway.MsgRunRemoved, nil
}

func (f *Fake) Close() error { return nil }

var _ gateway.Gateway = (*Fake)(nil)
