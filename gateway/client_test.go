// ABOUTME: Tests for the HTTP gateway against canned backend responses.
// ABOUTME: Covers query/body encoding, wire normalization and in-band error strings.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/2389-research/neurogems/catalog"
	"github.com/2389-research/neurogems/params"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// testHandler captures the incoming request and returns a canned response.
type testHandler struct {
	method      string
	path        string
	query       string
	body        string
	contentType string

	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.query = r.URL.RawQuery
	h.contentType = r.Header.Get("Content-Type")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}
	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	}
	_, _ = w.Write([]byte(h.responseBody))
}

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", opts...)
}

func TestListSupportedModelsQueryAndOrder(t *testing.T) {
	h := &testHandler{responseBody: `[{"id":"svc","group":"SVM","description":"Support Vector","params":{"C":[1,10],"kernel":["rbf","linear"],"gamma":[null,"scale"]}}]`}
	c := newTestClient(t, h)

	models, err := c.ListSupportedModels(context.Background(), "early_fusion")
	if err != nil {
		t.Fatalf("ListSupportedModels: %v", err)
	}
	if h.method != http.MethodGet || h.path != "/get-supported-models" || h.query != "strategy_name=early_fusion" {
		t.Fatalf("unexpected request %s %s?%s", h.method, h.path, h.query)
	}
	if len(models) != 1 || models[0].ID != "svc" {
		t.Fatalf("unexpected models %+v", models)
	}
	keys := models[0].Params.Keys()
	if strings.Join(keys, ",") != "C,kernel,gamma" {
		t.Fatalf("expected declaration order, got %v", keys)
	}
}

func TestListSavedStrategiesNormalizesType(t *testing.T) {
	h := &testHandler{responseBody: `[{"name":"s1","type":"late_fusion","version":2}]`}
	c := newTestClient(t, h)
	saved, err := c.ListSavedStrategies(context.Background())
	if err != nil {
		t.Fatalf("ListSavedStrategies: %v", err)
	}
	if len(saved) != 1 || saved[0].Kind != "late_fusion" || saved[0].Version != 2 {
		t.Fatalf("unexpected saved %+v", saved)
	}
}

func TestCreateStrategySuccessAndInBandError(t *testing.T) {
	h := &testHandler{responseBody: `"Strategy created successfully!"`}
	c := newTestClient(t, h)

	msg, err := c.CreateStrategy(context.Background(), "my strategy", "unimodal")
	if err != nil {
		t.Fatalf("CreateStrategy: %v", err)
	}
	if msg != MsgStrategyCreated {
		t.Fatalf("expected success message, got %q", msg)
	}
	if h.query != "strategy_name=my+strategy&strategy_type=unimodal" {
		t.Fatalf("unexpected query %q", h.query)
	}

	h.responseBody = `"Strategy my strategy already exists"`
	_, err = c.CreateStrategy(context.Background(), "my strategy", "unimodal")
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if be.Message != "Strategy my strategy already exists" || Message(err) != be.Message {
		t.Fatalf("unexpected message %q", be.Message)
	}
}

func TestAddModelToStrategy(t *testing.T) {
	h := &testHandler{responseBody: `{
		"nodes":[
			{"id":"dataset_eeg","type":"input","data":{"label":"eeg"},"position":{"x":100,"y":50},"style":{"border":"1px"}},
			{"id":"model_m1","data":{"label":"m1"},"position":{"x":100,"y":200}}
		],
		"edges":[{"id":"e1","source":"dataset_eeg","target":"model_m1","type":"smoothstep","animated":true}]
	}`}
	c := newTestClient(t, h)

	p := catalog.NewParams()
	p.Set("C", catalog.Number(1))
	p.Set("gamma", catalog.Null(), catalog.String("scale"))
	req := AddModelRequest{
		Strategy:  "s1",
		Model:     "m1",
		ModelType: "svc",
		Params:    params.Defaults(catalog.ModelTypeDescriptor{ID: "svc", Params: p}),
		Input:     "eeg",
	}
	g, err := c.AddModelToStrategy(context.Background(), req)
	if err != nil {
		t.Fatalf("AddModelToStrategy: %v", err)
	}
	if h.method != http.MethodPost || h.contentType != "application/json" {
		t.Fatalf("expected JSON POST, got %s %s", h.method, h.contentType)
	}

	var sent map[string]any
	if err := json.Unmarshal([]byte(h.body), &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent["strategy_name"] != "s1" || sent["model_name"] != "m1" || sent["model_type"] != "svc" || sent["model_input"] != "eeg" {
		t.Fatalf("unexpected body %s", h.body)
	}
	mp := sent["model_parameters"].(map[string]any)
	if mp["gamma"] != "None" || mp["C"] != float64(1) {
		t.Fatalf("unexpected model_parameters %v", mp)
	}

	if len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Fatalf("unexpected graph %+v", g)
	}
	if g.Nodes[0].Label != "eeg" || g.Nodes[0].Kind != "input" {
		t.Fatalf("expected data.label flattened, got %+v", g.Nodes[0])
	}
	if g.Nodes[1].Kind != "default" {
		t.Fatalf("expected default kind for untyped node, got %q", g.Nodes[1].Kind)
	}
	if !g.Edges[0].Animated || g.Edges[0].Kind != "smoothstep" {
		t.Fatalf("unexpected edge %+v", g.Edges[0])
	}
}

func TestAddModelOmitsEmptyInput(t *testing.T) {
	h := &testHandler{responseBody: `{"nodes":[],"edges":[]}`}
	c := newTestClient(t, h)
	_, err := c.AddModelToStrategy(context.Background(), AddModelRequest{Strategy: "s", Model: "m", ModelType: "svc"})
	if err != nil {
		t.Fatalf("AddModelToStrategy: %v", err)
	}
	if strings.Contains(h.body, "model_input") {
		t.Fatalf("expected model_input omitted, got %s", h.body)
	}
}

func TestAddModelInBandError(t *testing.T) {
	h := &testHandler{responseBody: `"model_input cannot be None for late fusion strategy"`}
	c := newTestClient(t, h)
	_, err := c.AddModelToStrategy(context.Background(), AddModelRequest{Strategy: "s", Model: "m", ModelType: "svc"})
	var be *BackendError
	if !errors.As(err, &be) || be.Endpoint != "add-model-to-strategy" {
		t.Fatalf("expected BackendError from add-model-to-strategy, got %v", err)
	}
}

func TestRemoveStrategyUnexpectedMessage(t *testing.T) {
	h := &testHandler{responseBody: `"'foo'"`}
	c := newTestClient(t, h)
	if _, err := c.RemoveStrategy(context.Background(), "foo"); err == nil {
		t.Fatal("expected error for unexpected message")
	}
}

func TestHTTPErrorStatus(t *testing.T) {
	h := &testHandler{statusCode: http.StatusInternalServerError, responseBody: `{"error":"boom"}`}
	c := newTestClient(t, h)
	_, err := c.ListSupportedStrategies(context.Background())
	var ae *APIError
	if !errors.As(err, &ae) || ae.StatusCode != 500 || ae.Message != "boom" {
		t.Fatalf("expected APIError 500 boom, got %v", err)
	}
}

func TestTrainStrategyConvertsNone(t *testing.T) {
	h := &testHandler{responseBody: `{"accuracy":0.9,"confusion_matrix":[[5,1],[0,4]],"precision":[1,0.8],"recall":[0.83,1],"f1_score":[0.9,0.89],"labels":[0,1],"artifact_uri":"file:///srv/mlruns/0/abc/artifacts"}`}
	c := newTestClient(t, h)

	p := catalog.NewParams()
	p.Set("random_state", catalog.Null(), catalog.Number(1))
	res, err := c.TrainStrategy(context.Background(), TrainRequest{
		RunName:    "run-1",
		Strategy:   "s1",
		Validation: "holdout",
		Params:     params.Defaults(catalog.ModelTypeDescriptor{ID: "holdout", Params: p}),
	})
	if err != nil {
		t.Fatalf("TrainStrategy: %v", err)
	}
	if !strings.Contains(h.body, `"validation_parameters":{"random_state":null}`) {
		t.Fatalf("expected None sent as null, got %s", h.body)
	}
	if res.Accuracy != 0.9 || len(res.Labels) != 2 || res.Labels[1] != "1" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestListExperimentRuns(t *testing.T) {
	h := &testHandler{responseBody: `[{"id":"r1","name":"run","created_at":1700000000000,"status":"FINISHED","artifact_uri":"x","params":{"labels":"['a', 'b']"},"metrics":{"accuracy":0.5}}]`}
	c := newTestClient(t, h)
	runs, err := c.ListExperimentRuns(context.Background())
	if err != nil {
		t.Fatalf("ListExperimentRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].CreatedAt.Unix() != 1700000000 || runs[0].Metrics["accuracy"] != 0.5 {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestListDatasetsProfile(t *testing.T) {
	h := &testHandler{responseBody: `[{"name":"eeg","path":"/d/eeg.csv","target_column":"label","time_column":null,"profile":{"table":{"n":10,"n_var":3,"p_cells_missing":0.1,"memory_size":2048,"record_size":64,"types":{"Numeric":2}},"variables":{"label":{"type":"Categorical","n_distinct":2,"value_counts_index_sorted":{"a":6,"b":4}}}}}]`}
	c := newTestClient(t, h)
	ds, err := c.ListDatasets(context.Background(), true)
	if err != nil {
		t.Fatalf("ListDatasets: %v", err)
	}
	if h.query != "return_profile=true" {
		t.Fatalf("unexpected query %q", h.query)
	}
	if len(ds) != 1 || ds[0].TargetColumn != "label" || ds[0].Profile == nil {
		t.Fatalf("unexpected datasets %+v", ds)
	}
	if ds[0].Profile.Table.Observations != 10 || ds[0].Profile.Variables["label"].ValueCounts["a"] != 6 {
		t.Fatalf("unexpected profile %+v", ds[0].Profile)
	}
}

func TestStrategyRequirementsForms(t *testing.T) {
	h := &testHandler{responseBody: `{"n_models":1,"n_datasets":[2,null]}`}
	c := newTestClient(t, h)
	req, err := c.StrategyRequirements(context.Background(), "ef")
	if err != nil {
		t.Fatalf("StrategyRequirements: %v", err)
	}
	if req.Models != 1 || req.MinDatasets != 2 || req.MaxDatasets != 0 {
		t.Fatalf("unexpected requirements %+v", req)
	}

	h.responseBody = `[{"name":"eeg","options":[{"id":"svc","params":{}}]},{"name":"Output","options":[{"id":"voting","group":"Ensemble","params":{"voting":["hard","soft"],"weights":[null,[1,2],[2,1]]}}]}]`
	req, err = c.StrategyRequirements(context.Background(), "lf")
	if err != nil {
		t.Fatalf("StrategyRequirements list: %v", err)
	}
	out, ok := req.Input(OutputInput)
	if !ok || out.Options[0].ID != "voting" {
		t.Fatalf("expected Output requirement, got %+v", req)
	}
	weights, _ := out.Options[0].Params.Options("weights")
	if len(weights) != 3 || weights[1].Display() != "(1, 2)" {
		t.Fatalf("unexpected weights %v", weights)
	}
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	h := &testHandler{responseBody: `"No such strategy"`}
	c := newTestClient(t, h, WithMetrics(m))
	_, _ = c.RemoveStrategy(context.Background(), "x")
	if got := testutil.ToFloat64(m.calls.WithLabelValues("rm-strategy", outcomeBackend)); got != 1 {
		t.Fatalf("expected 1 backend_error call, got %v", got)
	}
}

func TestBearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	c := NewHTTPClient(srv.URL, WithToken("secret"))
	if _, err := c.ListSupportedStrategies(context.Background()); err != nil {
		t.Fatalf("ListSupportedStrategies: %v", err)
	}
	if auth != "Bearer secret" {
		t.Fatalf("expected bearer token, got %q", auth)
	}
}
