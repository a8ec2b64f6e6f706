// ABOUTME: HTTP implementation of Gateway against the backend's REST endpoints.
// ABOUTME: GET calls carry their arguments as a query string, POST calls as a JSON body.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2389-research/neurogems/catalog"
	"github.com/2389-research/neurogems/datasets"
	"github.com/2389-research/neurogems/pipeline"
)

// HTTPClient implements Gateway over HTTP.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	metrics    *Metrics
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithToken sets a bearer token on every request.
func WithToken(token string) Option {
	return func(c *HTTPClient) { c.token = token }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// WithMetrics records call counts and latency.
func WithMetrics(m *Metrics) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

// NewHTTPClient creates a client for the backend at baseURL (e.g. "http://localhost:5000").
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Strategies ---

func (c *HTTPClient) ListSupportedStrategies(ctx context.Context) ([]catalog.StrategyDescriptor, error) {
	var wire []wireStrategy
	if err := c.call(ctx, http.MethodGet, "get-supported-strategies", nil, nil, &wire); err != nil {
		return nil, err
	}
	out := make([]catalog.StrategyDescriptor, len(wire))
	for i, w := range wire {
		out[i] = catalog.StrategyDescriptor{Name: w.Name, Group: w.Group, Description: w.Description}
	}
	return out, nil
}

func (c *HTTPClient) ListSupportedModels(ctx context.Context, strategyName string) ([]catalog.ModelTypeDescriptor, error) {
	q := url.Values{}
	q.Set("strategy_name", strategyName)
	var wire []wireModelType
	if err := c.call(ctx, http.MethodGet, "get-supported-models", q, nil, &wire); err != nil {
		return nil, err
	}
	return normalizeModelTypes(wire), nil
}

func (c *HTTPClient) ListSavedStrategies(ctx context.Context) ([]SavedStrategy, error) {
	var wire []wireSaved
	if err := c.call(ctx, http.MethodGet, "get-saved-strategies", nil, nil, &wire); err != nil {
		return nil, err
	}
	out := make([]SavedStrategy, len(wire))
	for i, w := range wire {
		out[i] = SavedStrategy{Name: w.Name, Kind: w.Type, Version: w.Version}
	}
	return out, nil
}

func (c *HTTPClient) StrategyRequirements(ctx context.Context, strategyName string) (*Requirements, error) {
	q := url.Values{}
	q.Set("strategy_name", strategyName)
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "get-strategy-requirements", q, nil, &raw); err != nil {
		return nil, err
	}
	return decodeRequirements(raw)
}

func (c *HTTPClient) CreateStrategy(ctx context.Context, name, kind string) (string, error) {
	q := url.Values{}
	q.Set("strategy_name", name)
	q.Set("strategy_type", kind)
	return c.message(ctx, "create-strategy", q, MsgStrategyCreated)
}

func (c *HTTPClient) AddModelToStrategy(ctx context.Context, req AddModelRequest) (pipeline.Graph, error) {
	paramsJSON, err := req.Params.MarshalJSON()
	if err != nil {
		return pipeline.Graph{}, fmt.Errorf("encode model parameters: %w", err)
	}
	body := wireAddModel{
		StrategyName:    req.Strategy,
		ModelName:       req.Model,
		ModelType:       req.ModelType,
		ModelParameters: paramsJSON,
		ModelInput:      req.Input,
	}
	var wire wireGraph
	if err := c.call(ctx, http.MethodPost, "add-model-to-strategy", nil, body, &wire); err != nil {
		return pipeline.Graph{}, err
	}
	return wire.normalize(), nil
}

func (c *HTTPClient) RemoveStrategy(ctx context.Context, name string) (string, error) {
	q := url.Values{}
	q.Set("strategy_name", name)
	return c.message(ctx, "rm-strategy", q, MsgStrategyRemoved)
}

// --- Datasets ---

func (c *HTTPClient) ListDatasets(ctx context.Context, withProfile bool) ([]datasets.Dataset, error) {
	q := url.Values{}
	if withProfile {
		q.Set("return_profile", "true")
	}
	var wire []wireDataset
	if err := c.call(ctx, http.MethodGet, "get-datasets-information", q, nil, &wire); err != nil {
		return nil, err
	}
	out := make([]datasets.Dataset, len(wire))
	for i, w := range wire {
		out[i] = w.normalize()
	}
	return out, nil
}

func (c *HTTPClient) AddDataset(ctx context.Context, req AddDatasetRequest) (*datasets.Dataset, error) {
	q := url.Values{}
	q.Set("name", req.Name)
	q.Set("path", req.Path)
	q.Set("target_column", req.TargetColumn)
	if req.TimeColumn != "" {
		q.Set("time_column", req.TimeColumn)
	}
	q.Set("return_information", "true")
	if req.WithProfile {
		q.Set("return_profile", "true")
	}
	var wire wireDataset
	if err := c.call(ctx, http.MethodGet, "add-dataset", q, nil, &wire); err != nil {
		return nil, err
	}
	d := wire.normalize()
	return &d, nil
}

func (c *HTTPClient) RemoveDataset(ctx context.Context, name string) (string, error) {
	q := url.Values{}
	q.Set("name", name)
	return c.message(ctx, "rm-dataset", q, MsgDatasetRemoved)
}

// --- Experiments ---

func (c *HTTPClient) ListSupportedValidations(ctx context.Context) ([]catalog.ModelTypeDescriptor, error) {
	var wire []wireModelType
	if err := c.call(ctx, http.MethodGet, "get-supported-validations", nil, nil, &wire); err != nil {
		return nil, err
	}
	return normalizeModelTypes(wire), nil
}

func (c *HTTPClient) ListSupportedMetrics(ctx context.Context) ([]Metric, error) {
	var out []Metric
	if err := c.call(ctx, http.MethodGet, "get-supported-metrics", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) TrainStrategy(ctx context.Context, req TrainRequest) (*TrainResult, error) {
	paramsJSON, err := req.Params.Wire().MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode validation parameters: %w", err)
	}
	body := wireTrain{
		RunName:              req.RunName,
		StrategyName:         req.Strategy,
		Validation:           req.Validation,
		ValidationParameters: paramsJSON,
	}
	var wire wireTrainResult
	if err := c.call(ctx, http.MethodPost, "train-strategy", nil, body, &wire); err != nil {
		return nil, err
	}
	return wire.normalize(), nil
}

func (c *HTTPClient) ListExperimentRuns(ctx context.Context) ([]Run, error) {
	var wire []wireRun
	if err := c.call(ctx, http.MethodGet, "get-experiment-runs", nil, nil, &wire); err != nil {
		return nil, err
	}
	out := make([]Run, len(wire))
	for i, w := range wire {
		out[i] = w.normalize()
	}
	return out, nil
}

func (c *HTTPClient) RemoveRun(ctx context.Context, runID string) (string, error) {
	q := url.Values{}
	q.Set("run_id", runID)
	return c.message(ctx, "rm-run", q, MsgRunRemoved)
}

// --- plumbing ---

// message performs a GET whose success response is a known JSON string.
func (c *HTTPClient) message(ctx context.Context, endpoint string, q url.Values, want string) (string, error) {
	var msg string
	if err := c.call(ctx, http.MethodGet, endpoint, q, nil, &msg); err != nil {
		return "", err
	}
	if msg != want {
		err := &BackendError{Endpoint: endpoint, Message: msg}
		return "", err
	}
	return msg, nil
}

// call performs one request, records metrics and decodes the response into result.
func (c *HTTPClient) call(ctx context.Context, method, endpoint string, q url.Values, body any, result any) error {
	start := time.Now()
	err := c.doJSON(ctx, method, endpoint, q, body, result)
	c.metrics.observe(endpoint, start, err)
	if err != nil {
		log.Printf("gateway call endpoint=%s method=%s err=%v", endpoint, method, err)
	}
	return err
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, q url.Values, body any, result any) error {
	target := c.baseURL + "/" + endpoint
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		var s string
		if json.Unmarshal(respBody, &s) == nil && s != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: s}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	return decodeBody(endpoint, respBody, result)
}

// decodeBody decodes a 2xx body. A bare string where structured data is
// expected is the backend's in-band error report.
func decodeBody(endpoint string, data []byte, result any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		if _, wantsString := result.(*string); wantsString {
			return &BackendError{Endpoint: endpoint, Message: "empty response"}
		}
		return nil
	}

	if trimmed[0] == '"' {
		if s, wantsString := result.(*string); wantsString {
			if err := json.Unmarshal(trimmed, s); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}
			return nil
		}
		var msg string
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return &BackendError{Endpoint: endpoint, Message: msg}
	}

	if _, wantsString := result.(*string); wantsString {
		return &BackendError{Endpoint: endpoint, Message: "unexpected response " + string(trimmed)}
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(trimmed, result); err != nil {
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}

var _ Gateway = (*HTTPClient)(nil)
