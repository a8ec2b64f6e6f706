// ABOUTME: MCP server exposing the backend gateway as tools for agent clients.
// ABOUTME: Tools list and edit strategies through the same session flow as the dashboard.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/2389-research/neurogems/gateway"
	"github.com/2389-research/neurogems/pipeline"
	"github.com/2389-research/neurogems/session"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps an MCP server bound to one gateway.
type Server struct {
	deps session.Deps
	mcp  *mcp.Server
}

// New builds the server and registers every tool.
func New(deps session.Deps, version string) *Server {
	s := &Server{
		deps: deps,
		mcp:  mcp.NewServer(&mcp.Implementation{Name: "neurogems", Version: version}, nil),
	}
	s.register()
	return s
}

// MCP returns the underlying server, for in-process transports.
func (s *Server) MCP() *mcp.Server { return s.mcp }

// Run serves over stdin/stdout until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	log.Printf("mcp serve transport=stdio")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

func (s *Server) register() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_strategies",
		Description: "List the strategy kinds the backend supports and the strategies saved on it.",
	}, s.listStrategies)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_models",
		Description: "List the model types available for a saved strategy, with parameter options.",
	}, s.listModels)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "create_strategy",
		Description: "Create (or reset) a strategy with a name and kind.",
	}, s.createStrategy)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "add_model",
		Description: "Attach a model to a saved strategy and return the resulting pipeline graph.",
	}, s.addModel)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "remove_strategy",
		Description: "Remove a saved strategy.",
	}, s.removeStrategy)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_runs",
		Description: "List tracked experiment runs with their metrics.",
	}, s.listRuns)
}

type empty struct{}

type strategiesOutput struct {
	Kinds []string                `json:"kinds"`
	Saved []gateway.SavedStrategy `json:"saved"`
}

func (s *Server) listStrategies(ctx context.Context, _ *mcp.CallToolRequest, _ empty) (*mcp.CallToolResult, strategiesOutput, error) {
	kinds, err := s.deps.Gateway.ListSupportedStrategies(ctx)
	if err != nil {
		return nil, strategiesOutput{}, toolError(err)
	}
	saved, err := s.deps.Gateway.ListSavedStrategies(ctx)
	if err != nil {
		return nil, strategiesOutput{}, toolError(err)
	}
	out := strategiesOutput{Saved: saved}
	for _, k := range kinds {
		out.Kinds = append(out.Kinds, k.Name)
	}
	return nil, out, nil
}

type strategyInput struct {
	Strategy string `json:"strategy" jsonschema:"name of a saved strategy"`
}

type modelType struct {
	ID          string              `json:"id"`
	Description string              `json:"description"`
	Params      map[string][]string `json:"params"`
}

type modelsOutput struct {
	Models []modelType `json:"models"`
}

func (s *Server) listModels(ctx context.Context, _ *mcp.CallToolRequest, in strategyInput) (*mcp.CallToolResult, modelsOutput, error) {
	types, err := s.deps.Gateway.ListSupportedModels(ctx, in.Strategy)
	if err != nil {
		return nil, modelsOutput{}, toolError(err)
	}
	var out modelsOutput
	for _, d := range types {
		mt := modelType{ID: d.ID, Description: d.Description, Params: map[string][]string{}}
		for _, k := range d.Params.Keys() {
			opts, _ := d.Params.Options(k)
			for _, o := range opts {
				mt.Params[k] = append(mt.Params[k], o.Display())
			}
		}
		out.Models = append(out.Models, mt)
	}
	return nil, out, nil
}

type createInput struct {
	Name string `json:"name" jsonschema:"strategy name"`
	Kind string `json:"kind" jsonschema:"strategy kind, one of unimodal, early_fusion, late_fusion"`
}

type messageOutput struct {
	Message string `json:"message"`
}

func (s *Server) createStrategy(ctx context.Context, _ *mcp.CallToolRequest, in createInput) (*mcp.CallToolResult, messageOutput, error) {
	if in.Name == "" || in.Kind == "" {
		return nil, messageOutput{}, errors.New("name and kind are required")
	}
	msg, err := s.deps.Gateway.CreateStrategy(ctx, in.Name, in.Kind)
	if err != nil {
		return nil, messageOutput{}, toolError(err)
	}
	return nil, messageOutput{Message: msg}, nil
}

type addModelInput struct {
	Strategy  string            `json:"strategy" jsonschema:"name of a saved strategy"`
	Input     string            `json:"input,omitempty" jsonschema:"dataset the model reads, or Output for the late fusion combiner"`
	ModelType string            `json:"model_type" jsonschema:"model type id from list_models"`
	Model     string            `json:"model,omitempty" jsonschema:"model name"`
	Params    map[string]string `json:"params,omitempty" jsonschema:"parameter option tokens keyed by parameter name"`
}

type graphOutput struct {
	Graph pipeline.Graph `json:"graph"`
}

func (s *Server) addModel(ctx context.Context, _ *mcp.CallToolRequest, in addModelInput) (*mcp.CallToolResult, graphOutput, error) {
	g, err := session.Attach(ctx, s.deps, session.AttachRequest{
		Strategy:  in.Strategy,
		Input:     in.Input,
		ModelType: in.ModelType,
		Model:     in.Model,
		Params:    in.Params,
	})
	if err != nil {
		return nil, graphOutput{}, toolError(err)
	}
	return nil, graphOutput{Graph: g}, nil
}

func (s *Server) removeStrategy(ctx context.Context, _ *mcp.CallToolRequest, in strategyInput) (*mcp.CallToolResult, messageOutput, error) {
	msg, err := s.deps.Gateway.RemoveStrategy(ctx, in.Strategy)
	if err != nil {
		return nil, messageOutput{}, toolError(err)
	}
	return nil, messageOutput{Message: msg}, nil
}

type runSummary struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	CreatedAt string             `json:"created_at"`
	Status    string             `json:"status"`
	Strategy  string             `json:"strategy,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
}

type runsOutput struct {
	Runs []runSummary `json:"runs"`
}

func (s *Server) listRuns(ctx context.Context, _ *mcp.CallToolRequest, _ empty) (*mcp.CallToolResult, runsOutput, error) {
	runs, err := s.deps.Gateway.ListExperimentRuns(ctx)
	if err != nil {
		return nil, runsOutput{}, toolError(err)
	}
	out := runsOutput{Runs: make([]runSummary, 0, len(runs))}
	for _, r := range runs {
		out.Runs = append(out.Runs, runSummary{
			ID:        r.ID,
			Name:      r.Name,
			CreatedAt: r.CreatedAt.Format(time.RFC3339),
			Status:    r.Status,
			Strategy:  r.Params["strategy"],
			Metrics:   r.Metrics,
		})
	}
	return nil, out, nil
}

// toolError reports the backend's message to the client.
func toolError(err error) error {
	log.Printf("mcp tool err=%v", err)
	return errors.New(gateway.Message(err))
}
