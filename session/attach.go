// ABOUTME: Non-interactive attach: drives an edit session for a saved strategy through one model.
// ABOUTME: Used by the CLI and the MCP server so scripted attaches share the form's validation.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/2389-research/neurogems/gateway"
	"github.com/2389-research/neurogems/pipeline"
)

var (
	ErrNotSaved     = errors.New("strategy is not saved")
	ErrInvalidParam = errors.New("invalid parameter value")
)

// AttachRequest names one model to attach. Params hold option tokens as shown in the form.
type AttachRequest struct {
	Strategy  string
	Input     string
	ModelType string
	Model     string
	Params    map[string]string
}

// Attach attaches the requested model to its saved strategy and returns the backend graph.
func Attach(ctx context.Context, deps Deps, req AttachRequest) (pipeline.Graph, error) {
	saved, err := deps.Gateway.ListSavedStrategies(ctx)
	if err != nil {
		return pipeline.Graph{}, fmt.Errorf("list saved strategies: %w", err)
	}
	var (
		entry gateway.SavedStrategy
		found bool
	)
	for _, s := range saved {
		if s.Name == req.Strategy {
			entry, found = s, true
			break
		}
	}
	if !found {
		return pipeline.Graph{}, fmt.Errorf("%w: %q", ErrNotSaved, req.Strategy)
	}

	s := Edit(deps, entry)
	defer s.Close()
	if err := s.Submit(); err != nil {
		return pipeline.Graph{}, err
	}
	s.Wait()

	form := s.Form()
	if form == nil {
		return pipeline.Graph{}, fmt.Errorf("%w: %s", ErrNoForm, entry.Kind)
	}
	if !form.loaded() {
		if err := form.Load(ctx); err != nil {
			return pipeline.Graph{}, fmt.Errorf("load form: %w", err)
		}
	}
	if req.Input != "" {
		if err := form.SetInput(req.Input); err != nil {
			return pipeline.Graph{}, err
		}
	}
	if err := form.SelectModelType(req.ModelType); err != nil {
		return pipeline.Graph{}, err
	}
	form.SetModelName(req.Model)

	keys := make([]string, 0, len(req.Params))
	for k := range req.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !form.EditParamToken(k, req.Params[k]) {
			return pipeline.Graph{}, fmt.Errorf("%w: %s=%q", ErrInvalidParam, k, req.Params[k])
		}
	}
	return s.AttachModel(ctx)
}
