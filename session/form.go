// ABOUTME: Per-kind attach forms used in the pipeline definition step.
// ABOUTME: Each form resolves its model catalog and input choices and assembles add-model requests.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/2389-research/neurogems/catalog"
	"github.com/2389-research/neurogems/gateway"
	"github.com/2389-research/neurogems/params"
)

// InputMode says whether a kind's models take a model_input.
type InputMode string

const (
	InputNone     InputMode = "none"
	InputOptional InputMode = "optional"
	InputRequired InputMode = "required"
)

func inputModeFor(kind string) InputMode {
	switch kind {
	case KindUnimodal:
		return InputOptional
	case KindLateFusion:
		return InputRequired
	}
	return InputNone
}

// outputModelName names the late fusion combiner when the user leaves the name empty.
const outputModelName = "voting"

// AttachForm collects one model to attach to the session's strategy.
type AttachForm struct {
	kind   string
	mode   InputMode
	models *catalog.Resolver[catalog.ModelTypeDescriptor]
	inputs *catalog.Resolver[gateway.InputRequirement]
	params *params.Store

	mu        sync.Mutex
	strategy  string
	modelName string
	input     string
	abandoned bool
}

// newAttachForm returns nil for kinds without a form.
func newAttachForm(kind, strategy string, gw gateway.Gateway, onError func(error)) *AttachForm {
	if !KnownKind(kind) {
		return nil
	}
	f := &AttachForm{
		kind:     kind,
		mode:     inputModeFor(kind),
		strategy: strategy,
		params:   params.NewStore(),
	}
	f.models = catalog.NewResolver[catalog.ModelTypeDescriptor]("supported models", gw.ListSupportedModels, onError)

	switch kind {
	case KindUnimodal:
		f.inputs = catalog.NewResolver[gateway.InputRequirement]("datasets", func(ctx context.Context, _ string) ([]gateway.InputRequirement, error) {
			ds, err := gw.ListDatasets(ctx, false)
			if err != nil {
				return nil, err
			}
			out := make([]gateway.InputRequirement, len(ds))
			for i, d := range ds {
				out[i] = gateway.InputRequirement{Name: d.Name}
			}
			return out, nil
		}, onError)
	case KindLateFusion:
		f.inputs = catalog.NewResolver[gateway.InputRequirement]("strategy requirements", func(ctx context.Context, name string) ([]gateway.InputRequirement, error) {
			req, err := gw.StrategyRequirements(ctx, name)
			if err != nil {
				return nil, err
			}
			return req.Inputs, nil
		}, onError)
	}
	return f
}

// Load resolves the form's catalogs for its strategy. Safe to call again to retry.
func (f *AttachForm) Load(ctx context.Context) error {
	f.mu.Lock()
	if f.abandoned {
		f.mu.Unlock()
		return nil
	}
	strategy := f.strategy
	f.mu.Unlock()

	if f.inputs != nil {
		if _, err := f.inputs.Resolve(ctx, strategy); err != nil {
			return err
		}
	}
	if f.kind != KindLateFusion {
		if _, err := f.models.Resolve(ctx, strategy); err != nil {
			return err
		}
	}
	return nil
}

func (f *AttachForm) abandon() {
	f.mu.Lock()
	f.abandoned = true
	f.mu.Unlock()
	f.models.Abandon()
	if f.inputs != nil {
		f.inputs.Abandon()
	}
}

// loaded reports whether the catalogs Load resolves are present.
func (f *AttachForm) loaded() bool {
	if f.inputs != nil {
		if _, ok := f.inputs.Key(); !ok {
			return false
		}
	}
	if f.kind != KindLateFusion {
		_, ok := f.models.Key()
		return ok
	}
	return true
}

func (f *AttachForm) Kind() string { return f.kind }
func (f *AttachForm) InputMode() InputMode { return f.mode }

// Inputs lists the selectable model inputs.
func (f *AttachForm) Inputs() []string {
	if f.inputs == nil {
		return nil
	}
	opts := f.inputs.Options()
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Name
	}
	return out
}

// Catalog lists the model types selectable right now. Late fusion offers the
// types allowed for the chosen input.
func (f *AttachForm) Catalog() []catalog.ModelTypeDescriptor {
	if f.kind != KindLateFusion {
		return f.models.Options()
	}
	f.mu.Lock()
	input := f.input
	f.mu.Unlock()
	if input == "" {
		return nil
	}
	req, ok := f.inputs.Lookup(input)
	if !ok {
		return nil
	}
	return req.Options
}

func (f *AttachForm) SetModelName(name string) {
	f.mu.Lock()
	f.modelName = name
	f.mu.Unlock()
}

// SetInput chooses the dataset (or the late fusion Output combiner) the model reads.
func (f *AttachForm) SetInput(name string) error {
	if f.mode == InputNone {
		return ErrInputNotSupported
	}
	if name == "" && f.mode == InputOptional {
		f.mu.Lock()
		f.input = ""
		f.mu.Unlock()
		return nil
	}
	if _, ok := f.inputs.Lookup(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownInput, name)
	}

	f.mu.Lock()
	changed := f.input != name
	f.input = name
	f.mu.Unlock()

	if changed && f.kind == KindLateFusion {
		f.params.Reset()
	}
	return nil
}

// SelectModelType resets the parameters to the defaults of the chosen type.
func (f *AttachForm) SelectModelType(id string) error {
	for _, d := range f.Catalog() {
		if d.ID == id {
			f.params.Select(d)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownModelType, id)
}

func (f *AttachForm) EditParam(key string, v catalog.Value) bool {
	return f.params.Edit(key, v)
}

func (f *AttachForm) EditParamToken(key, token string) bool {
	return f.params.EditToken(key, token)
}

// Params exposes the form's parameter store for read access.
func (f *AttachForm) Params() params.Assignment {
	return f.params.Assignment()
}

// ModelType returns the selected type.
func (f *AttachForm) ModelType() (catalog.ModelTypeDescriptor, bool) {
	return f.params.Type()
}

// CanAttach reports whether every required field is present.
func (f *AttachForm) CanAttach() bool {
	_, err := f.request()
	return err == nil
}

func (f *AttachForm) request() (gateway.AddModelRequest, error) {
	d, assign, ok := f.params.Snapshot()
	f.mu.Lock()
	defer f.mu.Unlock()

	name := f.modelName
	if f.kind == KindLateFusion && f.input == gateway.OutputInput && name == "" {
		name = outputModelName
	}
	switch {
	case !ok:
		return gateway.AddModelRequest{}, fmt.Errorf("%w: model type", ErrIncomplete)
	case name == "":
		return gateway.AddModelRequest{}, fmt.Errorf("%w: model name", ErrIncomplete)
	case f.mode == InputRequired && f.input == "":
		return gateway.AddModelRequest{}, fmt.Errorf("%w: model input", ErrIncomplete)
	}
	return gateway.AddModelRequest{
		Strategy:  f.strategy,
		Model:     name,
		ModelType: d.ID,
		Params:    assign,
		Input:     f.input,
	}, nil
}

// FormView is a render-ready snapshot of the form.
type FormView struct {
	Kind       string                        `json:"kind"`
	InputMode  InputMode                     `json:"inputMode"`
	Inputs     []string                      `json:"inputs"`
	Input      string                        `json:"input"`
	ModelName  string                        `json:"modelName"`
	ModelTypes []catalog.ModelTypeDescriptor `json:"modelTypes"`
	ModelType  string                        `json:"modelType"`
	Params     []ParamView                   `json:"params"`
	CanAttach  bool                          `json:"canAttach"`
	Loading    bool                          `json:"loading"`
}

// ParamView is one parameter with its current display value and option tokens.
type ParamView struct {
	Name    string   `json:"name"`
	Value   string   `json:"value"`
	Options []string `json:"options"`
}

func (f *AttachForm) View() FormView {
	v := FormView{
		Kind:       f.kind,
		InputMode:  f.mode,
		Inputs:     f.Inputs(),
		ModelTypes: f.Catalog(),
		CanAttach:  f.CanAttach(),
		Loading:    f.models.Pending() || (f.inputs != nil && f.inputs.Pending()),
	}
	f.mu.Lock()
	v.Input = f.input
	v.ModelName = f.modelName
	f.mu.Unlock()

	if d, assign, ok := f.params.Snapshot(); ok {
		v.ModelType = d.ID
		for _, k := range assign.Keys() {
			cur, _ := assign.Get(k)
			opts, _ := d.Params.Options(k)
			tokens := make([]string, len(opts))
			for i, o := range opts {
				tokens[i] = o.Display()
			}
			v.Params = append(v.Params, ParamView{Name: k, Value: cur.Display(), Options: tokens})
		}
	}
	return v
}
