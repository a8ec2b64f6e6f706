// ABOUTME: Training form: run name, strategy, validation method and its parameters.
// ABOUTME: Validation methods resolve through the catalog resolver; params reuse the parameter store.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/2389-research/neurogems/catalog"
	"github.com/2389-research/neurogems/gateway"
	"github.com/2389-research/neurogems/params"
)

// MsgTrainingComplete is shown after a successful training run.
const MsgTrainingComplete = "Training complete!"

var (
	ErrIncomplete        = errors.New("run name, strategy and validation are required")
	ErrUnknownValidation = errors.New("unknown validation method")
)

// TrainForm collects a training request.
type TrainForm struct {
	validations *catalog.Resolver[catalog.ModelTypeDescriptor]
	params      *params.Store

	mu       sync.Mutex
	runName  string
	strategy string
}

// NewTrainForm binds a form to gw. onError receives catalog failures.
func NewTrainForm(gw gateway.Gateway, onError func(error)) *TrainForm {
	return &TrainForm{
		validations: catalog.NewResolver[catalog.ModelTypeDescriptor]("supported validations", func(ctx context.Context, _ string) ([]catalog.ModelTypeDescriptor, error) {
			return gw.ListSupportedValidations(ctx)
		}, onError),
		params: params.NewStore(),
	}
}

// Load fetches the validation methods.
func (f *TrainForm) Load(ctx context.Context) error {
	_, err := f.validations.Resolve(ctx, "")
	return err
}

func (f *TrainForm) Validations() []catalog.ModelTypeDescriptor { return f.validations.Options() }

func (f *TrainForm) SetRunName(name string) {
	f.mu.Lock()
	f.runName = strings.TrimSpace(name)
	f.mu.Unlock()
}

func (f *TrainForm) SetStrategy(name string) {
	f.mu.Lock()
	f.strategy = name
	f.mu.Unlock()
}

// SelectValidation resets the parameters to the method's defaults.
func (f *TrainForm) SelectValidation(id string) error {
	d, ok := f.validations.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownValidation, id)
	}
	f.params.Select(d)
	return nil
}

func (f *TrainForm) EditParamToken(key, token string) bool {
	return f.params.EditToken(key, token)
}

func (f *TrainForm) Params() params.Assignment { return f.params.Assignment() }

// Validation returns the selected validation method.
func (f *TrainForm) Validation() (catalog.ModelTypeDescriptor, bool) { return f.params.Type() }

// Request assembles the train request.
func (f *TrainForm) Request() (gateway.TrainRequest, error) {
	d, ok := f.params.Type()
	f.mu.Lock()
	defer f.mu.Unlock()
	if !ok || f.runName == "" || f.strategy == "" {
		return gateway.TrainRequest{}, ErrIncomplete
	}
	return gateway.TrainRequest{
		RunName:    f.runName,
		Strategy:   f.strategy,
		Validation: d.ID,
		Params:     f.params.Assignment(),
	}, nil
}

// Train runs the request synchronously and shapes the response.
func (f *TrainForm) Train(ctx context.Context, gw gateway.Gateway) (Results, error) {
	req, err := f.Request()
	if err != nil {
		return Results{}, err
	}
	log.Printf("experiment train run=%s strategy=%s validation=%s", req.RunName, req.Strategy, req.Validation)
	res, err := gw.TrainStrategy(ctx, req)
	if err != nil {
		return Results{}, fmt.Errorf("train %s: %w", req.Strategy, err)
	}
	return FromTrain(res), nil
}
