// ABOUTME: Gateway decorator that records every mutating backend call to the activity sinks.
// ABOUTME: Reads pass straight through; sink failures are logged and never fail the call.
package activity

import (
	"context"
	"fmt"
	"log"

	"github.com/2389-research/neurogems/datasets"
	"github.com/2389-research/neurogems/gateway"
	"github.com/2389-research/neurogems/pipeline"
)

type recordingGateway struct {
	gateway.Gateway
	sinks []Sink
}

// Wrap returns gw with mutations recorded to sinks. With no sinks gw is returned as is.
func Wrap(gw gateway.Gateway, sinks ...Sink) gateway.Gateway {
	if len(sinks) == 0 {
		return gw
	}
	return &recordingGateway{Gateway: gw, sinks: sinks}
}

func (g *recordingGateway) record(ctx context.Context, action, subject string, err error, detail string) {
	e := NewEntry(action, subject, err, detail)
	for _, s := range g.sinks {
		// Recording outlives a cancelled request.
		if rerr := s.Record(context.WithoutCancel(ctx), e); rerr != nil {
			log.Printf("activity record action=%s subject=%s err=%v", action, subject, rerr)
		}
	}
}

func (g *recordingGateway) CreateStrategy(ctx context.Context, name, kind string) (string, error) {
	msg, err := g.Gateway.CreateStrategy(ctx, name, kind)
	g.record(ctx, ActionCreateStrategy, name, err, kind)
	return msg, err
}

func (g *recordingGateway) AddModelToStrategy(ctx context.Context, req gateway.AddModelRequest) (pipeline.Graph, error) {
	graph, err := g.Gateway.AddModelToStrategy(ctx, req)
	g.record(ctx, ActionAddModel, req.Strategy, err, fmt.Sprintf("%s (%s)", req.Model, req.ModelType))
	return graph, err
}

func (g *recordingGateway) RemoveStrategy(ctx context.Context, name string) (string, error) {
	msg, err := g.Gateway.RemoveStrategy(ctx, name)
	g.record(ctx, ActionRemoveStrategy, name, err, msg)
	return msg, err
}

func (g *recordingGateway) AddDataset(ctx context.Context, req gateway.AddDatasetRequest) (*datasets.Dataset, error) {
	ds, err := g.Gateway.AddDataset(ctx, req)
	g.record(ctx, ActionAddDataset, req.Name, err, req.Path)
	return ds, err
}

func (g *recordingGateway) RemoveDataset(ctx context.Context, name string) (string, error) {
	msg, err := g.Gateway.RemoveDataset(ctx, name)
	g.record(ctx, ActionRemoveDataset, name, err, msg)
	return msg, err
}

func (g *recordingGateway) TrainStrategy(ctx context.Context, req gateway.TrainRequest) (*gateway.TrainResult, error) {
	res, err := g.Gateway.TrainStrategy(ctx, req)
	detail := req.RunName
	if err == nil {
		detail = fmt.Sprintf("%s accuracy=%.3f", req.RunName, res.Accuracy)
	}
	g.record(ctx, ActionTrain, req.Strategy, err, detail)
	return res, err
}

func (g *recordingGateway) RemoveRun(ctx context.Context, runID string) (string, error) {
	msg, err := g.Gateway.RemoveRun(ctx, runID)
	g.record(ctx, ActionRemoveRun, runID, err, msg)
	return msg, err
}
