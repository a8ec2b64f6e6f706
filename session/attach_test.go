// ABOUTME: Tests for the non-interactive Attach helper.
package session

import (
	"context"
	"errors"
	"testing"

	"github.com/2389-research/neurogems/gateway"
	"github.com/2389-research/neurogems/gateway/gatewaytest"
	"github.com/2389-research/neurogems/pipeline"
)

func TestAttachUnimodal(t *testing.T) {
	fake := gatewaytest.New("ds1")
	ctx := context.Background()
	if _, err := fake.CreateStrategy(ctx, "alpha", KindUnimodal); err != nil {
		t.Fatalf("seed: %v", err)
	}

	g, err := Attach(ctx, Deps{Gateway: fake}, AttachRequest{
		Strategy:  "alpha",
		Input:     "ds1",
		ModelType: "svc",
		Model:     "m1",
		Params:    map[string]string{"C": "10", "kernel": "linear"},
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if _, ok := g.NodeByID(pipeline.ModelPrefix + "m1"); !ok {
		t.Fatalf("expected m1 in graph, got %+v", g.Nodes)
	}
	if fake.CallCount("create-strategy") != 1 {
		t.Errorf("expected no extra create-strategy, got %d", fake.CallCount("create-strategy"))
	}
}

func TestAttachLateFusionOutputDefaultsName(t *testing.T) {
	fake := gatewaytest.New("ds1", "ds2")
	ctx := context.Background()
	if _, err := fake.CreateStrategy(ctx, "beta", KindLateFusion); err != nil {
		t.Fatalf("seed: %v", err)
	}
	deps := Deps{Gateway: fake}
	if _, err := Attach(ctx, deps, AttachRequest{Strategy: "beta", Input: "ds1", ModelType: "knn", Model: "k1"}); err != nil {
		t.Fatalf("attach k1: %v", err)
	}
	g, err := Attach(ctx, deps, AttachRequest{Strategy: "beta", Input: gateway.OutputInput, ModelType: "voting", Params: map[string]string{"voting": "soft"}})
	if err != nil {
		t.Fatalf("attach voting: %v", err)
	}
	if _, ok := g.NodeByID(pipeline.OutputID); !ok {
		t.Errorf("expected output node, got %+v", g.Nodes)
	}
}

func TestAttachErrors(t *testing.T) {
	fake := gatewaytest.New("ds1")
	ctx := context.Background()
	deps := Deps{Gateway: fake}
	if _, err := fake.CreateStrategy(ctx, "alpha", KindUnimodal); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		name string
		req  AttachRequest
		want error
	}{
		{"not saved", AttachRequest{Strategy: "missing", ModelType: "svc", Model: "m"}, ErrNotSaved},
		{"unknown type", AttachRequest{Strategy: "alpha", ModelType: "nope", Model: "m"}, ErrUnknownModelType},
		{"unknown input", AttachRequest{Strategy: "alpha", Input: "ds9", ModelType: "svc", Model: "m"}, ErrUnknownInput},
		{"bad param", AttachRequest{Strategy: "alpha", ModelType: "svc", Model: "m", Params: map[string]string{"C": "7"}}, ErrInvalidParam},
		{"no name", AttachRequest{Strategy: "alpha", ModelType: "svc"}, ErrIncomplete},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Attach(ctx, deps, c.req)
			if !errors.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
		})
	}
	if fake.CallCount("add-model-to-strategy") != 0 {
		t.Errorf("expected no backend attach, got %d", fake.CallCount("add-model-to-strategy"))
	}
}
