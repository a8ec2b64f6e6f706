// ABOUTME: Tests for the strategy configuration session against the in-memory gateway.
// ABOUTME: Covers step transitions, attach and delete flows, catalog failures and stale responses.
package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/2389-research/neurogems/catalog"
	"github.com/2389-research/neurogems/gateway"
	"github.com/2389-research/neurogems/gateway/gatewaytest"
	"github.com/2389-research/neurogems/pipeline"
)

func newTestSession(t *testing.T, fake *gatewaytest.Fake) *Session {
	t.Helper()
	s := New(Deps{Gateway: fake})
	t.Cleanup(func() {
		s.Close()
		s.Wait()
	})
	return s
}

func submit(t *testing.T, s *Session, name, kind string) {
	t.Helper()
	if err := s.SetName(name); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if err := s.SelectKind(kind); err != nil {
		t.Fatalf("SelectKind: %v", err)
	}
	if err := s.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	s.Wait()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func savedNamed(s *Session, name string) (gateway.SavedStrategy, bool) {
	for _, st := range s.Saved() {
		if st.Name == name {
			return st, true
		}
	}
	return gateway.SavedStrategy{}, false
}

func TestSubmitRequiresNameAndKind(t *testing.T) {
	s := newTestSession(t, gatewaytest.New("iris"))
	if s.CanSubmit() {
		t.Fatal("expected empty session to be unsubmittable")
	}
	if err := s.Submit(); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	_ = s.SetName("  spaced  ")
	if s.Name() != "spaced" {
		t.Fatalf("expected trimmed name, got %q", s.Name())
	}
	if err := s.Submit(); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete without kind, got %v", err)
	}
	if s.Step() != StepNamingAndKind {
		t.Fatalf("expected step 0, got %v", s.Step())
	}
}

func TestSubmitAdvancesAndCreates(t *testing.T) {
	fake := gatewaytest.New("iris")
	s := newTestSession(t, fake)
	submit(t, s, "s1", KindUnimodal)

	if s.Step() != StepPipelineDefinition {
		t.Fatalf("expected pipeline step, got %v", s.Step())
	}
	if s.CreateStatus() != CreateDone {
		t.Fatalf("expected created, got %q", s.CreateStatus())
	}
	if fake.CallCount("create-strategy") != 1 {
		t.Fatalf("expected one create call, got %d", fake.CallCount("create-strategy"))
	}
	if st, ok := savedNamed(s, "s1"); !ok || st.Kind != KindUnimodal {
		t.Fatalf("expected s1 in saved list, got %v", s.Saved())
	}
	if err := s.SetName("other"); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected ErrWrongStep, got %v", err)
	}
	if err := s.Submit(); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected ErrWrongStep on second submit, got %v", err)
	}
}

func TestSubmitTransitionsBeforeCreateCompletes(t *testing.T) {
	fake := gatewaytest.New("iris")
	release := fake.Gate("create-strategy")
	s := newTestSession(t, fake)

	_ = s.SetName("slow")
	_ = s.SelectKind(KindEarlyFusion)
	if err := s.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.Step() != StepPipelineDefinition {
		t.Fatalf("expected immediate transition, got %v", s.Step())
	}
	if s.CreateStatus() != CreatePending {
		t.Fatalf("expected pending create, got %q", s.CreateStatus())
	}
	release()
	s.Wait()
	if s.CreateStatus() != CreateDone {
		t.Fatalf("expected created, got %q", s.CreateStatus())
	}
}

func TestCreateFailureRaisesAlertAndKeepsStep(t *testing.T) {
	fake := gatewaytest.New("iris")
	fake.Fail("create-strategy", &gateway.BackendError{Endpoint: "create-strategy", Message: "Strategy type x is not supported"})
	s := newTestSession(t, fake)
	submit(t, s, "bad", KindUnimodal)

	if s.Step() != StepPipelineDefinition {
		t.Fatalf("expected step to stay forward, got %v", s.Step())
	}
	if s.CreateStatus() != CreateFailed {
		t.Fatalf("expected failed, got %q", s.CreateStatus())
	}
	al, ok := s.Alerts().Latest()
	if !ok || al.Variant != VariantError || al.Message != "Strategy type x is not supported" {
		t.Fatalf("expected backend message alert, got %+v", al)
	}
}

func TestBackRoundTripKeepsNameAndKind(t *testing.T) {
	s := newTestSession(t, gatewaytest.New("iris"))
	submit(t, s, "roundtrip", KindLateFusion)

	if err := s.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if s.Step() != StepNamingAndKind {
		t.Fatalf("expected step 0, got %v", s.Step())
	}
	if s.Form() != nil {
		t.Fatal("expected no form at step 0")
	}
	if s.Name() != "roundtrip" || s.Kind() != KindLateFusion {
		t.Fatalf("expected name and kind retained, got %q %q", s.Name(), s.Kind())
	}
	if err := s.Submit(); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	s.Wait()
	if s.Name() != "roundtrip" || s.Kind() != KindLateFusion {
		t.Fatalf("expected same name and kind after resubmit, got %q %q", s.Name(), s.Kind())
	}
	if err := s.Back(); err != nil {
		t.Fatalf("second Back: %v", err)
	}
	if err := s.Back(); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected ErrWrongStep at step 0, got %v", err)
	}
}

func TestUnknownKindHasNoForm(t *testing.T) {
	s := newTestSession(t, gatewaytest.New("iris"))
	submit(t, s, "odd", "stacking")

	if s.Step() != StepPipelineDefinition {
		t.Fatalf("expected pipeline step, got %v", s.Step())
	}
	if s.Form() != nil {
		t.Fatal("expected nil form for unknown kind")
	}
	if _, err := s.AttachModel(context.Background()); !errors.Is(err, ErrNoForm) {
		t.Fatalf("expected ErrNoForm, got %v", err)
	}
	if s.View().Form != nil {
		t.Fatal("expected view without form")
	}
}

func TestUnimodalAttachReplacesGraph(t *testing.T) {
	fake := gatewaytest.New("iris", "wine")
	s := newTestSession(t, fake)
	submit(t, s, "uni", KindUnimodal)

	f := s.Form()
	if f.InputMode() != InputOptional {
		t.Fatalf("expected optional input, got %q", f.InputMode())
	}
	if got := f.Inputs(); len(got) != 2 || got[0] != "iris" {
		t.Fatalf("expected datasets as inputs, got %v", got)
	}
	if err := f.SelectModelType("svc"); err != nil {
		t.Fatalf("SelectModelType: %v", err)
	}
	if f.CanAttach() {
		t.Fatal("expected attach disabled without model name")
	}
	f.SetModelName("m1")
	if err := f.SetInput("iris"); err != nil {
		t.Fatalf("SetInput: %v", err)
	}

	g, err := s.AttachModel(context.Background())
	if err != nil {
		t.Fatalf("AttachModel: %v", err)
	}
	if _, ok := g.NodeByID(pipeline.ModelPrefix + "m1"); !ok {
		t.Fatalf("expected model node, got %+v", g.Nodes)
	}
	if len(g.Edges) != 1 || g.Edges[0].Source != pipeline.DatasetPrefix+"iris" {
		t.Fatalf("expected dataset edge, got %+v", g.Edges)
	}
	al, _ := s.Alerts().Latest()
	if al.Message != MsgStrategyUpdated {
		t.Fatalf("expected update alert, got %q", al.Message)
	}
	if d, _ := f.ModelType(); d.ID != "svc" {
		t.Fatalf("expected form to stay populated, got %q", d.ID)
	}
}

func TestEarlyFusionTwoModelsScenario(t *testing.T) {
	fake := gatewaytest.New("clinical", "imaging")
	s := newTestSession(t, fake)
	submit(t, s, "ef", KindEarlyFusion)
	f := s.Form()

	for _, name := range []string{"A", "B"} {
		if err := f.SelectModelType("knn"); err != nil {
			t.Fatalf("SelectModelType: %v", err)
		}
		f.SetModelName(name)
		if _, err := s.AttachModel(context.Background()); err != nil {
			t.Fatalf("attach %s: %v", name, err)
		}
	}
	s.Wait()
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	count := 0
	for _, st := range s.Saved() {
		if st.Name == "ef" {
			count++
			if st.Kind != KindEarlyFusion {
				t.Fatalf("expected early_fusion, got %q", st.Kind)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one saved entry, got %d", count)
	}
	if g := s.Graph(); len(g.Nodes) < 2 {
		t.Fatalf("expected at least two nodes, got %d", len(g.Nodes))
	}
}

func TestLateFusionInputsAndOutput(t *testing.T) {
	fake := gatewaytest.New("clinical", "imaging")
	s := newTestSession(t, fake)
	submit(t, s, "lf", KindLateFusion)
	f := s.Form()

	if f.Catalog() != nil {
		t.Fatal("expected no catalog before an input is chosen")
	}
	inputs := f.Inputs()
	if len(inputs) != 3 || inputs[2] != gateway.OutputInput {
		t.Fatalf("expected datasets plus Output, got %v", inputs)
	}
	if err := f.SetInput("nope"); !errors.Is(err, ErrUnknownInput) {
		t.Fatalf("expected ErrUnknownInput, got %v", err)
	}

	_ = f.SetInput("clinical")
	_ = f.SelectModelType("random_forest")
	f.SetModelName("rf")
	if _, err := s.AttachModel(context.Background()); err != nil {
		t.Fatalf("attach rf: %v", err)
	}

	if err := f.SetInput(gateway.OutputInput); err != nil {
		t.Fatalf("SetInput Output: %v", err)
	}
	if _, ok := f.ModelType(); ok {
		t.Fatal("expected params reset when the input changes")
	}
	cat := f.Catalog()
	if len(cat) != 1 || cat[0].ID != "voting" {
		t.Fatalf("expected voting combiner, got %v", cat)
	}
	_ = f.SelectModelType("voting")
	f.SetModelName("")
	if !f.CanAttach() {
		t.Fatal("expected Output attach allowed without a name")
	}
	g, err := s.AttachModel(context.Background())
	if err != nil {
		t.Fatalf("attach voting: %v", err)
	}
	if _, ok := g.NodeByID(pipeline.OutputID); !ok {
		t.Fatalf("expected output node, got %+v", g.Nodes)
	}
}

func TestLateFusionRequiresInput(t *testing.T) {
	s := newTestSession(t, gatewaytest.New("clinical"))
	submit(t, s, "lf", KindLateFusion)
	f := s.Form()
	f.SetModelName("m")
	_, err := s.AttachModel(context.Background())
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
}

func TestAttachFailureLeavesGraph(t *testing.T) {
	fake := gatewaytest.New("iris")
	s := newTestSession(t, fake)
	submit(t, s, "uni", KindUnimodal)
	f := s.Form()
	_ = f.SelectModelType("svc")
	f.SetModelName("m1")
	before, err := s.AttachModel(context.Background())
	if err != nil {
		t.Fatalf("first attach: %v", err)
	}

	fake.Fail("add-model-to-strategy", gatewaytest.ErrNetwork)
	f.SetModelName("m2")
	if _, err := s.AttachModel(context.Background()); !errors.Is(err, gatewaytest.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	after := s.Graph()
	if len(after.Nodes) != len(before.Nodes) || after.Nodes[0].ID != before.Nodes[0].ID {
		t.Fatalf("expected graph unchanged, got %+v", after.Nodes)
	}
	al, _ := s.Alerts().Latest()
	if al.Variant != VariantError || al.Message != gatewaytest.ErrNetwork.Error() {
		t.Fatalf("expected network alert, got %+v", al)
	}
}

func TestSupportedModelsFailureShowsNoOptions(t *testing.T) {
	fake := gatewaytest.New("iris")
	fake.Fail("get-supported-models", gatewaytest.ErrNetwork)
	s := newTestSession(t, fake)
	submit(t, s, "uni", KindUnimodal)

	f := s.Form()
	if got := f.Catalog(); len(got) != 0 {
		t.Fatalf("expected no model options, got %v", got)
	}
	if err := f.SelectModelType("svc"); !errors.Is(err, ErrUnknownModelType) {
		t.Fatalf("expected ErrUnknownModelType, got %v", err)
	}
	if v := s.View(); v.Form == nil || len(v.Form.ModelTypes) != 0 {
		t.Fatalf("expected empty form view, got %+v", v.Form)
	}
	al, _ := s.Alerts().Latest()
	if al.Variant != VariantError {
		t.Fatalf("expected error alert, got %+v", al)
	}

	if err := s.ReloadForm(context.Background()); err != nil {
		t.Fatalf("ReloadForm: %v", err)
	}
	if len(f.Catalog()) == 0 {
		t.Fatal("expected options after retry")
	}

	fake.Fail("get-supported-models", gatewaytest.ErrNetwork)
	if err := s.ReloadForm(context.Background()); err == nil {
		t.Fatal("expected retry failure")
	}
	if len(f.Catalog()) != len(gatewaytest.ModelTypes()) {
		t.Fatalf("expected prior options retained, got %d", len(f.Catalog()))
	}
}

func TestDeleteThenRefreshDropsEntry(t *testing.T) {
	fake := gatewaytest.New("iris")
	s := newTestSession(t, fake)
	submit(t, s, "foo", KindUnimodal)
	if _, ok := savedNamed(s, "foo"); !ok {
		t.Fatal("expected foo before delete")
	}

	if err := s.Delete(context.Background(), "foo"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	s.Wait()
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, ok := savedNamed(s, "foo"); ok {
		t.Fatalf("expected foo gone, got %v", s.Saved())
	}
	al, _ := s.Alerts().Latest()
	if al.Variant != VariantSuccess || al.Message != gateway.MsgStrategyRemoved {
		t.Fatalf("expected removal alert, got %+v", al)
	}
}

func TestDeleteUnknownRaisesError(t *testing.T) {
	s := newTestSession(t, gatewaytest.New())
	if err := s.Delete(context.Background(), "ghost"); err == nil {
		t.Fatal("expected error")
	}
	al, _ := s.Alerts().Latest()
	if al.Variant != VariantError {
		t.Fatalf("expected error alert, got %+v", al)
	}
}

func TestEditSkipsCreateWhenUnchanged(t *testing.T) {
	fake := gatewaytest.New("iris")
	ctx := context.Background()
	if _, err := fake.CreateStrategy(ctx, "kept", KindUnimodal); err != nil {
		t.Fatal(err)
	}
	if _, err := fake.AddModelToStrategy(ctx, gateway.AddModelRequest{Strategy: "kept", Model: "m", ModelType: "svc"}); err != nil {
		t.Fatal(err)
	}

	s := Edit(Deps{Gateway: fake}, gateway.SavedStrategy{Name: "kept", Kind: KindUnimodal, Version: 2})
	defer s.Close()
	if s.Origin() != OriginEdit || s.Name() != "kept" {
		t.Fatalf("expected seeded edit session, got %q %q", s.Origin(), s.Name())
	}
	if err := s.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	s.Wait()
	if s.CreateStatus() != CreateSkipped {
		t.Fatalf("expected skipped create, got %q", s.CreateStatus())
	}
	if fake.CallCount("create-strategy") != 1 {
		t.Fatalf("expected no extra create call, got %d", fake.CallCount("create-strategy"))
	}
	if g, _ := fake.Graph("kept"); len(g.Models()) != 1 {
		t.Fatalf("expected backend model kept, got %+v", g.Nodes)
	}

	_ = s.Back()
	_ = s.SetName("renamed")
	_ = s.Submit()
	s.Wait()
	if s.CreateStatus() != CreateDone {
		t.Fatalf("expected create for renamed edit, got %q", s.CreateStatus())
	}
}

func TestRenameClearsGraph(t *testing.T) {
	s := newTestSession(t, gatewaytest.New("iris"))
	submit(t, s, "first", KindUnimodal)
	f := s.Form()
	_ = f.SelectModelType("svc")
	f.SetModelName("m")
	if _, err := s.AttachModel(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = s.Back()
	_ = s.Submit()
	s.Wait()
	if s.Graph().Empty() {
		t.Fatal("expected graph kept when the name is unchanged")
	}
	_ = s.Back()
	_ = s.SetName("second")
	_ = s.Submit()
	s.Wait()
	if !s.Graph().Empty() {
		t.Fatal("expected graph cleared for a new name")
	}
}

func TestBackDiscardsInFlightCatalog(t *testing.T) {
	fake := gatewaytest.New("iris")
	release := fake.Gate("get-supported-models")
	s := newTestSession(t, fake)

	_ = s.SetName("slow")
	_ = s.SelectKind(KindUnimodal)
	_ = s.Submit()
	form := s.Form()
	waitFor(t, "models fetch", func() bool { return fake.CallCount("get-supported-models") == 1 })

	_ = s.Back()
	release()
	s.Wait()
	if len(form.Catalog()) != 0 {
		t.Fatalf("expected abandoned form to ignore the late response, got %v", form.Catalog())
	}
}

func TestEventsPublished(t *testing.T) {
	s := newTestSession(t, gatewaytest.New("iris"))
	events, cancel := s.Subscribe()
	defer cancel()

	submit(t, s, "ev", KindUnimodal)
	seen := map[EventType]bool{}
	for len(events) > 0 {
		e := <-events
		if e.SessionID != s.ID {
			t.Fatalf("expected session id %s, got %s", s.ID, e.SessionID)
		}
		seen[e.Type] = true
	}
	for _, want := range []EventType{EventStep, EventSaved, EventCatalog} {
		if !seen[want] {
			t.Fatalf("expected %s event, saw %v", want, seen)
		}
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	s := New(Deps{Gateway: gatewaytest.New()})
	events, cancel := s.Subscribe()
	s.Close()
	if _, ok := <-events; ok {
		t.Fatal("expected closed channel")
	}
	cancel()
	if err := s.Submit(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestSubscribeAfterCloseEndsImmediately(t *testing.T) {
	s := New(Deps{Gateway: gatewaytest.New()})
	s.Close()
	events, cancel := s.Subscribe()
	defer cancel()
	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed channel, got an event")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected subscription on a closed session to end")
	}
	cancel()
}

func TestAutoName(t *testing.T) {
	s := newTestSession(t, gatewaytest.New())
	name, err := s.AutoName()
	if err != nil {
		t.Fatalf("AutoName: %v", err)
	}
	if strings.Count(name, "-") != 2 || s.Name() != name {
		t.Fatalf("expected word-word-suffix name set on session, got %q", name)
	}
}

func TestParamEditsFlowIntoRequest(t *testing.T) {
	s := newTestSession(t, gatewaytest.New("iris"))
	submit(t, s, "p", KindUnimodal)
	f := s.Form()
	_ = f.SelectModelType("svc")
	f.SetModelName("m")

	if !f.EditParamToken("kernel", "linear") {
		t.Fatal("expected kernel edit accepted")
	}
	if f.EditParam("not_a_param", catalog.String("x")) {
		t.Fatal("expected undeclared key rejected")
	}
	req, err := f.request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if v, _ := req.Params.Get("kernel"); v.Str() != "linear" {
		t.Fatalf("expected kernel=linear, got %v", v)
	}
}

func TestAttachRequestNeverMixesModelTypes(t *testing.T) {
	s := newTestSession(t, gatewaytest.New("iris"))
	submit(t, s, "uni", KindUnimodal)
	f := s.Form()
	if err := f.SelectModelType("svc"); err != nil {
		t.Fatalf("SelectModelType: %v", err)
	}
	f.SetModelName("m1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			id := "knn"
			if i%2 == 1 {
				id = "svc"
			}
			if err := f.SelectModelType(id); err != nil {
				t.Errorf("SelectModelType(%s): %v", id, err)
				return
			}
		}
	}()
	types := make(map[string]catalog.ModelTypeDescriptor)
	for _, d := range gatewaytest.ModelTypes() {
		types[d.ID] = d
	}
	for i := 0; ; i++ {
		select {
		case <-done:
			return
		default:
		}
		req, err := f.request()
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		d := types[req.ModelType]
		for _, k := range req.Params.Keys() {
			if !d.Params.Has(k) {
				t.Fatalf("iteration %d: model_type=%s carries param %q", i, req.ModelType, k)
			}
		}
		view := f.View()
		vd := types[view.ModelType]
		for _, p := range view.Params {
			if !vd.Params.Has(p.Name) {
				t.Fatalf("iteration %d: view type %s shows param %q", i, view.ModelType, p.Name)
			}
		}
	}
}
