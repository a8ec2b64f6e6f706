// ABOUTME: Tests for the parameter store: defaults, isolated edits and wholesale type switches.
// ABOUTME: Uses catalog descriptors shaped like the backend's validation and model catalogs.
package params

import (
	"reflect"
	"testing"

	"github.com/2389-research/neurogems/catalog"
)

func holdout() catalog.ModelTypeDescriptor {
	p := catalog.NewParams()
	p.Set("test_size", catalog.Number(0.1), catalog.Number(0.2), catalog.Number(0.3))
	p.Set("random_state", catalog.Null(), catalog.Number(1), catalog.Number(2))
	p.Set("shuffle", catalog.Bool(true), catalog.Bool(false))
	return catalog.ModelTypeDescriptor{ID: "holdout", Params: p}
}

func kfold() catalog.ModelTypeDescriptor {
	p := catalog.NewParams()
	p.Set("n_splits", catalog.Number(5), catalog.Number(10))
	p.Set("shuffle", catalog.Bool(false), catalog.Bool(true))
	return catalog.ModelTypeDescriptor{ID: "kfold", Params: p}
}

func TestDefaultsUseFirstOption(t *testing.T) {
	a := Defaults(holdout())
	if !reflect.DeepEqual(a.Keys(), []string{"test_size", "random_state", "shuffle"}) {
		t.Fatalf("unexpected keys %v", a.Keys())
	}
	if v, _ := a.Get("test_size"); v.Num() != 0.1 {
		t.Fatalf("expected test_size 0.1, got %v", v)
	}
	v, _ := a.Get("random_state")
	if v.Kind() != catalog.KindString || v.Str() != catalog.NoneToken {
		t.Fatalf("expected None token for null default, got %v", v)
	}
	if v, _ := a.Get("shuffle"); v.Display() != "True" {
		t.Fatalf("expected shuffle True, got %v", v)
	}
}

func TestDefaultsEmptyOptionList(t *testing.T) {
	p := catalog.NewParams()
	p.Set("weights")
	a := Defaults(catalog.ModelTypeDescriptor{ID: "Output", Params: p})
	if v, _ := a.Get("weights"); v.Str() != catalog.NoneToken {
		t.Fatalf("expected None for empty options, got %v", v)
	}
}

func TestEditIsolation(t *testing.T) {
	s := NewStore()
	s.Select(holdout())
	before := s.Assignment()

	if !s.Edit("test_size", catalog.Number(0.3)) {
		t.Fatal("expected edit to apply")
	}
	after := s.Assignment()
	for _, k := range before.Keys() {
		if k == "test_size" {
			continue
		}
		b, _ := before.Get(k)
		a, _ := after.Get(k)
		if !a.Equal(b) {
			t.Fatalf("edit of test_size changed %s from %v to %v", k, b, a)
		}
	}
	if v, _ := after.Get("test_size"); v.Num() != 0.3 {
		t.Fatalf("expected 0.3, got %v", v)
	}
}

func TestEditPreservesNone(t *testing.T) {
	s := NewStore()
	s.Select(holdout())
	s.Edit("shuffle", catalog.Null())
	s.Edit("random_state", catalog.String(catalog.NoneToken))

	a := s.Assignment()
	if v, _ := a.Get("shuffle"); !v.IsNull() {
		t.Fatalf("expected null preserved, got %v", v)
	}
	if v, _ := a.Get("random_state"); v.Kind() != catalog.KindString || v.Str() != "None" {
		t.Fatalf("expected None string preserved, got %v", v)
	}
}

func TestSwitchTypeDiscardsPreviousKeys(t *testing.T) {
	s := NewStore()
	s.Select(holdout())
	s.Edit("shuffle", catalog.Bool(false))
	s.Select(kfold())

	a := s.Assignment()
	if !reflect.DeepEqual(a.Keys(), []string{"n_splits", "shuffle"}) {
		t.Fatalf("expected only kfold keys, got %v", a.Keys())
	}
	if v, _ := a.Get("shuffle"); v.Display() != "False" {
		t.Fatalf("expected kfold default for shuffle, got %v", v)
	}
	if _, ok := a.Get("test_size"); ok {
		t.Fatal("expected test_size to be gone")
	}
}

func TestEditStaleKeyIsNoop(t *testing.T) {
	s := NewStore()
	s.Select(holdout())
	s.Select(kfold())
	if s.Edit("test_size", catalog.Number(0.2)) {
		t.Fatal("expected edit for undeclared key to be rejected")
	}
	if _, ok := s.Assignment().Get("test_size"); ok {
		t.Fatal("stale edit leaked into assignment")
	}
}

func TestEditBeforeSelectIsNoop(t *testing.T) {
	s := NewStore()
	if s.Edit("test_size", catalog.Number(0.2)) {
		t.Fatal("expected edit without a selected type to be rejected")
	}
}

func TestEditToken(t *testing.T) {
	s := NewStore()
	s.Select(holdout())
	if !s.EditToken("random_state", "2") {
		t.Fatal("expected token 2 to match")
	}
	if !s.EditToken("shuffle", "False") {
		t.Fatal("expected token False to match")
	}
	if s.EditToken("shuffle", "maybe") {
		t.Fatal("expected unknown token to be rejected")
	}
	a := s.Assignment()
	if v, _ := a.Get("random_state"); v.Num() != 2 {
		t.Fatalf("expected random_state 2, got %v", v)
	}
	if v, _ := a.Get("shuffle"); v.Display() != "False" {
		t.Fatalf("expected shuffle False, got %v", v)
	}
}

func TestAssignmentWireAndJSON(t *testing.T) {
	a := Defaults(holdout())
	w := a.Wire()
	if v, _ := w.Get("random_state"); !v.IsNull() {
		t.Fatalf("expected null on wire, got %v", v)
	}
	if v, _ := a.Get("random_state"); v.Str() != catalog.NoneToken {
		t.Fatal("Wire must not mutate the source assignment")
	}
	data, err := w.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"test_size":0.1,"random_state":null,"shuffle":true}` {
		t.Fatalf("unexpected json %s", data)
	}
}

func TestAssignmentReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Select(holdout())
	a := s.Assignment()
	a.values["test_size"] = catalog.Number(9)
	if v, _ := s.Assignment().Get("test_size"); v.Num() != 0.1 {
		t.Fatalf("mutating a copy changed the store: %v", v)
	}
}

func TestSnapshotPairsTypeWithItsAssignment(t *testing.T) {
	s := NewStore()
	s.Select(holdout())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			if i%2 == 0 {
				s.Select(kfold())
			} else {
				s.Select(holdout())
			}
		}
	}()
	for i := 0; ; i++ {
		select {
		case <-done:
			return
		default:
		}
		d, a, ok := s.Snapshot()
		if !ok {
			t.Fatal("expected a selection")
		}
		for _, k := range a.Keys() {
			if !d.Params.Has(k) {
				t.Fatalf("iteration %d: key %q does not belong to %q", i, k, d.ID)
			}
		}
	}
}
