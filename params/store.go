// ABOUTME: Parameter assignment for the model or validation type currently being configured.
// ABOUTME: Selecting a type resets the assignment wholesale; edits touch exactly one declared key.
package params

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/2389-research/neurogems/catalog"
)

// Assignment is an ordered name -> value mapping.
type Assignment struct {
	keys   []string
	values map[string]catalog.Value
}

// Defaults builds the initial assignment for a type: the first option of each
// parameter, with a null default stored as the None token.
func Defaults(d catalog.ModelTypeDescriptor) Assignment {
	a := Assignment{values: make(map[string]catalog.Value)}
	for _, k := range d.Params.Keys() {
		opts, _ := d.Params.Options(k)
		v := catalog.String(catalog.NoneToken)
		if len(opts) > 0 && !opts[0].IsNull() {
			v = opts[0]
		}
		a.keys = append(a.keys, k)
		a.values[k] = v
	}
	return a
}

func (a Assignment) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

func (a Assignment) Get(key string) (catalog.Value, bool) {
	v, ok := a.values[key]
	return v, ok
}

func (a Assignment) Len() int { return len(a.keys) }

// Map returns an unordered copy.
func (a Assignment) Map() map[string]catalog.Value {
	out := make(map[string]catalog.Value, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// Wire returns a copy with None tokens converted to null.
func (a Assignment) Wire() Assignment {
	out := a.clone()
	for k, v := range out.values {
		out.values[k] = v.ToWire()
	}
	return out
}

func (a Assignment) clone() Assignment {
	out := Assignment{keys: a.Keys(), values: a.Map()}
	return out
}

func (a Assignment) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(a.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Store owns the assignment for one form.
type Store struct {
	mu       sync.RWMutex
	selected bool
	desc     catalog.ModelTypeDescriptor
	assign   Assignment
}

func NewStore() *Store {
	return &Store{}
}

// Select replaces the assignment with the defaults of d.
func (s *Store) Select(d catalog.ModelTypeDescriptor) {
	fresh := Defaults(d)
	s.mu.Lock()
	s.desc = d
	s.selected = true
	s.assign = fresh
	s.mu.Unlock()
}

// Edit sets one declared key. Returns false for keys the selected type does not declare.
func (s *Store) Edit(key string, v catalog.Value) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selected || !s.desc.Params.Has(key) {
		return false
	}
	s.assign.values[key] = v
	return true
}

// EditToken sets key to the option whose display text is token.
func (s *Store) EditToken(key, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selected {
		return false
	}
	opts, ok := s.desc.Params.Options(key)
	if !ok {
		return false
	}
	if token == catalog.NoneToken {
		s.assign.values[key] = catalog.String(catalog.NoneToken)
		return true
	}
	v, ok := catalog.MatchToken(opts, token)
	if !ok {
		return false
	}
	s.assign.values[key] = v
	return true
}

// Assignment returns a copy of the current assignment.
func (s *Store) Assignment() Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assign.clone()
}

// Type returns the selected descriptor.
func (s *Store) Type() (catalog.ModelTypeDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.desc, s.selected
}

// Snapshot returns the selected descriptor and a copy of its assignment read together,
// so the assignment always belongs to the returned type.
func (s *Store) Snapshot() (catalog.ModelTypeDescriptor, Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.desc, s.assign.clone(), s.selected
}

// Reset clears the selection.
func (s *Store) Reset() {
	s.mu.Lock()
	s.selected = false
	s.desc = catalog.ModelTypeDescriptor{}
	s.assign = Assignment{}
	s.mu.Unlock()
}
