// ABOUTME: Ordered parameter schema (name -> allowed values) as declared by a catalog entry.
// ABOUTME: JSON decoding keeps the backend's declaration order so forms render predictably.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Params maps a parameter name to its ordered option list. Position 0 is the default.
type Params struct {
	keys    []string
	options map[string][]Value
}

// NewParams builds an empty schema.
func NewParams() Params {
	return Params{options: make(map[string][]Value)}
}

// Set adds or replaces a parameter. New keys are appended to the declaration order.
func (p *Params) Set(name string, options ...Value) {
	if p.options == nil {
		p.options = make(map[string][]Value)
	}
	if _, ok := p.options[name]; !ok {
		p.keys = append(p.keys, name)
	}
	cp := make([]Value, len(options))
	copy(cp, options)
	p.options[name] = cp
}

// Keys returns parameter names in declaration order.
func (p Params) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Options returns a copy of the allowed values for name.
func (p Params) Options(name string) ([]Value, bool) {
	opts, ok := p.options[name]
	if !ok {
		return nil, false
	}
	cp := make([]Value, len(opts))
	copy(cp, opts)
	return cp, true
}

// Has reports whether name is declared.
func (p Params) Has(name string) bool {
	_, ok := p.options[name]
	return ok
}

func (p Params) Len() int { return len(p.keys) }

func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		opts := p.options[k]
		if opts == nil {
			opts = []Value{}
		}
		vb, err := json.Marshal(opts)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Params) UnmarshalJSON(data []byte) error {
	*p = NewParams()
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read params: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("params must be an object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read param name: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("param name must be a string, got %v", tok)
		}
		var opts []Value
		if err := dec.Decode(&opts); err != nil {
			return fmt.Errorf("decode options for %q: %w", name, err)
		}
		p.Set(name, opts...)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("close params: %w", err)
	}
	return nil
}
