// ABOUTME: Parameter values as declared by the backend catalogs (null, string, number, bool, list).
// ABOUTME: Handles JSON round-tripping and the display tokens (None/True/False) shown in forms.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NoneToken is how a null parameter value is displayed and stored in assignments.
const NoneToken = "None"

// ValueKind identifies which field of a Value is populated.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
)

// Value is a single parameter option or assignment entry.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []Value
}

func Null() Value { return Value{kind: KindNull} }
func String(s string) Value { return Value{kind: KindString, str: s} }
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNone reports whether the value is null or the literal None token.
func (v Value) IsNone() bool {
	return v.kind == KindNull || (v.kind == KindString && v.str == NoneToken)
}

// Str returns the string payload; empty for non-string kinds.
func (v Value) Str() string { return v.str }

// Num returns the numeric payload; zero for non-number kinds.
func (v Value) Num() float64 { return v.num }

// Items returns a copy of the list payload.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp
}

// Equal compares kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Display renders the value the way option pickers show it.
func (v Value) Display() string {
	switch v.kind {
	case KindNull:
		return NoneToken
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.Display()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return ""
}

// String implements fmt.Stringer.
func (v Value) String() string { return v.Display() }

// ToWire converts the None token back to JSON null, recursing into lists.
func (v Value) ToWire() Value {
	switch {
	case v.IsNone():
		return Null()
	case v.kind == KindList:
		out := make([]Value, len(v.list))
		for i, item := range v.list {
			out[i] = item.ToWire()
		}
		return Value{kind: KindList, list: out}
	}
	return v
}

// MatchToken finds the option whose display text equals token.
func MatchToken(options []Value, token string) (Value, bool) {
	for _, opt := range options {
		if opt.Display() == token {
			return opt, true
		}
	}
	return Value{}, false
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty parameter value")
	}
	switch data[0] {
	case 'n':
		*v = Null()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case '[':
		var items []Value
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*v = Value{kind: KindList, list: items}
		return nil
	case '{':
		return fmt.Errorf("object parameter values are not supported")
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("parse parameter value %s: %w", data, err)
	}
	*v = Number(n)
	return nil
}
