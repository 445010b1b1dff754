// Package models defines the data structures shared by every pipeline stage:
// attribute values, file records, elements and collections.
package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindTime
	KindList
	KindMap
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindString:  "string",
	KindNumber:  "number",
	KindBool:    "bool",
	KindTime:    "time",
	KindList:    "list",
	KindMap:     "map",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

func parseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s && k != KindInvalid {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown value kind %q", s)
}

// Value is a tagged union holding one attribute value.
// The zero Value is invalid and is never stored in Attributes.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	t    time.Time
	list []Value
	m    map[string]Value
}

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int returns a numeric Value from an integer.
func Int(i int64) Value { return Value{kind: KindNumber, num: float64(i)} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time returns a time Value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// List returns a list Value. The slice is copied.
func List(vs ...Value) Value {
	items := make([]Value, len(vs))
	copy(items, vs)
	return Value{kind: KindList, list: items}
}

// Strings returns a list Value of strings.
func Strings(ss ...string) Value {
	items := make([]Value, len(ss))
	for i, s := range ss {
		items[i] = String(s)
	}
	return Value{kind: KindList, list: items}
}

// Map returns a map Value. The map is copied.
func Map(m map[string]Value) Value {
	fields := make(map[string]Value, len(m))
	for k, v := range m {
		fields[k] = v
	}
	return Value{kind: KindMap, m: fields}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// IsList reports whether v holds a list (multi-valued attribute).
func (v Value) IsList() bool { return v.kind == KindList }

// Str returns the string held by v.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the number held by v.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// BoolValue returns the boolean held by v.
func (v Value) BoolValue() (bool, bool) { return v.b, v.kind == KindBool }

// TimeValue returns the time held by v.
func (v Value) TimeValue() (time.Time, bool) { return v.t, v.kind == KindTime }

// Items returns a copy of the list held by v.
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	items := make([]Value, len(v.list))
	copy(items, v.list)
	return items, true
}

// Fields returns a copy of the map held by v.
func (v Value) Fields() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	fields := make(map[string]Value, len(v.m))
	for k, f := range v.m {
		fields[k] = f
	}
	return fields, true
}

// String returns the display form of the value.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return strings.Join(parts, ", ")
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + v.m[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}

// key returns an identity string that distinguishes kinds, used to group
// equal values (the number 1 and the string "1" are different values).
func (v Value) key() string {
	if v.kind == KindTime {
		return v.kind.String() + ":" + v.t.Format(time.RFC3339Nano)
	}
	return v.kind.String() + ":" + v.String()
}

// Equal reports whether two values hold the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindTime:
		return v.t.Equal(o.t)
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
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, f := range v.m {
			of, ok := o.m[k]
			if !ok || !f.Equal(of) {
				return false
			}
		}
		return true
	}
	return v.key() == o.key()
}

// Compare orders two values. Values of different kinds are ordered by kind.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindString:
		return strings.Compare(a.str, b.str)
	case KindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		}
		return 1
	case KindTime:
		return a.t.Compare(b.t)
	case KindList:
		for i := 0; i < len(a.list) && i < len(b.list); i++ {
			if c := Compare(a.list[i], b.list[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(a.list) < len(b.list):
			return -1
		case len(a.list) > len(b.list):
			return 1
		}
		return 0
	}
	return strings.Compare(a.String(), b.String())
}

type jsonValue struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the value as {"kind": ..., "value": ...}
func (v Value) MarshalJSON() ([]byte, error) {
	var (
		raw []byte
		err error
	)
	switch v.kind {
	case KindString:
		raw, err = json.Marshal(v.str)
	case KindNumber:
		raw, err = json.Marshal(v.num)
	case KindBool:
		raw, err = json.Marshal(v.b)
	case KindTime:
		raw, err = json.Marshal(v.t.Format(time.RFC3339Nano))
	case KindList:
		items := v.list
		if items == nil {
			items = []Value{}
		}
		raw, err = json.Marshal(items)
	case KindMap:
		fields := v.m
		if fields == nil {
			fields = map[string]Value{}
		}
		raw, err = json.Marshal(fields)
	default:
		return nil, fmt.Errorf("cannot marshal invalid value")
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonValue{Kind: v.kind.String(), Value: raw})
}

// UnmarshalJSON decodes a value written by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	kind, err := parseKind(jv.Kind)
	if err != nil {
		return err
	}

	out := Value{kind: kind}
	switch kind {
	case KindString:
		err = json.Unmarshal(jv.Value, &out.str)
	case KindNumber:
		err = json.Unmarshal(jv.Value, &out.num)
	case KindBool:
		err = json.Unmarshal(jv.Value, &out.b)
	case KindTime:
		var s string
		if err = json.Unmarshal(jv.Value, &s); err == nil {
			out.t, err = time.Parse(time.RFC3339Nano, s)
		}
	case KindList:
		out.list = []Value{}
		err = json.Unmarshal(jv.Value, &out.list)
	case KindMap:
		out.m = map[string]Value{}
		err = json.Unmarshal(jv.Value, &out.m)
	}
	if err != nil {
		return fmt.Errorf("decode %s value: %w", kind, err)
	}

	*v = out
	return nil
}
