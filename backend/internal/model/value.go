package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Kind identifies which variant a Value holds
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTime
	KindList
	KindMap
)

var kindNames = map[Kind]string{
	KindNull:   "null",
	KindString: "string",
	KindInt:    "int",
	KindFloat:  "float",
	KindBool:   "bool",
	KindTime:   "time",
	KindList:   "list",
	KindMap:    "map",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func parseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return KindNull, false
}

// Value is a dynamically-typed attribute or property value.
// The zero Value is Null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
	list []Value
	m    map[string]Value
}

func Null() Value                { return Value{} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func Int(i int64) Value          { return Value{kind: KindInt, i: i} }
func Float(f float64) Value      { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func List(values ...Value) Value { return Value{kind: KindList, list: values} }

// Time keeps named zones. The process-local zone and unnamed fixed offsets have no zone
// id the database accepts, so those instants are stored in UTC.
func Time(t time.Time) Value {
	if name := t.Location().String(); name == "Local" || name == "" {
		t = t.UTC()
	}
	return Value{kind: KindTime, t: t}
}

// Map copies m into a map Value
func Map(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsScalar() bool { return v.kind != KindList && v.kind != KindMap }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsInt() (int64, bool)     { return v.i, v.kind == KindInt }
func (v Value) AsBool() (bool, bool)     { return v.b, v.kind == KindBool }
func (v Value) AsTime() (time.Time, bool) {
	return v.t, v.kind == KindTime
}

// AsFloat also widens Int values
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	out := make([]Value, len(v.list))
	copy(out, v.list)
	return out, true
}

func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	out := make(map[string]Value, len(v.m))
	for k, e := range v.m {
		out[k] = e
	}
	return out, true
}

// FromNative converts a driver, JSON or YAML native value into a Value.
func FromNative(x any) (Value, error) {
	switch n := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return n, nil
	case string:
		return String(n), nil
	case bool:
		return Bool(n), nil
	case int:
		return Int(int64(n)), nil
	case int8:
		return Int(int64(n)), nil
	case int16:
		return Int(int64(n)), nil
	case int32:
		return Int(int64(n)), nil
	case int64:
		return Int(n), nil
	case uint8:
		return Int(int64(n)), nil
	case uint16:
		return Int(int64(n)), nil
	case uint32:
		return Int(int64(n)), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return Null(), fmt.Errorf("unsigned value %d overflows int64", n)
		}
		return Int(int64(n)), nil
	case uint64:
		if n > math.MaxInt64 {
			return Null(), fmt.Errorf("unsigned value %d overflows int64", n)
		}
		return Int(int64(n)), nil
	case float32:
		return Float(float64(n)), nil
	case float64:
		return Float(n), nil
	case json.Number:
		return fromJSONNumber(n)
	case time.Time:
		return Time(n), nil
	case []string:
		out := make([]Value, len(n))
		for i, s := range n {
			out[i] = String(s)
		}
		return List(out...), nil
	case []any:
		out := make([]Value, len(n))
		for i, e := range n {
			v, err := FromNative(e)
			if err != nil {
				return Null(), fmt.Errorf("list element %d: %w", i, err)
			}
			out[i] = v
		}
		return List(out...), nil
	case map[string]any:
		out := make(map[string]Value, len(n))
		for k, e := range n {
			v, err := FromNative(e)
			if err != nil {
				return Null(), fmt.Errorf("map key %q: %w", k, err)
			}
			out[k] = v
		}
		return Value{kind: KindMap, m: out}, nil
	case interface{ Time() time.Time }:
		// neo4j temporal types (Date, LocalDateTime, ...) expose Time()
		return Time(n.Time()), nil
	}
	return Null(), fmt.Errorf("unsupported value type %T", x)
}

// MustFromNative panics on unsupported types; intended for literals in tests and fixtures
func MustFromNative(x any) Value {
	v, err := FromNative(x)
	if err != nil {
		panic(err)
	}
	return v
}

// Native returns the plain Go representation used for driver parameters
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Native()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.Native()
		}
		return out
	}
	return nil
}

// Equal reports deep equality; times compare by instant
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
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
		for k, e := range v.m {
			oe, ok := o.m[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return v.s
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%s>", v.kind)
	}
	return string(b)
}

// MarshalJSON emits the natural JSON form of the value
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindTime:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.m)
	}
	return json.Marshal(v.Native())
}

// timeKey marks a JSON object holding a single RFC 3339 timestamp
const timeKey = "$time"

// UnmarshalJSON decodes integral numbers to Int and everything else to its natural kind.
// JSON has no timestamp type: plain strings decode as String and {"$time": "<RFC3339>"}
// decodes as Time, at any depth.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := fromJSON(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func fromJSON(raw any) (Value, error) {
	switch n := raw.(type) {
	case map[string]any:
		if ts, ok := n[timeKey]; ok && len(n) == 1 {
			s, ok := ts.(string)
			if !ok {
				return Null(), fmt.Errorf("%s must be a string, got %T", timeKey, ts)
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return Null(), fmt.Errorf("%s: %w", timeKey, err)
			}
			return Time(t), nil
		}
		out := make(map[string]Value, len(n))
		for k, e := range n {
			ev, err := fromJSON(e)
			if err != nil {
				return Null(), fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = ev
		}
		return Value{kind: KindMap, m: out}, nil
	case []any:
		out := make([]Value, len(n))
		for i, e := range n {
			ev, err := fromJSON(e)
			if err != nil {
				return Null(), fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = ev
		}
		return List(out...), nil
	}
	return FromNative(raw)
}

func fromJSONNumber(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return Null(), fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Float(f), nil
}

// taggedValue is the self-describing encoding used for values a property graph cannot store natively
type taggedValue struct {
	Kind  string          `json:"k"`
	Value json.RawMessage `json:"v,omitempty"`
}

func (v Value) marshalTagged() ([]byte, error) {
	var payload any
	switch v.kind {
	case KindNull:
		return json.Marshal(taggedValue{Kind: v.kind.String()})
	case KindTime:
		payload = v.t.Format(time.RFC3339Nano)
	case KindList:
		items := make([]json.RawMessage, len(v.list))
		for i, e := range v.list {
			raw, err := e.marshalTagged()
			if err != nil {
				return nil, err
			}
			items[i] = raw
		}
		payload = items
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make(map[string]json.RawMessage, len(v.m))
		for _, k := range keys {
			raw, err := v.m[k].marshalTagged()
			if err != nil {
				return nil, err
			}
			fields[k] = raw
		}
		payload = fields
	default:
		payload = v.Native()
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedValue{Kind: v.kind.String(), Value: raw})
}

func unmarshalTagged(data []byte) (Value, error) {
	var tv taggedValue
	if err := json.Unmarshal(data, &tv); err != nil {
		return Null(), err
	}
	kind, ok := parseKind(tv.Kind)
	if !ok {
		return Null(), fmt.Errorf("unknown value kind %q", tv.Kind)
	}
	switch kind {
	case KindNull:
		return Null(), nil
	case KindString:
		var s string
		err := json.Unmarshal(tv.Value, &s)
		return String(s), err
	case KindInt:
		var i int64
		err := json.Unmarshal(tv.Value, &i)
		return Int(i), err
	case KindFloat:
		var f float64
		err := json.Unmarshal(tv.Value, &f)
		return Float(f), err
	case KindBool:
		var b bool
		err := json.Unmarshal(tv.Value, &b)
		return Bool(b), err
	case KindTime:
		var s string
		if err := json.Unmarshal(tv.Value, &s); err != nil {
			return Null(), err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		return Time(t), err
	case KindList:
		var items []json.RawMessage
		if err := json.Unmarshal(tv.Value, &items); err != nil {
			return Null(), err
		}
		out := make([]Value, len(items))
		for i, raw := range items {
			e, err := unmarshalTagged(raw)
			if err != nil {
				return Null(), err
			}
			out[i] = e
		}
		return List(out...), nil
	case KindMap:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(tv.Value, &fields); err != nil {
			return Null(), err
		}
		out := make(map[string]Value, len(fields))
		for k, raw := range fields {
			e, err := unmarshalTagged(raw)
			if err != nil {
				return Null(), err
			}
			out[k] = e
		}
		return Value{kind: KindMap, m: out}, nil
	}
	return Null(), fmt.Errorf("unhandled value kind %q", tv.Kind)
}

// storableNatively reports whether a property graph can hold the value as-is:
// scalars, and lists whose elements share one scalar kind.
func (v Value) storableNatively() bool {
	switch v.kind {
	case KindNull, KindMap:
		// a null property is indistinguishable from an absent one
		return false
	case KindList:
		if len(v.list) == 0 {
			return true
		}
		first := v.list[0].kind
		if first == KindNull || !v.list[0].IsScalar() {
			return false
		}
		for _, e := range v.list[1:] {
			if e.kind != first {
				return false
			}
		}
		return true
	}
	return true
}
