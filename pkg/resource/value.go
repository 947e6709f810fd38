package resource

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind tags the dynamic type held by a Value.
type Kind int

const (
	KindAbsent Kind = iota
	KindNull
	KindString
	KindBool
	KindInt
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindList:
		return "list"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a typed field value. The zero Value is absent.
type Value struct {
	kind Kind
	s    string
	b    bool
	i    int64
	list []map[string]interface{}
}

var (
	Absent = Value{}
	Null   = Value{kind: KindNull}
)

func String(s string) Value { return Value{kind: KindString, s: s} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Int(i int64) Value     { return Value{kind: KindInt, i: i} }

func List(entries []map[string]interface{}) Value {
	if entries == nil {
		entries = []map[string]interface{}{}
	}
	return Value{kind: KindList, list: entries}
}

func (v Value) Kind() Kind { return v.kind }

// Present reports whether the field exists and is not null.
func (v Value) Present() bool { return v.kind != KindAbsent && v.kind != KindNull }

func (v Value) Str() (string, bool)                       { return v.s, v.kind == KindString }
func (v Value) Bool() (bool, bool)                        { return v.b, v.kind == KindBool }
func (v Value) Int() (int64, bool)                        { return v.i, v.kind == KindInt }
func (v Value) Entries() ([]map[string]interface{}, bool) { return v.list, v.kind == KindList }

// Empty reports absent, null, the empty string and the empty list.
func (v Value) Empty() bool {
	switch v.kind {
	case KindAbsent, KindNull:
		return true
	case KindString:
		return v.s == ""
	case KindList:
		return len(v.list) == 0
	}
	return false
}

// Interface returns the plain Go value used for serialization.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindList:
		return v.list
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindList:
		b, _ := json.Marshal(v.list)
		return string(b)
	}
	return v.kind.String()
}

// ValueOf converts a decoded JSON or SQL value into a Value. Integral floats
// become ints; lists must hold objects.
func ValueOf(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null, nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return Absent, fmt.Errorf("non-integral number %v", t)
		}
		return Int(int64(t)), nil
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return Absent, fmt.Errorf("non-integral number %s", t)
		}
		return Int(i), nil
	case []map[string]interface{}:
		return List(t), nil
	case []interface{}:
		entries := make([]map[string]interface{}, 0, len(t))
		for i, e := range t {
			m, ok := e.(map[string]interface{})
			if !ok {
				return Absent, fmt.Errorf("list entry %d is %T, want object", i, e)
			}
			entries = append(entries, m)
		}
		return List(entries), nil
	}
	return Absent, fmt.Errorf("unsupported value type %T", x)
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
