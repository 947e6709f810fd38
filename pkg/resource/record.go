package resource

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Record is one resource row. RowID is unique within its category.
type Record struct {
	RowID    int64
	Category Category
	Fields   map[string]Value
}

// Field returns the named field, or Absent.
func (r Record) Field(name string) Value {
	if r.Fields == nil {
		return Absent
	}
	return r.Fields[name]
}

// NaturalKey joins the category's identifying fields. ok is false when any of
// them is missing.
func (r Record) NaturalKey() (string, bool) {
	names := r.Category.NaturalKey()
	parts := make([]string, 0, len(names))
	for _, n := range names {
		v := r.Field(n)
		if !v.Present() {
			return "", false
		}
		parts = append(parts, v.String())
	}
	return strings.Join(parts, "|"), len(parts) > 0
}

// FieldNames returns the field names sorted.
func (r Record) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for n := range r.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Plain returns the fields as plain Go values.
func (r Record) Plain() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Fields))
	for k, v := range r.Fields {
		out[k] = v.Interface()
	}
	return out
}

// EncodeFields serializes the field map for storage.
func EncodeFields(fields map[string]Value) ([]byte, error) {
	return json.Marshal(fields)
}

// DecodeFields reverses EncodeFields, keeping integers exact.
func DecodeFields(data []byte) (map[string]Value, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FieldsOf(raw)
}

// FieldsOf converts a plain map into typed fields.
func FieldsOf(raw map[string]interface{}) (map[string]Value, error) {
	fields := make(map[string]Value, len(raw))
	for k, x := range raw {
		v, err := ValueOf(normalize(x))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		fields[k] = v
	}
	return fields, nil
}

// normalize turns json.Number values nested in lists into plain numbers so
// list entries serialize the same way they were uploaded.
func normalize(x interface{}) interface{} {
	switch t := x.(type) {
	case []interface{}:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	case map[string]interface{}:
		for k := range t {
			t[k] = normalize(t[k])
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	}
	return x
}
