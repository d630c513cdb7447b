package diagtable

import (
	"maps"
	"math"
	"reflect"
	"strconv"

	"github.com/goccy/go-yaml"
)

// attr is one present scalar or mapping field of an entity, in render order.
type attr struct {
	key   string
	value any
}

type attrs []attr

func (a attrs) get(key string) any {
	for _, kv := range a {
		if kv.key == key {
			return kv.value
		}
	}
	return nil
}

func (a attrs) toMap() map[string]any {
	m := make(map[string]any, len(a))
	for _, kv := range a {
		m[kv.key] = kv.value
	}
	return m
}

// mapSlice renders the fields, wrapping mappings that are persisted as
// one-element sequences.
func (a attrs) mapSlice(table fieldTable) yaml.MapSlice {
	out := make(yaml.MapSlice, 0, len(a))
	for _, kv := range a {
		value := kv.value
		if f, ok := table.lookup(kv.key); ok && f.wrapped {
			value = []any{value}
		}
		out = append(out, yaml.MapItem{Key: kv.key, Value: value})
	}
	return out
}

// diff returns the first key, in table order, whose value differs.
func (a attrs) diff(table fieldTable, b attrs) (string, any, any, bool) {
	for _, f := range table {
		x, y := a.get(f.name), b.get(f.name)
		if !reflect.DeepEqual(x, y) {
			return f.name, x, y, true
		}
	}
	return "", nil, nil, false
}

func addString(out attrs, key, value string) attrs {
	if value == "" {
		return out
	}
	return append(out, attr{key, value})
}

// addFrequency adds a frequency-like field. Frequencies are held as strings;
// one written as a bare number is restored to a number so it renders
// unquoted.
func addFrequency(out attrs, key, value string) attrs {
	if value == "" {
		return out
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return append(out, attr{key, i})
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return append(out, attr{key, f})
	}
	return append(out, attr{key, value})
}

func addBool(out attrs, key string, value *bool) attrs {
	if value == nil {
		return out
	}
	return append(out, attr{key, *value})
}

func addMap(out attrs, key string, value map[string]any) attrs {
	if len(value) == 0 {
		return out
	}
	return append(out, attr{key, value})
}

func addFloats(out attrs, key string, value []float64) attrs {
	if len(value) == 0 {
		return out
	}
	return append(out, attr{key, value})
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// cloneValue deep copies decoded YAML values.
func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = cloneValue(v[i])
		}
		return out
	}
	return v
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = cloneValue(v)
	}
	return out
}
