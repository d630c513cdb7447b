package combine

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/logging"
	"github.com/NOAA-GFDL/fms-yaml-tools/internal/progress"
)

// FieldTable is a combined field_table.
type FieldTable struct {
	Entries []*FieldType
}

// FieldType groups the tracer definitions of one field_type.
type FieldType struct {
	Name    string
	Extra   map[string]any // keys other than field_type and modlist
	Modlist []*ModelType
}

// ModelType holds the variables one model component defines.
type ModelType struct {
	Name    string
	Extra   map[string]any
	Varlist []any
}

// MarshalYAML renders the table under its field_table key.
func (t *FieldTable) MarshalYAML() (any, error) {
	entries := make([]map[string]any, 0, len(t.Entries))
	for _, ft := range t.Entries {
		mods := make([]map[string]any, 0, len(ft.Modlist))
		for _, mt := range ft.Modlist {
			m := cloneMap(mt.Extra)
			m["model_type"] = mt.Name
			if mt.Varlist != nil {
				m["varlist"] = mt.Varlist
			}
			mods = append(mods, m)
		}
		m := cloneMap(ft.Extra)
		m["field_type"] = ft.Name
		m["modlist"] = mods
		entries = append(entries, m)
	}
	return map[string]any{"field_table": entries}, nil
}

// FieldTables merges field_table files: entries are matched by field_type,
// then by model_type, and variables not seen yet are appended.
func FieldTables(paths []string, log *logging.Logger, bar *progress.Bar) (*FieldTable, error) {
	out := &FieldTable{}
	bar.AddMax(len(paths))

	for _, path := range paths {
		log.Debugf("Parsing the field_table yaml %s", path)
		raw, err := load(path)
		if err != nil {
			return nil, err
		}

		entries, err := mappings(raw["field_table"])
		if err != nil {
			return nil, fmt.Errorf("%s: field_table: %w", path, err)
		}

		for _, entry := range entries {
			ft, err := newFieldType(entry)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			out.add(ft, log)
		}
		bar.Add(1)
	}
	return out, nil
}

func (t *FieldTable) add(in *FieldType, log *logging.Logger) {
	i := slices.IndexFunc(t.Entries, func(ft *FieldType) bool { return ft.Name == in.Name })
	if i < 0 {
		log.Debugf("Adding the field_type %s", in.Name)
		t.Entries = append(t.Entries, in)
		return
	}

	existing := t.Entries[i]
	if reflect.DeepEqual(existing, in) {
		log.Debugf("The field_type %s already exists, skipping", in.Name)
		return
	}

	for _, mt := range in.Modlist {
		j := slices.IndexFunc(existing.Modlist, func(x *ModelType) bool { return x.Name == mt.Name })
		if j < 0 {
			log.Debugf("Adding the model_type %s to the field_type %s", mt.Name, in.Name)
			existing.Modlist = append(existing.Modlist, mt)
			continue
		}
		target := existing.Modlist[j]
		for _, v := range mt.Varlist {
			if slices.ContainsFunc(target.Varlist, func(x any) bool { return reflect.DeepEqual(x, v) }) {
				continue
			}
			log.Debugf("Adding a variable to the model_type %s of the field_type %s", mt.Name, in.Name)
			target.Varlist = append(target.Varlist, v)
		}
	}
}

func newFieldType(entry map[string]any) (*FieldType, error) {
	name, ok := entry["field_type"].(string)
	if !ok {
		return nil, errors.New("field_table entry without field_type")
	}
	mods, err := mappings(entry["modlist"])
	if err != nil {
		return nil, fmt.Errorf("field_type %s: modlist: %w", name, err)
	}

	ft := &FieldType{Name: name, Extra: without(entry, "field_type", "modlist")}
	for _, m := range mods {
		mt, ok := m["model_type"].(string)
		if !ok {
			return nil, fmt.Errorf("field_type %s: modlist entry without model_type", name)
		}
		varlist, _ := m["varlist"].([]any)
		if m["varlist"] != nil && varlist == nil {
			return nil, fmt.Errorf("field_type %s: model_type %s: varlist must be a sequence", name, mt)
		}
		ft.Modlist = append(ft.Modlist, &ModelType{Name: mt, Extra: without(m, "model_type", "varlist"), Varlist: varlist})
	}
	return ft, nil
}

func without(m map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if !slices.Contains(keys, k) {
			out[k] = v
		}
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+2)
	maps.Copy(out, m)
	return out
}
