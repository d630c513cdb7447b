package diagtable

import (
	"fmt"
	"iter"
	"reflect"
	"slices"

	"github.com/goccy/go-yaml"
)

// File is one output file of the diag table. A file lists its variables
// either in Varlist or grouped by module in Modules, never both.
type File struct {
	FileName     string         `json:"file_name,omitempty"`
	Freq         string         `json:"freq,omitempty"`
	TimeUnits    string         `json:"time_units,omitempty"`
	Unlimdim     string         `json:"unlimdim,omitempty"`
	WriteFile    *bool          `json:"write_file,omitempty"`
	GlobalMeta   map[string]any `json:"global_meta,omitempty"`
	SubRegion    *SubRegion     `json:"-"`
	NewFileFreq  string         `json:"new_file_freq,omitempty"`
	StartTime    string         `json:"start_time,omitempty"`
	FileDuration string         `json:"file_duration,omitempty"`
	IsOcean      *bool          `json:"is_ocean,omitempty"`
	Kind         string         `json:"kind,omitempty"`
	Module       string         `json:"module,omitempty"`
	Reduction    string         `json:"reduction,omitempty"`
	Varlist      []*Variable    `json:"-"`
	Modules      []*ModuleGroup `json:"-"`
}

// ModuleGroup holds the variables of one module inside a file.
type ModuleGroup struct {
	Module  string      `json:"module,omitempty"`
	Varlist []*Variable `json:"-"`
}

// VarRef locates a variable within its file.
type VarRef struct {
	File  *File
	Group *ModuleGroup // nil for plain varlist entries
	Var   *Variable
}

// Module returns the variable's effective module.
func (r VarRef) Module() string {
	inherited := r.File.Module
	if r.Group != nil && r.Group.Module != "" {
		inherited = r.Group.Module
	}
	return r.Var.EffectiveModule(inherited)
}

// NewFile builds a file from a decoded YAML mapping.
func NewFile(raw map[string]any) (*File, error) {
	name, _ := raw["file_name"].(string)
	if raw["varlist"] != nil && raw["modules"] != nil {
		return nil, &InconsistentKeys{File: name}
	}

	scalars, err := fileFields.normalize("file", raw)
	if err != nil {
		return nil, err
	}

	var f File
	if err := decode(scalars, &f); err != nil {
		return nil, fmt.Errorf("file %q: %w", name, err)
	}

	if v, ok := raw["sub_region"]; ok && v != nil {
		m, _ := unwrapSingleton(v)
		if f.SubRegion, err = NewSubRegion(m.(map[string]any)); err != nil {
			return nil, err
		}
	}

	if v, ok := raw["varlist"]; ok && v != nil {
		if f.Varlist, err = newVarlist("file", v); err != nil {
			return nil, err
		}
	}

	if v, ok := raw["modules"]; ok && v != nil {
		items, ok := v.([]any)
		if !ok {
			return nil, &InvalidFieldError{Entity: "file", Key: "modules", Value: v}
		}
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, &InvalidFieldError{Entity: "file", Key: "modules", Value: item}
			}
			g, err := NewModuleGroup(m)
			if err != nil {
				return nil, err
			}
			f.Modules = append(f.Modules, g)
		}
	}

	return &f, nil
}

// NewModuleGroup builds a module group from a decoded YAML mapping.
func NewModuleGroup(raw map[string]any) (*ModuleGroup, error) {
	scalars, err := moduleGroupFields.normalize("modules", raw)
	if err != nil {
		return nil, err
	}
	var g ModuleGroup
	if err := decode(scalars, &g); err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}
	if v, ok := raw["varlist"]; ok && v != nil {
		if g.Varlist, err = newVarlist("modules", v); err != nil {
			return nil, err
		}
	}
	return &g, nil
}

func (f *File) attrs() attrs {
	var out attrs
	out = addString(out, "file_name", f.FileName)
	out = addFrequency(out, "freq", f.Freq)
	out = addString(out, "time_units", f.TimeUnits)
	out = addString(out, "unlimdim", f.Unlimdim)
	out = addBool(out, "write_file", f.WriteFile)
	out = addMap(out, "global_meta", f.GlobalMeta)
	out = addFrequency(out, "new_file_freq", f.NewFileFreq)
	out = addString(out, "start_time", f.StartTime)
	out = addFrequency(out, "file_duration", f.FileDuration)
	out = addBool(out, "is_ocean", f.IsOcean)
	out = addString(out, "kind", f.Kind)
	out = addString(out, "module", f.Module)
	out = addString(out, "reduction", f.Reduction)
	return out
}

// UsesModules reports whether the file groups its variables by module.
func (f *File) UsesModules() bool {
	return len(f.Modules) > 0
}

// Variables iterates over every variable of the file, grouped or not.
func (f *File) Variables() iter.Seq[VarRef] {
	return func(yield func(VarRef) bool) {
		for _, v := range f.Varlist {
			if !yield(VarRef{File: f, Var: v}) {
				return
			}
		}
		for _, g := range f.Modules {
			for _, v := range g.Varlist {
				if !yield(VarRef{File: f, Group: g, Var: v}) {
					return
				}
			}
		}
	}
}

// NumVariables counts the variables of the file.
func (f *File) NumVariables() int {
	n := len(f.Varlist)
	for _, g := range f.Modules {
		n += len(g.Varlist)
	}
	return n
}

// Group returns the module group with the given module name.
func (f *File) Group(module string) *ModuleGroup {
	i := slices.IndexFunc(f.Modules, func(g *ModuleGroup) bool { return g.Module == module })
	if i < 0 {
		return nil
	}
	return f.Modules[i]
}

// Set validates and assigns one scalar or mapping field. An empty string or
// nil value clears it.
func (f *File) Set(key string, value any) error {
	next, err := setField(fileFields, "file", f.attrs(), key, value, NewFile)
	if err != nil {
		return err
	}
	next.SubRegion, next.Varlist, next.Modules = f.SubRegion, f.Varlist, f.Modules
	*f = *next
	return nil
}

// Clone returns a deep copy.
func (f *File) Clone() *File {
	c := *f
	c.WriteFile = cloneBool(f.WriteFile)
	c.IsOcean = cloneBool(f.IsOcean)
	c.GlobalMeta = cloneMap(f.GlobalMeta)
	c.SubRegion = f.SubRegion.Clone()
	c.Varlist = cloneVarlist(f.Varlist)
	if f.Modules != nil {
		c.Modules = make([]*ModuleGroup, len(f.Modules))
		for i, g := range f.Modules {
			c.Modules[i] = g.Clone()
		}
	}
	return &c
}

// Equal reports whether two files are identical, including variable order.
func (f *File) Equal(other *File) bool {
	return reflect.DeepEqual(f.attrs(), other.attrs()) &&
		f.SubRegion.Equal(other.SubRegion) &&
		slices.EqualFunc(f.Varlist, other.Varlist, (*Variable).Equal) &&
		slices.EqualFunc(f.Modules, other.Modules, (*ModuleGroup).Equal)
}

// Render returns the file as an ordered mapping.
func (f *File) Render(abstract Abstract) yaml.MapSlice {
	var out yaml.MapSlice
	if abstract.Has(AbstractFile) {
		out = yaml.MapSlice{{Key: "file_name", Value: f.FileName}}
	} else {
		out = f.attrs().mapSlice(fileFields)
		if f.SubRegion != nil {
			// sub_region sits between global_meta and new_file_freq.
			i := slices.IndexFunc(out, func(item yaml.MapItem) bool {
				return fieldIndex(fileFields, item.Key.(string)) > fieldIndex(fileFields, "sub_region")
			})
			if i < 0 {
				i = len(out)
			}
			out = slices.Insert(out, i, yaml.MapItem{Key: "sub_region", Value: []any{f.SubRegion.Render()}})
		}
	}
	if len(f.Varlist) > 0 {
		out = append(out, yaml.MapItem{Key: "varlist", Value: renderVarlist(f.Varlist, abstract)})
	}
	if len(f.Modules) > 0 {
		groups := make([]any, 0, len(f.Modules))
		for _, g := range f.Modules {
			groups = append(groups, g.Render(abstract))
		}
		out = append(out, yaml.MapItem{Key: "modules", Value: groups})
	}
	return out
}

var _ yaml.InterfaceMarshaler = (*File)(nil)

// MarshalYAML renders the file in canonical key order.
func (f *File) MarshalYAML() (any, error) {
	return f.Render(0), nil
}

func fieldIndex(table fieldTable, name string) int {
	return slices.IndexFunc(table, func(f field) bool { return f.name == name })
}

// Clone returns a deep copy.
func (g *ModuleGroup) Clone() *ModuleGroup {
	return &ModuleGroup{Module: g.Module, Varlist: cloneVarlist(g.Varlist)}
}

// Equal reports whether two groups hold the same module and variables.
func (g *ModuleGroup) Equal(other *ModuleGroup) bool {
	return g.Module == other.Module && slices.EqualFunc(g.Varlist, other.Varlist, (*Variable).Equal)
}

// Render returns the group as an ordered mapping.
func (g *ModuleGroup) Render(abstract Abstract) yaml.MapSlice {
	out := yaml.MapSlice{}
	if g.Module != "" {
		out = append(out, yaml.MapItem{Key: "module", Value: g.Module})
	}
	if len(g.Varlist) > 0 {
		out = append(out, yaml.MapItem{Key: "varlist", Value: renderVarlist(g.Varlist, abstract)})
	}
	return out
}
