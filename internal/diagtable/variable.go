package diagtable

import (
	"fmt"
	"reflect"

	"github.com/goccy/go-yaml"
)

// Variable is one entry of a file's varlist.
type Variable struct {
	VarName    string         `json:"var_name,omitempty"`
	Kind       string         `json:"kind,omitempty"`
	Module     string         `json:"module,omitempty"`
	Reduction  string         `json:"reduction,omitempty"`
	WriteVar   *bool          `json:"write_var,omitempty"`
	OutputName string         `json:"output_name,omitempty"`
	LongName   string         `json:"long_name,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Zbounds    string         `json:"zbounds,omitempty"`
}

// NewVariable builds a variable from a decoded YAML mapping.
func NewVariable(raw map[string]any) (*Variable, error) {
	scalars, err := variableFields.normalize("variable", raw)
	if err != nil {
		return nil, err
	}
	var v Variable
	if err := decode(scalars, &v); err != nil {
		return nil, fmt.Errorf("variable: %w", err)
	}
	return &v, nil
}

// newVarlist decodes a varlist. Bare strings are shorthand for a variable
// with only var_name, and nested sequences produced by YAML aliases are
// flattened.
func newVarlist(entity string, raw any) ([]*Variable, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, &InvalidFieldError{Entity: entity, Key: "varlist", Value: raw}
	}
	var out []*Variable
	for _, item := range items {
		switch item := item.(type) {
		case []any:
			nested, err := newVarlist(entity, item)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		case string:
			out = append(out, &Variable{VarName: item})
		case map[string]any:
			v, err := NewVariable(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		default:
			return nil, &InvalidFieldError{Entity: entity, Key: "varlist", Value: item}
		}
	}
	return out, nil
}

func (v *Variable) attrs() attrs {
	var out attrs
	out = addString(out, "var_name", v.VarName)
	out = addString(out, "kind", v.Kind)
	out = addString(out, "module", v.Module)
	out = addString(out, "reduction", v.Reduction)
	out = addBool(out, "write_var", v.WriteVar)
	out = addString(out, "output_name", v.OutputName)
	out = addString(out, "long_name", v.LongName)
	out = addMap(out, "attributes", v.Attributes)
	out = addString(out, "zbounds", v.Zbounds)
	return out
}

// OutputKey is the name the variable is written under: output_name when
// set, otherwise var_name.
func (v *Variable) OutputKey() string {
	if v.OutputName != "" {
		return v.OutputName
	}
	return v.VarName
}

// EffectiveModule resolves the variable's module against the module it
// inherits from its group or file.
func (v *Variable) EffectiveModule(inherited string) string {
	if v.Module != "" {
		return v.Module
	}
	return inherited
}

// Set validates and assigns one field. An empty string or nil value clears it.
func (v *Variable) Set(key string, value any) error {
	next, err := setField(variableFields, "variable", v.attrs(), key, value, NewVariable)
	if err != nil {
		return err
	}
	*v = *next
	return nil
}

// Clone returns a deep copy.
func (v *Variable) Clone() *Variable {
	c := *v
	c.WriteVar = cloneBool(v.WriteVar)
	c.Attributes = cloneMap(v.Attributes)
	return &c
}

// Equal reports whether two variables have the same fields.
func (v *Variable) Equal(other *Variable) bool {
	return reflect.DeepEqual(v.attrs(), other.attrs())
}

// Render returns the variable as an ordered mapping, or as its bare name in
// abstract mode.
func (v *Variable) Render(abstract Abstract) any {
	if abstract.Has(AbstractVar) {
		return v.VarName
	}
	return v.attrs().mapSlice(variableFields)
}

func renderVarlist(vars []*Variable, abstract Abstract) []any {
	out := make([]any, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.Render(abstract))
	}
	return out
}

func cloneVarlist(vars []*Variable) []*Variable {
	if vars == nil {
		return nil
	}
	out := make([]*Variable, len(vars))
	for i, v := range vars {
		out[i] = v.Clone()
	}
	return out
}

var _ yaml.InterfaceMarshaler = (*Variable)(nil)

// MarshalYAML renders the variable in canonical key order.
func (v *Variable) MarshalYAML() (any, error) {
	return v.Render(0), nil
}
