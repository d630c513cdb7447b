package diagtable

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/goccy/go-yaml"
)

// SubRegion restricts a file's output to part of the grid.
type SubRegion struct {
	GridType string    `json:"grid_type,omitempty"`
	Corner1  []float64 `json:"corner1,omitempty"`
	Corner2  []float64 `json:"corner2,omitempty"`
	Corner3  []float64 `json:"corner3,omitempty"`
	Corner4  []float64 `json:"corner4,omitempty"`
	Tile     *int      `json:"tile,omitempty"`
}

// NewSubRegion builds a sub region from a decoded YAML mapping.
func NewSubRegion(raw map[string]any) (*SubRegion, error) {
	scalars, err := subRegionFields.normalize("sub_region", raw)
	if err != nil {
		return nil, err
	}
	var s SubRegion
	if err := decode(scalars, &s); err != nil {
		return nil, fmt.Errorf("sub_region: %w", err)
	}
	return &s, nil
}

func (s *SubRegion) attrs() attrs {
	var out attrs
	out = addString(out, "grid_type", s.GridType)
	out = addFloats(out, "corner1", s.Corner1)
	out = addFloats(out, "corner2", s.Corner2)
	out = addFloats(out, "corner3", s.Corner3)
	out = addFloats(out, "corner4", s.Corner4)
	if s.Tile != nil {
		out = append(out, attr{"tile", *s.Tile})
	}
	return out
}

// Set validates and assigns one field. An empty string or nil value clears it.
func (s *SubRegion) Set(key string, value any) error {
	next, err := setField(subRegionFields, "sub_region", s.attrs(), key, value, NewSubRegion)
	if err != nil {
		return err
	}
	*s = *next
	return nil
}

// Clone returns a deep copy.
func (s *SubRegion) Clone() *SubRegion {
	if s == nil {
		return nil
	}
	c := *s
	c.Corner1 = slices.Clone(s.Corner1)
	c.Corner2 = slices.Clone(s.Corner2)
	c.Corner3 = slices.Clone(s.Corner3)
	c.Corner4 = slices.Clone(s.Corner4)
	if s.Tile != nil {
		t := *s.Tile
		c.Tile = &t
	}
	return &c
}

// Equal reports whether two sub regions have the same fields.
func (s *SubRegion) Equal(other *SubRegion) bool {
	if s == nil || other == nil {
		return s == other
	}
	return reflect.DeepEqual(s.attrs(), other.attrs())
}

// Render returns the sub region as an ordered mapping.
func (s *SubRegion) Render() yaml.MapSlice {
	return s.attrs().mapSlice(subRegionFields)
}

// setField rebuilds an entity from its current fields with one key replaced,
// so the field validator runs exactly as it does on load.
func setField[T any](table fieldTable, entity string, current attrs, key string, value any, build func(map[string]any) (T, error)) (T, error) {
	var zero T
	f, ok := table.lookup(key)
	if !ok {
		return zero, &InvalidFieldError{Entity: entity, Key: key, Value: value, Unknown: true}
	}
	if f.nested {
		return zero, &InvalidFieldError{Entity: entity, Key: key, Value: value}
	}
	raw := current.toMap()
	if s, ok := value.(string); value == nil || ok && s == "" {
		delete(raw, key)
	} else {
		raw[key] = value
	}
	return build(raw)
}
