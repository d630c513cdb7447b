package diagtable

import (
	"fmt"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
)

// Recognised enumerations of the diag_table YAML format.
var (
	TimeUnits  = []string{"seconds", "minutes", "hours", "days", "months", "years"}
	Kinds      = []string{"r4", "r8", "i4", "i8"}
	Reductions = []string{"none", "average", "min", "max", "rms", "sum"}
	GridTypes  = []string{"indices", "latlon"}
)

var reductionPattern = regexp.MustCompile(`^(pow|diurnal)\d+$`)

// validator reports whether a field value is acceptable. Values are either raw
// YAML values (string, bool, numbers, []any, map[string]any) or the typed
// values held by the entities.
type validator func(value any) bool

type field struct {
	name     string
	valid    validator
	required bool // conflicts are DuplicateKeyError instead of DuplicateOptionalKeyError
	wrapped  bool // persisted as a one-element sequence
	nested   bool // decoded separately into child entities
}

// fieldTable lists the recognised keys of one entity type in render order.
type fieldTable []field

func (t fieldTable) lookup(name string) (field, bool) {
	i := slices.IndexFunc(t, func(f field) bool { return f.name == name })
	if i < 0 {
		return field{}, false
	}
	return t[i], true
}

func (t fieldTable) isRequired(name string) bool {
	f, ok := t.lookup(name)
	return ok && f.required
}

var subRegionFields = fieldTable{
	{name: "grid_type", valid: oneOf(GridTypes...)},
	{name: "corner1", valid: isCorner},
	{name: "corner2", valid: isCorner},
	{name: "corner3", valid: isCorner},
	{name: "corner4", valid: isCorner},
	{name: "tile", valid: isInteger},
}

var variableFields = fieldTable{
	{name: "var_name", valid: isString},
	{name: "kind", valid: oneOf(Kinds...)},
	{name: "module", valid: isString},
	{name: "reduction", valid: isReduction},
	{name: "write_var", valid: isBool},
	{name: "output_name", valid: isString},
	{name: "long_name", valid: isString},
	{name: "attributes", valid: isMapping, wrapped: true},
	{name: "zbounds", valid: isString},
}

var moduleGroupFields = fieldTable{
	{name: "module", valid: isString},
	{name: "varlist", valid: isSequence, nested: true},
}

var fileFields = fieldTable{
	{name: "file_name", valid: isString, required: true},
	{name: "freq", valid: isStringOrNumber, required: true},
	{name: "time_units", valid: oneOf(TimeUnits...), required: true},
	{name: "unlimdim", valid: isString, required: true},
	{name: "write_file", valid: isBool},
	{name: "global_meta", valid: isMapping, wrapped: true},
	{name: "sub_region", valid: isMapping, wrapped: true, nested: true},
	{name: "new_file_freq", valid: isStringOrNumber},
	{name: "start_time", valid: isString},
	{name: "file_duration", valid: isStringOrNumber},
	{name: "is_ocean", valid: isBool},
	{name: "kind", valid: oneOf(Kinds...)},
	{name: "module", valid: isString},
	{name: "reduction", valid: isReduction},
	{name: "varlist", valid: isSequence, nested: true},
	{name: "modules", valid: isSequence, nested: true},
}

var tableFields = fieldTable{
	{name: "title", valid: isString, required: true},
	{name: "base_date", valid: isString, required: true},
	{name: "diag_files", valid: isSequence, nested: true},
}

// normalize checks every key of raw against the table, unwraps singleton
// wrapped values and returns the non-nested fields. Nil values are treated as
// absent.
func (t fieldTable) normalize(entity string, raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for _, key := range slices.Sorted(maps.Keys(raw)) { // sorted for deterministic errors
		value := raw[key]
		f, ok := t.lookup(key)
		if !ok {
			return nil, &InvalidFieldError{Entity: entity, Key: key, Value: value, Unknown: true}
		}
		if value == nil {
			continue
		}
		if f.wrapped {
			unwrapped, ok := unwrapSingleton(value)
			if !ok {
				return nil, &InvalidFieldError{Entity: entity, Key: key, Value: value}
			}
			value = unwrapped
		}
		if !f.valid(value) {
			return nil, &InvalidFieldError{Entity: entity, Key: key, Value: value}
		}
		if !f.nested {
			out[key] = value
		}
	}
	return out, nil
}

// unwrapSingleton accepts either a bare mapping or a one-element sequence
// holding a mapping.
func unwrapSingleton(value any) (any, bool) {
	switch v := value.(type) {
	case []any:
		if len(v) != 1 {
			return nil, false
		}
		return v[0], true
	case []map[string]any:
		if len(v) != 1 {
			return nil, false
		}
		return v[0], true
	}
	return value, true
}

// decode copies normalized scalar fields into one of the entity structs.
func decode(input map[string]any, output any) error {
	config := &mapstructure.DecoderConfig{
		TagName:    "json",
		DecodeHook: numberToString,
		Result:     output,
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

// numberToString lets frequency-like fields be written as bare numbers.
func numberToString(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	switch v := data.(type) {
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), nil
	}
	return data, nil
}

func oneOf(values ...string) validator {
	return func(value any) bool {
		s, ok := value.(string)
		return ok && slices.Contains(values, s)
	}
}

func isString(value any) bool {
	_, ok := value.(string)
	return ok
}

func isBool(value any) bool {
	_, ok := value.(bool)
	return ok
}

func isMapping(value any) bool {
	_, ok := value.(map[string]any)
	return ok
}

func isSequence(value any) bool {
	if value == nil {
		return false
	}
	return reflect.TypeOf(value).Kind() == reflect.Slice
}

func isReduction(value any) bool {
	s, ok := value.(string)
	return ok && (slices.Contains(Reductions, s) || reductionPattern.MatchString(s))
}

func isStringOrNumber(value any) bool {
	return isString(value) || isNumber(value)
}

func isNumber(value any) bool {
	switch value.(type) {
	case float32, float64:
		return true
	}
	return isInteger(value)
}

func isInteger(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isCorner(value any) bool {
	switch v := value.(type) {
	case []float64:
		return len(v) == 2
	case []any:
		return len(v) == 2 && isNumber(v[0]) && isNumber(v[1])
	}
	return false
}
