//go:generate go run ../../build/gen-diag-schema.go diag_table.json

// Package schema validates diag, data and field table documents against
// their JSON schemas and checks the diag_table rules a schema cannot
// express.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
	schemareflector "github.com/swaggest/jsonschema-go"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/diagtable"
)

//go:embed diag_table.json
var diagSchema []byte

//go:embed data_table.json
var dataSchema []byte

//go:embed field_table.json
var fieldSchema []byte

// Kind selects the table format of a document.
type Kind int

const (
	Auto Kind = iota
	Diag
	Data
	Field
)

// KindNames maps kinds to their command line names.
var KindNames = map[Kind][]string{
	Auto:  {"auto"},
	Diag:  {"diag"},
	Data:  {"data"},
	Field: {"field"},
}

func (k Kind) String() string {
	if names, ok := KindNames[k]; ok {
		return names[0]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var schemas = map[Kind]*jsonschema.Schema{}

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)

	sources := map[Kind][]byte{Diag: diagSchema, Data: dataSchema, Field: fieldSchema}
	for kind, src := range sources {
		js, err := jsonschema.UnmarshalJSON(bytes.NewReader(src))
		if err != nil {
			panic(err)
		}
		if err := compiler.AddResource(kind.String()+"_table.json", js); err != nil {
			panic(err)
		}
	}

	for kind := range sources {
		s, err := compiler.Compile(kind.String() + "_table.json")
		if err != nil {
			panic(err)
		}
		schemas[kind] = s
	}
}

// Schema returns the embedded JSON schema of a table kind.
func Schema(kind Kind) []byte {
	switch kind {
	case Diag:
		return diagSchema
	case Data:
		return dataSchema
	case Field:
		return fieldSchema
	}
	return nil
}

// ReflectDiagSchema builds the diag_table schema from the DiagTable type.
func ReflectDiagSchema() ([]byte, error) {
	reflector := schemareflector.Reflector{}

	s, err := reflector.Reflect(DiagTable{})
	if err != nil {
		return nil, err
	}

	return json.MarshalIndent(s, "", "  ")
}

// Detect guesses the kind of a decoded document from its top level keys.
func Detect(raw map[string]any) Kind {
	switch {
	case raw["data_table"] != nil:
		return Data
	case raw["field_table"] != nil:
		return Field
	}
	return Diag
}

// ValidationError is one problem found in a document. Path is a JSON
// pointer into the document; it is empty for document level problems.
type ValidationError struct {
	Message string
	Path    string
}

func (e ValidationError) String() string {
	return e.Message + "---" + e.Path
}

// Validate checks a document of the given kind. Problems are returned as a
// list; the error is non-nil only when the document cannot be read at all.
// Duplicate mapping keys are reported first and stop validation, since the
// YAML decoder would reject the document.
func Validate(kind Kind, data []byte) ([]ValidationError, error) {
	if dups := DuplicateKeys(data); len(dups) > 0 {
		return dups, nil
	}

	raw, err := diagtable.Load(data)
	if err != nil {
		return nil, err
	}
	if kind == Auto {
		kind = Detect(raw)
	}

	s, ok := schemas[kind]
	if !ok {
		return nil, fmt.Errorf("no schema for the %v table", kind)
	}

	var problems []ValidationError
	if err := s.Validate(raw); err != nil {
		verr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return nil, err
		}
		collect(verr, &problems)
	}

	if kind == Diag && len(problems) == 0 {
		problems = append(problems, diagRules(raw)...)
	}
	return problems, nil
}

// collect flattens the cause tree of a schema error into its leaves.
func collect(err *jsonschema.ValidationError, out *[]ValidationError) {
	if len(err.Causes) == 0 {
		unit := err.BasicOutput()
		msg := ""
		if unit.Error != nil {
			msg = unit.Error.String()
		}
		*out = append(*out, ValidationError{Message: msg, Path: unit.InstanceLocation})
		return
	}
	for _, cause := range err.Causes {
		collect(cause, out)
	}
}
