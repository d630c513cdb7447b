package schema

import (
	"github.com/swaggest/jsonschema-go"
)

// The types below describe the persisted diag_table layout for schema
// reflection only. Singleton fields are in their wrapped form.

// DiagTable is the document root.
type DiagTable struct {
	Title     string     `json:"title" required:"true" minLength:"1"`
	BaseDate  string     `json:"base_date" required:"true"`
	DiagFiles []DiagFile `json:"diag_files,omitempty"`
}

type DiagFile struct {
	FileName     string           `json:"file_name" required:"true" minLength:"1"`
	Freq         Frequency        `json:"freq" required:"true"`
	TimeUnits    string           `json:"time_units" required:"true" enum:"seconds,minutes,hours,days,months,years"`
	Unlimdim     string           `json:"unlimdim" required:"true"`
	WriteFile    bool             `json:"write_file,omitempty"`
	GlobalMeta   []map[string]any `json:"global_meta,omitempty" maxItems:"1"`
	SubRegion    []SubRegion      `json:"sub_region,omitempty" maxItems:"1"`
	NewFileFreq  Frequency        `json:"new_file_freq,omitempty"`
	StartTime    string           `json:"start_time,omitempty"`
	FileDuration Frequency        `json:"file_duration,omitempty"`
	IsOcean      bool             `json:"is_ocean,omitempty"`
	Kind         string           `json:"kind,omitempty" enum:"r4,r8,i4,i8"`
	Module       string           `json:"module,omitempty"`
	Reduction    string           `json:"reduction,omitempty" pattern:"^(none|average|min|max|rms|sum|pow[0-9]+|diurnal[0-9]+)$"`
	Varlist      []DiagVar        `json:"varlist,omitempty"`
	Modules      []DiagModule     `json:"modules,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

type SubRegion struct {
	GridType string    `json:"grid_type" required:"true" enum:"indices,latlon"`
	Corner1  []float64 `json:"corner1,omitempty" minItems:"2" maxItems:"2"`
	Corner2  []float64 `json:"corner2,omitempty" minItems:"2" maxItems:"2"`
	Corner3  []float64 `json:"corner3,omitempty" minItems:"2" maxItems:"2"`
	Corner4  []float64 `json:"corner4,omitempty" minItems:"2" maxItems:"2"`
	Tile     int       `json:"tile,omitempty" minimum:"1"`

	_ struct{} `additionalProperties:"false"`
}

type DiagModule struct {
	Module  string    `json:"module" required:"true"`
	Varlist []DiagVar `json:"varlist,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

type DiagVar struct {
	VarName    string           `json:"var_name" required:"true" minLength:"1"`
	Kind       string           `json:"kind,omitempty" enum:"r4,r8,i4,i8"`
	Module     string           `json:"module,omitempty"`
	Reduction  string           `json:"reduction,omitempty" pattern:"^(none|average|min|max|rms|sum|pow[0-9]+|diurnal[0-9]+)$"`
	WriteVar   bool             `json:"write_var,omitempty"`
	OutputName string           `json:"output_name,omitempty"`
	LongName   string           `json:"long_name,omitempty"`
	Attributes []map[string]any `json:"attributes,omitempty" maxItems:"1"`
	Zbounds    string           `json:"zbounds,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// A bare string in a varlist names a variable with no other keys.
func (*DiagVar) PrepareJSONSchema(schema *jsonschema.Schema) error {
	schema.AddType(jsonschema.String)
	return nil
}

// Frequency is written either as "6 hours" or as a bare number.
type Frequency string

func (Frequency) PrepareJSONSchema(schema *jsonschema.Schema) error {
	schema.Type = nil
	schema.AddType(jsonschema.String)
	schema.AddType(jsonschema.Number)
	return nil
}
