// Package diagtable models the YAML diag_table: typed entities built through a
// per-field validator, strict and overriding merges, file and variable
// filters, and the simplification that regroups variables by module.
package diagtable

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/goccy/go-yaml"
)

// Table is a complete or partial diag_table.
type Table struct {
	Title     string  `json:"title,omitempty"`
	BaseDate  string  `json:"base_date,omitempty"`
	DiagFiles []*File `json:"-"`
}

// Abstract selects the levels that are reduced when rendering.
type Abstract uint8

const (
	// AbstractTable omits title and base_date.
	AbstractTable Abstract = 1 << iota
	// AbstractFile keeps only file_name and the variables of each file.
	AbstractFile
	// AbstractVar renders each variable as its bare name.
	AbstractVar
)

func (a Abstract) Has(flag Abstract) bool {
	return a&flag != 0
}

// NewTable builds a table from a decoded YAML mapping.
func NewTable(raw map[string]any) (*Table, error) {
	scalars, err := tableFields.normalize("table", raw)
	if err != nil {
		return nil, err
	}

	var t Table
	if err := decode(scalars, &t); err != nil {
		return nil, fmt.Errorf("table: %w", err)
	}

	if v, ok := raw["diag_files"]; ok && v != nil {
		items, ok := v.([]any)
		if !ok {
			return nil, &InvalidFieldError{Entity: "table", Key: "diag_files", Value: v}
		}
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, &InvalidFieldError{Entity: "table", Key: "diag_files", Value: item}
			}
			f, err := NewFile(m)
			if err != nil {
				return nil, err
			}
			t.DiagFiles = append(t.DiagFiles, f)
		}
	}

	return &t, nil
}

// Load decodes YAML text into an untyped mapping. An empty document yields an
// empty mapping.
func Load(data []byte) (map[string]any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: errors.New(yaml.FormatError(err, false, true)), Hint: MissingSpaceHint}
	}
	switch doc := doc.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return doc, nil
	case string:
		return nil, &ParseError{Err: errors.New("the document contains incorrectly formatted key value pairs"), Hint: MissingSpaceHint}
	default:
		return nil, &ParseError{Err: fmt.Errorf("expected a mapping at the top level, found %T", doc)}
	}
}

// Parse decodes and validates a diag table.
func Parse(data []byte) (*Table, error) {
	raw, err := Load(data)
	if err != nil {
		return nil, err
	}
	return NewTable(raw)
}

// ReadFile parses the diag table stored at path.
func ReadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Source = path
			return nil, perr
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func (t *Table) attrs() attrs {
	var out attrs
	out = addString(out, "title", t.Title)
	out = addString(out, "base_date", t.BaseDate)
	return out
}

// File returns the file with the given name.
func (t *Table) File(name string) *File {
	i := t.fileIndex(name)
	if i < 0 {
		return nil
	}
	return t.DiagFiles[i]
}

func (t *Table) fileIndex(name string) int {
	return slices.IndexFunc(t.DiagFiles, func(f *File) bool { return f.FileName == name })
}

// Set validates and assigns title or base_date. An empty string clears it.
func (t *Table) Set(key string, value any) error {
	next, err := setField(tableFields, "table", t.attrs(), key, value, NewTable)
	if err != nil {
		return err
	}
	t.Title, t.BaseDate = next.Title, next.BaseDate
	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{Title: t.Title, BaseDate: t.BaseDate}
	if t.DiagFiles != nil {
		c.DiagFiles = make([]*File, len(t.DiagFiles))
		for i, f := range t.DiagFiles {
			c.DiagFiles[i] = f.Clone()
		}
	}
	return c
}

// Equal reports whether two tables are identical, including order.
func (t *Table) Equal(other *Table) bool {
	return t.Title == other.Title && t.BaseDate == other.BaseDate &&
		slices.EqualFunc(t.DiagFiles, other.DiagFiles, (*File).Equal)
}

// Render returns the table as an ordered mapping.
func (t *Table) Render(abstract Abstract) yaml.MapSlice {
	var out yaml.MapSlice
	if !abstract.Has(AbstractTable) {
		out = t.attrs().mapSlice(tableFields)
	}
	files := make([]any, 0, len(t.DiagFiles))
	for _, f := range t.DiagFiles {
		files = append(files, f.Render(abstract))
	}
	return append(out, yaml.MapItem{Key: "diag_files", Value: files})
}

// Marshal renders the table as YAML text.
func (t *Table) Marshal(abstract Abstract) ([]byte, error) {
	bs, err := yaml.Marshal(t.Render(abstract))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal diag table: %w", err)
	}
	return bs, nil
}

var _ yaml.InterfaceMarshaler = (*Table)(nil)

// MarshalYAML renders the table in canonical key order.
func (t *Table) MarshalYAML() (any, error) {
	return t.Render(0), nil
}
