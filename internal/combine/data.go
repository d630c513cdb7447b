package combine

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/logging"
	"github.com/NOAA-GFDL/fms-yaml-tools/internal/progress"
)

// DataTable is a combined data_table.
type DataTable struct {
	Entries []map[string]any
}

// MarshalYAML renders the table under its data_table key.
func (t *DataTable) MarshalYAML() (any, error) {
	entries := t.Entries
	if entries == nil {
		entries = []map[string]any{}
	}
	return map[string]any{"data_table": entries}, nil
}

// DuplicateEntryError reports two data_table entries for the same model field
// with different content.
type DuplicateEntryError struct {
	FieldName string
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("a data_table entry is defined twice for the fieldname_in_model %q with different keys/values", e.FieldName)
}

// DataTables concatenates the data_table entries of several files, skipping
// entries identical to one already seen.
func DataTables(paths []string, log *logging.Logger, bar *progress.Bar) (*DataTable, error) {
	out := &DataTable{}
	bar.AddMax(len(paths))

	for _, path := range paths {
		log.Debugf("Parsing the data_table yaml %s", path)
		raw, err := load(path)
		if err != nil {
			return nil, err
		}

		entries, err := mappings(raw["data_table"])
		if err != nil {
			return nil, fmt.Errorf("%s: data_table: %w", path, err)
		}

		for _, entry := range entries {
			name, ok := entry["fieldname_in_model"].(string)
			if !ok {
				return nil, fmt.Errorf("%s: data_table entry without fieldname_in_model", path)
			}
			duplicate, err := out.contains(name, entry)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			if duplicate {
				log.Debugf("The entry for %s is a duplicate, skipping", name)
				continue
			}
			log.Debugf("Adding the entry for %s", name)
			out.Entries = append(out.Entries, entry)
		}
		bar.Add(1)
	}
	return out, nil
}

func (t *DataTable) contains(name string, entry map[string]any) (bool, error) {
	for _, existing := range t.Entries {
		if reflect.DeepEqual(existing, entry) {
			return true, nil
		}
		if existing["fieldname_in_model"] == name {
			return false, &DuplicateEntryError{FieldName: name}
		}
	}
	return false, nil
}

// mappings converts a decoded YAML sequence of mappings. A missing value is
// an empty sequence.
func mappings(v any) ([]map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a sequence, found %T", v)
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected a mapping, found %T", item)
		}
		out = append(out, m)
	}
	return slices.Clip(out), nil
}
