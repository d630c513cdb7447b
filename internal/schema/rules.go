package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/diagtable"
)

// diagRules checks a diag_table that already passed schema validation.
func diagRules(raw map[string]any) []ValidationError {
	// Other top level keys only hold anchors.
	doc := map[string]any{}
	for _, key := range []string{"title", "base_date", "diag_files"} {
		if v, ok := raw[key]; ok {
			doc[key] = v
		}
	}

	table, err := diagtable.NewTable(doc)
	if err != nil {
		return []ValidationError{{Message: err.Error()}}
	}

	var problems []ValidationError
	if msg := checkDate(table.BaseDate); msg != "" {
		problems = append(problems, ValidationError{Message: "base_date " + msg, Path: "/base_date"})
	}

	seen := map[string]int{}
	for i, f := range table.DiagFiles {
		path := fmt.Sprintf("/diag_files/%d", i)

		if j, ok := seen[f.FileName]; ok {
			problems = append(problems, ValidationError{
				Message: fmt.Sprintf("the file_name %s is already used by /diag_files/%d", f.FileName, j),
				Path:    path + "/file_name",
			})
		} else {
			seen[f.FileName] = i
		}

		if f.StartTime != "" {
			if f.FileDuration == "" {
				problems = append(problems, ValidationError{
					Message: "file_duration is needed if start_time is present",
					Path:    path,
				})
			}
			if msg := checkDate(f.StartTime); msg != "" {
				problems = append(problems, ValidationError{Message: "start_time " + msg, Path: path + "/start_time"})
			}
		}

		problems = append(problems, outputNames(f, path)...)
	}
	return problems
}

// outputNames reports variables of one file that would be written under the
// same name.
func outputNames(f *diagtable.File, path string) []ValidationError {
	var problems []ValidationError
	seen := map[string]bool{}
	check := func(v *diagtable.Variable, p string) {
		key := v.OutputKey()
		if seen[key] {
			problems = append(problems, ValidationError{
				Message: fmt.Sprintf("the output name %s is used more than once in the file %s, set a distinct output_name", key, f.FileName),
				Path:    p,
			})
		}
		seen[key] = true
	}

	for j, v := range f.Varlist {
		check(v, fmt.Sprintf("%s/varlist/%d", path, j))
	}
	for g, group := range f.Modules {
		for j, v := range group.Varlist {
			check(v, fmt.Sprintf("%s/modules/%d/varlist/%d", path, g, j))
		}
	}
	return problems
}

// checkDate validates a "year month day hour minute second" string and
// returns a description of the problem, or "" when the date is fine.
func checkDate(date string) string {
	parts := strings.Fields(date)
	if len(parts) != 6 {
		return fmt.Sprintf("(%s) should have 6 integers", date)
	}
	values := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Sprintf("(%s) should only contain integers", date)
		}
		values[i] = n
	}
	if values[1] <= 0 {
		return fmt.Sprintf("(%s) should have a month greater than 0", date)
	}
	if values[2] <= 0 {
		return fmt.Sprintf("(%s) should have a day greater than 0", date)
	}
	return ""
}
