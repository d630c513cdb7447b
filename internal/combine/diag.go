// Package combine merges table fragments written by different model
// components into a single table.
package combine

import (
	"errors"
	"fmt"
	"os"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/diagtable"
	"github.com/NOAA-GFDL/fms-yaml-tools/internal/logging"
	"github.com/NOAA-GFDL/fms-yaml-tools/internal/progress"
)

// load reads and decodes one fragment. Parse errors carry the file name.
func load(path string) (map[string]any, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := diagtable.Load(bs)
	if err != nil {
		var perr *diagtable.ParseError
		if errors.As(err, &perr) {
			perr.Source = path
		}
		return nil, err
	}
	return raw, nil
}

// DiagTables combines diag_table fragments in order. Title and base_date are
// taken from the last fragment that sets them; a fragment without
// diag_files must set both. Files are added with Table.Absorb. Top level
// keys other than title, base_date and diag_files are ignored so fragments
// can keep YAML anchors there.
func DiagTables(paths []string, log *logging.Logger, bar *progress.Bar) (*diagtable.Table, error) {
	out := &diagtable.Table{}
	bar.AddMax(len(paths))

	for _, path := range paths {
		log.Debugf("Parsing the diag_table yaml %s", path)
		raw, err := load(path)
		if err != nil {
			return nil, err
		}

		for _, key := range []string{"title", "base_date"} {
			if v, ok := raw[key]; ok && v != "" && v != nil {
				if err := out.Set(key, v); err != nil {
					return nil, fmt.Errorf("%s: %w", path, err)
				}
			}
		}

		files, ok := raw["diag_files"]
		if !ok || files == nil {
			for _, key := range []string{"title", "base_date"} {
				if v, _ := raw[key].(string); v == "" {
					return nil, &diagtable.MissingContextError{Source: path, Key: key}
				}
			}
			bar.Add(1)
			continue
		}

		items, ok := files.([]any)
		if !ok {
			return nil, fmt.Errorf("%s: %w", path, &diagtable.InvalidFieldError{Entity: "table", Key: "diag_files", Value: files})
		}
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: %w", path, &diagtable.InvalidFieldError{Entity: "table", Key: "diag_files", Value: item})
			}
			f, err := diagtable.NewFile(m)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			res, err := out.Absorb(f)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			switch {
			case res.NewFile:
				log.Debugf("Adding the diag_file %s", f.FileName)
			case res.Duplicate:
				log.Debugf("The diag_file %s is a duplicate, skipping", f.FileName)
			default:
				for _, name := range res.Added {
					log.Debugf("Adding the variable %s to the diag_file %s", name, f.FileName)
				}
				for _, name := range res.Skipped {
					log.Debugf("The variable %s in the diag_file %s is a duplicate, skipping", name, f.FileName)
				}
			}
		}
		bar.Add(1)
	}

	if out.Title == "" {
		return nil, &diagtable.MissingContextError{Key: "title"}
	}
	if out.BaseDate == "" {
		return nil, &diagtable.MissingContextError{Key: "base_date"}
	}
	return out, nil
}
