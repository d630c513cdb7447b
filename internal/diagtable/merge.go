package diagtable

import (
	"cmp"
	"maps"
	"reflect"
	"slices"
	"strings"
)

type mergeMode int

const (
	strict mergeMode = iota
	override
)

// conflictFunc builds the error returned when a strict merge finds a key
// whose values differ. path is slash separated for nested mappings.
type conflictFunc func(path string, left, right any) error

// mergeMaps merges b into a copy of a. Nested mappings are merged key by key;
// any other value present on both sides must be equal in strict mode and is
// taken from b in override mode.
func mergeMaps(a, b map[string]any, path string, mode mergeMode, conflict conflictFunc) (map[string]any, error) {
	result := cloneMap(a)
	if result == nil {
		result = make(map[string]any, len(b))
	}
	for _, key := range slices.Sorted(maps.Keys(b)) { // Sort keys to ensure deterministic merge errors.
		value := b[key]
		keyPath := strings.TrimPrefix(path+"/"+key, "/")
		if existing, ok := result[key]; ok {
			if existingMap, ok1 := existing.(map[string]any); ok1 {
				if valueMap, ok2 := value.(map[string]any); ok2 {
					var err error
					result[key], err = mergeMaps(existingMap, valueMap, keyPath, mode, conflict)
					if err != nil {
						return nil, err
					}
					continue
				}
			}

			if mode == strict && !reflect.DeepEqual(existing, value) {
				return nil, conflict(keyPath, existing, value)
			}
		}
		result[key] = cloneValue(value)
	}
	return result, nil
}

// MergeStrict merges two tables symmetrically. Files are matched by
// file_name and variables by var_name, effective module and output name;
// unmatched entries are appended with those of t first. Any field present on
// both sides with different values is an error. Neither input is modified.
func (t *Table) MergeStrict(other *Table) (*Table, error) {
	return mergeTables(t, other, strict)
}

// MergeOverride merges other into t the same way MergeStrict does, except
// that fields of other replace conflicting fields of t.
func (t *Table) MergeOverride(other *Table) (*Table, error) {
	return mergeTables(t, other, override)
}

func mergeTables(a, b *Table, mode mergeMode) (*Table, error) {
	fields, err := mergeMaps(a.attrs().toMap(), b.attrs().toMap(), "", mode, func(path string, left, right any) error {
		return &DuplicateKeyError{Key: path, Left: left, Right: right}
	})
	if err != nil {
		return nil, err
	}

	var out Table
	if err := decode(fields, &out); err != nil {
		return nil, err
	}

	out.DiagFiles = cloneFiles(a.DiagFiles)
	for _, f := range b.DiagFiles {
		i := out.fileIndex(f.FileName)
		if i < 0 {
			out.DiagFiles = append(out.DiagFiles, f.Clone())
			continue
		}
		merged, err := mergeFiles(out.DiagFiles[i], f, mode)
		if err != nil {
			return nil, err
		}
		out.DiagFiles[i] = merged
	}
	return &out, nil
}

// MergeStrict merges two definitions of a file, failing on any conflict.
func (f *File) MergeStrict(other *File) (*File, error) {
	return mergeFiles(f, other, strict)
}

// MergeOverride merges other into f, letting other win on conflicts.
func (f *File) MergeOverride(other *File) (*File, error) {
	return mergeFiles(f, other, override)
}

func mergeFiles(a, b *File, mode mergeMode) (*File, error) {
	fileConflict := func(path string, left, right any) error {
		if fileFields.isRequired(path) {
			return &DuplicateKeyError{File: a.FileName, Key: path, Left: left, Right: right}
		}
		return &DuplicateOptionalKeyError{File: a.FileName, Key: path, Left: left, Right: right}
	}

	fields, err := mergeMaps(a.attrs().toMap(), b.attrs().toMap(), "", mode, fileConflict)
	if err != nil {
		return nil, err
	}
	var out File
	if err := decode(fields, &out); err != nil {
		return nil, err
	}

	switch {
	case a.SubRegion == nil:
		out.SubRegion = b.SubRegion.Clone()
	case b.SubRegion == nil:
		out.SubRegion = a.SubRegion.Clone()
	default:
		out.SubRegion, err = mergeSubRegions(a.SubRegion, b.SubRegion, mode, func(path string, left, right any) error {
			return fileConflict("sub_region/"+path, left, right)
		})
		if err != nil {
			return nil, err
		}
	}

	if (len(a.Varlist) > 0 && b.UsesModules()) || (a.UsesModules() && len(b.Varlist) > 0) {
		if mode == strict {
			return nil, &InconsistentKeys{File: a.FileName}
		}
		out.Varlist = cloneVarlist(b.Varlist)
		out.Modules = cloneGroups(b.Modules)
		return &out, nil
	}

	// A side that leaves the file module unset inherits the merged one.
	out.Varlist, err = mergeVarlists(a.FileName, a.Varlist, cmp.Or(a.Module, out.Module), b.Varlist, cmp.Or(b.Module, out.Module), mode)
	if err != nil {
		return nil, err
	}

	out.Modules = cloneGroups(a.Modules)
	for _, g := range b.Modules {
		i := slices.IndexFunc(out.Modules, func(x *ModuleGroup) bool { return x.Module == g.Module })
		if i < 0 {
			out.Modules = append(out.Modules, g.Clone())
			continue
		}
		existing := out.Modules[i]
		vars, err := mergeVarlists(a.FileName, existing.Varlist, groupModule(existing, a), g.Varlist, groupModule(g, b), mode)
		if err != nil {
			return nil, err
		}
		out.Modules[i] = &ModuleGroup{Module: existing.Module, Varlist: vars}
	}
	return &out, nil
}

func groupModule(g *ModuleGroup, f *File) string {
	if g.Module != "" {
		return g.Module
	}
	return f.Module
}

// MergeStrict merges two sub regions, failing on any conflict.
func (s *SubRegion) MergeStrict(other *SubRegion) (*SubRegion, error) {
	return mergeSubRegions(s, other, strict, func(path string, left, right any) error {
		return &DuplicateOptionalKeyError{Key: "sub_region/" + path, Left: left, Right: right}
	})
}

// MergeOverride merges other into s, letting other win on conflicts.
func (s *SubRegion) MergeOverride(other *SubRegion) (*SubRegion, error) {
	return mergeSubRegions(s, other, override, nil)
}

func mergeSubRegions(a, b *SubRegion, mode mergeMode, conflict conflictFunc) (*SubRegion, error) {
	fields, err := mergeMaps(a.attrs().toMap(), b.attrs().toMap(), "", mode, conflict)
	if err != nil {
		return nil, err
	}
	var out SubRegion
	if err := decode(fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MergeStrict merges two definitions of a variable, failing on any conflict.
func (v *Variable) MergeStrict(other *Variable) (*Variable, error) {
	return mergeVariables("", v, other, v.Module, strict)
}

// MergeOverride merges other into v, letting other win on conflicts.
func (v *Variable) MergeOverride(other *Variable) (*Variable, error) {
	return mergeVariables("", v, other, v.Module, override)
}

func mergeVariables(file string, a, b *Variable, module string, mode mergeMode) (*Variable, error) {
	fields, err := mergeMaps(a.attrs().toMap(), b.attrs().toMap(), "", mode, func(path string, left, right any) error {
		return &DuplicateFieldError{File: file, VarName: a.VarName, Module: module, Key: path, Left: left, Right: right}
	})
	if err != nil {
		return nil, err
	}
	var out Variable
	if err := decode(fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// varKey identifies a variable within a file. Two variables sharing name and
// module but written under different output names are distinct.
type varKey struct {
	name, module, output string
}

func keyOf(v *Variable, inherited string) varKey {
	return varKey{name: v.VarName, module: v.EffectiveModule(inherited), output: v.OutputKey()}
}

func mergeVarlists(file string, a []*Variable, aModule string, b []*Variable, bModule string, mode mergeMode) ([]*Variable, error) {
	out := cloneVarlist(a)
	for _, v := range b {
		key := keyOf(v, bModule)
		i := slices.IndexFunc(out, func(x *Variable) bool { return keyOf(x, aModule) == key })
		if i < 0 {
			out = append(out, v.Clone())
			continue
		}
		merged, err := mergeVariables(file, out[i], v, key.module, mode)
		if err != nil {
			return nil, err
		}
		out[i] = merged
	}
	return out, nil
}

func cloneFiles(files []*File) []*File {
	out := make([]*File, len(files))
	for i, f := range files {
		out[i] = f.Clone()
	}
	return out
}

func cloneGroups(groups []*ModuleGroup) []*ModuleGroup {
	if groups == nil {
		return nil
	}
	out := make([]*ModuleGroup, len(groups))
	for i, g := range groups {
		out[i] = g.Clone()
	}
	return out
}
