package diagtable

import (
	"reflect"
	"slices"
)

// Keys that must match when a file is defined in more than one fragment.
var (
	absorbRequired = []string{"freq", "time_units", "unlimdim"}
	// A key set in only one of the definitions is a conflict as well.
	absorbOptional = []string{"write_file", "new_file_freq", "start_time", "file_duration", "global_meta", "is_ocean"}
	// Compared only when both definitions set the key.
	absorbDefaults = []string{"kind", "module", "reduction"}
)

// AbsorbResult describes what Absorb did with an incoming file.
type AbsorbResult struct {
	NewFile   bool     // the file was not in the table yet
	Duplicate bool     // an identical definition was already present
	Added     []string // names of variables appended to an existing file
	Skipped   []string // names of variables already present
}

// Absorb adds a file definition coming from another fragment to the table.
// A file not yet present is appended. Otherwise the headers of both
// definitions must agree and the incoming variables are appended unless an
// identical variable is already present. Variables are compared after
// resolving kind, module and reduction against their file or group, and
// appended variables keep their effective values. A variable with the same
// name, effective module and output name but different content is a
// DuplicateFieldError. The incoming file is copied, never retained.
func (t *Table) Absorb(in *File) (AbsorbResult, error) {
	i := t.fileIndex(in.FileName)
	if i < 0 {
		t.DiagFiles = append(t.DiagFiles, in.Clone())
		return AbsorbResult{NewFile: true}, nil
	}

	existing := t.DiagFiles[i]
	if existing.Equal(in) {
		return AbsorbResult{Duplicate: true}, nil
	}
	if err := compareHeaders(existing, in); err != nil {
		return AbsorbResult{}, err
	}

	if (len(existing.Varlist) > 0 && in.UsesModules()) || (existing.UsesModules() && len(in.Varlist) > 0) {
		return AbsorbResult{}, &InconsistentKeys{File: in.FileName}
	}

	merged := existing.Clone()
	var res AbsorbResult
	var err error
	to, from := fileDefaults(merged), fileDefaults(in)
	merged.Varlist, err = absorbVars(&res, in.FileName, merged.Varlist, to, in.Varlist, from)
	if err != nil {
		return AbsorbResult{}, err
	}
	for _, g := range in.Modules {
		target := merged.Group(g.Module)
		if target == nil {
			target = &ModuleGroup{Module: g.Module}
			merged.Modules = append(merged.Modules, target)
		}
		target.Varlist, err = absorbVars(&res, in.FileName, target.Varlist, to.group(target), g.Varlist, from.group(g))
		if err != nil {
			return AbsorbResult{}, err
		}
	}

	t.DiagFiles[i] = merged
	return res, nil
}

func compareHeaders(a, b *File) error {
	fa, fb := a.attrs(), b.attrs()
	for _, key := range absorbRequired {
		if x, y := fa.get(key), fb.get(key); !reflect.DeepEqual(x, y) {
			return &DuplicateKeyError{File: a.FileName, Key: key, Left: x, Right: y}
		}
	}
	for _, key := range absorbOptional {
		if x, y := fa.get(key), fb.get(key); !reflect.DeepEqual(x, y) {
			return &DuplicateOptionalKeyError{File: a.FileName, Key: key, Left: x, Right: y}
		}
	}
	if !a.SubRegion.Equal(b.SubRegion) {
		var x, y any
		if a.SubRegion != nil {
			x = a.SubRegion.attrs().toMap()
		}
		if b.SubRegion != nil {
			y = b.SubRegion.attrs().toMap()
		}
		return &DuplicateOptionalKeyError{File: a.FileName, Key: "sub_region", Left: x, Right: y}
	}
	for _, key := range absorbDefaults {
		x, y := fa.get(key), fb.get(key)
		if x != nil && y != nil && x != y {
			return &DuplicateOptionalKeyError{File: a.FileName, Key: key, Left: x, Right: y}
		}
	}
	return nil
}

// defaults are the kind, module and reduction a variable inherits from its
// file or module group.
type defaults struct {
	kind, module, reduction string
}

func fileDefaults(f *File) defaults {
	return defaults{kind: f.Kind, module: f.Module, reduction: f.Reduction}
}

func (d defaults) group(g *ModuleGroup) defaults {
	if g.Module != "" {
		d.module = g.Module
	}
	return d
}

// resolve returns a copy of v with the inherited values filled in.
func (d defaults) resolve(v *Variable) *Variable {
	r := v.Clone()
	r.Kind = inherit(v.Kind, d.kind)
	r.Module = inherit(v.Module, d.module)
	r.Reduction = inherit(v.Reduction, d.reduction)
	return r
}

// rebase returns a copy of v that keeps its effective kind, module and
// reduction once moved from a file with defaults from into one with
// defaults to. A value v inherits from neither side cannot be kept when the
// target imposes one.
func rebase(file string, v *Variable, from, to defaults) (*Variable, error) {
	out := v.Clone()
	for _, f := range []struct {
		key      string
		own      *string
		from, to string
	}{
		{"kind", &out.Kind, from.kind, to.kind},
		{"module", &out.Module, from.module, to.module},
		{"reduction", &out.Reduction, from.reduction, to.reduction},
	} {
		if *f.own != "" || f.from == f.to {
			continue
		}
		if f.from == "" {
			return nil, &DuplicateOptionalKeyError{File: file, Key: f.key, Left: f.to, Right: nil}
		}
		*f.own = f.from
	}
	return out, nil
}

// absorbVars appends the incoming variables to existing. Variables are
// compared on their effective values, so a simplified and an expanded
// definition of the same variable are duplicates.
func absorbVars(res *AbsorbResult, file string, existing []*Variable, to defaults, incoming []*Variable, from defaults) ([]*Variable, error) {
	out := existing
	for _, v := range incoming {
		rv := from.resolve(v)
		key := keyOf(rv, "")
		duplicate := false
		for _, x := range out {
			rx := to.resolve(x)
			if rx.Equal(rv) {
				duplicate = true
				break
			}
			if keyOf(rx, "") != key {
				continue
			}
			k, left, right, _ := rx.attrs().diff(variableFields, rv.attrs())
			return nil, &DuplicateFieldError{File: file, VarName: v.VarName, Module: key.module, Key: k, Left: left, Right: right}
		}
		if duplicate {
			res.Skipped = append(res.Skipped, v.VarName)
			continue
		}
		added, err := rebase(file, v, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, added)
		res.Added = append(res.Added, v.VarName)
	}
	return slices.Clip(out), nil
}
