package diagtable_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/diagtable"
)

const baseTable = `{
	title: test, base_date: 2 1 1 0 0 0,
	diag_files: [
		{
			file_name: atmos_daily, freq: 1 days, time_units: days, unlimdim: time,
			global_meta: {experiment: c96, grid: {res: 96}},
			sub_region: {grid_type: latlon, corner1: [0, 0], tile: 1},
			varlist: [
				{var_name: tdata, module: ocn_mod, reduction: average, kind: r4},
				{var_name: pdata, module: ocn_mod, reduction: average, kind: r4}
			]
		},
		{
			file_name: ocean_month, freq: 1 months, time_units: days, unlimdim: time, module: ocean_model,
			modules: [{module: ice_model, varlist: [{var_name: hi, kind: r8}]}]
		}
	]
}`

func fileNames(table *diagtable.Table) []string {
	var out []string
	for _, f := range table.DiagFiles {
		out = append(out, f.FileName)
	}
	return out
}

func varNames(table *diagtable.Table, file string) []string {
	var out []string
	for r := range table.File(file).Variables() {
		out = append(out, r.Module()+":"+r.Var.OutputKey())
	}
	return out
}

func TestMergeStrictIdempotent(t *testing.T) {

	for _, input := range []string{
		baseTable,
		`{title: only}`,
		`{diag_files: [{file_name: a, freq: 1 days, time_units: days, unlimdim: time}]}`,
	} {
		table := mustParse(t, input)
		merged, err := table.MergeStrict(table)
		if err != nil {
			t.Fatal(err)
		}
		if !merged.Equal(table) {
			t.Fatalf("expected merging %q with itself to be a no-op", input)
		}
	}
}

func TestMergeStrictDisjointFilesCommute(t *testing.T) {

	a := mustParse(t, `{title: test, diag_files: [{file_name: a, freq: 1 days, time_units: days, unlimdim: time, varlist: [x]}]}`)
	b := mustParse(t, `{base_date: 2 1 1 0 0 0, diag_files: [{file_name: b, freq: 1 days, time_units: days, unlimdim: time, varlist: [y]}]}`)

	ab, err := a.MergeStrict(b)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := b.MergeStrict(a)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"a", "b"}, fileNames(ab)); diff != "" {
		t.Fatal("unexpected order (-want,+got):", diff)
	}
	if diff := cmp.Diff([]string{"b", "a"}, fileNames(ba)); diff != "" {
		t.Fatal("unexpected order (-want,+got):", diff)
	}

	slices.Reverse(ba.DiagFiles)
	if !ab.Equal(ba) {
		t.Fatal("expected merges of disjoint files to differ only in order")
	}
	if ab.Title != "test" || ab.BaseDate != "2 1 1 0 0 0" {
		t.Fatalf("expected header fields from both sides, got %q %q", ab.Title, ab.BaseDate)
	}
}

func TestMergeStrictConflicts(t *testing.T) {

	tests := []struct {
		note  string
		other string
		check func(error) bool
	}{
		{
			note:  "required file key",
			other: `{diag_files: [{file_name: atmos_daily, freq: 6 hours, time_units: days, unlimdim: time}]}`,
			check: func(err error) bool {
				var e *diagtable.DuplicateKeyError
				return errors.As(err, &e) && e.File == "atmos_daily" && e.Key == "freq"
			},
		},
		{
			note:  "table title",
			other: `{title: other}`,
			check: func(err error) bool {
				var e *diagtable.DuplicateKeyError
				return errors.As(err, &e) && e.File == "" && e.Key == "title"
			},
		},
		{
			note:  "global_meta",
			other: `{diag_files: [{file_name: atmos_daily, freq: 1 days, time_units: days, unlimdim: time, global_meta: {experiment: c192}}]}`,
			check: func(err error) bool {
				var e *diagtable.DuplicateOptionalKeyError
				return errors.As(err, &e) && e.File == "atmos_daily" && e.Key == "global_meta/experiment"
			},
		},
		{
			note:  "nested global_meta",
			other: `{diag_files: [{file_name: atmos_daily, freq: 1 days, time_units: days, unlimdim: time, global_meta: {grid: {res: 192}}}]}`,
			check: func(err error) bool {
				var e *diagtable.DuplicateOptionalKeyError
				return errors.As(err, &e) && e.Key == "global_meta/grid/res"
			},
		},
		{
			note:  "sub_region",
			other: `{diag_files: [{file_name: atmos_daily, freq: 1 days, time_units: days, unlimdim: time, sub_region: {tile: 2}}]}`,
			check: func(err error) bool {
				var e *diagtable.DuplicateOptionalKeyError
				return errors.As(err, &e) && e.Key == "sub_region/tile"
			},
		},
		{
			note:  "variable field",
			other: `{diag_files: [{file_name: atmos_daily, freq: 1 days, time_units: days, unlimdim: time, varlist: [{var_name: tdata, module: ocn_mod, kind: r8}]}]}`,
			check: func(err error) bool {
				var e *diagtable.DuplicateFieldError
				return errors.As(err, &e) && e.VarName == "tdata" && e.Module == "ocn_mod" && e.Key == "kind"
			},
		},
		{
			note:  "variable in module group",
			other: `{diag_files: [{file_name: ocean_month, freq: 1 months, time_units: days, unlimdim: time, modules: [{module: ice_model, varlist: [{var_name: hi, kind: r4}]}]}]}`,
			check: func(err error) bool {
				var e *diagtable.DuplicateFieldError
				return errors.As(err, &e) && e.VarName == "hi" && e.Module == "ice_model"
			},
		},
		{
			note:  "varlist against modules",
			other: `{diag_files: [{file_name: ocean_month, freq: 1 months, time_units: days, unlimdim: time, varlist: [sst]}]}`,
			check: func(err error) bool {
				var e *diagtable.InconsistentKeys
				return errors.As(err, &e) && e.File == "ocean_month"
			},
		},
	}

	base := mustParse(t, baseTable)

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			other := mustParse(t, tc.other)
			_, err := base.MergeStrict(other)
			if err == nil {
				t.Fatal("expected error")
			}
			if !tc.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestMergeStrictStartTimeConflict(t *testing.T) {

	a := mustParse(t, `{diag_files: [{file_name: atmos_daily, freq: 1 days, time_units: days, unlimdim: days, start_time: 2 1 1 0 0 0}]}`)
	b := mustParse(t, `{diag_files: [{file_name: atmos_daily, freq: 1 days, time_units: days, unlimdim: days, start_time: 2 2 1 0 0 0}]}`)

	_, err := a.MergeStrict(b)
	var e *diagtable.DuplicateOptionalKeyError
	if !errors.As(err, &e) || e.Key != "start_time" {
		t.Fatalf("expected start_time conflict, got %v", err)
	}
}

func TestMergeOutputNameKeepsBoth(t *testing.T) {

	a := mustParse(t, `{diag_files: [{file_name: f, freq: 1 days, time_units: days, unlimdim: time, varlist: [{var_name: tdata, module: ocn_mod, reduction: average}]}]}`)

	tests := []struct {
		note  string
		other string
		exp   []string
		err   bool
	}{
		{
			note:  "other renames",
			other: `{diag_files: [{file_name: f, freq: 1 days, time_units: days, unlimdim: time, varlist: [{var_name: tdata, module: ocn_mod, reduction: min, output_name: tdata_min}]}]}`,
			exp:   []string{"ocn_mod:tdata", "ocn_mod:tdata_min"},
		},
		{
			note:  "output_name equal to var_name",
			other: `{diag_files: [{file_name: f, freq: 1 days, time_units: days, unlimdim: time, varlist: [{var_name: tdata, module: ocn_mod, reduction: min, output_name: tdata}]}]}`,
			err:   true,
		},
		{
			note:  "module inherited from file",
			other: `{diag_files: [{file_name: f, freq: 1 days, time_units: days, unlimdim: time, module: ocn_z_mod, varlist: [{var_name: tdata, reduction: min}]}]}`,
			exp:   []string{"ocn_mod:tdata", "ocn_z_mod:tdata"},
		},
		{
			note:  "absent key is not a conflict",
			other: `{diag_files: [{file_name: f, freq: 1 days, time_units: days, unlimdim: time, write_file: false, varlist: [{var_name: tdata, module: ocn_mod}]}]}`,
			exp:   []string{"ocn_mod:tdata"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			merged, err := a.MergeStrict(mustParse(t, tc.other))
			if tc.err {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, varNames(merged, "f")); diff != "" {
				t.Fatal("unexpected variables (-want,+got):", diff)
			}
		})
	}
}

func TestMergeVariableModuleIdentity(t *testing.T) {

	a := mustParse(t, `{diag_files: [{file_name: f, freq: 1 days, time_units: days, unlimdim: time, varlist: [{var_name: tdata, module: ocn_mod, reduction: average}]}]}`)
	b := mustParse(t, `{diag_files: [{file_name: f, freq: 1 days, time_units: days, unlimdim: time, varlist: [{var_name: tdata, module: ocn_z_mod, reduction: min}]}]}`)

	merged, err := a.MergeStrict(b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ocn_mod:tdata", "ocn_z_mod:tdata"}, varNames(merged, "f")); diff != "" {
		t.Fatal("unexpected variables (-want,+got):", diff)
	}
}

func TestMergeOverride(t *testing.T) {

	a := mustParse(t, baseTable)
	before := a.Clone()

	b := mustParse(t, `{
		title: replaced,
		diag_files: [
			{
				file_name: atmos_daily, freq: 6 hours, time_units: hours, unlimdim: time,
				global_meta: {grid: {res: 192}},
				varlist: [{var_name: tdata, module: ocn_mod, kind: r8}, {var_name: udata, module: ocn_mod}]
			},
			{file_name: ocean_month, freq: 1 months, time_units: days, unlimdim: time, varlist: [sst]},
			{file_name: new_file, freq: 1 days, time_units: days, unlimdim: time}
		]
	}`)

	merged, err := a.MergeOverride(b)
	if err != nil {
		t.Fatal(err)
	}

	if !a.Equal(before) {
		t.Fatal("expected left operand to be left untouched")
	}

	if merged.Title != "replaced" || merged.BaseDate != "2 1 1 0 0 0" {
		t.Fatalf("unexpected header: %q %q", merged.Title, merged.BaseDate)
	}
	if diff := cmp.Diff([]string{"atmos_daily", "ocean_month", "new_file"}, fileNames(merged)); diff != "" {
		t.Fatal("unexpected files (-want,+got):", diff)
	}

	daily := merged.File("atmos_daily")
	if daily.Freq != "6 hours" || daily.TimeUnits != "hours" {
		t.Fatalf("expected right side header to win, got %q %q", daily.Freq, daily.TimeUnits)
	}
	exp := map[string]any{"experiment": "c96", "grid": map[string]any{"res": uint64(192)}}
	if diff := cmp.Diff(exp, daily.GlobalMeta); diff != "" {
		t.Fatal("unexpected global_meta (-want,+got):", diff)
	}
	if diff := cmp.Diff([]string{"ocn_mod:tdata", "ocn_mod:pdata", "ocn_mod:udata"}, varNames(merged, "atmos_daily")); diff != "" {
		t.Fatal("unexpected variables (-want,+got):", diff)
	}
	if tdata := daily.Varlist[0]; tdata.Kind != "r8" || tdata.Reduction != "average" {
		t.Fatalf("expected kind from right side and reduction from left, got %+v", tdata)
	}

	month := merged.File("ocean_month")
	if month.UsesModules() || len(month.Varlist) != 1 {
		t.Fatalf("expected right side varlist to replace module groups, got %+v", month)
	}
}

func TestMergeModuleGroups(t *testing.T) {

	a := mustParse(t, `{diag_files: [{file_name: f, freq: 1 days, time_units: days, unlimdim: time,
		modules: [{module: atm, varlist: [ps]}, {module: ocn, varlist: [sst]}]}]}`)
	b := mustParse(t, `{diag_files: [{file_name: f, freq: 1 days, time_units: days, unlimdim: time,
		modules: [{module: ocn, varlist: [sst, sss]}, {module: ice, varlist: [hi]}]}]}`)

	merged, err := a.MergeStrict(b)
	if err != nil {
		t.Fatal(err)
	}
	exp := []string{"atm:ps", "ocn:sst", "ocn:sss", "ice:hi"}
	if diff := cmp.Diff(exp, varNames(merged, "f")); diff != "" {
		t.Fatal("unexpected variables (-want,+got):", diff)
	}
}

func TestMergeOverrideInheritsFileModule(t *testing.T) {

	a := mustParse(t, `{diag_files: [{file_name: f, freq: 1 days, time_units: days, unlimdim: time, module: atm,
		varlist: [{var_name: ps, reduction: average}, {var_name: tdata, module: ocn}]}]}`)
	// An abstract rendering of f drops its module.
	b := mustParse(t, `{diag_files: [{file_name: f, varlist: [{var_name: ps, reduction: max}]}]}`)

	merged, err := a.MergeOverride(b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"atm:ps", "ocn:tdata"}, varNames(merged, "f")); diff != "" {
		t.Fatal("unexpected variables (-want,+got):", diff)
	}
	if got := merged.File("f").Varlist[0].Reduction; got != "max" {
		t.Fatalf("expected the edited reduction, got %q", got)
	}
}
