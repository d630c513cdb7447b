package diagtable_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/diagtable"
)

func mustParse(t *testing.T, s string) *diagtable.Table {
	t.Helper()
	table, err := diagtable.Parse([]byte(s))
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func keys(t *testing.T, ms yaml.MapSlice) []string {
	t.Helper()
	out := make([]string, 0, len(ms))
	for _, item := range ms {
		out = append(out, item.Key.(string))
	}
	return out
}

func TestParseUnwrapsSingletons(t *testing.T) {

	wrapped := mustParse(t, `{
		title: test, base_date: 2 1 1 0 0 0,
		diag_files: [{
			file_name: ocean, freq: 1 days, time_units: days, unlimdim: time,
			global_meta: [{experiment: c96}],
			sub_region: [{grid_type: latlon, corner1: [0, 10], corner2: [5.5, 10], tile: 1}],
			varlist: [{var_name: sst, module: ocean_model, attributes: [{units: K}]}]
		}]
	}`)

	bare := mustParse(t, `{
		title: test, base_date: 2 1 1 0 0 0,
		diag_files: [{
			file_name: ocean, freq: 1 days, time_units: days, unlimdim: time,
			global_meta: {experiment: c96},
			sub_region: {grid_type: latlon, corner1: [0, 10], corner2: [5.5, 10], tile: 1},
			varlist: [{var_name: sst, module: ocean_model, attributes: {units: K}}]
		}]
	}`)

	if !wrapped.Equal(bare) {
		t.Fatal("expected wrapped and bare sub-objects to decode the same way")
	}

	f := bare.File("ocean")
	if f.SubRegion == nil || f.SubRegion.GridType != "latlon" || *f.SubRegion.Tile != 1 {
		t.Fatalf("unexpected sub_region: %+v", f.SubRegion)
	}
	if diff := cmp.Diff([]float64{5.5, 10}, f.SubRegion.Corner2); diff != "" {
		t.Fatal("unexpected corner2 (-want,+got):", diff)
	}
	if f.GlobalMeta["experiment"] != "c96" {
		t.Fatalf("unexpected global_meta: %v", f.GlobalMeta)
	}
}

func TestParseErrors(t *testing.T) {

	tests := []struct {
		note  string
		input string
		check func(error) bool
	}{
		{
			note:  "unknown table key",
			input: `{title: x, base_date: 1 1 1 0 0 0, author: me}`,
			check: func(err error) bool {
				var e *diagtable.InvalidFieldError
				return errors.As(err, &e) && e.Unknown && e.Key == "author"
			},
		},
		{
			note:  "unknown file key",
			input: `{diag_files: [{file_name: a, freq: 1 days, time_units: days, unlimdim: time, frequency: 2}]}`,
			check: func(err error) bool {
				var e *diagtable.InvalidFieldError
				return errors.As(err, &e) && e.Unknown && e.Entity == "file" && e.Key == "frequency"
			},
		},
		{
			note:  "bad time units",
			input: `{diag_files: [{file_name: a, freq: 1 days, time_units: weeks, unlimdim: time}]}`,
			check: func(err error) bool {
				var e *diagtable.InvalidFieldError
				return errors.As(err, &e) && e.Key == "time_units" && e.Value == "weeks"
			},
		},
		{
			note:  "bad reduction",
			input: `{diag_files: [{file_name: a, freq: 1 days, time_units: days, unlimdim: time, varlist: [{var_name: x, reduction: median}]}]}`,
			check: func(err error) bool {
				var e *diagtable.InvalidFieldError
				return errors.As(err, &e) && e.Entity == "variable" && e.Key == "reduction"
			},
		},
		{
			note:  "two element sub_region",
			input: `{diag_files: [{file_name: a, freq: 1 days, time_units: days, unlimdim: time, sub_region: [{tile: 1}, {tile: 2}]}]}`,
			check: func(err error) bool {
				var e *diagtable.InvalidFieldError
				return errors.As(err, &e) && e.Key == "sub_region"
			},
		},
		{
			note:  "varlist and modules checked before field values",
			input: `{diag_files: [{file_name: a, freq: 1 days, time_units: weeks, unlimdim: time, varlist: [x], modules: [{module: m, varlist: [y]}]}]}`,
			check: func(err error) bool {
				var e *diagtable.InconsistentKeys
				return errors.As(err, &e) && e.File == "a"
			},
		},
		{
			note:  "missing space after colon",
			input: `title:'this is not going to work'`,
			check: func(err error) bool {
				var e *diagtable.ParseError
				return errors.As(err, &e) && strings.Contains(e.Hint, `"key: value"`)
			},
		},
		{
			note:  "unterminated quote",
			input: `title: "this is not going to work`,
			check: func(err error) bool {
				var e *diagtable.ParseError
				return errors.As(err, &e) && e.Hint == diagtable.MissingSpaceHint
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			_, err := diagtable.Parse([]byte(tc.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !tc.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseVarlistShorthandAndAliases(t *testing.T) {

	table := mustParse(t, `
title: test
base_date: 2 1 1 0 0 0
diag_files:
- file_name: atmos
  freq: 6 hours
  time_units: hours
  unlimdim: time
  varlist: &dynamics
  - {var_name: ps, module: dynamics}
  - {var_name: ts, module: dynamics}
- file_name: atmos_daily
  freq: 1 days
  time_units: days
  unlimdim: time
  varlist:
  - *dynamics
  - precip
`)

	var names []string
	for r := range table.File("atmos_daily").Variables() {
		names = append(names, r.Module()+":"+r.Var.VarName)
	}
	if diff := cmp.Diff([]string{"dynamics:ps", "dynamics:ts", ":precip"}, names); diff != "" {
		t.Fatal("unexpected variables (-want,+got):", diff)
	}
}

func TestParseNumericFrequency(t *testing.T) {
	table := mustParse(t, `{diag_files: [{file_name: a, freq: 6, time_units: hours, unlimdim: time, new_file_freq: 1 months}]}`)
	if f := table.File("a"); f.Freq != "6" || f.NewFileFreq != "1 months" {
		t.Fatalf("unexpected file: %+v", f)
	}
}

func TestRenderNumericFrequency(t *testing.T) {

	table := mustParse(t, `{diag_files: [{file_name: a, freq: -1, time_units: hours, unlimdim: time,
		new_file_freq: 1 months, start_time: 2 1 1 0 0 0, file_duration: 0.5}]}`)
	bs, err := table.Marshal(0)
	if err != nil {
		t.Fatal(err)
	}
	out := string(bs)
	for _, line := range []string{"freq: -1\n", "new_file_freq: 1 months\n", "file_duration: 0.5\n"} {
		if !strings.Contains(out, line) {
			t.Fatalf("expected %q in:\n%s", line, out)
		}
	}

	again, err := diagtable.Parse(bs)
	if err != nil {
		t.Fatal(err)
	}
	if f := again.File("a"); f.Freq != "-1" || f.FileDuration != "0.5" {
		t.Fatalf("unexpected file: %+v", f)
	}
}

func TestRenderCanonicalOrder(t *testing.T) {

	table := mustParse(t, `{
		diag_files: [{
			varlist: [{zbounds: "0 100", var_name: temp, reduction: average, module: ocean_model, kind: r4}],
			reduction: average,
			sub_region: {tile: 1, grid_type: indices},
			unlimdim: time, time_units: days, freq: 1 days, file_name: ocean,
			global_meta: {a: b},
			start_time: 2 1 1 0 0 0,
			write_file: false,
		}],
		base_date: 2 1 1 0 0 0,
		title: test,
	}`)

	bs, err := table.Marshal(0)
	if err != nil {
		t.Fatal(err)
	}

	var out yaml.MapSlice
	if err := yaml.UnmarshalWithOptions(bs, &out, yaml.UseOrderedMap()); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"title", "base_date", "diag_files"}, keys(t, out)); diff != "" {
		t.Fatal("unexpected table keys (-want,+got):", diff)
	}

	file := out[2].Value.([]any)[0].(yaml.MapSlice)
	exp := []string{"file_name", "freq", "time_units", "unlimdim", "write_file", "global_meta", "sub_region", "start_time", "reduction", "varlist"}
	if diff := cmp.Diff(exp, keys(t, file)); diff != "" {
		t.Fatal("unexpected file keys (-want,+got):", diff)
	}

	subRegion, ok := file[6].Value.([]any)
	if !ok || len(subRegion) != 1 {
		t.Fatalf("expected sub_region to be wrapped in a one element sequence, got %v", file[6].Value)
	}

	v := file[9].Value.([]any)[0].(yaml.MapSlice)
	if diff := cmp.Diff([]string{"var_name", "kind", "module", "reduction", "zbounds"}, keys(t, v)); diff != "" {
		t.Fatal("unexpected variable keys (-want,+got):", diff)
	}

	again, err := diagtable.Parse(bs)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Equal(table) {
		t.Fatal("expected rendered table to parse back to the same table")
	}
}

func TestRenderAbstract(t *testing.T) {

	table := mustParse(t, `{
		title: test, base_date: 2 1 1 0 0 0,
		diag_files: [
			{file_name: a, freq: 1 days, time_units: days, unlimdim: time, varlist: [{var_name: x, module: m}]},
			{file_name: b, freq: 1 days, time_units: days, unlimdim: time, modules: [{module: m, varlist: [y]}]},
			{file_name: c, freq: 1 days, time_units: days, unlimdim: time}
		]
	}`)

	bs, err := table.Marshal(diagtable.AbstractTable | diagtable.AbstractFile | diagtable.AbstractVar)
	if err != nil {
		t.Fatal(err)
	}

	var got any
	if err := yaml.Unmarshal(bs, &got); err != nil {
		t.Fatal(err)
	}

	exp := map[string]any{
		"diag_files": []any{
			map[string]any{"file_name": "a", "varlist": []any{"x"}},
			map[string]any{"file_name": "b", "modules": []any{map[string]any{"module": "m", "varlist": []any{"y"}}}},
			map[string]any{"file_name": "c"},
		},
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Fatal("unexpected abstract rendering (-want,+got):", diff)
	}
}

func TestSetRunsValidator(t *testing.T) {

	table := mustParse(t, `{diag_files: [{file_name: a, freq: 1 days, time_units: days, unlimdim: time, varlist: [x]}]}`)
	f := table.File("a")

	if err := f.Set("time_units", "fortnights"); err == nil {
		t.Fatal("expected invalid time_units to be rejected")
	}
	if err := f.Set("varlist", []any{"y"}); err == nil {
		t.Fatal("expected nested keys to be rejected")
	}
	if err := f.Set("write_file", false); err != nil {
		t.Fatal(err)
	}
	if err := f.Set("freq", ""); err != nil {
		t.Fatal(err)
	}

	if f.WriteFile == nil || *f.WriteFile || f.Freq != "" || len(f.Varlist) != 1 {
		t.Fatalf("unexpected file after set: %+v", f)
	}

	if err := table.Set("title", "renamed"); err != nil || table.Title != "renamed" {
		t.Fatalf("expected title to be set, got %q (err: %v)", table.Title, err)
	}
}
