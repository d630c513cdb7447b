package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/diagtable"
	"github.com/NOAA-GFDL/fms-yaml-tools/internal/editor"
	"github.com/NOAA-GFDL/fms-yaml-tools/internal/output"
	"github.com/NOAA-GFDL/fms-yaml-tools/internal/prompt"
)

type abstractLevel int

const (
	abstractTable abstractLevel = iota
	abstractFile
	abstractVar
)

var abstractNames = map[abstractLevel][]string{
	abstractTable: {"table"},
	abstractFile:  {"file"},
	abstractVar:   {"var"},
}

// diagOptions holds the flags shared by the diag subcommands.
type diagOptions struct {
	inPlace  bool
	force    bool
	files    []string
	vars     []string
	prune    bool
	abstract []abstractLevel
}

func (o *diagOptions) abstraction() diagtable.Abstract {
	var a diagtable.Abstract
	for _, l := range o.abstract {
		switch l {
		case abstractTable:
			a |= diagtable.AbstractTable
		case abstractFile:
			a |= diagtable.AbstractFile
		case abstractVar:
			a |= diagtable.AbstractVar
		}
	}
	return a
}

// abstractionOr returns the requested abstraction, or def when none was
// requested.
func (o *diagOptions) abstractionOr(def diagtable.Abstract) diagtable.Abstract {
	if len(o.abstract) == 0 {
		return def
	}
	return o.abstraction()
}

func (o *diagOptions) filters() (diagtable.FileFilterFunc, diagtable.VarFilterFunc, error) {
	ff, err := diagtable.ParseFileFilter(o.files...)
	if err != nil {
		return nil, nil, err
	}
	vf, err := diagtable.ParseVarFilter(o.vars...)
	if err != nil {
		return nil, nil, err
	}
	return ff, vf, nil
}

// filtered applies the file and variable filters and, if requested, drops
// the files left without variables.
func (o *diagOptions) filtered(t *diagtable.Table, prune bool) (*diagtable.Table, error) {
	ff, vf, err := o.filters()
	if err != nil {
		return nil, err
	}
	out := t.FilterFiles(ff).FilterVars(vf)
	if prune || o.prune {
		out = out.Prune()
	}
	return out, nil
}

type diagCmd struct {
	e    *env
	opts diagOptions
	edit func() *editor.Editor
}

func newDiagCmd(e *env) *cobra.Command {
	d := &diagCmd{e: e, edit: editor.Default}

	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Update, combine, subset and summarize diag tables",
		Long: `Update, combine, subset and summarize diag tables.

File filters have the form [~]name[,name...] and variable filters the form
[~][file[,file]:[module[,module]:]]var[,var]. Names may be glob patterns, an
empty list or "*" matches everything and "~" negates the filter. Repeated
filters are combined with "or".`,
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&d.opts.inPlace, "in-place", "i", false, "overwrite the existing table rather than writing to standard output")
	flags.BoolVarP(&d.opts.force, "force", "F", false, "skip the confirmation prompt when overwriting an existing table")
	flags.StringArrayVarP(&d.opts.files, "file", "f", nil, "file filter")
	flags.StringArrayVarP(&d.opts.vars, "var", "v", nil, "variable filter")
	flags.BoolVarP(&d.opts.prune, "prune", "p", false, "drop files which have no variables after filtering")
	flags.VarP(
		enumflag.NewSlice(&d.opts.abstract, "level", abstractNames, enumflag.EnumCaseSensitive),
		"abstract", "a", "exclude table, file or var attributes from the output")

	cmd.AddCommand(
		d.editCmd(),
		d.mergeCmd("update", "Asymmetrically merge one table into another", (*diagtable.Table).MergeOverride),
		d.mergeCmd("merge", "Symmetrically merge two or more tables", (*diagtable.Table).MergeStrict),
		d.filterCmd("filter", "Filter files or variables from a table", 0, false),
		d.filterCmd("list", "List the files and variables in a table",
			diagtable.AbstractTable|diagtable.AbstractFile|diagtable.AbstractVar, false),
		d.filterCmd("grep-file", "Pick out particular files", diagtable.AbstractTable, false),
		d.filterCmd("grep-var", "Pick out particular variables",
			diagtable.AbstractTable|diagtable.AbstractFile, true),
		d.wizardCmd("file-wizard", "Add a new file or modify an existing one", diagtable.AbstractTable, false),
		d.wizardCmd("var-wizard", "Add a new variable or modify an existing one",
			diagtable.AbstractTable|diagtable.AbstractFile, true),
		d.setCmd(),
	)
	return cmd
}

func tableArg(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

func (d *diagCmd) load(path string, prune bool) (*diagtable.Table, error) {
	t, err := readTable(d.e, path)
	if err != nil {
		return nil, err
	}
	return d.opts.filtered(t, prune)
}

// writeOut writes the result to standard output, or back to path with
// --in-place.
func (d *diagCmd) writeOut(path string, t *diagtable.Table, abstract diagtable.Abstract) error {
	bs, err := t.Marshal(abstract)
	if err != nil {
		return err
	}

	if !d.opts.inPlace {
		_, err := d.e.stdout.Write(bs)
		return err
	}
	if path == "-" {
		d.e.log.Warnf("Ignoring --in-place option, because the original table was read from standard input")
		_, err := d.e.stdout.Write(bs)
		return err
	}

	if !d.opts.force {
		diff, err := output.Diff(path, bs)
		if err != nil {
			return err
		}
		if diff == "" {
			d.e.log.Infof("%s is unchanged", path)
			return nil
		}
		fmt.Fprint(d.e.stderr, diff)
		ok, err := prompt.Confirm(fmt.Sprintf("Overwrite %s?", path), d.e.stdin, d.e.stderr)
		if err != nil {
			return err
		}
		if !ok {
			d.e.log.Warnf("Changes have been discarded")
			return nil
		}
	}
	return output.WriteFile(path, bs, true)
}

func (d *diagCmd) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit [DIAG_TABLE]",
		Short: "Edit a table interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := tableArg(args)
			t, err := d.load(path, false)
			if err != nil {
				return err
			}
			abstract := d.opts.abstraction()
			before, err := t.Marshal(abstract)
			if err != nil {
				return err
			}

			after, changed, err := d.edit().Edit(before, ".yaml")
			if err != nil {
				return err
			}
			if !changed {
				d.e.log.Warnf("Changes have been discarded... passing original table through")
			}

			edited, err := diagtable.Parse(after)
			if err != nil {
				return withSource(err, "the edited table")
			}
			return d.writeOut(path, edited, abstract)
		},
	}
}

// mergeCmd folds the tables from left to right with merge, each table being
// merged into the next one. With a single argument the table read from
// standard input is merged into it.
func (d *diagCmd) mergeCmd(use, short string, merge func(*diagtable.Table, *diagtable.Table) (*diagtable.Table, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " DIAG_TABLE...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 1 {
				paths = []string{"-", paths[0]}
			}

			var acc *diagtable.Table
			for _, path := range paths {
				t, err := d.load(path, false)
				if err != nil {
					return err
				}
				if acc == nil {
					acc = t
					continue
				}
				if acc, err = merge(t, acc); err != nil {
					return err
				}
			}
			return d.writeOut(paths[len(paths)-1], acc, d.opts.abstraction())
		},
	}
}

func (d *diagCmd) filterCmd(use, short string, abstract diagtable.Abstract, prune bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [DIAG_TABLE]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := tableArg(args)
			t, err := d.load(path, prune)
			if err != nil {
				return err
			}
			return d.writeOut(path, t, d.opts.abstractionOr(abstract))
		},
	}
}

// wizardCmd opens the filtered, abstracted table in an editor and merges the
// edits into the full table, the edits taking precedence.
func (d *diagCmd) wizardCmd(use, short string, abstract diagtable.Abstract, prune bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [DIAG_TABLE]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := tableArg(args)
			original, err := readTable(d.e, path)
			if err != nil {
				return err
			}
			subset, err := d.opts.filtered(original, prune)
			if err != nil {
				return err
			}
			before, err := subset.Marshal(d.opts.abstractionOr(abstract))
			if err != nil {
				return err
			}

			after, changed, err := d.edit().Edit(before, ".yaml")
			if err != nil {
				return err
			}
			if !changed {
				d.e.log.Warnf("Changes have been discarded")
				return nil
			}

			changes, err := diagtable.Parse(after)
			if err != nil {
				return withSource(err, "the edited table")
			}
			merged, err := original.MergeOverride(changes)
			if err != nil {
				return err
			}
			return d.writeOut(path, merged, d.opts.abstraction())
		},
	}
}

// setCmd assigns fields on the selected files, or with --vars on the
// selected variables. Values are read as YAML scalars; an empty value
// removes the field.
func (d *diagCmd) setCmd() *cobra.Command {
	var onVars bool
	cmd := &cobra.Command{
		Use:   "set DIAG_TABLE KEY=VALUE...",
		Short: "Set fields of the selected files or variables",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			path := args[0]
			assignments, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			t, err := readTable(d.e, path)
			if err != nil {
				return err
			}
			ff, vf, err := d.opts.filters()
			if err != nil {
				return err
			}

			n := 0
			for _, f := range t.FilteredFiles(ff) {
				if !onVars {
					for _, a := range assignments {
						if err := f.Set(a.key, a.value); err != nil {
							return fmt.Errorf("%s: %w", f.FileName, err)
						}
					}
					n++
					continue
				}
				for r := range f.Variables() {
					if vf != nil && !vf(r) {
						continue
					}
					for _, a := range assignments {
						if err := r.Var.Set(a.key, a.value); err != nil {
							return fmt.Errorf("%s: %s: %w", f.FileName, r.Var.VarName, err)
						}
					}
					n++
				}
			}
			d.e.log.Infof("Updated %d entries", n)
			return d.writeOut(path, t, d.opts.abstraction())
		},
	}
	cmd.Flags().BoolVar(&onVars, "vars", false, "set the fields of the selected variables instead of the files")
	return cmd
}

type assignment struct {
	key   string
	value any
}

func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected KEY=VALUE, found %q", arg)
		}
		var value any
		if raw != "" {
			if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
				return nil, fmt.Errorf("invalid value for %s: %w", key, err)
			}
		}
		out = append(out, assignment{key: key, value: value})
	}
	return out, nil
}

func readAll(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, errors.New("no standard input")
	}
	return io.ReadAll(r)
}

// withSource names the origin of a ParseError.
func withSource(err error, source string) error {
	var perr *diagtable.ParseError
	if errors.As(err, &perr) && perr.Source == "" {
		perr.Source = source
	}
	return err
}
