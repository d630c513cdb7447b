package main

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/combine"
	"github.com/NOAA-GFDL/fms-yaml-tools/internal/diagtable"
	"github.com/NOAA-GFDL/fms-yaml-tools/internal/output"
)

// outputFlags are shared by the commands that produce a new table file.
type outputFlags struct {
	path     string
	force    bool
	debug    bool
	progress bool
}

func (o *outputFlags) register(cmd *cobra.Command, def string) {
	cmd.Flags().StringVarP(&o.path, "output-yaml", "o", def, `path to the output yaml, "-" for standard output`)
	cmd.Flags().BoolVar(&o.force, "force-write", false, "overwrite the output yaml if it already exists")
	cmd.Flags().BoolVar(&o.debug, "debug", false, "print the steps of the conversion")
}

func (o *outputFlags) registerProgress(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.progress, "progress", false, "show a progress bar on standard error")
}

func (o *outputFlags) write(e *env, data []byte) error {
	if o.path == "-" {
		_, err := e.stdout.Write(data)
		return err
	}
	if err := output.WriteFile(o.path, data, o.force); err != nil {
		return err
	}
	e.log.Infof("Wrote %s", o.path)
	return nil
}

func newCombineDiagCmd(e *env) *cobra.Command {
	var o outputFlags
	cmd := &cobra.Command{
		Use:   "combine-diag-table IN_FILE...",
		Short: "Combine diag_table yaml fragments into one diag_table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if o.debug {
				e.debug()
			}
			bar := e.progress(o.progress, "combining diag tables")
			table, err := combine.DiagTables(args, e.log, bar)
			bar.Finish()
			if err != nil {
				return err
			}
			bs, err := table.Marshal(0)
			if err != nil {
				return err
			}
			return o.write(e, bs)
		},
	}
	o.register(cmd, "diag_table.yaml")
	o.registerProgress(cmd)
	return cmd
}

func newCombineDataCmd(e *env) *cobra.Command {
	var o outputFlags
	cmd := &cobra.Command{
		Use:   "combine-data-table IN_FILE...",
		Short: "Combine data_table yaml files into one data_table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if o.debug {
				e.debug()
			}
			bar := e.progress(o.progress, "combining data tables")
			table, err := combine.DataTables(args, e.log, bar)
			bar.Finish()
			if err != nil {
				return err
			}
			bs, err := yaml.Marshal(table)
			if err != nil {
				return fmt.Errorf("failed to marshal data table: %w", err)
			}
			return o.write(e, bs)
		},
	}
	o.register(cmd, "data_table.yaml")
	o.registerProgress(cmd)
	return cmd
}

func newCombineFieldCmd(e *env) *cobra.Command {
	var o outputFlags
	cmd := &cobra.Command{
		Use:   "combine-field-table IN_FILE...",
		Short: "Combine field_table yaml files into one field_table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if o.debug {
				e.debug()
			}
			bar := e.progress(o.progress, "combining field tables")
			table, err := combine.FieldTables(args, e.log, bar)
			bar.Finish()
			if err != nil {
				return err
			}
			bs, err := yaml.Marshal(table)
			if err != nil {
				return fmt.Errorf("failed to marshal field table: %w", err)
			}
			return o.write(e, bs)
		},
	}
	o.register(cmd, "field_table.yaml")
	o.registerProgress(cmd)
	return cmd
}

func newSimplifyCmd(e *env) *cobra.Command {
	var o outputFlags
	cmd := &cobra.Command{
		Use:   "simplify-diag-table INPUT_FILE",
		Short: "Promote the common kind, reduction and module of each file's variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if o.debug {
				e.debug()
			}
			table, err := readTable(e, args[0])
			if err != nil {
				return err
			}
			e.log.Debugf("Simplifying %d diag_files", len(table.DiagFiles))
			bs, err := table.Simplify().Marshal(0)
			if err != nil {
				return err
			}
			return o.write(e, bs)
		},
	}
	o.register(cmd, "diag_table.yaml")
	return cmd
}

// readTable parses a diag table from a file, or from standard input when
// path is "-".
func readTable(e *env, path string) (*diagtable.Table, error) {
	if path != "-" {
		return diagtable.ReadFile(path)
	}
	data, err := readAll(e.stdin)
	if err != nil {
		return nil, err
	}
	t, err := diagtable.Parse(data)
	if err != nil {
		return nil, withSource(err, "<stdin>")
	}
	return t, nil
}
