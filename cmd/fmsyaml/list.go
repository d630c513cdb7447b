package main

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/diagtable"
)

func newListCmd(e *env) *cobra.Command {
	var printVars, comma, asTable bool
	cmd := &cobra.Command{
		Use:   "diag-list TABLE",
		Short: "List the history files of a diag table",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			t, err := readTable(e, args[0])
			if err != nil {
				return err
			}
			if asTable {
				return listTable(e, t)
			}
			for _, f := range t.DiagFiles {
				fmt.Fprintln(e.stdout, "file name:", f.FileName)
				if !printVars {
					continue
				}
				if f.NumVariables() == 0 {
					fmt.Fprintf(e.stdout, " (%s has no varlist)\n", f.FileName)
					continue
				}
				if comma {
					var names []string
					for r := range f.Variables() {
						names = append(names, r.Var.VarName)
					}
					fmt.Fprintln(e.stdout, "  "+strings.Join(names, ", "))
					continue
				}
				for r := range f.Variables() {
					fmt.Fprintf(e.stdout, "  - %s from module %s\n", r.Var.VarName, r.Module())
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&printVars, "print-vars", false, "list the variables and their module below each file")
	cmd.Flags().BoolVar(&comma, "comma", false, "with --print-vars, list the variables on one comma separated line")
	cmd.Flags().BoolVar(&asTable, "table", false, "print one row per variable in a table")
	return cmd
}

func listTable(e *env, t *diagtable.Table) error {
	table := tablewriter.NewWriter(e.stdout)
	table.Header("File", "Module", "Variable", "Output name")
	for _, f := range t.DiagFiles {
		if f.NumVariables() == 0 {
			if err := table.Append([]string{f.FileName, "", "", ""}); err != nil {
				return err
			}
			continue
		}
		for r := range f.Variables() {
			if err := table.Append([]string{f.FileName, r.Module(), r.Var.VarName, r.Var.OutputKey()}); err != nil {
				return err
			}
		}
	}
	return table.Render()
}
