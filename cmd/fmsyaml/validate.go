package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"
	"golang.org/x/sync/errgroup"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/schema"
)

func newValidateCmd(e *env) *cobra.Command {
	var (
		kind    schema.Kind
		success bool
	)
	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate diag, data or field table yaml files against their schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			results, err := validateFiles(e, kind, args)
			if err != nil {
				return err
			}
			failed := 0
			for i, problems := range results {
				path := args[i]
				if len(problems) == 0 {
					if success {
						fmt.Fprintf(e.stdout, "%s was successfully validated\n", path)
					}
					continue
				}
				failed++
				fmt.Fprintf(e.stdout, "The following errors have occurred in %s:\n\n", path)
				for i, p := range problems {
					fmt.Fprintf(e.stdout, "(%d) %s\n", i+1, p)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed validation", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().VarP(
		enumflag.New(&kind, "type", schema.KindNames, enumflag.EnumCaseInsensitive),
		"type", "t", "table type: auto, diag, data or field")
	cmd.Flags().BoolVar(&success, "success", false, "print a message for each valid file")
	return cmd
}

// validateFiles checks the files concurrently. Results are indexed like
// paths.
func validateFiles(e *env, kind schema.Kind, paths []string) ([][]schema.ValidationError, error) {
	results := make([][]schema.ValidationError, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			e.log.Debugf("Validating %s against the %v table schema", path, kind)
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			problems, err := schema.Validate(kind, data)
			if err != nil {
				return withSource(err, path)
			}
			results[i] = problems
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func newSchemaCmd(e *env) *cobra.Command {
	var (
		kind    = schema.Diag
		reflect bool
	)
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of a table type",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if reflect {
				bs, err := schema.ReflectDiagSchema()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(e.stdout, string(bs))
				return err
			}
			bs := schema.Schema(kind)
			if bs == nil {
				return fmt.Errorf("no schema for the %v table", kind)
			}
			_, err := e.stdout.Write(bs)
			return err
		},
	}
	cmd.Flags().VarP(
		enumflag.New(&kind, "type", schema.KindNames, enumflag.EnumCaseInsensitive),
		"type", "t", "table type: diag, data or field")
	cmd.Flags().BoolVar(&reflect, "reflect", false, "print the diag_table schema reflected from the Go types")
	return cmd
}
