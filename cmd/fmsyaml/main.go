// Command fmsyaml combines, simplifies, edits and validates the YAML
// diag, data and field tables of the Flexible Modeling System.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/diagtable"
	"github.com/NOAA-GFDL/fms-yaml-tools/internal/logging"
	"github.com/NOAA-GFDL/fms-yaml-tools/internal/progress"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// env carries the process streams and shared state to the commands.
type env struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	level logging.Level
	log   *logging.Logger
}

// debug switches the logger to debug level for commands with a --debug
// flag.
func (e *env) debug() {
	e.log = logging.NewLogger(logging.Config{Level: logging.Debug, Output: e.stderr})
}

func (e *env) progress(enabled bool, description string) *progress.Bar {
	if !enabled {
		return nil
	}
	return progress.New(e.stderr, description)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	e := &env{stdin: stdin, stdout: stdout, stderr: stderr, level: logging.Warn}
	root := newRootCmd(e)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		report(stderr, err)
		return 1
	}
	return 0
}

func report(w io.Writer, err error) {
	fmt.Fprintf(w, "fmsyaml: %v\n", err)
	var perr *diagtable.ParseError
	if errors.As(err, &perr) && perr.Hint != "" {
		fmt.Fprintf(w, "hint: %s\n", perr.Hint)
	}
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "fmsyaml",
		Short:         "Tools for the FMS YAML diag, data and field tables",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			e.log = logging.NewLogger(logging.Config{Level: e.level, Output: e.stderr})
		},
	}

	// --output_yaml and --output-yaml are the same flag.
	root.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	root.PersistentFlags().Var(
		enumflag.New(&e.level, "level", logging.LevelNames, enumflag.EnumCaseInsensitive),
		"log-level", "log level: debug, info, warn or error")

	root.AddCommand(
		newCombineDiagCmd(e),
		newCombineDataCmd(e),
		newCombineFieldCmd(e),
		newSimplifyCmd(e),
		newDiagCmd(e),
		newListCmd(e),
		newValidateCmd(e),
		newSchemaCmd(e),
	)
	return root
}
