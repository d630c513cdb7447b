package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/schema"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"fmsyaml": func() {
			os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
		},
	})
}

func TestScript(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(e *testscript.Env) error {
			// Keep the user's editor out of the scripts.
			e.Vars = append(e.Vars, "VISUAL=", "EDITOR=false")
			return nil
		},
		Cmds: map[string]func(*testscript.TestScript, bool, []string){
			"schemavalid": schemaValidCmd,
		},
		// NB: To update expectations in txtar files, re-run the tests with
		// FMSYAML_UPDATE=y, for example:
		//   FMSYAML_UPDATE=y go test ./cmd/fmsyaml -run TestScript/combine -count=1
		UpdateScripts: os.Getenv("FMSYAML_UPDATE") != "",
	})
}

// schemaValidCmd implements a builtin command that checks files against the
// schema of their detected table type.
func schemaValidCmd(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) == 0 {
		ts.Fatalf("usage: schemavalid file...")
	}
	for _, name := range args {
		problems, err := schema.Validate(schema.Auto, []byte(ts.ReadFile(name)))
		if err != nil {
			ts.Fatalf("%s: %v", name, err)
		}
		switch {
		case neg && len(problems) == 0:
			ts.Fatalf("%s: unexpected schema success", name)
		case !neg && len(problems) > 0:
			ts.Fatalf("%s: %v", name, problems)
		}
	}
}
