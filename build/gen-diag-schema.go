package main

import (
	"log"
	"os"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/schema"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s path/to/diag_table.json", os.Args[0])
	}
	bs, err := schema.ReflectDiagSchema()
	if err != nil {
		panic(err)
	}
	if err := os.WriteFile(os.Args[1], append(bs, '\n'), 0644); err != nil {
		panic(err)
	}
}
