// pvregress is the regression harness CLI for PV circuit models.
//
// Usage:
//
//	pvregress run <scenarios-dir> [--config f] [--mode record|test|pytest] [--filter glob]
//	pvregress compare <baseline.json> <candidate.json> [--fail-fast]
//	pvregress validate <config>
//	pvregress history [scenario] --config f [--limit n]
//	pvregress plot <scenario-file> --out f.png
package main

import (
	"fmt"
	"os"

	"github.com/roach88/pvregress/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
