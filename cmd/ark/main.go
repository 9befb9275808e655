// Command ark is the CLI entry point for the pixel SOM cluster mapper.
package main

import (
	"os"

	"github.com/jgu13/ark-analysis/internal/cli"
	"github.com/jgu13/ark-analysis/pkg/version"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps the outcome to a process exit
// code. Kept separate from main so tests can exercise it.
func run() int {
	root := cli.NewRootCmd(version.GetVersion())
	if err := root.Execute(); err != nil {
		// Cobra has already printed the error.
		return 1
	}
	return 0
}
