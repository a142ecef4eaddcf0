// Command fleetreg runs the device activation and fleet-status registry.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/kioskfleet/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fleetreg:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
