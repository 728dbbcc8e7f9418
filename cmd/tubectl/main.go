// tubectl builds and inspects offline station snapshots and runs searches
// from the command line.
package main

import (
	"os"

	"github.com/Never2333/tfl-status/cmd/tubectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
