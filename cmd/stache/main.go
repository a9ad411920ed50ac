// Command stache is the command line client for the Stache knowledge base.
package main

import (
	"os"

	"github.com/custodia-labs/stache-cli/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

func main() {
	cli.SetVersion(version)
	os.Exit(cli.Execute())
}
