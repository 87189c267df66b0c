// Command entcache validates entity declarations, dispatches entity
// actions against a SQLite-backed cache and replays its action log.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/entcache/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
