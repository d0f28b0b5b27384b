// Command scholar migrates, generates handles for and queries a school
// schema graph.
package main

import (
	"fmt"
	"os"

	"github.com/syssam/scholar/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scholar:", err)
		os.Exit(1)
	}
}
