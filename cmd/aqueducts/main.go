// Command aqueducts is the client binary: it runs a pipeline document
// either in process or against a remote executor service, and can
// cancel a remote execution.
package main

import (
	"fmt"
	"os"

	"github.com/aqueducts-go/aqueducts/internal/cli"
)

func main() {
	root := cli.NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.ExitCode(err))
}
