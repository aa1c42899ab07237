package cli

import (
	"github.com/spf13/cobra"

	"github.com/aqueducts-go/aqueducts/internal/cli/commands"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// NewRootCmd builds the `aqueducts` command tree: run, cancel, dag.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aqueducts",
		Short:         "Aqueducts pipeline client",
		Long:          "Aqueducts runs declarative ETL pipelines locally or against a remote executor service.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("executor", "", "executor host:port; when set, the pipeline runs remotely instead of in process")
	root.PersistentFlags().String("api-key", "", "executor api key (or AQUEDUCTS_API_KEY)")

	root.AddCommand(commands.NewRunCommand())
	root.AddCommand(commands.NewCancelCommand())
	root.AddCommand(commands.NewDagCommand())

	return root
}
