package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqueducts-go/aqueducts/internal/config"
	"github.com/aqueducts-go/aqueducts/internal/remoteclient"
)

// NewCancelCommand builds `aqueducts cancel`. Unlike run, cancel
// always needs an explicit --execution-id: it opens a fresh
// connection that never submitted anything of its own, so there is no
// "sender's own most recent request" for the executor to fall back
// to.
func NewCancelCommand() *cobra.Command {
	var executionID string

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a running or queued execution on a remote executor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClient(cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			client, err := remoteclient.Dial(context.Background(), cfg.Executor, cfg.APIKey)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Cancel(executionID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "cancel request sent for %s\n", executionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&executionID, "execution-id", "", "execution id to cancel")
	_ = cmd.MarkFlagRequired("execution-id")

	return cmd
}
