package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aqueducts-go/aqueducts/internal/config"
	"github.com/aqueducts-go/aqueducts/internal/docformat"
	"github.com/aqueducts-go/aqueducts/internal/progress"
	"github.com/aqueducts-go/aqueducts/internal/protocol"
	"github.com/aqueducts-go/aqueducts/internal/remoteclient"
	"github.com/aqueducts-go/aqueducts/internal/runner"
	"github.com/aqueducts-go/aqueducts/internal/sqlctx"
	"github.com/aqueducts-go/aqueducts/pkg/template"
)

// NewRunCommand builds `aqueducts run`: local execution when
// --executor is unset, remote execution against an executor service
// otherwise. Both paths feed the same progress.Logging tracker, so
// the console output is identical either way.
func NewRunCommand() *cobra.Command {
	var file string
	var params []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a pipeline document, locally or against a remote executor",
		RunE: func(cmd *cobra.Command, args []string) error {
			paramMap, err := parseParams(params)
			if err != nil {
				return err
			}

			cfg, err := config.LoadClient(cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tracker := progress.Logging{
				Logger:       slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)),
				RenderOutput: true,
				Writer:       cmd.OutOrStdout(),
			}

			if cfg.Executor != "" {
				return runRemote(ctx, cfg, file, paramMap, tracker)
			}
			return runLocal(ctx, file, paramMap, tracker)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the pipeline document (yaml/json/toml)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "template parameter in key=value form, repeatable")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runLocal(ctx context.Context, file string, params map[string]string, tracker progress.Logging) error {
	doc, err := readPipelineDoc(file)
	if err != nil {
		return err
	}

	rendered, err := template.Render(doc.Text, params)
	if err != nil {
		return err
	}

	pipeline, err := docformat.Parse(docformat.Format(doc.Format), rendered)
	if err != nil {
		return err
	}

	_, err = runner.Run(ctx, pipeline, sqlctx.Config{}, tracker)
	return err
}

func runRemote(ctx context.Context, cfg config.Client, file string, params map[string]string, tracker progress.Logging) error {
	doc, err := readPipelineDoc(file)
	if err != nil {
		return err
	}

	client, err := remoteclient.Dial(ctx, cfg.Executor, cfg.APIKey)
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.Run(ctx, "", protocol.PipelineDoc{Format: doc.Format, Text: doc.Text}, params, tracker)
	if err != nil {
		return err
	}

	fmt.Fprintf(tracker.Writer, "execution %s completed\n", result.ExecutionID)
	return nil
}
