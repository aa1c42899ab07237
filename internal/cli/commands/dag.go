package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aqueducts-go/aqueducts/internal/dag"
	"github.com/aqueducts-go/aqueducts/internal/docformat"
	"github.com/aqueducts-go/aqueducts/pkg/template"
)

// NewDagCommand builds `aqueducts dag`: renders a pipeline document's
// source/stage structure by execution level and flags any stage query
// that references a name not yet available at that point, without
// running anything.
func NewDagCommand() *cobra.Command {
	var file string
	var params []string

	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Render a pipeline's dependency structure and flag forward references",
		RunE: func(cmd *cobra.Command, args []string) error {
			paramMap, err := parseParams(params)
			if err != nil {
				return err
			}

			doc, err := readPipelineDoc(file)
			if err != nil {
				return err
			}

			rendered, err := template.Render(doc.Text, paramMap)
			if err != nil {
				return err
			}

			pipeline, err := docformat.Parse(docformat.Format(doc.Format), rendered)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			graph := dag.BuildPipelineGraph(pipeline)
			levels, err := graph.GetExecutionLevels()
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "Execution levels:")
			for i, level := range levels {
				fmt.Fprintf(out, "  level %d: %s\n", i, strings.Join(level, ", "))
			}

			refs := dag.ForwardReferences(pipeline)
			if len(refs) == 0 {
				fmt.Fprintln(out, "No forward references found.")
				return nil
			}

			fmt.Fprintln(out, "Forward references:")
			for _, r := range refs {
				fmt.Fprintf(out, "  stage %q references %q before it is available\n", r.Stage, r.References)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the pipeline document (yaml/json/toml)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "template parameter in key=value form, repeatable")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
