package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/internal/docformat"
	"github.com/aqueducts-go/aqueducts/internal/protocol"
)

// readPipelineDoc reads the pipeline document at path and infers its
// format from the file extension, without rendering or parsing it —
// both a local run and a remote ExecuteRequest need the raw text, and
// only the local path goes on to render/parse it itself.
func readPipelineDoc(path string) (protocol.PipelineDoc, error) {
	format, err := docformat.FormatFromExtension(path)
	if err != nil {
		return protocol.PipelineDoc{}, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return protocol.PipelineDoc{}, aqerr.NewConfigError("io", fmt.Sprintf("reading pipeline file %q", path), err)
	}

	return protocol.PipelineDoc{Format: string(format), Text: string(raw)}, nil
}

// parseParams turns repeated `--param k=v` flags into a map, the
// substitution table `${...}` placeholders resolve against.
func parseParams(raw []string) (map[string]string, error) {
	params := make(map[string]string, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, aqerr.NewConfigError("invalid_param", fmt.Sprintf("--param %q is not in key=value form", kv), nil)
		}
		params[name] = value
	}
	return params, nil
}
