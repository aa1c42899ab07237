package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePipelineFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDagCommand_FlagsForwardReference(t *testing.T) {
	path := writePipelineFile(t, `{
		"sources": [],
		"stages": [
			[{"name": "early", "query": "SELECT * FROM late"}],
			[{"name": "late", "query": "SELECT 1"}]
		]
	}`)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"dag", "--file", path})

	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "Forward references:")
	require.Contains(t, buf.String(), `"early" references "late"`)
}

func TestDagCommand_CleanPipelineReportsNone(t *testing.T) {
	path := writePipelineFile(t, `{
		"sources": [],
		"stages": [
			[{"name": "totals", "query": "SELECT 1 AS n"}]
		]
	}`)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"dag", "--file", path})

	require.NoError(t, cmd.Execute())
	require.True(t, strings.Contains(buf.String(), "No forward references found."))
}

func TestRunCommand_LocalPipelineCompletes(t *testing.T) {
	path := writePipelineFile(t, `{
		"sources": [],
		"stages": [
			[{"name": "totals", "query": "SELECT 1 AS n"}]
		]
	}`)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"run", "--file", path})

	require.NoError(t, cmd.Execute())
}

func TestCancelCommand_RequiresExecutionID(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"cancel", "--executor", "127.0.0.1:1", "--api-key", "k"})

	require.Error(t, cmd.Execute())
}
