package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqueducts-go/aqueducts/internal/cli"
)

func TestHelpCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, expected := range []string{"run", "cancel", "dag"} {
		require.Contains(t, output, expected)
	}
}

func TestUnknownCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"not-a-command"})

	require.Error(t, cmd.Execute())
}
