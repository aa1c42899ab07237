package cli

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/internal/remoteclient"
)

func TestExitCode_Nil(t *testing.T) {
	require.Equal(t, ExitSuccess, ExitCode(nil))
}

func TestExitCode_LocalErrorTypes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{aqerr.NewCancelledError("run-1"), ExitCancelled},
		{aqerr.NewProtocolError("auth", "nope", nil), ExitTransportOrAuth},
		{aqerr.NewConfigError("empty_pipeline", "no stages", nil), ExitPipelineOrConfig},
		{aqerr.NewTemplateError([]string{"missing"}), ExitPipelineOrConfig},
		{aqerr.NewDataProcessingError("execute", "bad sql", nil), ExitExecutionFailure},
		{aqerr.NewDestinationError("out", "transaction_failed", "rollback", nil), ExitExecutionFailure},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ExitCode(c.err))
	}
}

func TestExitCode_RemoteErrorCategories(t *testing.T) {
	cases := []struct {
		category string
		want     int
	}{
		{"cancelled", ExitCancelled},
		{"protocol", ExitTransportOrAuth},
		{"config", ExitPipelineOrConfig},
		{"data_processing", ExitExecutionFailure},
		{"internal", ExitExecutionFailure},
	}
	for _, c := range cases {
		err := &remoteclient.RemoteError{Category: c.category, Message: "boom"}
		require.Equal(t, c.want, ExitCode(err))
	}
}
