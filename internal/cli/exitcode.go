// Package cli wires the `aqueducts` client binary's cobra command
// tree, grounded on the teacher's own internal/cli/root.go split
// between a root command and an internal/cli/commands package.
package cli

import (
	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/internal/remoteclient"
)

// Exit codes per the documented CLI surface.
const (
	ExitSuccess          = 0
	ExitPipelineOrConfig = 1
	ExitExecutionFailure = 2
	ExitCancelled        = 3
	ExitTransportOrAuth  = 4
)

// ExitCode classifies err into one of the documented process exit
// codes. A nil error always maps to ExitSuccess; an error of a type
// this function doesn't recognise (flag parsing, file I/O before a
// pipeline was ever read) falls back to ExitPipelineOrConfig, since
// those all happen before anything runs.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch e := err.(type) {
	case *aqerr.CancelledError:
		return ExitCancelled
	case *aqerr.ProtocolError:
		return ExitTransportOrAuth
	case *aqerr.ConfigError, *aqerr.TemplateError, *aqerr.SchemaValidationError:
		return ExitPipelineOrConfig
	case *aqerr.SourceError, *aqerr.DataProcessingError, *aqerr.StorageError,
		*aqerr.DestinationError, *aqerr.InternalError:
		return ExitExecutionFailure
	case *remoteclient.RemoteError:
		return exitCodeForCategory(e.Category)
	default:
		return ExitPipelineOrConfig
	}
}

// exitCodeForCategory maps a remote execution's wire-carried taxonomy
// category back to an exit code, for failures that crossed a
// WebSocket and so no longer carry a concrete aqerr type.
func exitCodeForCategory(category string) int {
	switch category {
	case "cancelled":
		return ExitCancelled
	case "protocol":
		return ExitTransportOrAuth
	case "config", "template", "schema_validation":
		return ExitPipelineOrConfig
	default:
		return ExitExecutionFailure
	}
}
