// Package aqerr defines the error taxonomy shared across the pipeline
// runner, the executor service and the remote client.
package aqerr

import (
	"fmt"
	"strings"
)

// baseError carries a formatted message and an optional wrapped cause.
type baseError struct {
	msg   string
	cause error
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *baseError) Unwrap() error { return e.cause }

// ConfigError covers pipeline parse/invariant failures and unknown formats.
type ConfigError struct {
	baseError
	Kind string // e.g. "empty_pipeline", "invalid_write_mode", "duplicate_name"
}

func NewConfigError(kind, msg string, cause error) *ConfigError {
	return &ConfigError{baseError: baseError{msg: msg, cause: cause}, Kind: kind}
}

// TemplateError reports one or more unresolved `${...}` placeholders.
type TemplateError struct {
	baseError
	Keys []string
}

func NewTemplateError(keys []string) *TemplateError {
	return &TemplateError{
		baseError: baseError{msg: fmt.Sprintf("unresolved template parameters: %s", strings.Join(keys, ", "))},
		Keys:      keys,
	}
}

// SchemaValidationError covers width/nullability/name/count mismatches
// between a declared schema and an actual dataset schema.
type SchemaValidationError struct {
	baseError
	Kind string // "name_mismatch", "count_mismatch", "incompatible_width"
}

func NewSchemaValidationError(kind, msg string) *SchemaValidationError {
	return &SchemaValidationError{baseError: baseError{msg: msg}, Kind: kind}
}

// SourceError covers source registration failures.
type SourceError struct {
	baseError
	Name string
	Kind string // "not_found", "io", "odbc", "delta", "unsupported_scheme"
}

func NewSourceError(name, kind, msg string, cause error) *SourceError {
	return &SourceError{baseError: baseError{msg: msg, cause: cause}, Name: name, Kind: kind}
}

// DataProcessingError covers SQL compile/execute failures and resource
// exhaustion inside the columnar engine.
type DataProcessingError struct {
	baseError
	Kind string // "compile", "execute", "memory_exhausted"
}

func NewDataProcessingError(kind, msg string, cause error) *DataProcessingError {
	return &DataProcessingError{baseError: baseError{msg: msg, cause: cause}, Kind: kind}
}

// StorageError covers object-store I/O failures.
type StorageError struct {
	baseError
	Scheme string
}

func NewStorageError(scheme, msg string, cause error) *StorageError {
	return &StorageError{baseError: baseError{msg: msg, cause: cause}, Scheme: scheme}
}

// DestinationError covers destination write failures, mirroring SourceError's
// sub-kinds plus "transaction_failed".
type DestinationError struct {
	baseError
	Name string
	Kind string
}

func NewDestinationError(name, kind, msg string, cause error) *DestinationError {
	return &DestinationError{baseError: baseError{msg: msg, cause: cause}, Name: name, Kind: kind}
}

// ProtocolError covers wire framing, authentication and duplicate-id errors.
type ProtocolError struct {
	baseError
	Kind string // "framing", "auth", "transport", "duplicate_execution", "queue_full"
}

func NewProtocolError(kind, msg string, cause error) *ProtocolError {
	return &ProtocolError{baseError: baseError{msg: msg, cause: cause}, Kind: kind}
}

// CancelledError marks a run or request that ended due to cancellation.
type CancelledError struct {
	baseError
	ExecutionID string
}

func NewCancelledError(executionID string) *CancelledError {
	return &CancelledError{
		baseError:   baseError{msg: "execution cancelled"},
		ExecutionID: executionID,
	}
}

// InternalError wraps a recovered panic or other unreachable condition.
type InternalError struct {
	baseError
	Stage string
}

func NewInternalError(stage string, cause error) *InternalError {
	msg := "internal error"
	if stage != "" {
		msg = fmt.Sprintf("internal error in %s", stage)
	}
	return &InternalError{baseError: baseError{msg: msg, cause: cause}, Stage: stage}
}

// Category returns a stable short name for the error's taxonomy kind,
// used when translating runner errors into protocol terminal messages.
func Category(err error) string {
	switch err.(type) {
	case *ConfigError:
		return "config"
	case *TemplateError:
		return "template"
	case *SchemaValidationError:
		return "schema_validation"
	case *SourceError:
		return "source"
	case *DataProcessingError:
		return "data_processing"
	case *StorageError:
		return "storage"
	case *DestinationError:
		return "destination"
	case *ProtocolError:
		return "protocol"
	case *CancelledError:
		return "cancelled"
	case *InternalError:
		return "internal"
	default:
		return "internal"
	}
}
