package aqmodel

import (
	"fmt"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
)

// Validate enforces every parse-time invariant from the data model:
// unique names, non-empty levels, the empty-pipeline rule, Delta
// source/destination mutual-exclusion rules and single_file constraints.
// It is called by every format parser so that YAML/JSON/TOML documents
// that describe the same pipeline validate identically.
func (p Pipeline) Validate() error {
	seen := make(map[string]string) // name -> "source" | "stage"

	for _, s := range p.Sources {
		if s.Name == "" {
			return aqerr.NewConfigError("invalid_name", "source name must not be empty", nil)
		}
		if prev, ok := seen[s.Name]; ok {
			return aqerr.NewConfigError("duplicate_name",
				fmt.Sprintf("name %q used by both a %s and a source", s.Name, prev), nil)
		}
		seen[s.Name] = "source"
		if err := s.validate(); err != nil {
			return err
		}
	}

	for levelIdx, level := range p.Stages {
		if len(level) == 0 {
			return aqerr.NewConfigError("empty_level",
				fmt.Sprintf("level %d has no stages", levelIdx), nil)
		}
		for _, st := range level {
			if st.Name == "" {
				return aqerr.NewConfigError("invalid_name", "stage name must not be empty", nil)
			}
			if prev, ok := seen[st.Name]; ok {
				return aqerr.NewConfigError("duplicate_name",
					fmt.Sprintf("name %q used by both a %s and a stage", st.Name, prev), nil)
			}
			seen[st.Name] = "stage"
			if st.Query == "" {
				return aqerr.NewConfigError("invalid_stage", fmt.Sprintf("stage %q has an empty query", st.Name), nil)
			}
		}
	}

	if len(p.Stages) == 0 {
		inMemoryDest := p.Destination != nil && p.Destination.Kind == DestInMemory
		if inMemoryDest || len(p.Sources) == 0 {
			return aqerr.NewConfigError("empty_pipeline",
				"a pipeline with no stages must have at least one source and no in_memory destination", nil)
		}
	}

	if p.Destination != nil {
		if err := p.Destination.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (s Source) validate() error {
	switch s.Kind {
	case SourceDelta:
		if s.Version != nil && s.Timestamp != nil {
			return aqerr.NewConfigError("mutually_exclusive",
				fmt.Sprintf("delta source %q: version and timestamp are mutually exclusive", s.Name), nil)
		}
	case SourceFile:
		if s.Location == "" {
			return aqerr.NewConfigError("invalid_source", fmt.Sprintf("file source %q: location is required", s.Name), nil)
		}
	case SourceDirectory:
		if s.Location == "" {
			return aqerr.NewConfigError("invalid_source", fmt.Sprintf("directory source %q: location is required", s.Name), nil)
		}
	case SourceOdbc:
		if s.ConnectionString == "" || s.LoadQuery == "" {
			return aqerr.NewConfigError("invalid_source",
				fmt.Sprintf("odbc source %q: connection_string and load_query are required", s.Name), nil)
		}
	case SourceInMemory:
		// nothing further to validate at parse time; existence is
		// checked at registration time.
	default:
		return aqerr.NewConfigError("unknown_source_kind", fmt.Sprintf("source %q has unknown kind %q", s.Name, s.Kind), nil)
	}
	return nil
}

func (d Destination) validate() error {
	switch d.Kind {
	case DestFile:
		if d.SingleFile && len(d.PartitionColumns) > 0 {
			return aqerr.NewConfigError("invalid_destination",
				"single_file=true requires partition_columns to be empty", nil)
		}
	case DestDelta:
		if d.WriteMode.Kind == "" {
			return aqerr.NewConfigError("invalid_write_mode",
				fmt.Sprintf("delta destination %q: write_mode is required", d.Name), nil)
		}
		switch d.WriteMode.Kind {
		case WriteUpsert:
			if len(d.WriteMode.MergeKeys) == 0 {
				return aqerr.NewConfigError("invalid_write_mode",
					fmt.Sprintf("delta destination %q: upsert requires a non-empty merge_keys", d.Name), nil)
			}
		case WriteReplace:
			if len(d.WriteMode.Predicates) == 0 {
				return aqerr.NewConfigError("invalid_write_mode",
					fmt.Sprintf("delta destination %q: replace requires a non-empty predicates", d.Name), nil)
			}
		case WriteAppend:
			// no further constraints
		default:
			return aqerr.NewConfigError("invalid_write_mode",
				fmt.Sprintf("delta destination %q: unsupported write_mode %q", d.Name, d.WriteMode.Kind), nil)
		}
	case DestOdbc:
		if d.ConnectionString == "" {
			return aqerr.NewConfigError("invalid_destination", fmt.Sprintf("odbc destination %q: connection_string is required", d.Name), nil)
		}
		switch d.WriteMode.Kind {
		case WriteAppend:
		case WriteCustom:
			if d.WriteMode.Insert == "" {
				return aqerr.NewConfigError("invalid_write_mode",
					fmt.Sprintf("odbc destination %q: custom write_mode requires insert", d.Name), nil)
			}
		case "":
			return aqerr.NewConfigError("invalid_write_mode",
				fmt.Sprintf("odbc destination %q: write_mode is required", d.Name), nil)
		default:
			return aqerr.NewConfigError("invalid_write_mode",
				fmt.Sprintf("odbc destination %q: unsupported write_mode %q", d.Name, d.WriteMode.Kind), nil)
		}
	case DestInMemory:
		// nothing further to validate
	default:
		return aqerr.NewConfigError("unknown_destination_kind", fmt.Sprintf("destination %q has unknown kind %q", d.Name, d.Kind), nil)
	}
	return nil
}
