package docformat

import (
	"fmt"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

func convertSource(raw map[string]any) (aqmodel.Source, error) {
	kind := aqmodel.SourceKind(getString(raw, "type"))
	name := getString(raw, "name")
	if name == "" {
		return aqmodel.Source{}, aqerr.NewConfigError("invalid_source", "source is missing a name", nil)
	}

	src := aqmodel.Source{Kind: kind, Name: name}

	switch kind {
	case aqmodel.SourceInMemory:
		// nothing further to decode

	case aqmodel.SourceFile:
		src.Location = getString(raw, "location")
		src.StorageConfig = getStringMap(raw, "storage_config")
		formatRaw, ok := raw["format"].(map[string]any)
		if !ok {
			return aqmodel.Source{}, aqerr.NewConfigError("invalid_source", fmt.Sprintf("file source %q requires a format", name), nil)
		}
		format, err := convertFileFormat(formatRaw)
		if err != nil {
			return aqmodel.Source{}, err
		}
		src.Format = format

	case aqmodel.SourceDirectory:
		src.Location = getString(raw, "location")
		src.StorageConfig = getStringMap(raw, "storage_config")
		formatRaw, ok := raw["format"].(map[string]any)
		if !ok {
			return aqmodel.Source{}, aqerr.NewConfigError("invalid_source", fmt.Sprintf("directory source %q requires a format", name), nil)
		}
		format, err := convertFileFormat(formatRaw)
		if err != nil {
			return aqmodel.Source{}, err
		}
		src.Format = format
		if partRaw := getMapList(raw, "partition_columns"); partRaw != nil {
			cols, err := convertPartitionColumns(partRaw)
			if err != nil {
				return aqmodel.Source{}, err
			}
			src.PartitionColumns = cols
		}

	case aqmodel.SourceOdbc:
		src.ConnectionString = getString(raw, "connection_string")
		src.LoadQuery = getString(raw, "load_query")

	case aqmodel.SourceDelta:
		src.Location = getString(raw, "location")
		src.StorageConfig = getStringMap(raw, "storage_config")
		if _, ok := raw["version"]; ok {
			n := int64(getInt(raw, "version"))
			src.Version = &n
		}
		if ts := getString(raw, "timestamp"); ts != "" {
			src.Timestamp = &ts
		}

	default:
		return aqmodel.Source{}, aqerr.NewConfigError("unknown_source_kind", fmt.Sprintf("source %q has unknown type %q", name, kind), nil)
	}

	return src, nil
}

func convertStage(raw map[string]any) (aqmodel.Stage, error) {
	name := getString(raw, "name")
	query := getString(raw, "query")
	if name == "" || query == "" {
		return aqmodel.Stage{}, aqerr.NewConfigError("invalid_stage", "stage requires a name and a query", nil)
	}
	return aqmodel.Stage{
		Name:           name,
		Query:          query,
		Show:           getIntPtr(raw, "show"),
		Explain:        getBool(raw, "explain"),
		ExplainAnalyze: getBool(raw, "explain_analyze"),
		PrintSchema:    getBool(raw, "print_schema"),
	}, nil
}
