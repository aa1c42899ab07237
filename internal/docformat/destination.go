package docformat

import (
	"fmt"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

func convertDestination(raw map[string]any) (aqmodel.Destination, error) {
	kind := aqmodel.DestinationKind(getString(raw, "type"))
	name := getString(raw, "name")
	if name == "" {
		return aqmodel.Destination{}, aqerr.NewConfigError("invalid_destination", "destination is missing a name", nil)
	}

	dst := aqmodel.Destination{Kind: kind, Name: name}

	switch kind {
	case aqmodel.DestInMemory:
		// nothing further to decode

	case aqmodel.DestFile:
		dst.Location = getString(raw, "location")
		dst.StorageConfig = getStringMap(raw, "storage_config")
		dst.SingleFile = getBool(raw, "single_file")
		dst.PartitionColumns = getStringList(raw, "partition_columns")
		formatRaw, ok := raw["format"].(map[string]any)
		if !ok {
			return aqmodel.Destination{}, aqerr.NewConfigError("invalid_destination", fmt.Sprintf("file destination %q requires a format", name), nil)
		}
		format, err := convertFileFormat(formatRaw)
		if err != nil {
			return aqmodel.Destination{}, err
		}
		dst.Format = format

	case aqmodel.DestDelta:
		dst.Location = getString(raw, "location")
		dst.StorageConfig = getStringMap(raw, "storage_config")
		dst.PartitionColumns = getStringList(raw, "partition_columns")
		dst.TableProperties = getOptStringMap(raw, "table_properties")
		dst.Metadata = getStringMap(raw, "metadata")
		if schemaRaw := getMapList(raw, "schema"); schemaRaw != nil {
			fields, err := convertFields(schemaRaw)
			if err != nil {
				return aqmodel.Destination{}, err
			}
			dst.Schema = fields
		}
		wm, err := convertWriteMode(raw, false)
		if err != nil {
			return aqmodel.Destination{}, err
		}
		dst.WriteMode = wm

	case aqmodel.DestOdbc:
		dst.ConnectionString = getString(raw, "connection_string")
		dst.BatchSize = getInt(raw, "batch_size")
		wm, err := convertWriteMode(raw, true)
		if err != nil {
			return aqmodel.Destination{}, err
		}
		dst.WriteMode = wm

	default:
		return aqmodel.Destination{}, aqerr.NewConfigError("unknown_destination_kind", fmt.Sprintf("destination %q has unknown type %q", name, kind), nil)
	}

	return dst, nil
}

func convertWriteMode(raw map[string]any, odbc bool) (aqmodel.WriteMode, error) {
	wmRaw, ok := raw["write_mode"].(map[string]any)
	if !ok {
		return aqmodel.WriteMode{}, nil
	}
	operation := aqmodel.WriteModeKind(getString(wmRaw, "operation"))

	switch operation {
	case aqmodel.WriteAppend:
		return aqmodel.WriteMode{Kind: aqmodel.WriteAppend}, nil

	case aqmodel.WriteUpsert:
		if odbc {
			return aqmodel.WriteMode{}, aqerr.NewConfigError("invalid_write_mode", "odbc destinations do not support upsert", nil)
		}
		keys := getStringList(wmRaw, "merge_keys")
		return aqmodel.WriteMode{Kind: aqmodel.WriteUpsert, MergeKeys: keys}, nil

	case aqmodel.WriteReplace:
		if odbc {
			return aqmodel.WriteMode{}, aqerr.NewConfigError("invalid_write_mode", "odbc destinations do not support replace", nil)
		}
		predRaw := getMapList(wmRaw, "predicates")
		preds := make([]aqmodel.ReplaceCondition, 0, len(predRaw))
		for _, p := range predRaw {
			preds = append(preds, aqmodel.ReplaceCondition{
				Column: getString(p, "column"),
				Value:  getString(p, "value"),
			})
		}
		return aqmodel.WriteMode{Kind: aqmodel.WriteReplace, Predicates: preds}, nil

	case aqmodel.WriteCustom:
		if !odbc {
			return aqmodel.WriteMode{}, aqerr.NewConfigError("invalid_write_mode", "custom write_mode is only valid for odbc destinations", nil)
		}
		wm := aqmodel.WriteMode{Kind: aqmodel.WriteCustom, Insert: getString(wmRaw, "insert")}
		if pre := getString(wmRaw, "pre_insert"); pre != "" {
			wm.PreInsert = &pre
		}
		return wm, nil

	default:
		return aqmodel.WriteMode{}, aqerr.NewConfigError("invalid_write_mode", fmt.Sprintf("unknown write_mode operation %q", operation), nil)
	}
}
