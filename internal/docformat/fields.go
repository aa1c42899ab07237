package docformat

import (
	"fmt"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getBool(m map[string]any, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func getInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func getIntPtr(m map[string]any, key string) *int {
	if _, ok := m[key]; !ok {
		return nil
	}
	n := getInt(m, key)
	return &n
}

func getStringMap(m map[string]any, key string) map[string]string {
	raw, ok := m[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func getOptStringMap(m map[string]any, key string) map[string]*string {
	raw, ok := m[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]*string, len(raw))
	for k, v := range raw {
		if v == nil {
			out[k] = nil
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = &s
		}
	}
	return out
}

func getMapList(m map[string]any, key string) []map[string]any {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if mm, ok := v.(map[string]any); ok {
			out = append(out, mm)
		}
	}
	return out
}

func getStringList(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func convertFields(raw []map[string]any) ([]aqmodel.Field, error) {
	fields := make([]aqmodel.Field, 0, len(raw))
	for _, f := range raw {
		name := getString(f, "name")
		typeStr := getString(f, "type")
		if name == "" || typeStr == "" {
			return nil, aqerr.NewConfigError("invalid_schema", "schema field requires name and type", nil)
		}
		dt, err := aqmodel.ParseTypeString(typeStr)
		if err != nil {
			return nil, aqerr.NewConfigError("invalid_schema", fmt.Sprintf("field %q: %v", name, err), err)
		}
		nullable := true
		if v, ok := f["nullable"]; ok {
			if b, ok := v.(bool); ok {
				nullable = b
			}
		}
		fields = append(fields, aqmodel.Field{
			Name:        name,
			Type:        dt,
			Nullable:    nullable,
			Description: getString(f, "description"),
		})
	}
	return fields, nil
}

func convertFileFormat(raw map[string]any) (aqmodel.FileFormat, error) {
	kind := getString(raw, "type")
	ff := aqmodel.FileFormat{Kind: aqmodel.FileFormatKind(kind)}
	switch ff.Kind {
	case aqmodel.FormatCsv:
		ff.HasHeader = true
		if v, ok := raw["has_header"]; ok {
			if b, ok := v.(bool); ok {
				ff.HasHeader = b
			}
		}
		ff.Delimiter = getString(raw, "delimiter")
		if ff.Delimiter == "" {
			ff.Delimiter = ","
		}
		if schemaRaw := getMapList(raw, "schema"); schemaRaw != nil {
			fields, err := convertFields(schemaRaw)
			if err != nil {
				return aqmodel.FileFormat{}, err
			}
			ff.Schema = fields
		}
	case aqmodel.FormatParquet:
		ff.Options = getStringMap(raw, "options")
		if schemaRaw := getMapList(raw, "schema"); schemaRaw != nil {
			fields, err := convertFields(schemaRaw)
			if err != nil {
				return aqmodel.FileFormat{}, err
			}
			ff.Schema = fields
		}
	case aqmodel.FormatJson:
		if schemaRaw := getMapList(raw, "schema"); schemaRaw != nil {
			fields, err := convertFields(schemaRaw)
			if err != nil {
				return aqmodel.FileFormat{}, err
			}
			ff.Schema = fields
		}
	default:
		return aqmodel.FileFormat{}, aqerr.NewConfigError("unknown_format", fmt.Sprintf("unknown file format %q", kind), nil)
	}
	return ff, nil
}

func convertPartitionColumns(raw []map[string]any) ([]aqmodel.PartitionColumn, error) {
	out := make([]aqmodel.PartitionColumn, 0, len(raw))
	for _, p := range raw {
		name := getString(p, "name")
		typeStr := getString(p, "type")
		dt, err := aqmodel.ParseTypeString(typeStr)
		if err != nil {
			return nil, aqerr.NewConfigError("invalid_schema", fmt.Sprintf("partition column %q: %v", name, err), err)
		}
		out = append(out, aqmodel.PartitionColumn{Name: name, Type: dt})
	}
	return out, nil
}
