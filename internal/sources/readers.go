package sources

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// readTableFunction builds the DuckDB table-function call that reads a
// single file at path under the given format, e.g. read_csv_auto(...).
func readTableFunction(format aqmodel.FileFormat, path string) (string, error) {
	quoted := quoteLiteral(path)
	switch format.Kind {
	case aqmodel.FormatCsv:
		args := []string{quoted, fmt.Sprintf("header=%s", boolLiteral(format.HasHeader))}
		if format.Delimiter != "" {
			args = append(args, fmt.Sprintf("delim=%s", quoteLiteral(format.Delimiter)))
		}
		return fmt.Sprintf("read_csv_auto(%s)", strings.Join(args, ", ")), nil
	case aqmodel.FormatParquet:
		return fmt.Sprintf("read_parquet(%s)", quoted), nil
	case aqmodel.FormatJson:
		return fmt.Sprintf("read_json_auto(%s)", quoted), nil
	default:
		return "", aqerr.NewConfigError("invalid_file_format", fmt.Sprintf("unsupported file format %q", format.Kind), nil)
	}
}

// readDirectoryTableFunction builds the DuckDB table-function call for
// reading every file matching a directory glob, with Hive-style
// partition column discovery always enabled.
func readDirectoryTableFunction(format aqmodel.FileFormat, dirPath string) (string, error) {
	glob := strings.TrimRight(dirPath, "/") + "/**/*"
	switch format.Kind {
	case aqmodel.FormatCsv:
		glob = strings.TrimRight(dirPath, "/") + "/**/*.csv"
	case aqmodel.FormatParquet:
		glob = strings.TrimRight(dirPath, "/") + "/**/*.parquet"
	case aqmodel.FormatJson:
		glob = strings.TrimRight(dirPath, "/") + "/**/*.json"
	}

	quoted := quoteLiteral(glob)
	switch format.Kind {
	case aqmodel.FormatCsv:
		args := []string{quoted, fmt.Sprintf("header=%s", boolLiteral(format.HasHeader)), "hive_partitioning=1"}
		if format.Delimiter != "" {
			args = append(args, fmt.Sprintf("delim=%s", quoteLiteral(format.Delimiter)))
		}
		return fmt.Sprintf("read_csv_auto(%s)", strings.Join(args, ", ")), nil
	case aqmodel.FormatParquet:
		return fmt.Sprintf("read_parquet(%s, hive_partitioning=1)", quoted), nil
	case aqmodel.FormatJson:
		return fmt.Sprintf("read_json_auto(%s, hive_partitioning=1)", quoted), nil
	default:
		return "", aqerr.NewConfigError("invalid_file_format", fmt.Sprintf("unsupported file format %q", format.Kind), nil)
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func boolLiteral(b bool) string {
	return strconv.FormatBool(b)
}
