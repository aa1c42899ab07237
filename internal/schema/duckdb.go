// Package schema implements the C3 schema layer: conversions between the
// universal aqmodel.DataType lattice and the concrete columnar engine's
// physical SQL types, plus the coercion rules that reconcile a declared
// schema against the actual schema of a materialised dataset.
package schema

import (
	"fmt"
	"strings"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// ToDuckDB converts a universal DataType into the SQL type name DuckDB
// expects in a CAST(...) or CREATE TABLE column definition.
func ToDuckDB(dt aqmodel.DataType) (string, error) {
	switch dt.Kind {
	case aqmodel.KindBool:
		return "BOOLEAN", nil
	case aqmodel.KindInt8:
		return "TINYINT", nil
	case aqmodel.KindInt16:
		return "SMALLINT", nil
	case aqmodel.KindInt32:
		return "INTEGER", nil
	case aqmodel.KindInt64:
		return "BIGINT", nil
	case aqmodel.KindUint8:
		return "UTINYINT", nil
	case aqmodel.KindUint16:
		return "USMALLINT", nil
	case aqmodel.KindUint32:
		return "UINTEGER", nil
	case aqmodel.KindUint64:
		return "UBIGINT", nil
	case aqmodel.KindFloat32:
		return "FLOAT", nil
	case aqmodel.KindFloat64:
		return "DOUBLE", nil
	case aqmodel.KindUtf8, aqmodel.KindLargeUtf8:
		return "VARCHAR", nil
	case aqmodel.KindBinary:
		return "BLOB", nil
	case aqmodel.KindFixedSizeBinary:
		return "BLOB", nil
	case aqmodel.KindDate32, aqmodel.KindDate64:
		return "DATE", nil
	case aqmodel.KindTime32, aqmodel.KindTime64:
		return "TIME", nil
	case aqmodel.KindTimestamp:
		if dt.Timezone != "" {
			return "TIMESTAMPTZ", nil
		}
		return "TIMESTAMP", nil
	case aqmodel.KindDuration:
		return "INTERVAL", nil
	case aqmodel.KindIntervalYearMonth, aqmodel.KindIntervalDayTime, aqmodel.KindIntervalMonthDayNano:
		return "INTERVAL", nil
	case aqmodel.KindDecimal128, aqmodel.KindDecimal256:
		return fmt.Sprintf("DECIMAL(%d,%d)", dt.Precision, dt.Scale), nil
	case aqmodel.KindList, aqmodel.KindLargeList:
		elem, err := ToDuckDB(*dt.Elem)
		if err != nil {
			return "", err
		}
		return elem + "[]", nil
	case aqmodel.KindFixedSizeList:
		elem, err := ToDuckDB(*dt.Elem)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[%d]", elem, dt.Width), nil
	case aqmodel.KindStruct:
		parts := make([]string, len(dt.Fields))
		for i, f := range dt.Fields {
			ft, err := ToDuckDB(f.Type)
			if err != nil {
				return "", err
			}
			parts[i] = fmt.Sprintf("%s %s", quoteIdent(f.Name), ft)
		}
		return fmt.Sprintf("STRUCT(%s)", strings.Join(parts, ", ")), nil
	case aqmodel.KindMap:
		k, err := ToDuckDB(*dt.KeyType)
		if err != nil {
			return "", err
		}
		v, err := ToDuckDB(*dt.ValueType)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("MAP(%s, %s)", k, v), nil
	case aqmodel.KindUnion:
		parts := make([]string, len(dt.UnionVariants))
		for i, f := range dt.UnionVariants {
			ft, err := ToDuckDB(f.Type)
			if err != nil {
				return "", err
			}
			parts[i] = fmt.Sprintf("%s %s", quoteIdent(f.Name), ft)
		}
		return fmt.Sprintf("UNION(%s)", strings.Join(parts, ", ")), nil
	case aqmodel.KindDictionary:
		// DuckDB has no dictionary-encoded column type of its own;
		// the value type is the closest physical representation.
		return ToDuckDB(*dt.ValueType)
	default:
		return "", aqerr.NewSchemaValidationError("unknown_type", fmt.Sprintf("cannot convert data type %q to a DuckDB type", dt))
	}
}

// FromDuckDB parses the type name reported by DuckDB's
// information_schema.columns.data_type (or PRAGMA table_info) back into
// the universal DataType lattice. Scalar types, DECIMAL(p,s) and T[]
// lists are covered, with HUGEINT read as int64; any other type name
// (STRUCT, MAP, UNION, ...) returns an unknown_type error.
func FromDuckDB(duckType string) (aqmodel.DataType, error) {
	t := strings.ToUpper(strings.TrimSpace(duckType))
	switch {
	case t == "BOOLEAN":
		return aqmodel.Primitive(aqmodel.KindBool), nil
	case t == "TINYINT":
		return aqmodel.Primitive(aqmodel.KindInt8), nil
	case t == "SMALLINT":
		return aqmodel.Primitive(aqmodel.KindInt16), nil
	case t == "INTEGER":
		return aqmodel.Primitive(aqmodel.KindInt32), nil
	case t == "BIGINT" || t == "HUGEINT":
		return aqmodel.Primitive(aqmodel.KindInt64), nil
	case t == "UTINYINT":
		return aqmodel.Primitive(aqmodel.KindUint8), nil
	case t == "USMALLINT":
		return aqmodel.Primitive(aqmodel.KindUint16), nil
	case t == "UINTEGER":
		return aqmodel.Primitive(aqmodel.KindUint32), nil
	case t == "UBIGINT":
		return aqmodel.Primitive(aqmodel.KindUint64), nil
	case t == "FLOAT" || t == "REAL":
		return aqmodel.Primitive(aqmodel.KindFloat32), nil
	case t == "DOUBLE":
		return aqmodel.Primitive(aqmodel.KindFloat64), nil
	case t == "VARCHAR" || t == "TEXT" || t == "STRING" || t == "BPCHAR":
		return aqmodel.Primitive(aqmodel.KindUtf8), nil
	case t == "BLOB" || t == "BYTEA":
		return aqmodel.Primitive(aqmodel.KindBinary), nil
	case t == "DATE":
		return aqmodel.Primitive(aqmodel.KindDate32), nil
	case t == "TIME":
		return aqmodel.DataType{Kind: aqmodel.KindTime64, Unit: aqmodel.UnitMicrosecond}, nil
	case t == "TIMESTAMP":
		return aqmodel.Timestamp(aqmodel.UnitMicrosecond, ""), nil
	case t == "TIMESTAMPTZ" || t == "TIMESTAMP WITH TIME ZONE":
		return aqmodel.Timestamp(aqmodel.UnitMicrosecond, "UTC"), nil
	case t == "INTERVAL":
		return aqmodel.Primitive(aqmodel.KindIntervalMonthDayNano), nil
	case strings.HasPrefix(t, "DECIMAL"):
		p, s, err := parseDecimalParams(t)
		if err != nil {
			return aqmodel.DataType{}, err
		}
		return aqmodel.Decimal128(p, s), nil
	case strings.HasSuffix(t, "[]"):
		elemType, err := FromDuckDB(strings.TrimSuffix(t, "[]"))
		if err != nil {
			return aqmodel.DataType{}, err
		}
		return aqmodel.ListOf(elemType), nil
	default:
		return aqmodel.DataType{}, aqerr.NewSchemaValidationError("unknown_type", fmt.Sprintf("cannot convert DuckDB type %q to a data type", duckType))
	}
}

func parseDecimalParams(t string) (int, int, error) {
	open := strings.IndexByte(t, '(')
	close := strings.IndexByte(t, ')')
	if open < 0 || close < 0 || close < open {
		return 0, 0, aqerr.NewSchemaValidationError("unknown_type", fmt.Sprintf("malformed decimal type %q", t))
	}
	inner := t[open+1 : close]
	parts := strings.Split(inner, ",")
	if len(parts) != 2 {
		return 0, 0, aqerr.NewSchemaValidationError("unknown_type", fmt.Sprintf("malformed decimal type %q", t))
	}
	var p, s int
	if _, err := fmt.Sscanf(strings.TrimSpace(parts[0]), "%d", &p); err != nil {
		return 0, 0, err
	}
	if _, err := fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &s); err != nil {
		return 0, 0, err
	}
	return p, s, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
