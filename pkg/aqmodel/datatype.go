package aqmodel

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the closed set of physical data types a Field can
// carry. Aqueducts keeps this as a closed enum-with-dispatch rather than
// an open interface hierarchy so that conversions to and from the
// columnar engine's own type system stay exhaustiveness-checkable.
type Kind int

const (
	KindBool Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindUtf8
	KindLargeUtf8
	KindBinary
	KindFixedSizeBinary
	KindDate32
	KindDate64
	KindTime32
	KindTime64
	KindTimestamp
	KindDuration
	KindIntervalYearMonth
	KindIntervalDayTime
	KindIntervalMonthDayNano
	KindDecimal128
	KindDecimal256
	KindList
	KindLargeList
	KindFixedSizeList
	KindStruct
	KindMap
	KindUnion
	KindDictionary
)

// TimeUnit is the resolution carried by Time32/Time64/Timestamp/Duration.
type TimeUnit int

const (
	UnitSecond TimeUnit = iota
	UnitMillisecond
	UnitMicrosecond
	UnitNanosecond
)

func (u TimeUnit) String() string {
	switch u {
	case UnitSecond:
		return "second"
	case UnitMillisecond:
		return "millisecond"
	case UnitMicrosecond:
		return "microsecond"
	case UnitNanosecond:
		return "nanosecond"
	default:
		return "second"
	}
}

func parseTimeUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "second", "s":
		return UnitSecond, nil
	case "millisecond", "ms":
		return UnitMillisecond, nil
	case "microsecond", "us":
		return UnitMicrosecond, nil
	case "nanosecond", "ns":
		return UnitNanosecond, nil
	default:
		return 0, fmt.Errorf("unknown time unit %q", s)
	}
}

// UnionMode distinguishes sparse from dense union physical layouts.
type UnionMode int

const (
	UnionSparse UnionMode = iota
	UnionDense
)

// DataType is the universal type lattice described in the data model:
// a tagged variant covering every primitive and nested shape the
// columnar engine and the transactional table format both understand.
type DataType struct {
	Kind Kind

	// FixedSizeBinary / FixedSizeList
	Width int

	// Time32/Time64/Timestamp/Duration
	Unit TimeUnit
	// Timestamp only
	Timezone string // "" means naive/no timezone

	// Decimal128/Decimal256
	Precision int
	Scale     int

	// List/LargeList/FixedSizeList: element type
	Elem *DataType

	// Struct: ordered fields
	Fields []Field

	// Map
	KeyType      *DataType
	ValueType    *DataType
	KeysSorted   bool

	// Union
	UnionMode     UnionMode
	UnionVariants []Field

	// Dictionary
	IndexType *DataType
	// ValueType reused for dictionary value type
}

// Field is (name, data_type, nullable, description?).
type Field struct {
	Name        string
	Type        DataType
	Nullable    bool
	Description string
}

func Primitive(k Kind) DataType { return DataType{Kind: k} }

func Decimal128(precision, scale int) DataType {
	return DataType{Kind: KindDecimal128, Precision: precision, Scale: scale}
}

func Decimal256(precision, scale int) DataType {
	return DataType{Kind: KindDecimal256, Precision: precision, Scale: scale}
}

func Timestamp(unit TimeUnit, timezone string) DataType {
	return DataType{Kind: KindTimestamp, Unit: unit, Timezone: timezone}
}

func ListOf(elem DataType) DataType {
	e := elem
	return DataType{Kind: KindList, Elem: &e}
}

func StructOf(fields ...Field) DataType {
	return DataType{Kind: KindStruct, Fields: fields}
}

func MapOf(key, value DataType, keysSorted bool) DataType {
	k, v := key, value
	return DataType{Kind: KindMap, KeyType: &k, ValueType: &v, KeysSorted: keysSorted}
}

// kindNames maps the canonical lowercase type-string tokens onto Kind,
// for the leaf (parameter-less) variants.
var kindNames = map[string]Kind{
	"boolean": KindBool, "bool": KindBool,
	"int8": KindInt8, "int16": KindInt16, "int32": KindInt32, "int64": KindInt64,
	"uint8": KindUint8, "uint16": KindUint16, "uint32": KindUint32, "uint64": KindUint64,
	"float32": KindFloat32, "float64": KindFloat64,
	"utf8": KindUtf8, "string": KindUtf8,
	"large_utf8": KindLargeUtf8, "largeutf8": KindLargeUtf8,
	"binary": KindBinary,
	"date32": KindDate32, "date64": KindDate64,
	"duration": KindDuration,
	"interval_yearmonth": KindIntervalYearMonth,
	"interval_daytime":   KindIntervalDayTime,
	"interval_monthdaynano": KindIntervalMonthDayNano,
}

// ParseTypeString parses the grammar sketched in the data model: leaf
// tokens like "int32"/"string", and parameterised forms such as
// "list<string>", "struct<a:int32,b:string>", "decimal<10,2>",
// "timestamp<millisecond,UTC>", "fixed_size_binary<16>",
// "map<string,int32>", "dictionary<int32,string>".
func ParseTypeString(s string) (DataType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DataType{}, fmt.Errorf("empty type string")
	}
	open := strings.IndexByte(s, '<')
	if open < 0 {
		name := strings.ToLower(s)
		if k, ok := kindNames[name]; ok {
			return DataType{Kind: k}, nil
		}
		return DataType{}, fmt.Errorf("unknown type %q", s)
	}
	if !strings.HasSuffix(s, ">") {
		return DataType{}, fmt.Errorf("malformed type string %q: missing closing '>'", s)
	}
	name := strings.ToLower(strings.TrimSpace(s[:open]))
	inner := s[open+1 : len(s)-1]

	switch name {
	case "list":
		elem, err := ParseTypeString(inner)
		if err != nil {
			return DataType{}, fmt.Errorf("list element: %w", err)
		}
		return ListOf(elem), nil
	case "large_list":
		elem, err := ParseTypeString(inner)
		if err != nil {
			return DataType{}, fmt.Errorf("large_list element: %w", err)
		}
		return DataType{Kind: KindLargeList, Elem: &elem}, nil
	case "fixed_size_list":
		parts := splitTopLevel(inner, ',')
		if len(parts) != 2 {
			return DataType{}, fmt.Errorf("fixed_size_list expects <elem,width>, got %q", inner)
		}
		elem, err := ParseTypeString(parts[0])
		if err != nil {
			return DataType{}, err
		}
		width, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return DataType{}, fmt.Errorf("fixed_size_list width: %w", err)
		}
		return DataType{Kind: KindFixedSizeList, Elem: &elem, Width: width}, nil
	case "fixed_size_binary":
		width, err := strconv.Atoi(strings.TrimSpace(inner))
		if err != nil {
			return DataType{}, fmt.Errorf("fixed_size_binary width: %w", err)
		}
		return DataType{Kind: KindFixedSizeBinary, Width: width}, nil
	case "decimal", "decimal128":
		parts := splitTopLevel(inner, ',')
		if len(parts) != 2 {
			return DataType{}, fmt.Errorf("decimal expects <precision,scale>, got %q", inner)
		}
		p, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return DataType{}, fmt.Errorf("decimal precision: %w", err)
		}
		sc, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return DataType{}, fmt.Errorf("decimal scale: %w", err)
		}
		return Decimal128(p, sc), nil
	case "decimal256":
		parts := splitTopLevel(inner, ',')
		if len(parts) != 2 {
			return DataType{}, fmt.Errorf("decimal256 expects <precision,scale>, got %q", inner)
		}
		p, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
		sc, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
		return Decimal256(p, sc), nil
	case "duration":
		u, err := parseTimeUnit(inner)
		if err != nil {
			return DataType{}, err
		}
		return DataType{Kind: KindDuration, Unit: u}, nil
	case "time32", "time64":
		u, err := parseTimeUnit(inner)
		if err != nil {
			return DataType{}, err
		}
		k := KindTime32
		if name == "time64" {
			k = KindTime64
		}
		return DataType{Kind: k, Unit: u}, nil
	case "timestamp":
		parts := splitTopLevel(inner, ',')
		u, err := parseTimeUnit(parts[0])
		if err != nil {
			return DataType{}, err
		}
		tz := ""
		if len(parts) > 1 {
			tz = strings.TrimSpace(parts[1])
		}
		return Timestamp(u, tz), nil
	case "struct":
		fields, err := parseStructFields(inner)
		if err != nil {
			return DataType{}, fmt.Errorf("struct: %w", err)
		}
		return StructOf(fields...), nil
	case "map":
		parts := splitTopLevel(inner, ',')
		if len(parts) != 2 {
			return DataType{}, fmt.Errorf("map expects <key,value>, got %q", inner)
		}
		k, err := ParseTypeString(parts[0])
		if err != nil {
			return DataType{}, fmt.Errorf("map key: %w", err)
		}
		v, err := ParseTypeString(parts[1])
		if err != nil {
			return DataType{}, fmt.Errorf("map value: %w", err)
		}
		return MapOf(k, v, false), nil
	case "dictionary":
		parts := splitTopLevel(inner, ',')
		if len(parts) != 2 {
			return DataType{}, fmt.Errorf("dictionary expects <index,value>, got %q", inner)
		}
		idx, err := ParseTypeString(parts[0])
		if err != nil {
			return DataType{}, fmt.Errorf("dictionary index: %w", err)
		}
		val, err := ParseTypeString(parts[1])
		if err != nil {
			return DataType{}, fmt.Errorf("dictionary value: %w", err)
		}
		return DataType{Kind: KindDictionary, IndexType: &idx, ValueType: &val}, nil
	case "union":
		fields, err := parseStructFields(inner)
		if err != nil {
			return DataType{}, fmt.Errorf("union: %w", err)
		}
		return DataType{Kind: KindUnion, UnionMode: UnionSparse, UnionVariants: fields}, nil
	default:
		return DataType{}, fmt.Errorf("unknown parameterised type %q", name)
	}
}

func parseStructFields(inner string) ([]Field, error) {
	parts := splitTopLevel(inner, ',')
	fields := make([]Field, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		idx := strings.IndexByte(p, ':')
		if idx < 0 {
			return nil, fmt.Errorf("malformed struct field %q, expected name:type", p)
		}
		name := strings.TrimSpace(p[:idx])
		typeStr := strings.TrimSpace(p[idx+1:])
		nullable := true
		if strings.HasSuffix(typeStr, "?") {
			typeStr = strings.TrimSuffix(typeStr, "?")
		} else if strings.HasPrefix(typeStr, "!") {
			typeStr = strings.TrimPrefix(typeStr, "!")
			nullable = false
		}
		dt, err := ParseTypeString(typeStr)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Name: name, Type: dt, Nullable: nullable})
	}
	return fields, nil
}

// splitTopLevel splits s on sep, ignoring occurrences nested inside
// matching '<'/'>' pairs (so struct<a:list<int32>,b:string> splits into
// two fields, not four).
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// String renders the canonical type-string form, the inverse of
// ParseTypeString for the subset of shapes this implementation produces.
func (d DataType) String() string {
	switch d.Kind {
	case KindBool:
		return "boolean"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindUtf8:
		return "string"
	case KindLargeUtf8:
		return "large_utf8"
	case KindBinary:
		return "binary"
	case KindFixedSizeBinary:
		return fmt.Sprintf("fixed_size_binary<%d>", d.Width)
	case KindDate32:
		return "date32"
	case KindDate64:
		return "date64"
	case KindTime32:
		return fmt.Sprintf("time32<%s>", d.Unit)
	case KindTime64:
		return fmt.Sprintf("time64<%s>", d.Unit)
	case KindTimestamp:
		if d.Timezone == "" {
			return fmt.Sprintf("timestamp<%s>", d.Unit)
		}
		return fmt.Sprintf("timestamp<%s,%s>", d.Unit, d.Timezone)
	case KindDuration:
		return fmt.Sprintf("duration<%s>", d.Unit)
	case KindIntervalYearMonth:
		return "interval_yearmonth"
	case KindIntervalDayTime:
		return "interval_daytime"
	case KindIntervalMonthDayNano:
		return "interval_monthdaynano"
	case KindDecimal128:
		return fmt.Sprintf("decimal<%d,%d>", d.Precision, d.Scale)
	case KindDecimal256:
		return fmt.Sprintf("decimal256<%d,%d>", d.Precision, d.Scale)
	case KindList:
		return fmt.Sprintf("list<%s>", d.Elem.String())
	case KindLargeList:
		return fmt.Sprintf("large_list<%s>", d.Elem.String())
	case KindFixedSizeList:
		return fmt.Sprintf("fixed_size_list<%s,%d>", d.Elem.String(), d.Width)
	case KindStruct:
		return fmt.Sprintf("struct<%s>", fieldsString(d.Fields))
	case KindMap:
		return fmt.Sprintf("map<%s,%s>", d.KeyType.String(), d.ValueType.String())
	case KindUnion:
		return fmt.Sprintf("union<%s>", fieldsString(d.UnionVariants))
	case KindDictionary:
		return fmt.Sprintf("dictionary<%s,%s>", d.IndexType.String(), d.ValueType.String())
	default:
		return "unknown"
	}
}

func fieldsString(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name + ":" + f.Type.String()
	}
	return strings.Join(parts, ",")
}

// Equal reports whether two data types describe the same shape by
// comparing their canonical String forms: nested struct field names and
// types are compared, field nullability and descriptions are not.
func (d DataType) Equal(other DataType) bool {
	return d.String() == other.String()
}
