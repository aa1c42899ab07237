// Package aqmodel holds the version-agnostic in-memory representation of
// an Aqueducts pipeline: sources, leveled stages and an optional
// destination, plus the universal field/data-type lattice they share.
package aqmodel

import "fmt"

// CurrentVersion is the schema-compat tag assumed when a pipeline
// document omits "version".
const CurrentVersion = "v2"

// Pipeline is the tuple (version, sources, stages, destination?).
type Pipeline struct {
	Version     string
	Sources     []Source
	Stages      [][]Stage // ordered sequence of non-empty levels
	Destination *Destination
}

// SourceKind discriminates the closed Source tagged union.
type SourceKind string

const (
	SourceInMemory  SourceKind = "in_memory"
	SourceFile      SourceKind = "file"
	SourceDirectory SourceKind = "directory"
	SourceOdbc      SourceKind = "odbc"
	SourceDelta     SourceKind = "delta"
)

// Source is a tagged variant; only the fields relevant to Kind are set.
type Source struct {
	Kind SourceKind
	Name string

	// File / Directory
	Format        FileFormat
	Location      string
	StorageConfig map[string]string

	// Directory only
	PartitionColumns []PartitionColumn

	// Odbc
	ConnectionString string
	LoadQuery        string

	// Delta
	Version   *int64
	Timestamp *string // RFC3339
}

// PartitionColumn is a (name, data_type) pair used for Hive-style
// directory partitioning.
type PartitionColumn struct {
	Name string
	Type DataType
}

// FileFormatKind discriminates the closed FileFormat tagged union.
type FileFormatKind string

const (
	FormatCsv     FileFormatKind = "csv"
	FormatParquet FileFormatKind = "parquet"
	FormatJson    FileFormatKind = "json"
)

// FileFormat carries format-specific options for File/Directory sources
// and File destinations.
type FileFormat struct {
	Kind FileFormatKind

	// Csv
	HasHeader bool
	Delimiter string

	// Csv / Parquet / Json source options
	Schema []Field

	// Parquet destination options (arbitrary passthrough knobs, e.g.
	// compression codec)
	Options map[string]string
}

// DestinationKind discriminates the closed Destination tagged union.
type DestinationKind string

const (
	DestInMemory DestinationKind = "in_memory"
	DestFile     DestinationKind = "file"
	DestDelta    DestinationKind = "delta"
	DestOdbc     DestinationKind = "odbc"
)

// Destination is a tagged variant; only the fields relevant to Kind are set.
type Destination struct {
	Kind DestinationKind
	Name string

	// File
	Location         string
	Format           FileFormat
	SingleFile       bool
	PartitionColumns []string
	StorageConfig    map[string]string

	// Delta
	WriteMode       WriteMode
	TableProperties  map[string]*string
	Metadata         map[string]string
	Schema           []Field

	// Odbc
	ConnectionString string
	BatchSize        int
}

// WriteModeKind discriminates the closed WriteMode tagged union shared by
// Delta and ODBC destinations.
type WriteModeKind string

const (
	WriteAppend  WriteModeKind = "append"
	WriteUpsert  WriteModeKind = "upsert"
	WriteReplace WriteModeKind = "replace"
	WriteCustom  WriteModeKind = "custom" // ODBC only
)

// WriteMode is a tagged variant covering Append / Upsert{merge_keys} /
// Replace{predicates} (Delta) and Append / Custom{pre_insert?, insert}
// (ODBC).
type WriteMode struct {
	Kind WriteModeKind

	// Upsert
	MergeKeys []string

	// Replace
	Predicates []ReplaceCondition

	// Odbc Custom
	PreInsert *string
	Insert    string
}

// ReplaceCondition is one `column = value` equality in a Replace
// predicate; Value is the string-encoded literal, interpreted against
// the column's declared type at execution time.
type ReplaceCondition struct {
	Column string
	Value  string
}

// Stage is one named SQL query within a level, plus what the stage
// executor additionally does with its materialised result (show,
// explain, print schema) beyond registering it under its name.
type Stage struct {
	Name           string
	Query          string
	Show           *int // nil = no show; 0 = unlimited
	Explain        bool
	ExplainAnalyze bool
	PrintSchema    bool
}

// SourceNames returns every declared source name, in document order.
func (p Pipeline) SourceNames() []string {
	names := make([]string, len(p.Sources))
	for i, s := range p.Sources {
		names[i] = s.Name
	}
	return names
}

// StageNames returns every declared stage name across all levels, in
// document order.
func (p Pipeline) StageNames() []string {
	var names []string
	for _, level := range p.Stages {
		for _, s := range level {
			names = append(names, s.Name)
		}
	}
	return names
}

// LastStage returns the final stage in the final level, which the stage
// executor treats as the pipeline's output dataset.
func (p Pipeline) LastStage() (Stage, bool) {
	if len(p.Stages) == 0 {
		return Stage{}, false
	}
	last := p.Stages[len(p.Stages)-1]
	if len(last) == 0 {
		return Stage{}, false
	}
	return last[len(last)-1], true
}

// EffectiveBatchSize returns BatchSize, defaulting to 1000 when unset,
// per the ODBC destination contract.
func (d Destination) EffectiveBatchSize() int {
	if d.BatchSize <= 0 {
		return 1000
	}
	return d.BatchSize
}

func (s Source) String() string {
	return fmt.Sprintf("%s(%s)", s.Kind, s.Name)
}

func (d Destination) String() string {
	return fmt.Sprintf("%s(%s)", d.Kind, d.Name)
}
