// Package deltatable implements a minimal ACID transactional table
// format standing in for the "Delta-like table format library" the
// runtime treats as an external collaborator: a JSON commit log
// recording each version's active data files, schema and partition
// columns, plus Parquet data files written and read through the
// session's DuckDB connection. It supports version/timestamp time
// travel and the Append/Upsert/Replace write modes §4.6 requires.
package deltatable

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

// Commit is one entry in the commit log: the table's complete state as
// of this version (not a diff), which keeps time travel and concurrent
// readers simple at the cost of log size.
type Commit struct {
	Version          int64             `json:"version"`
	Timestamp        time.Time         `json:"timestamp"`
	Operation        string            `json:"operation"`
	ActiveFiles      []string          `json:"active_files"`
	Schema           []aqmodel.Field   `json:"schema"`
	PartitionColumns []string          `json:"partition_columns,omitempty"`
	TableProperties  map[string]*string `json:"table_properties,omitempty"`
}

func logDir(location string) string {
	return filepath.Join(location, "_delta_log")
}

func commitPath(location string, version int64) string {
	return filepath.Join(logDir(location), fmt.Sprintf("%020d.json", version))
}

// readLog lists every commit present at location, in ascending version
// order.
func readLog(location string) ([]Commit, error) {
	dir := logDir(location)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading commit log %q: %w", dir, err)
	}

	var commits []Commit
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading commit %q: %w", e.Name(), err)
		}
		var c Commit
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decoding commit %q: %w", e.Name(), err)
		}
		commits = append(commits, c)
	}
	sort.Slice(commits, func(i, j int) bool { return commits[i].Version < commits[j].Version })
	return commits, nil
}

// writeCommit appends a new commit version, writing to a temp file
// first and renaming into place so a crash mid-write never leaves a
// partially-written commit visible to readers.
func writeCommit(location string, c Commit) error {
	dir := logDir(location)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating commit log directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding commit: %w", err)
	}
	final := commitPath(location, c.Version)
	tmp := final + ".tmp-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing commit: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("committing version %d: %w", c.Version, err)
	}
	return nil
}

// Exists reports whether a table has been created at location.
func Exists(location string) bool {
	commits, err := readLog(location)
	return err == nil && len(commits) > 0
}

// latestAtVersion returns the commit whose version is exactly v, or an
// error if the log has no such version.
func latestAtVersion(commits []Commit, v int64) (*Commit, error) {
	var found *Commit
	for i := range commits {
		if commits[i].Version == v {
			found = &commits[i]
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("version %d not found", v)
	}
	return found, nil
}

func latestAtOrBeforeTime(commits []Commit, ts time.Time) (*Commit, error) {
	var found *Commit
	for i := range commits {
		if commits[i].Timestamp.After(ts) {
			break
		}
		found = &commits[i]
	}
	if found == nil {
		return nil, fmt.Errorf("no version exists at or before %s", ts.Format(time.RFC3339))
	}
	return found, nil
}

func latest(commits []Commit) (*Commit, error) {
	if len(commits) == 0 {
		return nil, fmt.Errorf("table has no commits")
	}
	return &commits[len(commits)-1], nil
}
