package deltatable

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aqueducts-go/aqueducts/pkg/aqmodel"
)

func TestCreate_RefusesWhenTableAlreadyExists(t *testing.T) {
	loc := filepath.Join(t.TempDir(), "events")

	_, err := Create(loc, nil, nil, nil)
	require.NoError(t, err)

	_, err = Create(loc, nil, nil, nil)
	require.Error(t, err)
}

func TestOpen_LatestReturnsMostRecentVersion(t *testing.T) {
	loc := filepath.Join(t.TempDir(), "events")
	schema := []aqmodel.Field{{Name: "id", Type: aqmodel.Primitive(aqmodel.KindInt64)}}

	tbl, err := Create(loc, schema, nil, nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), tbl.Commit.Version)

	require.NoError(t, writeCommit(loc, Commit{
		Version:     1,
		Timestamp:   time.Now(),
		Operation:   "APPEND",
		ActiveFiles: []string{"part-0001.parquet"},
		Schema:      schema,
	}))

	opened, err := Open(loc, OpenOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(1), opened.Commit.Version)
	require.Equal(t, []string{"part-0001.parquet"}, opened.Commit.ActiveFiles)
}

func TestOpen_VersionTimeTravelPinsToRequestedVersion(t *testing.T) {
	loc := filepath.Join(t.TempDir(), "events")
	_, err := Create(loc, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, writeCommit(loc, Commit{Version: 1, Timestamp: time.Now(), Operation: "APPEND"}))
	require.NoError(t, writeCommit(loc, Commit{Version: 2, Timestamp: time.Now(), Operation: "APPEND"}))

	v := int64(1)
	opened, err := Open(loc, OpenOptions{Version: &v})
	require.NoError(t, err)
	require.Equal(t, int64(1), opened.Commit.Version)
}

func TestOpen_UnknownVersionFails(t *testing.T) {
	loc := filepath.Join(t.TempDir(), "events")
	_, err := Create(loc, nil, nil, nil)
	require.NoError(t, err)

	v := int64(99)
	_, err = Open(loc, OpenOptions{Version: &v})
	require.Error(t, err)
}

func TestOpen_TimestampBeforeEarliestVersionFails(t *testing.T) {
	loc := filepath.Join(t.TempDir(), "events")
	_, err := Create(loc, nil, nil, nil)
	require.NoError(t, err)

	early := "1999-01-01T00:00:00Z"
	_, err = Open(loc, OpenOptions{Timestamp: &early})
	require.Error(t, err)
}

func TestOpen_MissingTableFails(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"), OpenOptions{})
	require.Error(t, err)
}

func TestExists(t *testing.T) {
	loc := filepath.Join(t.TempDir(), "events")
	require.False(t, Exists(loc))

	_, err := Create(loc, nil, nil, nil)
	require.NoError(t, err)
	require.True(t, Exists(loc))
}
