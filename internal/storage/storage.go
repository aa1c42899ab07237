// Package storage defines the object-store handle interface used by the
// source registrar and destination writer, and the local-filesystem and
// in-memory implementations this repository actually exercises. Remote
// schemes (s3/s3a, gs/gcs, az/azure/abfs/abfss) are deliberately out of
// scope per the runtime's external-collaborator boundary; SchemeOf
// recognises them and Register lets a caller supply a real
// implementation without the rest of the engine changing. Open fails
// with unsupported_scheme for a scheme with no registered factory.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
)

// Handle is a minimal object-store surface: enough to materialise
// file/directory sources and write file/partitioned destinations
// without the rest of the engine knowing which backend is in play.
type Handle interface {
	// Scheme is the URI scheme this handle serves ("file", "memory", ...).
	Scheme() string
	// ResolvePath maps a pipeline-document location URI to whatever
	// string the columnar engine's reader/writer table functions
	// expect (e.g. a local filesystem path for DuckDB's read_csv_auto).
	ResolvePath(location string) (string, error)
	// List enumerates objects under a prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// NewWriter opens an object for writing at path.
	NewWriter(ctx context.Context, path string) (io.WriteCloser, error)
}

// Factory constructs a Handle for a scheme from storage_config overlaid
// on environment defaults.
type Factory func(ctx context.Context, storageConfig map[string]string) (Handle, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{
		"file":   newLocalHandle,
		"memory": newMemoryHandle,
	}
)

// Register installs a Factory for a URI scheme, allowing a caller to
// plug in a real S3/GCS/Azure backend without modifying the registrar.
func Register(scheme string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[scheme] = f
}

// Open resolves location's scheme and constructs the matching Handle.
func Open(ctx context.Context, location string, storageConfig map[string]string) (Handle, error) {
	scheme, err := SchemeOf(location)
	if err != nil {
		return nil, err
	}

	mu.RLock()
	f, ok := factories[scheme]
	mu.RUnlock()
	if !ok {
		return nil, aqerr.NewSourceError("", "unsupported_scheme", fmt.Sprintf("no storage handle registered for scheme %q", scheme), nil)
	}
	return f(ctx, ResolveStorageConfig(scheme, storageConfig))
}

// SchemeOf extracts the URI scheme from a pipeline-document location,
// defaulting to "file" for bare filesystem paths.
func SchemeOf(location string) (string, error) {
	if !strings.Contains(location, "://") {
		return "file", nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", aqerr.NewConfigError("invalid_location", fmt.Sprintf("cannot parse location %q", location), err)
	}
	switch u.Scheme {
	case "file", "memory":
		return u.Scheme, nil
	case "s3", "s3a":
		return "s3", nil
	case "gs", "gcs":
		return "gs", nil
	case "az", "azure", "abfs", "abfss":
		return "az", nil
	default:
		return u.Scheme, nil
	}
}
