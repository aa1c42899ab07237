package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// localHandle resolves file:// URIs and bare paths against the host
// filesystem.
type localHandle struct{}

func newLocalHandle(_ context.Context, _ map[string]string) (Handle, error) {
	return localHandle{}, nil
}

func (localHandle) Scheme() string { return "file" }

func (localHandle) ResolvePath(location string) (string, error) {
	if !strings.Contains(location, "://") {
		return filepath.Clean(location), nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parsing file location %q: %w", location, err)
	}
	return filepath.Clean(u.Path), nil
}

func (h localHandle) List(_ context.Context, prefix string) ([]string, error) {
	base, err := h.ResolvePath(prefix)
	if err != nil {
		return nil, err
	}
	var out []string
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", base, err)
	}
	return out, nil
}

func (h localHandle) NewWriter(_ context.Context, path string) (io.WriteCloser, error) {
	resolved, err := h.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, fmt.Errorf("creating parent directories for %q: %w", resolved, err)
	}
	f, err := os.Create(resolved)
	if err != nil {
		return nil, fmt.Errorf("creating %q: %w", resolved, err)
	}
	return f, nil
}
