package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// memoryHandle is a process-local, in-process object store, useful for
// tests and for pipelines that write transient destinations that are
// never meant to survive the process. Objects are addressed by the path
// portion of a memory:// URI.
type memoryHandle struct {
	mu      *sync.Mutex
	objects map[string][]byte
}

var sharedMemoryStore = struct {
	mu      sync.Mutex
	objects map[string][]byte
}{objects: make(map[string][]byte)}

func newMemoryHandle(_ context.Context, _ map[string]string) (Handle, error) {
	return memoryHandle{mu: &sharedMemoryStore.mu, objects: sharedMemoryStore.objects}, nil
}

func (memoryHandle) Scheme() string { return "memory" }

func (memoryHandle) ResolvePath(location string) (string, error) {
	path := location
	if idx := strings.Index(location, "://"); idx >= 0 {
		path = location[idx+3:]
	}
	return strings.TrimPrefix(path, "/"), nil
}

func (h memoryHandle) List(_ context.Context, prefix string) ([]string, error) {
	p, err := h.ResolvePath(prefix)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for k := range h.objects {
		if strings.HasPrefix(k, p) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (h memoryHandle) NewWriter(_ context.Context, path string) (io.WriteCloser, error) {
	p, err := h.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	return &memoryWriter{handle: h, path: p}, nil
}

// Read returns the bytes previously written to path, for test assertions.
func (h memoryHandle) Read(path string) ([]byte, bool) {
	p, _ := h.ResolvePath(path)
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.objects[p]
	return b, ok
}

type memoryWriter struct {
	handle memoryHandle
	path   string
	buf    bytes.Buffer
}

func (w *memoryWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memoryWriter) Close() error {
	w.handle.mu.Lock()
	defer w.handle.mu.Unlock()
	w.handle.objects[w.path] = w.buf.Bytes()
	return nil
}
