package mapxsd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SchemaCache holds loaded schemas by file location. A schema is built once
// and reused until the file's size or modification time changes, at which
// point it is rebuilt on the next Get.
type SchemaCache struct {
	mu       sync.RWMutex
	schemas  map[string]*schemaEntry
	BasePath string // Base path for resolving relative schema locations
	opts     []Option
	logger   *slog.Logger
}

type schemaEntry struct {
	mu      sync.Mutex
	schema  *Schema
	err     error
	modTime time.Time
	size    int64
	loaded  bool
}

// NewSchemaCache creates a new schema cache
func NewSchemaCache(basePath string, opts ...Option) *SchemaCache {
	return &SchemaCache{
		schemas:  make(map[string]*schemaEntry),
		BasePath: basePath,
		opts:     opts,
		logger:   buildOptions(opts).logger,
	}
}

// Get returns the schema at location, loading or reloading it as needed
func (sc *SchemaCache) Get(location string) (*Schema, error) {
	path := sc.resolvePath(location)

	sc.mu.RLock()
	entry, ok := sc.schemas[path]
	sc.mu.RUnlock()

	if !ok {
		sc.mu.Lock()
		if entry, ok = sc.schemas[path]; !ok {
			entry = &schemaEntry{}
			sc.schemas[path] = entry
		}
		sc.mu.Unlock()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat schema file %s: %w", path, err)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.loaded && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		return entry.schema, entry.err
	}

	if entry.loaded {
		sc.logger.Info("schema source changed, reloading", "path", path)
	}
	entry.schema, entry.err = sc.loadSchema(path)
	entry.modTime = info.ModTime()
	entry.size = info.Size()
	entry.loaded = true
	return entry.schema, entry.err
}

// Remove removes a specific schema from cache
func (sc *SchemaCache) Remove(location string) {
	path := sc.resolvePath(location)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	delete(sc.schemas, path)
}

// Clear removes all cached schemas
func (sc *SchemaCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.schemas = make(map[string]*schemaEntry)
}

// resolvePath resolves a schema location to an absolute path
func (sc *SchemaCache) resolvePath(location string) string {
	if filepath.IsAbs(location) {
		return location
	}
	if sc.BasePath != "" {
		return filepath.Join(sc.BasePath, location)
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return location
	}
	return abs
}

func (sc *SchemaCache) loadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}

	schema, err := LoadSchema(string(data), sc.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", path, err)
	}

	sc.logger.Debug("schema cached", "path", path, "warnings", len(schema.Warnings))
	return schema, nil
}
