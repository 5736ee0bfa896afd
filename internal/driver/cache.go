package driver

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"classgen/internal/backend/llvm"
	"classgen/internal/project"
)

// Current schema version - increment when CachedUnit format changes
const diskCacheSchemaVersion uint16 = 1

// DiskCache keeps the output of successfully lowered units on disk, keyed by
// unit hash. Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedUnit is the stored output of one unit.
type CachedUnit struct {
	Schema   uint16             `msgpack:"schema"`
	Name     string             `msgpack:"name"`
	UnitHash project.Digest     `msgpack:"unit_hash"`
	Triple   string             `msgpack:"triple"`
	IR       string             `msgpack:"ir"`
	Classes  []llvm.ClassReport `msgpack:"classes"`
	Warnings []CachedDiagnostic `msgpack:"warnings,omitempty"`
}

// CachedDiagnostic is a non-fatal diagnostic replayed on a cache hit.
type CachedDiagnostic struct {
	Code    uint16 `msgpack:"code"`
	Message string `msgpack:"message"`
	File    string `msgpack:"file"`
	Symbol  string `msgpack:"symbol"`
}

// OpenDiskCache opens the cache in dir. An empty dir selects
// $XDG_CACHE_HOME/classgen or ~/.cache/classgen.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "classgen")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string {
	return c.dir
}

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "units", hex.EncodeToString(key[:])+".mp")
}

// Put serializes and writes a unit to the disk cache.
func (c *DiskCache) Put(key project.Digest, unit *CachedUnit) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp) // no-op once renamed

	unit.Schema = diskCacheSchemaVersion
	if err := msgpack.NewEncoder(f).Encode(unit); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads a unit from the disk cache. Entries written by another schema
// version are misses.
func (c *DiskCache) Get(key project.Digest) (*CachedUnit, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()
	var out CachedUnit
	if err := msgpack.NewDecoder(f).Decode(&out); err != nil {
		return nil, false, err
	}
	if out.Schema != diskCacheSchemaVersion || out.UnitHash != key {
		return nil, false, nil
	}
	return &out, true, nil
}

// DropAll invalidates the cache.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
