// Package cache stores per-file analysis results on disk, keyed by the
// file content and the knowledge base that classified it.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when Payload format changes
const schemaVersion uint16 = 1

const appName = "await-analysis"

// Digest is the SHA-256 cache key of one file
type Digest [sha256.Size]byte

// DiskCache is safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// Payload is the cached outcome of analyzing one file
type Payload struct {
	Schema       uint16
	Language     string
	CallsChecked int
	Suppressed   int
	HasSyntaxErr bool
	Diagnostics  []Diagnostic
}

// Diagnostic mirrors a reported call without its file path, so a renamed
// file with unchanged content still hits
type Diagnostic struct {
	Line      int
	Column    int
	EndLine   int
	EndColumn int
	Rule      string
	Reason    string
	Message   string
}

// Open returns a cache rooted at dir. An empty dir selects
// $XDG_CACHE_HOME/await-analysis, falling back to ~/.cache/await-analysis.
func Open(dir string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to locate cache directory: %w", err)
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, appName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root
func (c *DiskCache) Dir() string {
	return c.dir
}

// Key derives the cache key for source classified under the knowledge
// base with the given fingerprint. The grammar follows the extension, so
// it takes part in the key.
func Key(source []byte, filePath, fingerprint string) Digest {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(filepath.Ext(filePath)))
	h.Write([]byte{0})
	h.Write(source)

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, "files", hexKey[:2], hexKey+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key Digest, payload *Payload) error {
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

	stored := *payload
	stored.Schema = schemaVersion
	if err := msgpack.NewEncoder(f).Encode(&stored); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	// atomic replace
	return os.Rename(f.Name(), p)
}

// Get reads a payload from the disk cache. Entries written under another
// schema version are reported as misses.
func (c *DiskCache) Get(key Digest, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	var payload Payload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	if payload.Schema != schemaVersion {
		return false, nil
	}
	*out = payload
	return true, nil
}

// DropAll removes every cached entry.
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
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
