package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/robert-at-pretension-io/veridec/internal/facts"
)

const cacheIndexVersion = 1

// cacheEntry remembers one successful compilation. An entry is reused only
// when the source hash and fingerprint match and the generated file on disk
// still hashes to OutputHash.
type cacheEntry struct {
	ContentHash string `json:"content_hash"`
	Fingerprint string `json:"fingerprint"`
	FactsPath   string `json:"facts_path"`
	OutputPath  string `json:"output_path"`
	OutputHash  string `json:"output_hash"`
}

type cacheIndex struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"`
}

type buildCache struct {
	dir         string
	fingerprint string
	mu          sync.Mutex
	index       cacheIndex
}

func newBuildCache(dir, fingerprint string) *buildCache {
	return &buildCache{
		dir:         dir,
		fingerprint: fingerprint,
		index: cacheIndex{
			Version: cacheIndexVersion,
			Entries: make(map[string]cacheEntry),
		},
	}
}

func (c *buildCache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *buildCache) factsPathForFile(filePath string) string {
	h := sha256.Sum256([]byte(filePath))
	return filepath.Join(c.dir, "facts", hex.EncodeToString(h[:])+".json")
}

func (c *buildCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache mkdir: %w", err)
	}
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache index: %w", err)
	}
	var idx cacheIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse cache index: %w", err)
	}
	if idx.Version != cacheIndexVersion {
		// Reset on version mismatch
		c.index = cacheIndex{Version: cacheIndexVersion, Entries: make(map[string]cacheEntry)}
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]cacheEntry)
	}
	c.index = idx
	return nil
}

// Save writes the index, dropping entries for files not in keep.
func (c *buildCache) Save(keep map[string]bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path, entry := range c.index.Entries {
		if !keep[path] {
			_ = os.Remove(entry.FactsPath)
			delete(c.index.Entries, path)
		}
	}
	return writeJSONAtomic(c.indexPath(), c.index)
}

// Get returns the cached facts and output path for filePath when the entry
// is still valid.
func (c *buildCache) Get(filePath, contentHash string) (facts.Tables, string, bool, error) {
	c.mu.Lock()
	entry, ok := c.index.Entries[filePath]
	c.mu.Unlock()
	if !ok || entry.ContentHash != contentHash || entry.Fingerprint != c.fingerprint {
		return facts.Tables{}, "", false, nil
	}

	outHash, err := hashFile(entry.OutputPath)
	if err != nil || outHash != entry.OutputHash {
		return facts.Tables{}, "", false, nil
	}

	data, err := os.ReadFile(entry.FactsPath)
	if err != nil {
		return facts.Tables{}, "", false, fmt.Errorf("read cached facts: %w", err)
	}
	var tables facts.Tables
	if err := json.Unmarshal(data, &tables); err != nil {
		return facts.Tables{}, "", false, fmt.Errorf("parse cached facts: %w", err)
	}
	return tables, entry.OutputPath, true, nil
}

func (c *buildCache) Put(filePath, contentHash, outputPath, verilog string, tables facts.Tables) error {
	factsPath := c.factsPathForFile(filePath)
	if err := writeJSONAtomic(factsPath, tables); err != nil {
		return err
	}

	c.mu.Lock()
	c.index.Entries[filePath] = cacheEntry{
		ContentHash: contentHash,
		Fingerprint: c.fingerprint,
		FactsPath:   factsPath,
		OutputPath:  outputPath,
		OutputHash:  hashBytes([]byte(verilog)),
	}
	c.mu.Unlock()
	return nil
}

// Forget removes filePath from the index, e.g. after it stopped compiling.
func (c *buildCache) Forget(filePath string) {
	c.mu.Lock()
	delete(c.index.Entries, filePath)
	c.mu.Unlock()
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache json: %w", err)
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes data through a temp file in the target directory
// and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return hashBytes(data), nil
}
