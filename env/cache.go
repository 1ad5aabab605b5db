// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package env

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// metadataCacheVersion is bumped whenever the metadataEntry schema changes
// incompatibly; a mismatched stored value is treated as a cache miss
// (spec 6, artifact cache metadata "version" field).
const metadataCacheVersion = 2

// metadataEntry is the per-artifact classification cache record, stored as
// JSON at <cache>/info/<group/as/path>/<artifactId>/<version>/<filename>.json
// (spec 6).
type metadataEntry struct {
	Version        int             `json:"version"`
	SHA256         string          `json:"sha256"`
	AnalyzedAt     string          `json:"analyzed_at"`
	JarType        *int            `json:"jar_type"`
	MinJavaVersion *int            `json:"min_java_version"`
	ModuleInfo     moduleInfoEntry `json:"module_info"`
}

type moduleInfoEntry struct {
	IsModular   bool    `json:"is_modular"`
	IsAutomatic bool    `json:"is_automatic"`
	ModuleName  *string `json:"module_name"`
}

// metadataCache is the content-addressed per-artifact classification cache
// rooted at <cache>/info.
type metadataCache struct {
	root string
}

func newMetadataCache(cacheDir string) *metadataCache {
	return &metadataCache{root: filepath.Join(cacheDir, "info")}
}

func (c *metadataCache) entryPath(groupID, artifactID, version, filename string) string {
	return filepath.Join(c.root, strings.ReplaceAll(groupID, ".", "/"), artifactID, version, filename+".json")
}

// lookup returns the cached entry for a previously-classified artifact, iff
// its recorded sha256 matches the artifact's current contents. A schema
// mismatch or sha256 mismatch is reported as a cache miss, never an error.
func (c *metadataCache) lookup(groupID, artifactID, version, filename, sha256Hex string) (metadataEntry, bool) {
	b, err := os.ReadFile(c.entryPath(groupID, artifactID, version, filename))
	if err != nil {
		return metadataEntry{}, false
	}
	var e metadataEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return metadataEntry{}, false
	}
	if e.Version != metadataCacheVersion || e.SHA256 != sha256Hex {
		return metadataEntry{}, false
	}
	return e, true
}

// store writes a classification result to the cache, overwriting any
// existing entry for this artifact.
func (c *metadataCache) store(groupID, artifactID, version, filename string, e metadataEntry) error {
	e.Version = metadataCacheVersion
	path := c.entryPath(groupID, artifactID, version, filename)
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata cache entry: %w", err)
	}
	return writeFileAtomic(path, b)
}

// sha256File hashes the contents of the file at path.
func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeFileAtomic writes data to path via a temp-file-then-rename, so a
// concurrent reader (or a crash mid-write) never observes a partial file. It
// backs the metadata cache, which is shared across concurrently running jgo
// invocations (spec 5), and jgo.lock.toml.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".jgo-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmpName, path, err)
	}
	return nil
}

func nowISO8601() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
