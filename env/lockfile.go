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
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// LinkStrategy selects how a resolved JAR is placed under an environment's
// jars/ or modules/ directory (spec 4.5 build step 4).
type LinkStrategy string

const (
	LinkHard LinkStrategy = "HARD"
	LinkSoft LinkStrategy = "SOFT"
	LinkCopy LinkStrategy = "COPY"
	LinkAuto LinkStrategy = "AUTO"
)

// LockedDependency is one pinned artifact recorded in jgo.lock.toml
// (spec 3 "LockFile").
type LockedDependency struct {
	GroupID    string `toml:"groupId"`
	ArtifactID string `toml:"artifactId"`
	Version    string `toml:"version"`
	Packaging  string `toml:"packaging"`
	Classifier string `toml:"classifier,omitempty"`
	SHA256     string `toml:"sha256"`
	IsModular  bool   `toml:"is_modular"`
	ModuleName string `toml:"module_name,omitempty"`
	JarType    string `toml:"jar_type"`
}

// LockFile is the parsed content of jgo.lock.toml (spec 3/6).
type LockFile struct {
	Dependencies      []LockedDependency `toml:"dependencies"`
	EnvironmentName   string             `toml:"environment_name,omitempty"`
	JavaVersion       string             `toml:"java_version,omitempty"`
	JavaVendor        string             `toml:"java_vendor,omitempty"`
	MinJavaVersion    int                `toml:"min_java_version"`
	Entrypoints       map[string]string  `toml:"entrypoints,omitempty"`
	DefaultEntrypoint string             `toml:"default_entrypoint,omitempty"`
	SpecHash          string             `toml:"spec_hash,omitempty"`
	LinkStrategy      LinkStrategy       `toml:"link_strategy"`
}

// ReadLockFile parses the jgo.lock.toml at path.
func ReadLockFile(path string) (*LockFile, error) {
	var lf LockFile
	if _, err := toml.DecodeFile(path, &lf); err != nil {
		return nil, fmt.Errorf("parse lockfile %s: %w", path, err)
	}
	return &lf, nil
}

// Write encodes the lockfile as TOML and writes it atomically to path.
func (lf *LockFile) Write(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(lf); err != nil {
		return fmt.Errorf("encode lockfile: %w", err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

// SpecHash returns the SHA-256 hex digest of a jgo.toml file's contents,
// used both to populate LockFile.SpecHash and to check it for staleness
// (spec 4.5 "validity check").
func SpecHash(specPath string) (string, error) {
	b, err := os.ReadFile(specPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", specPath, err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
