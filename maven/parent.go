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

package maven

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxParentDepth bounds parent-chain traversal to defend against a
// structurally-impossible-but-not-provably-absent cycle (spec 9).
const MaxParentDepth = 32

// POMSource resolves POMs that aren't already in hand: a co-located parent
// file on disk, or an artifact fetched from a configured repository.
type POMSource interface {
	// LocalFile opens the file at path relative to the working directory, or
	// returns ok=false if it doesn't exist.
	LocalFile(path string) (r io.ReadCloser, ok bool, err error)
	// FetchPOM fetches the pom.xml for (groupID, artifactID, version) from a
	// configured repository.
	FetchPOM(ctx context.Context, groupID, artifactID, version string) (*POM, error)
}

// ResolveParent implements spec 4.2's POM.parent(): nil if there is no
// <parent>; the co-located file at <relativePath> if its G:A:V match the
// declaration; otherwise the POM fetched from the repository as (G, A, V)
// with packaging pom.
func ResolveParent(ctx context.Context, p *POM, currentPath string, src POMSource) (*POM, string, error) {
	if p.Parent == nil {
		return nil, "", nil
	}
	parent := p.Parent

	path := parentPath(currentPath, parent.RelativePath)
	if path != "" {
		if f, ok, err := src.LocalFile(path); err != nil {
			return nil, "", fmt.Errorf("read parent at %s: %w", path, err)
		} else if ok {
			defer f.Close()
			candidate, err := ParsePOM(f)
			if err != nil {
				return nil, "", fmt.Errorf("parse parent at %s: %w", path, err)
			}
			if candidate.GroupID == parent.GroupID && candidate.ArtifactID == parent.ArtifactID && candidate.Version == parent.Version {
				return candidate, path, nil
			}
			// Identifiers don't match: fall through to the repository.
		}
	}

	remote, err := src.FetchPOM(ctx, parent.GroupID, parent.ArtifactID, parent.Version)
	if err != nil {
		return nil, "", fmt.Errorf("fetch parent %s:%s:%s: %w", parent.GroupID, parent.ArtifactID, parent.Version, err)
	}
	return remote, "", nil
}

// parentPath computes the path a co-located parent POM would live at,
// preferring an explicit <relativePath> and defaulting to "../pom.xml".
// The POMSource is responsible for treating a directory target as
// "<dir>/pom.xml" (spec 4.2).
func parentPath(currentPath, relativePath string) string {
	if relativePath == "" {
		relativePath = "../pom.xml"
	}
	dir := filepath.Dir(currentPath)
	return filepath.ToSlash(filepath.Join(dir, relativePath))
}

// FetchPOMFunc fetches the pom.xml for (groupID, artifactID, version) from
// a configured repository; it is typically backed by a registry HTTP client.
type FetchPOMFunc func(ctx context.Context, groupID, artifactID, version string) (*POM, error)

// FileSystemPOMSource is the default POMSource: it resolves relative paths
// against Root on the local filesystem, treating a directory target as
// "<dir>/pom.xml", and falls back to Fetch for anything not found locally.
type FileSystemPOMSource struct {
	Root  string
	Fetch FetchPOMFunc
}

// LocalFile implements POMSource.
func (s FileSystemPOMSource) LocalFile(path string) (io.ReadCloser, bool, error) {
	full := filepath.Join(s.Root, path)
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if info.IsDir() {
		full = filepath.Join(full, "pom.xml")
		if _, err := os.Stat(full); err != nil {
			return nil, false, nil
		}
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

// FetchPOM implements POMSource.
func (s FileSystemPOMSource) FetchPOM(ctx context.Context, groupID, artifactID, version string) (*POM, error) {
	if s.Fetch == nil {
		return nil, fmt.Errorf("fetch %s:%s:%s: %w", groupID, artifactID, version, ErrArtifactNotFound)
	}
	return s.Fetch(ctx, groupID, artifactID, version)
}
