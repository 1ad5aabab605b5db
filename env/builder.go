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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scijava/jgo/clients/resolution"
	"github.com/scijava/jgo/log"
	"github.com/scijava/jgo/maven"
)

// BuildOptions configures Build (spec 4.5).
type BuildOptions struct {
	// CacheDir is the root <cache> directory (ad-hoc mode's env workspace
	// and the shared metadata cache both live under it).
	CacheDir string
	// ProjectDir, when non-empty, selects project mode: the environment is
	// built at <ProjectDir>/.jgo and validated against <ProjectDir>/jgo.toml's
	// spec hash instead of a content-addressed cache key alone.
	ProjectDir string

	Update        bool
	OptionalDepth int
	LinkStrategy  LinkStrategy
	MaxWorkers    int

	EnvironmentName   string
	JavaVersion       string
	JavaVendor        string
	Entrypoints       map[string]string
	DefaultEntrypoint string

	MainClassOverride string
	EndpointClass     string
}

// Build materializes an Environment for deps, reusing a previously built
// one in place when it's still valid (spec 4.5).
func Build(ctx context.Context, resolver *resolution.Resolver, deps []maven.Dependency, opts BuildOptions) (*Environment, error) {
	if len(deps) == 0 {
		return nil, fmt.Errorf("env: build requires at least one dependency")
	}
	if opts.LinkStrategy == "" {
		opts.LinkStrategy = LinkAuto
	}

	resolvedInputs, resolvedTransitive, err := resolver.Resolve(ctx, deps, opts.OptionalDepth)
	if err != nil {
		return nil, fmt.Errorf("resolve dependencies: %w", err)
	}

	key := computeCacheKey(resolvedInputs, opts.OptionalDepth)
	dir, specHash, err := workspaceDir(opts, deps[0], key)
	if err != nil {
		return nil, err
	}

	lockPath := filepath.Join(dir, "jgo.lock.toml")
	if !opts.Update {
		if lf, ok := validCachedEnvironment(dir, lockPath, specHash); ok {
			return Open(dir, lf, opts.MainClassOverride, opts.EndpointClass)
		}
	}

	lf, err := materialize(ctx, resolver, dir, resolvedInputs, resolvedTransitive, opts, specHash)
	if err != nil {
		return nil, err
	}
	return Open(dir, lf, opts.MainClassOverride, opts.EndpointClass)
}

// workspaceDir picks the environment directory per spec 4.5: a flat .jgo/
// next to jgo.toml in project mode, or a content-addressed path under the
// ad-hoc environment cache otherwise.
func workspaceDir(opts BuildOptions, primary maven.Dependency, key string) (dir, specHash string, err error) {
	if opts.ProjectDir != "" {
		specHash, err = SpecHash(filepath.Join(opts.ProjectDir, "jgo.toml"))
		if err != nil {
			return "", "", err
		}
		return filepath.Join(opts.ProjectDir, ".jgo"), specHash, nil
	}
	groupPath := strings.ReplaceAll(primary.GroupID, ".", "/")
	return filepath.Join(opts.CacheDir, "envs", groupPath, primary.ArtifactID, key), "", nil
}

// computeCacheKey derives the 16-hex-character cache key from the resolved
// input dependencies (spec 4.5 "Cache-key derivation").
func computeCacheKey(inputs []maven.ResolvedDependency, optionalDepth int) string {
	sorted := append([]maven.ResolvedDependency{}, inputs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Dependency, sorted[j].Dependency
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		if a.ArtifactID != b.ArtifactID {
			return a.ArtifactID < b.ArtifactID
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		if a.Classifier != b.Classifier {
			return a.Classifier < b.Classifier
		}
		return a.GACT().Packaging < b.GACT().Packaging
	})

	var parts []string
	for _, rd := range sorted {
		d := rd.Dependency
		parts = append(parts, fmt.Sprintf("%s:%s:%s:%s:%s", d.GroupID, d.ArtifactID, d.Version, d.Classifier, d.GACT().Packaging))
		exclusions := append([]maven.GA{}, d.Exclusions...)
		sort.Slice(exclusions, func(i, j int) bool { return exclusions[i].String() < exclusions[j].String() })
		for _, ex := range exclusions {
			parts = append(parts, ex.String())
		}
	}
	parts = append(parts, fmt.Sprintf(":optional_depth=%d", optionalDepth))

	sum := sha256.Sum256([]byte(strings.Join(parts, "+")))
	return hex.EncodeToString(sum[:])[:16]
}

// validCachedEnvironment implements spec 4.5's "Validity check".
func validCachedEnvironment(dir, lockPath, specHash string) (*LockFile, bool) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, false
	}
	lf, err := ReadLockFile(lockPath)
	if err != nil {
		return nil, false
	}
	if specHash != "" && lf.SpecHash != specHash {
		return nil, false
	}
	if !hasAnyJar(dir) {
		return nil, false
	}
	return lf, true
}

func hasAnyJar(dir string) bool {
	for _, sub := range []string{"jars", "modules"} {
		entries, err := os.ReadDir(filepath.Join(dir, sub))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".jar") {
				return true
			}
		}
	}
	return false
}

// materialize runs the 5 build steps of spec 4.5 on a cache miss: clean
// stale classification, download every resolved artifact, classify and
// cache each one, link it into jars/ or modules/, and write jgo.lock.toml.
func materialize(ctx context.Context, resolver *resolution.Resolver, dir string, inputs, transitive []maven.ResolvedDependency, opts BuildOptions, specHash string) (*LockFile, error) {
	jarsDir := filepath.Join(dir, "jars")
	modulesDir := filepath.Join(dir, "modules")

	if err := os.RemoveAll(jarsDir); err != nil {
		return nil, fmt.Errorf("clean %s: %w", jarsDir, err)
	}
	if err := os.RemoveAll(modulesDir); err != nil {
		return nil, fmt.Errorf("clean %s: %w", modulesDir, err)
	}

	var materializable []maven.ResolvedDependency
	for _, rd := range append(append([]maven.ResolvedDependency{}, inputs...), transitive...) {
		if rd.Dependency.GACT().Packaging == "pom" {
			continue // BOM/management-only artifact, nothing to launch
		}
		materializable = append(materializable, rd)
	}

	depsOnly := make([]maven.Dependency, len(materializable))
	for i, rd := range materializable {
		depsOnly[i] = rd.Dependency
	}
	paths, err := resolver.DownloadBatch(ctx, depsOnly, opts.MaxWorkers)
	if err != nil {
		return nil, fmt.Errorf("download resolved artifacts: %w", err)
	}

	cache := newMetadataCache(opts.CacheDir)
	locked := make([]LockedDependency, 0, len(materializable))
	minJava := 0

	for i, rd := range materializable {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := rd.Dependency
		srcPath := paths[i]

		sha, err := sha256File(srcPath)
		if err != nil {
			return nil, err
		}

		jarType, modInfo, jarMinJava, err := classifyWithCache(ctx, cache, d, srcPath, sha)
		if err != nil {
			return nil, err
		}
		if jarMinJava > minJava {
			minJava = jarMinJava
		}

		destDir := jarsDir
		if jarType.Modular() {
			destDir = modulesDir
		}
		dst := filepath.Join(destDir, filepath.Base(srcPath))
		if err := linkFile(srcPath, dst, opts.LinkStrategy); err != nil {
			return nil, fmt.Errorf("link %s: %w", srcPath, err)
		}

		locked = append(locked, LockedDependency{
			GroupID:    d.GroupID,
			ArtifactID: d.ArtifactID,
			Version:    d.Version,
			Packaging:  d.GACT().Packaging,
			Classifier: d.Classifier,
			SHA256:     sha,
			IsModular:  modInfo.IsModular,
			ModuleName: modInfo.ModuleName,
			JarType:    jarType.String(),
		})
	}

	lf := &LockFile{
		Dependencies:      locked,
		EnvironmentName:   opts.EnvironmentName,
		JavaVersion:       opts.JavaVersion,
		JavaVendor:        opts.JavaVendor,
		MinJavaVersion:    minJava,
		Entrypoints:       opts.Entrypoints,
		DefaultEntrypoint: opts.DefaultEntrypoint,
		SpecHash:          specHash,
		LinkStrategy:      opts.LinkStrategy,
	}
	if err := lf.Write(filepath.Join(dir, "jgo.lock.toml")); err != nil {
		return nil, err
	}
	return lf, nil
}

// classifyWithCache looks up d's classification in the shared metadata
// cache keyed by its current sha256, classifying and populating the cache
// entry on a miss (spec 4.5 build step 3).
func classifyWithCache(ctx context.Context, cache *metadataCache, d maven.Dependency, srcPath, sha string) (JarType, ModuleInfo, int, error) {
	filename := filepath.Base(srcPath)

	if entry, ok := cache.lookup(d.GroupID, d.ArtifactID, d.Version, filename, sha); ok {
		jarType := JarPlain
		if entry.JarType != nil {
			jarType = JarType(*entry.JarType)
		}
		minJava := 0
		if entry.MinJavaVersion != nil {
			minJava = *entry.MinJavaVersion
		}
		info := ModuleInfo{IsModular: entry.ModuleInfo.IsModular, IsAutomatic: entry.ModuleInfo.IsAutomatic}
		if entry.ModuleInfo.ModuleName != nil {
			info.ModuleName = *entry.ModuleInfo.ModuleName
		}
		return jarType, info, minJava, nil
	}

	var (
		jarType JarType
		info    ModuleInfo
		minJava int
		err     error
	)
	if isJarPackaging(d.GACT().Packaging) {
		jarType, info, minJava, err = ClassifyJar(ctx, srcPath)
		if err != nil {
			log.Warnf("jgo: %v, treating %s as PLAIN", err, srcPath)
			jarType, info, minJava = JarPlain, ModuleInfo{}, 0
		}
	}

	entry := metadataEntry{
		SHA256:         sha,
		AnalyzedAt:     nowISO8601(),
		JarType:        intPtr(int(jarType)),
		MinJavaVersion: intPtr(minJava),
		ModuleInfo: moduleInfoEntry{
			IsModular:   info.IsModular,
			IsAutomatic: info.IsAutomatic,
		},
	}
	if info.ModuleName != "" {
		entry.ModuleInfo.ModuleName = strPtr(info.ModuleName)
	}
	if err := cache.store(d.GroupID, d.ArtifactID, d.Version, filename, entry); err != nil {
		log.Warnf("jgo: failed to write metadata cache entry for %s: %v", srcPath, err)
	}
	return jarType, info, minJava, nil
}

func isJarPackaging(packaging string) bool {
	return strings.HasSuffix(packaging, "jar")
}

// linkFile places src at dst using strategy (spec 4.5 build step 4): HARD
// errors on cross-device, SOFT always symlinks, COPY always byte-copies,
// AUTO falls back hard-link -> symlink -> copy.
func linkFile(src, dst string, strategy LinkStrategy) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dst, err)
	}
	os.Remove(dst)

	switch strategy {
	case LinkHard:
		return os.Link(src, dst)
	case LinkSoft:
		return os.Symlink(src, dst)
	case LinkCopy:
		return copyFile(src, dst)
	default: // LinkAuto
		if err := os.Link(src, dst); err == nil {
			return nil
		}
		if err := os.Symlink(src, dst); err == nil {
			return nil
		}
		return copyFile(src, dst)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}
