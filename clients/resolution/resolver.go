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

// Package resolution implements the Resolver contract (spec 4.4): fetching
// artifacts into the repo-cache and computing the mediated transitive
// dependency closure for a set of input coordinates.
package resolution

import (
	"context"
	"fmt"
	"sort"

	"github.com/scijava/jgo/clients/datasource"
	"github.com/scijava/jgo/maven"
	"golang.org/x/sync/errgroup"
)

// defaultMaxWorkers bounds the concurrency of download_batch when the caller
// doesn't specify one (spec 5's bounded worker pool).
const defaultMaxWorkers = 4

// unboundedDepth is used as the BFS max_depth when the caller wants the full
// transitive closure rather than a depth-limited slice.
const unboundedDepth = 1 << 20

// Resolver is the in-process implementation of spec 4.4's Resolver
// contract: it fetches artifacts and POMs through a RegistryClient and
// drives maven.Model's BFS mediation to compute resolved dependency sets.
type Resolver struct {
	client *datasource.RegistryClient
}

// New returns a Resolver backed by client.
func New(client *datasource.RegistryClient) *Resolver {
	return &Resolver{client: client}
}

// Download implements `download(artifact) -> Path` (spec 4.4): fetches the
// artifact file into the repo-cache, or returns the existing path if it's
// already cached there.
func (r *Resolver) Download(ctx context.Context, dep maven.Dependency) (string, error) {
	return r.client.DownloadArtifact(ctx, dep.GroupID, dep.ArtifactID, dep.Version, dep.Classifier, dep.GACT().Packaging)
}

// DownloadBatch implements `download_batch(artifacts, max_workers)` (spec
// 4.4): downloads every artifact concurrently, bounded by maxWorkers (the
// repo-cache is safe for concurrent writers of distinct paths). If
// maxWorkers <= 0, defaultMaxWorkers is used.
func (r *Resolver) DownloadBatch(ctx context.Context, deps []maven.Dependency, maxWorkers int) ([]string, error) {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	paths := make([]string, len(deps))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, dep := range deps {
		i, dep := i, dep
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			path, err := r.Download(ctx, dep)
			if err != nil {
				return fmt.Errorf("download %s:%s:%s: %w", dep.GroupID, dep.ArtifactID, dep.Version, err)
			}
			paths[i] = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// modelProvider adapts a RegistryClient to maven.ModelProvider, building
// each dependency's effective Model with root as the enclosing resolution's
// dependency management (spec 4.3 stage 5: root management wins over local).
type modelProvider struct {
	client *datasource.RegistryClient
	root   map[maven.GACT]maven.Dependency
}

func (p modelProvider) ModelFor(ctx context.Context, d maven.Dependency) (*maven.Model, error) {
	pom, err := p.client.FetchPOM(ctx, d.GroupID, d.ArtifactID, d.Version)
	if err != nil {
		return nil, err
	}
	return maven.BuildModel(ctx, pom, maven.BuildOptions{
		Source:      p.client.POMSource(),
		RootDepMgmt: p.root,
		Lenient:     true,
	})
}

// wrapperPOM builds the synthetic "wrapper" POM described in spec 4.4: its
// <dependencies> are the inputs, and its <dependencyManagement> imports each
// non-raw input as a BOM, so an input that is itself a platform/BOM artifact
// contributes its managed versions to the whole resolution.
func wrapperPOM(deps []maven.Dependency) *maven.POM {
	p := &maven.POM{
		GroupID:    "jgo.synthetic",
		ArtifactID: "wrapper",
		Version:    "0",
		Packaging:  "pom",
		Properties: map[string]string{},
	}
	for _, d := range deps {
		if d.Version == maven.VersionManaged {
			// No version to pin against a POM yet: leave it unset so stage 5
			// (dependency-management injection) fills it in from whatever
			// the other inputs' BOM imports or each other's management
			// sections supply.
			d.Version = ""
		}
		p.Dependencies = append(p.Dependencies, d)
		if d.Raw || d.Version == "" {
			continue
		}
		p.DependencyManagement = append(p.DependencyManagement, maven.Dependency{
			GroupID:    d.GroupID,
			ArtifactID: d.ArtifactID,
			Version:    d.Version,
			Packaging:  "pom",
			Scope:      "import",
		})
	}
	return p
}

// resolveVersionSentinels replaces each dependency's RELEASE/LATEST version
// token with a concrete version, fetched from every configured repository's
// maven-metadata.xml (spec 4.6). MANAGED is left untouched; it's resolved
// later, inside the wrapper POM's own Model build.
func (r *Resolver) resolveVersionSentinels(ctx context.Context, deps []maven.Dependency) ([]maven.Dependency, error) {
	out := make([]maven.Dependency, len(deps))
	for i, d := range deps {
		switch d.Version {
		case maven.VersionRelease, maven.VersionLatest:
			repos, err := r.client.FetchVersions(ctx, d.GroupID, d.ArtifactID)
			if err != nil {
				return nil, fmt.Errorf("fetch versions for %s:%s: %w", d.GroupID, d.ArtifactID, err)
			}
			var v string
			var ok bool
			if d.Version == maven.VersionRelease {
				v, ok = maven.ReleaseVersion(repos)
			} else {
				v, ok = maven.LatestVersion(repos)
			}
			if !ok {
				return nil, fmt.Errorf("%w: %s:%s has no %s version", maven.ErrUnresolvableVersion, d.GroupID, d.ArtifactID, d.Version)
			}
			d.Version = v
		}
		out[i] = d
	}
	return out, nil
}

// Resolve implements `resolve(dependencies, optional_depth)` (spec 4.4):
// builds the wrapper POM's Model (triggering full inheritance,
// interpolation and BOM-import), computes the transitive closure, and
// partitions the result into resolvedInputs (the inputs themselves, with
// MANAGED versions now pinned) and resolvedTransitive (everything else,
// minus test-scope entries).
func (r *Resolver) Resolve(ctx context.Context, deps []maven.Dependency, optionalDepth int) (resolvedInputs, resolvedTransitive []maven.ResolvedDependency, err error) {
	deps, err = r.resolveVersionSentinels(ctx, deps)
	if err != nil {
		return nil, nil, err
	}
	pom := wrapperPOM(deps)
	root, err := maven.BuildModel(ctx, pom, maven.BuildOptions{Source: r.client.POMSource(), Lenient: true})
	if err != nil {
		return nil, nil, fmt.Errorf("build wrapper model: %w", err)
	}

	provider := modelProvider{client: r.client, root: root.DepMgmt}
	resolved, _, err := root.Dependencies(ctx, root.OrderedDeps(), provider, unboundedDepth, optionalDepth)
	if err != nil {
		return nil, nil, err
	}

	inputGAs := make(map[maven.GA]bool, len(deps))
	for _, d := range deps {
		inputGAs[d.GA()] = true
	}

	for _, rd := range resolved {
		switch {
		case rd.Depth == 0 && inputGAs[rd.Dependency.GA()]:
			resolvedInputs = append(resolvedInputs, rd)
		case rd.Dependency.Scope == "test":
			continue
		default:
			resolvedTransitive = append(resolvedTransitive, rd)
		}
	}
	sortResolved(resolvedInputs)
	sortResolved(resolvedTransitive)
	return resolvedInputs, resolvedTransitive, nil
}

// sortResolved sorts by (groupId, artifactId, version) for stable lockfile
// output (spec 5, "Ordering guarantees").
func sortResolved(deps []maven.ResolvedDependency) {
	sort.SliceStable(deps, func(i, j int) bool {
		a, b := deps[i].Dependency, deps[j].Dependency
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		if a.ArtifactID != b.ArtifactID {
			return a.ArtifactID < b.ArtifactID
		}
		return a.Version < b.Version
	})
}

// GetDependencyTree implements `get_dependency_tree(deps, optional_depth)`
// (spec 4.4): the unmediated dependency tree recorded during the BFS, for
// `tree`-style reporting.
func (r *Resolver) GetDependencyTree(ctx context.Context, deps []maven.Dependency, optionalDepth int) ([]*maven.DependencyNode, error) {
	deps, err := r.resolveVersionSentinels(ctx, deps)
	if err != nil {
		return nil, err
	}
	pom := wrapperPOM(deps)
	root, err := maven.BuildModel(ctx, pom, maven.BuildOptions{Source: r.client.POMSource(), Lenient: true})
	if err != nil {
		return nil, fmt.Errorf("build wrapper model: %w", err)
	}
	provider := modelProvider{client: r.client, root: root.DepMgmt}
	_, roots, err := root.Dependencies(ctx, root.OrderedDeps(), provider, unboundedDepth, optionalDepth)
	if err != nil {
		return nil, err
	}
	return roots, nil
}

// GetDependencyList implements `get_dependency_list(deps, transitive,
// optional_depth) -> (root, [DependencyNode])` (spec 4.4): returns a
// synthetic root node over the inputs, and either just the direct children
// (transitive=false) or every node of the unmediated dependency tree,
// flattened and sorted by (groupId, artifactId, version) (transitive=true).
// A dependency reached along several paths appears once per path.
func (r *Resolver) GetDependencyList(ctx context.Context, deps []maven.Dependency, transitive bool, optionalDepth int) (*maven.DependencyNode, []*maven.DependencyNode, error) {
	roots, err := r.GetDependencyTree(ctx, deps, optionalDepth)
	if err != nil {
		return nil, nil, err
	}

	root := &maven.DependencyNode{
		Dependency: maven.Dependency{GroupID: "jgo.synthetic", ArtifactID: "wrapper", Version: "0"},
		Children:   roots,
	}

	if !transitive {
		return root, roots, nil
	}

	var flat []*maven.DependencyNode
	var walk func(n *maven.DependencyNode)
	walk = func(n *maven.DependencyNode) {
		flat = append(flat, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, n := range roots {
		walk(n)
	}
	sort.SliceStable(flat, func(i, j int) bool {
		a, b := flat[i].Dependency, flat[j].Dependency
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		if a.ArtifactID != b.ArtifactID {
			return a.ArtifactID < b.ArtifactID
		}
		return a.Version < b.Version
	})
	return root, flat, nil
}
