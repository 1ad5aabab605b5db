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
	"regexp"
	"strings"

	"github.com/scijava/jgo/log"
)

// Model is the effective POM (spec 3, "Model — the effective POM"): the
// flat result of running a POM through the seven-stage builder below.
type Model struct {
	Deps    map[GACT]Dependency
	DepMgmt map[GACT]Dependency
	Props   map[string]string

	// DepOrder records the XML document order dependencies were first
	// merged in, since spec 4.3's BFS mediation must traverse in that order
	// (invariant 6: depth ties break by nearest-POM document order). Entries
	// whose key was later dropped (stage 7) are skipped by OrderedDeps.
	DepOrder []GACT
}

// OrderedDeps returns the Deps map's values in DepOrder, the order they
// appear when read as a flat document (spec 5, "Ordering guarantees").
func (m *Model) OrderedDeps() []Dependency {
	out := make([]Dependency, 0, len(m.DepOrder))
	for _, key := range m.DepOrder {
		if d, ok := m.Deps[key]; ok {
			out = append(out, d)
		}
	}
	return out
}

// BuildOptions parameterizes BuildModel.
type BuildOptions struct {
	// Source resolves parent POMs and BOM imports.
	Source POMSource
	// CurrentPath is the originating POM's path, used to resolve a
	// co-located parent via <relativePath>. May be "" for synthetic POMs.
	CurrentPath string
	// Constraints is the environment profiles are activated against.
	Constraints ProfileConstraints
	// RootDepMgmt is the dependency-management map of an enclosing
	// resolution (e.g. the top-level wrapper POM's own management), which
	// takes priority over this POM's local management (spec 4.3 stage 5).
	// Nil when P is itself the root.
	RootDepMgmt map[GACT]Dependency
	// Lenient converts missing-version and unresolved-placeholder errors
	// into warnings that drop the offending dependency instead of failing.
	Lenient bool
}

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// BuildModel builds the effective Model for pom, running the seven ordered
// stages described in spec 4.3.
func BuildModel(ctx context.Context, pom *POM, opts BuildOptions) (*Model, error) {
	m := &Model{
		Deps:    map[GACT]Dependency{},
		DepMgmt: map[GACT]Dependency{},
		Props:   map[string]string{},
	}

	// Stage 1: profile activation and injection of P.
	mergeBase(m, pom.Properties, pom.Dependencies, pom.DependencyManagement)
	mergeActiveProfiles(m, pom.Profiles, opts.Constraints)

	// Stage 2: walk the parent chain, filling in only.
	if err := walkParents(ctx, pom, opts, m); err != nil {
		return nil, err
	}

	// Stage 3: interpolation.
	if err := interpolate(m, opts.Constraints, pom); err != nil {
		return nil, err
	}

	// Stage 4: BOM import.
	if err := importBOMs(ctx, m, opts); err != nil {
		return nil, err
	}

	// Stage 5: dependency-management injection.
	if err := injectManagement(m, opts); err != nil {
		return nil, err
	}

	// Stage 6: default scope.
	applyDefaultScope(m)

	// Stage 7: sanity check (lenient mode only).
	if opts.Lenient {
		dropUnresolved(m)
	}

	return m, nil
}

// mergeBase seeds the in-progress model with a POM's own (highest-priority)
// properties, dependencies and dependencyManagement.
func mergeBase(m *Model, props map[string]string, deps, depMgmt []Dependency) {
	for k, v := range props {
		if _, ok := m.Props[k]; !ok {
			m.Props[k] = v
		}
	}
	for _, d := range deps {
		key := d.GACT()
		if _, ok := m.Deps[key]; !ok {
			m.Deps[key] = d
			m.DepOrder = append(m.DepOrder, key)
		}
	}
	for _, d := range depMgmt {
		key := d.GACT()
		if _, ok := m.DepMgmt[key]; !ok {
			m.DepMgmt[key] = d
		}
	}
}

// mergeActiveProfiles merges each active profile's contributions with
// fill-in-only (nearest-source-wins) semantics.
func mergeActiveProfiles(m *Model, profiles []Profile, c ProfileConstraints) {
	for _, p := range profiles {
		if !p.Activation.IsActive(c) {
			continue
		}
		mergeBase(m, p.Properties, p.Dependencies, p.DepMgmt)
	}
}

// walkParents implements stage 2: for each ancestor POM, re-run profile
// activation then merge properties/deps/dependencyManagement fill-in only.
// Traversal is bounded by MaxParentDepth to defend against cycles that
// shouldn't structurally exist in a well-formed repository (spec 9).
func walkParents(ctx context.Context, pom *POM, opts BuildOptions, m *Model) error {
	current := pom
	currentPath := opts.CurrentPath
	seen := map[GA]bool{}

	for depth := 0; depth < MaxParentDepth; depth++ {
		if current.Parent == nil {
			return nil
		}
		parentKey := GA{GroupID: current.Parent.GroupID, ArtifactID: current.Parent.ArtifactID}
		if seen[parentKey] {
			return fmt.Errorf("%w: cycle of parents detected at %s", ErrModelBuild, parentKey)
		}
		seen[parentKey] = true

		if opts.Source == nil {
			return nil
		}
		parent, newPath, err := ResolveParent(ctx, current, currentPath, opts.Source)
		if err != nil {
			return err
		}
		if parent == nil {
			return nil
		}
		if newPath != "" {
			currentPath = newPath
		}

		mergeActiveProfiles(m, parent.Profiles, opts.Constraints)
		mergeBase(m, parent.Properties, parent.Dependencies, parent.DependencyManagement)

		current = parent
	}
	return fmt.Errorf("%w: parent chain exceeds %d levels", ErrModelBuild, MaxParentDepth)
}

// interpolate implements stage 3: inject implicit properties at lowest
// priority, expand ${...} references in property values to a fixed point
// (detecting cycles), then interpolate every dependency coordinate field.
func interpolate(m *Model, c ProfileConstraints, pom *POM) error {
	injectImplicitProperties(m.Props, c, pom.GroupID, pom.ArtifactID, pom.Version, pom.Name, pom.Description)

	for name := range m.Props {
		resolved, err := expandProperty(name, m.Props, map[string]bool{})
		if err != nil {
			return err
		}
		m.Props[name] = resolved
	}

	newDeps, newOrder := interpolateDepsOrdered(m.Deps, m.DepOrder, m.Props)
	m.Deps = newDeps
	m.DepOrder = newOrder
	m.DepMgmt = interpolateDeps(m.DepMgmt, m.Props)
	return nil
}

// expandProperty resolves ${...} references in props[name] to a fixed
// point, detecting reference cycles via the visited set.
func expandProperty(name string, props map[string]string, visiting map[string]bool) (string, error) {
	if visiting[name] {
		return "", fmt.Errorf("%w: cyclic property reference involving %q", ErrModelBuild, name)
	}
	value, ok := props[name]
	if !ok {
		return "", nil
	}
	if !strings.Contains(value, "${") {
		return value, nil
	}
	visiting[name] = true
	defer delete(visiting, name)

	var cycleErr error
	result := placeholderPattern.ReplaceAllStringFunc(value, func(match string) string {
		ref := placeholderPattern.FindStringSubmatch(match)[1]
		if _, defined := props[ref]; !defined {
			// Never defined anywhere: leave the placeholder as-is (spec 3 invariant).
			return match
		}
		expanded, err := expandProperty(ref, props, visiting)
		if err != nil {
			if cycleErr == nil {
				cycleErr = err
			}
			return match
		}
		return expanded
	})
	if cycleErr != nil {
		return "", cycleErr
	}
	return result, nil
}

// interpolateDeps expands ${...} references in every coordinate field of
// each dependency, then rebuilds the map since interpolation can change a
// dependency's GACT key; on collision the first (nearest) entry wins.
func interpolateDeps(deps map[GACT]Dependency, props map[string]string) map[GACT]Dependency {
	out := make(map[GACT]Dependency, len(deps))
	for _, d := range deps {
		d = interpolateOne(d, props)
		key := d.GACT()
		if _, exists := out[key]; !exists {
			out[key] = d
		}
	}
	return out
}

// interpolateDepsOrdered is interpolateDeps plus a rebuilt DepOrder, walking
// the original order so ties after a key collision keep the document-order
// winner (invariant 6).
func interpolateDepsOrdered(deps map[GACT]Dependency, order []GACT, props map[string]string) (map[GACT]Dependency, []GACT) {
	out := make(map[GACT]Dependency, len(deps))
	var newOrder []GACT
	for _, oldKey := range order {
		d, ok := deps[oldKey]
		if !ok {
			continue
		}
		d = interpolateOne(d, props)
		key := d.GACT()
		if _, exists := out[key]; !exists {
			out[key] = d
			newOrder = append(newOrder, key)
		}
	}
	return out, newOrder
}

func interpolateOne(d Dependency, props map[string]string) Dependency {
	d.GroupID = expandLiteral(d.GroupID, props)
	d.ArtifactID = expandLiteral(d.ArtifactID, props)
	d.Version = expandLiteral(d.Version, props)
	d.Classifier = expandLiteral(d.Classifier, props)
	d.Packaging = expandLiteral(d.Packaging, props)
	return d
}

// expandLiteral performs a single non-recursive pass of ${...} substitution
// over a literal string value (coordinate fields aren't themselves property
// definitions, so no fixed-point loop is needed here).
func expandLiteral(s string, props map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		ref := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := props[ref]; ok {
			return v
		}
		return match
	})
}

// importBOMs implements stage 4: scan dependencyManagement for
// scope=import, packaging=pom entries, recursively build each BOM's own
// Model, and merge its dependencyManagement in fill-in-only, continuing to
// scan newly merged entries for further (transitive) BOM imports.
func importBOMs(ctx context.Context, m *Model, opts BuildOptions) error {
	if opts.Source == nil {
		return nil
	}
	processed := map[GA]bool{}
	for {
		var toImport []Dependency
		for _, d := range m.DepMgmt {
			if !isBOMImport(d) {
				continue
			}
			ga := d.GA()
			if processed[ga] {
				continue
			}
			processed[ga] = true
			toImport = append(toImport, d)
		}
		if len(toImport) == 0 {
			return nil
		}

		for _, bomDep := range toImport {
			bomPOM, err := opts.Source.FetchPOM(ctx, bomDep.GroupID, bomDep.ArtifactID, bomDep.Version)
			if err != nil {
				log.Warnf("jgo: failed to fetch BOM %s:%s:%s: %v", bomDep.GroupID, bomDep.ArtifactID, bomDep.Version, err)
				continue
			}
			// BOMs are interpolated with their own property chain, not the
			// consumer's: build a fresh, independent Model for them.
			bomModel, err := BuildModel(ctx, bomPOM, BuildOptions{
				Source:      opts.Source,
				Constraints: opts.Constraints,
				Lenient:     opts.Lenient,
			})
			if err != nil {
				return fmt.Errorf("build BOM model %s:%s:%s: %w", bomDep.GroupID, bomDep.ArtifactID, bomDep.Version, err)
			}
			for key, d := range bomModel.DepMgmt {
				if _, exists := m.DepMgmt[key]; !exists {
					m.DepMgmt[key] = d
				}
			}
		}
	}
}

func isBOMImport(d Dependency) bool {
	return strings.EqualFold(d.Scope, "import") && d.Packaging == "pom"
}

// injectManagement implements stage 5.
func injectManagement(m *Model, opts BuildOptions) error {
	for key, d := range m.Deps {
		managed, fromRoot := lookupManagement(key, opts.RootDepMgmt, m.DepMgmt)
		if managed != nil {
			if d.Version == "" || fromRoot {
				d.Version = managed.Version
			}
			if d.Scope == "" {
				d.Scope = managed.Scope
			}
			if len(d.Exclusions) == 0 {
				d.Exclusions = managed.Exclusions
			}
		}
		if d.Version == "" {
			if opts.Lenient {
				log.Warnf("jgo: dropping %s:%s, no version available", d.GroupID, d.ArtifactID)
				delete(m.Deps, key)
				continue
			}
			return fmt.Errorf("%w: %s:%s has no version and no management entry supplies one", ErrModelBuild, d.GroupID, d.ArtifactID)
		}
		m.Deps[key] = d
	}
	return nil
}

// lookupManagement looks up key first in root (enclosing-resolution)
// dependency management, then in the local management map.
func lookupManagement(key GACT, root, local map[GACT]Dependency) (*Dependency, bool) {
	if root != nil {
		if d, ok := root[key]; ok {
			return &d, true
		}
	}
	if d, ok := local[key]; ok {
		return &d, false
	}
	return nil, false
}

// applyDefaultScope implements stage 6.
func applyDefaultScope(m *Model) {
	for key, d := range m.Deps {
		if d.Scope != "" {
			continue
		}
		if d.Classifier == "tests" {
			d.Scope = "test"
		} else {
			d.Scope = DefaultScope
		}
		m.Deps[key] = d
	}
}

// dropUnresolved implements stage 7: in lenient mode, drop dependencies
// whose coordinates still contain an unresolved ${...} reference.
func dropUnresolved(m *Model) {
	for key, d := range m.Deps {
		if hasPlaceholder(d.GroupID) || hasPlaceholder(d.ArtifactID) || hasPlaceholder(d.Version) || hasPlaceholder(d.Classifier) || hasPlaceholder(d.Packaging) {
			log.Warnf("jgo: dropping %s:%s, unresolved property reference", d.GroupID, d.ArtifactID)
			delete(m.Deps, key)
		}
	}
}

func hasPlaceholder(s string) bool {
	return placeholderPattern.MatchString(s)
}
