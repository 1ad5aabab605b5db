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
	"sort"
)

// ResolvedDependency is one entry of a mediated transitive closure: the
// winning Dependency (scope already transformed to its effective value)
// together with the depth it was first reached at.
type ResolvedDependency struct {
	Dependency Dependency
	Depth      int
}

// DependencyNode is one node of the (unmediated) dependency tree, used for
// reporting (spec 4.4, get_dependency_tree).
type DependencyNode struct {
	Dependency Dependency
	Children   []*DependencyNode
}

// ModelProvider builds the effective Model for the POM a dependency
// resolves to. Implementations typically fetch the POM over a configured
// repository client and run it through BuildModel; kept as an interface so
// this package never performs network IO itself.
type ModelProvider interface {
	ModelFor(ctx context.Context, d Dependency) (*Model, error)
}

type queueItem struct {
	dep        Dependency
	exclusions []GA
	depth      int
	node       *DependencyNode
}

// Dependencies computes the mediated transitive closure of inputs, per
// spec 4.3's breadth-first nearest-wins algorithm: a FIFO queue of pending
// dependencies carrying accumulated exclusions, a resolved map keyed by
// GACT holding the first (nearest) occurrence, the Maven scope-transition
// table, and an optional-dependency depth cutoff.
//
// maxDepth bounds total recursion depth (0 means inputs only). optionalDepth
// bounds how deep an optional dependency may still be included; the default
// of 0 means optional transitive dependencies are never pulled in, though
// optional entries among inputs themselves are always kept.
func (root *Model) Dependencies(ctx context.Context, inputs []Dependency, provider ModelProvider, maxDepth, optionalDepth int) ([]ResolvedDependency, []*DependencyNode, error) {
	resolved := map[GACT]ResolvedDependency{}
	var order []GACT
	var roots []*DependencyNode

	var queue []queueItem
	for _, d := range inputs {
		node := &DependencyNode{Dependency: d}
		roots = append(roots, node)
		queue = append(queue, queueItem{dep: d, exclusions: d.Exclusions, depth: 0, node: node})
	}

	for len(queue) > 0 {
		var next []queueItem
		for _, item := range queue {
			key := item.dep.GACT()
			if _, seen := resolved[key]; seen {
				continue
			}
			resolved[key] = ResolvedDependency{Dependency: item.dep, Depth: item.depth}
			order = append(order, key)

			if item.depth >= maxDepth {
				continue
			}
			if !recursesFromScope(item.dep.Scope) {
				continue
			}

			m, err := provider.ModelFor(ctx, item.dep)
			if err != nil {
				return nil, nil, err
			}
			if m == nil {
				continue
			}

			childExclusions := append(append([]GA{}, item.exclusions...), item.dep.Exclusions...)
			for _, child := range m.OrderedDeps() {
				if excluded(child.GA(), childExclusions) {
					continue
				}
				childDepth := item.depth + 1
				if child.Optional && childDepth > optionalDepth {
					continue
				}
				effectiveScope, propagate := scopeForChild(item.dep.Scope, child.Scope)
				if !propagate {
					continue
				}
				child.Scope = effectiveScope
				childNode := &DependencyNode{Dependency: child}
				item.node.Children = append(item.node.Children, childNode)
				next = append(next, queueItem{dep: child, exclusions: childExclusions, depth: childDepth, node: childNode})
			}
		}
		queue = next
	}

	out := make([]ResolvedDependency, 0, len(order))
	for _, key := range order {
		out = append(out, resolved[key])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Depth < out[j].Depth })
	return out, roots, nil
}

// recursesFromScope reports whether a dependency with this effective scope
// contributes its own transitive dependencies. provided and test scopes are
// leaves: they're included in the closure but never expanded further.
func recursesFromScope(scope string) bool {
	return scope == "compile" || scope == "runtime" || scope == ""
}

// scopeForChild maps a child's declared scope through its parent's
// effective scope per the Maven scope-transition table (spec 4.3):
// compile+compile->compile, compile+runtime->runtime, runtime+*->runtime.
// Any other combination is dropped (not propagated).
func scopeForChild(parentScope, childScope string) (string, bool) {
	switch parentScope {
	case "compile", "":
		switch childScope {
		case "compile", "":
			return "compile", true
		case "runtime":
			return "runtime", true
		default:
			return "", false
		}
	case "runtime":
		return "runtime", true
	default:
		return "", false
	}
}

func excluded(ga GA, exclusions []GA) bool {
	for _, pattern := range exclusions {
		if ga.Matches(pattern) {
			return true
		}
	}
	return false
}
