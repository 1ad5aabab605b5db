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

import "strings"

// GACT is the (groupId, artifactId, classifier, packaging) tuple used as the
// map key during dependency-management lookup and mediation (spec glossary).
type GACT struct {
	GroupID    string
	ArtifactID string
	Classifier string
	Packaging  string
}

// GA is the (groupId, artifactId) pair, used as the mediation key for
// nearest-wins version selection and for exclusion matching.
type GA struct {
	GroupID    string
	ArtifactID string
}

func (ga GA) String() string {
	return ga.GroupID + ":" + ga.ArtifactID
}

// Matches reports whether ga matches an exclusion pattern, honoring the
// wildcards *:*, G:*, *:A, G:A (spec 4.3, transitive computation).
func (ga GA) Matches(pattern GA) bool {
	gMatch := pattern.GroupID == "*" || pattern.GroupID == ga.GroupID
	aMatch := pattern.ArtifactID == "*" || pattern.ArtifactID == ga.ArtifactID
	return gMatch && aMatch
}

// Dependency is a single <dependency> (or <dependencyManagement> entry) from
// a POM, after namespace-stripped XML decoding but before interpolation.
type Dependency struct {
	GroupID    string
	ArtifactID string
	Version    string
	Classifier string
	Packaging  string // <type>, defaults to "jar"
	Scope      string
	Optional   bool
	Raw        bool
	Exclusions []GA
}

// GA returns the dependency's (groupId, artifactId) pair.
func (d Dependency) GA() GA {
	return GA{GroupID: d.GroupID, ArtifactID: d.ArtifactID}
}

// GACT returns the dependency's (groupId, artifactId, classifier, packaging)
// key, used to look it up in dependencyManagement.
func (d Dependency) GACT() GACT {
	pkg := d.Packaging
	if pkg == "" {
		pkg = DefaultPackaging
	}
	return GACT{GroupID: d.GroupID, ArtifactID: d.ArtifactID, Classifier: d.Classifier, Packaging: pkg}
}

// DependencyOf converts a parsed Coordinate into a Dependency, the shape
// the Model builder and transitive-closure algorithm operate on.
func DependencyOf(c Coordinate) Dependency {
	return Dependency{
		GroupID:    c.GroupID,
		ArtifactID: c.ArtifactID,
		Version:    c.Version,
		Classifier: c.Classifier,
		Packaging:  c.Packaging,
		Scope:      c.Scope,
		Optional:   c.Optional,
		Raw:        c.Raw,
	}
}

// parseDependencyNode converts a raw <dependency> Node into a Dependency.
func parseDependencyNode(n *Node) Dependency {
	d := Dependency{
		GroupID:    n.Value("groupId"),
		ArtifactID: n.Value("artifactId"),
		Version:    n.Value("version"),
		Classifier: n.Value("classifier"),
		Packaging:  n.Value("type"),
		Scope:      n.Value("scope"),
		Optional:   strings.EqualFold(n.Value("optional"), "true"),
	}
	for _, ex := range n.Elements("exclusions/exclusion") {
		d.Exclusions = append(d.Exclusions, GA{
			GroupID:    valueOrWildcard(ex.Value("groupId")),
			ArtifactID: valueOrWildcard(ex.Value("artifactId")),
		})
	}
	return d
}

func valueOrWildcard(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
