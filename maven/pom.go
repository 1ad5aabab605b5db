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
	"fmt"
	"io"
)

// ParentRef is a POM's <parent> declaration.
type ParentRef struct {
	GroupID      string
	ArtifactID   string
	Version      string
	RelativePath string
}

// Repository is a <repository> declared in a POM.
type Repository struct {
	ID               string
	URL              string
	ReleasesEnabled  bool
	SnapshotsEnabled bool
}

// POM is an in-memory representation of a parsed pom.xml (spec 3, "POM").
// All navigation is namespace-agnostic: prefixes are stripped once, at
// decode time, by Node.
type POM struct {
	root *Node

	GroupID     string
	ArtifactID  string
	Version     string
	Packaging   string
	Name        string
	Description string

	Properties map[string]string

	Parent  *ParentRef
	Profiles []Profile

	Dependencies       []Dependency
	DependencyManagement []Dependency

	Repositories []Repository
}

// ParsePOM decodes a pom.xml document from r.
func ParsePOM(r io.Reader) (*POM, error) {
	root, err := decodeNode(r)
	if err != nil {
		return nil, fmt.Errorf("parse pom.xml: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("parse pom.xml: empty document")
	}

	p := &POM{
		root:        root,
		GroupID:     root.Value("groupId"),
		ArtifactID:  root.Value("artifactId"),
		Version:     root.Value("version"),
		Packaging:   root.Value("packaging"),
		Name:        root.Value("name"),
		Description: root.Value("description"),
		Properties:  root.PropertyMap("properties"),
	}
	if p.Packaging == "" {
		p.Packaging = DefaultPackaging
	}
	if p.Properties == nil {
		p.Properties = map[string]string{}
	}

	if parents := root.Elements("parent"); len(parents) > 0 {
		pn := parents[0]
		relPath := pn.Value("relativePath")
		if relPath == "" {
			relPath = "../pom.xml"
		}
		p.Parent = &ParentRef{
			GroupID:      pn.Value("groupId"),
			ArtifactID:   pn.Value("artifactId"),
			Version:      pn.Value("version"),
			RelativePath: relPath,
		}
		if p.GroupID == "" {
			p.GroupID = p.Parent.GroupID
		}
		if p.Version == "" {
			p.Version = p.Parent.Version
		}
	}

	for _, d := range root.Elements("dependencies/dependency") {
		p.Dependencies = append(p.Dependencies, parseDependencyNode(d))
	}
	for _, d := range root.Elements("dependencyManagement/dependencies/dependency") {
		p.DependencyManagement = append(p.DependencyManagement, parseDependencyNode(d))
	}
	for _, pr := range root.Elements("profiles/profile") {
		p.Profiles = append(p.Profiles, parseProfileNode(pr))
	}
	for _, rep := range root.Elements("repositories/repository") {
		p.Repositories = append(p.Repositories, Repository{
			ID:               rep.Value("id"),
			URL:              rep.Value("url"),
			ReleasesEnabled:  rep.Value("releases/enabled") != "false",
			SnapshotsEnabled: rep.Value("snapshots/enabled") == "true",
		})
	}

	return p, nil
}

// Value navigates an arbitrary path from the POM's root element, for
// callers that need a field this typed struct doesn't expose (spec 3,
// "Element/XPath-style navigation").
func (p *POM) Value(path string) string {
	return p.root.Value(path)
}

// Values navigates an arbitrary path and returns every matching text value.
func (p *POM) Values(path string) []string {
	return p.root.Values(path)
}

// Elements navigates an arbitrary path and returns every matching element.
func (p *POM) Elements(path string) []*Node {
	return p.root.Elements(path)
}

// GA identifies the Project (groupId, artifactId) this POM belongs
// to, falling back to the parent's groupId when the POM omits its own
// (spec 4.2).
func (p *POM) GA() GA {
	return GA{GroupID: p.GroupID, ArtifactID: p.ArtifactID}
}
