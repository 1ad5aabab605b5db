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
	"os"
	"path/filepath"
	"strings"
)

// ProfileConstraints is the environment a profile's <activation> is
// evaluated against: JDK version, OS identity, ambient properties, and the
// base directory used to resolve file-existence checks (spec 4.3 stage 1).
type ProfileConstraints struct {
	JDKVersion  string
	OSName      string
	OSFamily    string
	OSArch      string
	OSVersion   string
	Properties  map[string]string
	BaseDir     string
}

// Activation mirrors a POM <activation> block.
type Activation struct {
	ActiveByDefault bool
	JDK             string // exact version or a range like "[1.5,1.6)"
	OSName          string
	OSFamily        string
	OSArch          string
	OSVersion       string
	PropertyName    string
	PropertyValue   string // "" means "just needs to be present"
	FileExists      string
	FileMissing     string
}

func parseActivationNode(n *Node) Activation {
	a := Activation{
		ActiveByDefault: strings.EqualFold(n.Value("activeByDefault"), "true"),
		JDK:             n.Value("jdk"),
		OSName:          n.Value("os/name"),
		OSFamily:        n.Value("os/family"),
		OSArch:          n.Value("os/arch"),
		OSVersion:       n.Value("os/version"),
		PropertyName:    n.Value("property/name"),
		PropertyValue:   n.Value("property/value"),
		FileExists:      n.Value("file/exists"),
		FileMissing:     n.Value("file/missing"),
	}
	return a
}

// Profile is a POM <profile>: an Activation plus the properties,
// dependencies and dependencyManagement it contributes when active.
type Profile struct {
	ID           string
	Activation   Activation
	Properties   map[string]string
	Dependencies []Dependency
	DepMgmt      []Dependency
}

func parseProfileNode(n *Node) Profile {
	p := Profile{
		ID:         n.Value("id"),
		Properties: n.PropertyMap("properties"),
	}
	if act := n.Elements("activation"); len(act) > 0 {
		p.Activation = parseActivationNode(act[0])
	}
	for _, d := range n.Elements("dependencies/dependency") {
		p.Dependencies = append(p.Dependencies, parseDependencyNode(d))
	}
	for _, d := range n.Elements("dependencyManagement/dependencies/dependency") {
		p.DepMgmt = append(p.DepMgmt, parseDependencyNode(d))
	}
	return p
}

// negatable strips a leading "!" and reports whether the remainder should
// be negated, used for the OS activation fields and the property name per
// spec 4.3. JDK activation values are not negatable.
func negatable(s string) (value string, negate bool) {
	if strings.HasPrefix(s, "!") {
		return strings.TrimPrefix(s, "!"), true
	}
	return s, false
}

func matchNegatable(want, have string) bool {
	if want == "" {
		return true
	}
	value, negate := negatable(want)
	eq := strings.EqualFold(value, have)
	if negate {
		return !eq
	}
	return eq
}

// IsActive evaluates this profile's Activation against c, per spec 4.3
// stage 1: JDK version/range, OS fields with "!" negation, property
// presence/equality, file existence/missing.
func (a Activation) IsActive(c ProfileConstraints) bool {
	if a == (Activation{}) {
		return false
	}

	matched := false
	anyCondition := false

	if a.JDK != "" {
		anyCondition = true
		if jdkMatches(a.JDK, c.JDKVersion) {
			matched = true
		} else {
			return false
		}
	}
	if a.OSName != "" {
		anyCondition = true
		if matchNegatable(a.OSName, c.OSName) {
			matched = true
		} else {
			return false
		}
	}
	if a.OSFamily != "" {
		anyCondition = true
		if matchNegatable(a.OSFamily, c.OSFamily) {
			matched = true
		} else {
			return false
		}
	}
	if a.OSArch != "" {
		anyCondition = true
		if matchNegatable(a.OSArch, c.OSArch) {
			matched = true
		} else {
			return false
		}
	}
	if a.OSVersion != "" {
		anyCondition = true
		if matchNegatable(a.OSVersion, c.OSVersion) {
			matched = true
		} else {
			return false
		}
	}
	if a.PropertyName != "" {
		anyCondition = true
		name, negate := negatable(a.PropertyName)
		val, present := c.Properties[name]
		ok := present
		if a.PropertyValue != "" {
			ok = present && val == a.PropertyValue
		}
		if negate {
			ok = !ok
		}
		if !ok {
			return false
		}
		matched = true
	}
	if a.FileExists != "" {
		anyCondition = true
		if fileCheck(c.BaseDir, a.FileExists, true) {
			matched = true
		} else {
			return false
		}
	}
	if a.FileMissing != "" {
		anyCondition = true
		if fileCheck(c.BaseDir, a.FileMissing, false) {
			matched = true
		} else {
			return false
		}
	}

	if !anyCondition {
		return a.ActiveByDefault
	}
	return matched
}

func fileCheck(baseDir, path string, wantExists bool) bool {
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	_, err := os.Stat(path)
	exists := err == nil
	return exists == wantExists
}

// jdkMatches supports an exact version or a Maven-style range such as
// "[1.5,1.6)" or "1.5+".
func jdkMatches(want, have string) bool {
	if have == "" {
		return false
	}
	if !strings.ContainsAny(want, "[](),") {
		if strings.HasSuffix(want, "+") {
			return CompareVersions(have, strings.TrimSuffix(want, "+")) >= 0
		}
		return want == have
	}
	return jdkRangeMatches(want, have)
}

func jdkRangeMatches(rng, have string) bool {
	rng = strings.TrimSpace(rng)
	if len(rng) < 2 {
		return false
	}
	lowerInclusive := rng[0] == '['
	upperInclusive := rng[len(rng)-1] == ']'
	inner := rng[1 : len(rng)-1]
	parts := strings.SplitN(inner, ",", 2)
	lower := strings.TrimSpace(parts[0])
	upper := ""
	if len(parts) == 2 {
		upper = strings.TrimSpace(parts[1])
	}

	if lower != "" {
		cmp := CompareVersions(have, lower)
		if lowerInclusive {
			if cmp < 0 {
				return false
			}
		} else if cmp <= 0 {
			return false
		}
	}
	if upper != "" {
		cmp := CompareVersions(have, upper)
		if upperInclusive {
			if cmp > 0 {
				return false
			}
		} else if cmp >= 0 {
			return false
		}
	}
	return true
}

// injectImplicitProperties adds os.name/os.arch/os.family/os.version/basedir
// at lowest priority, plus project.* properties derived from the POM's own
// identity, per spec 4.3 stage 3.
func injectImplicitProperties(props map[string]string, c ProfileConstraints, groupID, artifactID, version, name, description string) {
	setIfAbsent(props, "os.name", c.OSName)
	setIfAbsent(props, "os.arch", c.OSArch)
	setIfAbsent(props, "os.family", c.OSFamily)
	setIfAbsent(props, "os.version", c.OSVersion)
	setIfAbsent(props, "basedir", c.BaseDir)
	setIfAbsent(props, "project.groupId", groupID)
	setIfAbsent(props, "project.artifactId", artifactID)
	setIfAbsent(props, "project.version", version)
	setIfAbsent(props, "project.name", name)
	setIfAbsent(props, "project.description", description)
}

func setIfAbsent(m map[string]string, key, value string) {
	if value == "" {
		return
	}
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}
