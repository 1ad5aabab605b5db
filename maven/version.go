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
	"strings"

	"deps.dev/util/semver"
)

// CompareVersions orders two Maven version strings using the standard Maven
// algorithm (tokenize into alternating digit/word groups, qualifier
// ordering alpha < beta < milestone < rc/cr < snapshot < "" < sp).
func CompareVersions(a, b string) int {
	return semver.Maven.Compare(a, b)
}

// IsPrereleaseVersion reports whether v parses as a Maven prerelease
// version (alpha/beta/milestone/rc/snapshot qualifiers).
func IsPrereleaseVersion(v string) bool {
	parsed, err := semver.Maven.Parse(v)
	if err != nil {
		return false
	}
	return parsed.IsPrerelease()
}

// RepositoryVersions is a repository's contribution to a Project's version
// listing: the versions it advertises in maven-metadata.xml and the
// metadata document's own last-updated timestamp.
type RepositoryVersions struct {
	Repository  string
	Versions    []string
	LastUpdated string // opaque; ReleaseVersion and LatestVersion do not consult it
}

// ReleaseVersion implements spec 4.6's `release` policy: collect every
// version across all repository metadatas, drop any ending in -SNAPSHOT,
// and return the maximum under Maven version ordering. This is NOT simply
// "use the most-recently-lastUpdated repository": a newer release can sit
// in a repository whose metadata file happens to be stale.
func ReleaseVersion(repos []RepositoryVersions) (string, bool) {
	best := ""
	found := false
	for _, r := range repos {
		for _, v := range r.Versions {
			if strings.HasSuffix(v, "-SNAPSHOT") {
				continue
			}
			if !found || CompareVersions(v, best) > 0 {
				best = v
				found = true
			}
		}
	}
	return best, found
}

// LatestVersion implements spec 4.6's `latest` policy: collect every
// version across all repositories, including SNAPSHOT versions, and return
// the maximum under Maven version ordering.
func LatestVersion(repos []RepositoryVersions) (string, bool) {
	best := ""
	found := false
	for _, r := range repos {
		for _, v := range r.Versions {
			if !found || CompareVersions(v, best) > 0 {
				best = v
				found = true
			}
		}
	}
	return best, found
}
