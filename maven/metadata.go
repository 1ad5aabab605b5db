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
	"strings"
)

// SnapshotBuild is one <snapshotVersion> entry from a SNAPSHOT version's
// maven-metadata.xml: the timestamped build that a classifier/packaging
// pair currently resolves to.
type SnapshotBuild struct {
	Classifier string
	Packaging  string
	Value      string // e.g. "1.0-20230101.120000-3"
	Updated    string
}

// ProjectMetadata is the parsed content of a single repository's project-
// level maven-metadata.xml (lists every version known to that repository).
type ProjectMetadata struct {
	Repository  string
	GroupID     string
	ArtifactID  string
	Versions    []string
	LastUpdated string
}

// SnapshotMetadata is the parsed content of a version-level
// maven-metadata.xml for a *-SNAPSHOT component: the timestamp/build number
// current at the time of fetch, plus per-artifact snapshot build values.
type SnapshotMetadata struct {
	Timestamp   string
	BuildNumber string
	Snapshots   []SnapshotBuild
}

// ParseProjectMetadata decodes a project-level maven-metadata.xml document.
func ParseProjectMetadata(r io.Reader, repository string) (*ProjectMetadata, error) {
	root, err := decodeNode(r)
	if err != nil {
		return nil, fmt.Errorf("parse maven-metadata.xml: %w", err)
	}
	m := &ProjectMetadata{
		Repository:  repository,
		GroupID:     root.Value("groupId"),
		ArtifactID:  root.Value("artifactId"),
		Versions:    root.Values("versioning/versions/version"),
		LastUpdated: root.Value("versioning/lastUpdated"),
	}
	return m, nil
}

// ParseSnapshotMetadata decodes a version-level maven-metadata.xml document
// for a *-SNAPSHOT component.
func ParseSnapshotMetadata(r io.Reader) (*SnapshotMetadata, error) {
	root, err := decodeNode(r)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot maven-metadata.xml: %w", err)
	}
	m := &SnapshotMetadata{
		Timestamp:   root.Value("versioning/snapshot/timestamp"),
		BuildNumber: root.Value("versioning/snapshot/buildNumber"),
	}
	for _, n := range root.Elements("versioning/snapshotVersions/snapshotVersion") {
		m.Snapshots = append(m.Snapshots, SnapshotBuild{
			Classifier: n.Value("classifier"),
			Packaging:  n.Value("extension"),
			Value:      n.Value("value"),
			Updated:    n.Value("updated"),
		})
	}
	return m, nil
}

// FilenameFor looks up the timestamped snapshot build matching
// (classifier, packaging). When packaging is empty it matches any
// extension; classifier "" matches the main artifact (empty classifier).
func (m *SnapshotMetadata) FilenameFor(classifier, packaging string) (string, bool) {
	for _, s := range m.Snapshots {
		if s.Classifier != classifier {
			continue
		}
		if packaging != "" && s.Packaging != packaging {
			continue
		}
		return s.Value, true
	}
	return "", false
}

// BuildVersion returns the "<version-without-SNAPSHOT>-<timestamp>-<build>"
// string built from the metadata's <snapshot> element, or version unchanged
// when the timestamp or build number is missing. The registry client does
// not call it: when no per-artifact snapshotVersion entry matches, it
// downloads the plain -SNAPSHOT filename.
func (m *SnapshotMetadata) BuildVersion(version string) string {
	base := strings.TrimSuffix(version, "-SNAPSHOT")
	if m.Timestamp == "" || m.BuildNumber == "" {
		return version
	}
	return base + "-" + m.Timestamp + "-" + m.BuildNumber
}

// ArtifactFilename computes an artifact's standard (non-SNAPSHOT) download
// filename: "<artifactId>-<version>[-<classifier>].<packaging>".
func ArtifactFilename(artifactID, version, classifier, packaging string) string {
	name := artifactID + "-" + version
	if classifier != "" {
		name += "-" + classifier
	}
	return name + "." + packaging
}

// SnapshotDownloadFilename computes the timestamped filename used to
// download a SNAPSHOT artifact, given the resolved build-version string
// (from SnapshotMetadata.BuildVersion or a snapshotVersion's Value).
func SnapshotDownloadFilename(artifactID, buildVersion, classifier, packaging string) string {
	name := artifactID + "-" + buildVersion
	if classifier != "" {
		name += "-" + classifier
	}
	return name + "." + packaging
}
