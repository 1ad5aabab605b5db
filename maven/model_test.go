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
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryPOMSource struct {
	poms map[GA]string // GA -> raw pom.xml content, keyed ignoring version
}

func (s memoryPOMSource) LocalFile(path string) (io.ReadCloser, bool, error) {
	return nil, false, nil
}

func (s memoryPOMSource) FetchPOM(ctx context.Context, groupID, artifactID, version string) (*POM, error) {
	content, ok := s.poms[GA{GroupID: groupID, ArtifactID: artifactID}]
	if !ok {
		return nil, ErrArtifactNotFound
	}
	return ParsePOM(strings.NewReader(content))
}

func mustParsePOM(t *testing.T, content string) *POM {
	t.Helper()
	p, err := ParsePOM(strings.NewReader(content))
	require.NoError(t, err)
	return p
}

func TestBuildModel_PropertyInterpolation(t *testing.T) {
	pom := mustParsePOM(t, `<project>
		<groupId>com.example</groupId>
		<artifactId>app</artifactId>
		<version>1.0</version>
		<properties>
			<guava.version>31.1-jre</guava.version>
			<guava.full>guava-${guava.version}</guava.full>
		</properties>
		<dependencies>
			<dependency>
				<groupId>com.google.guava</groupId>
				<artifactId>guava</artifactId>
				<version>${guava.version}</version>
			</dependency>
		</dependencies>
	</project>`)

	m, err := BuildModel(context.Background(), pom, BuildOptions{})
	require.NoError(t, err)
	require.Equal(t, "guava-31.1-jre", m.Props["guava.full"])

	dep, ok := m.Deps[GACT{GroupID: "com.google.guava", ArtifactID: "guava", Packaging: "jar"}]
	require.True(t, ok)
	require.Equal(t, "31.1-jre", dep.Version)
	require.Equal(t, "compile", dep.Scope)
}

func TestBuildModel_DependencyManagementInjection(t *testing.T) {
	pom := mustParsePOM(t, `<project>
		<groupId>com.example</groupId>
		<artifactId>app</artifactId>
		<version>1.0</version>
		<dependencyManagement>
			<dependencies>
				<dependency>
					<groupId>com.google.guava</groupId>
					<artifactId>guava</artifactId>
					<version>31.1-jre</version>
					<scope>compile</scope>
				</dependency>
			</dependencies>
		</dependencyManagement>
		<dependencies>
			<dependency>
				<groupId>com.google.guava</groupId>
				<artifactId>guava</artifactId>
			</dependency>
		</dependencies>
	</project>`)

	m, err := BuildModel(context.Background(), pom, BuildOptions{})
	require.NoError(t, err)
	dep := m.Deps[GACT{GroupID: "com.google.guava", ArtifactID: "guava", Packaging: "jar"}]
	require.Equal(t, "31.1-jre", dep.Version)
}

func TestBuildModel_MissingVersionErrors(t *testing.T) {
	pom := mustParsePOM(t, `<project>
		<groupId>com.example</groupId>
		<artifactId>app</artifactId>
		<version>1.0</version>
		<dependencies>
			<dependency>
				<groupId>com.google.guava</groupId>
				<artifactId>guava</artifactId>
			</dependency>
		</dependencies>
	</project>`)

	_, err := BuildModel(context.Background(), pom, BuildOptions{})
	require.Error(t, err)
}

func TestBuildModel_LenientDropsUnresolvable(t *testing.T) {
	pom := mustParsePOM(t, `<project>
		<groupId>com.example</groupId>
		<artifactId>app</artifactId>
		<version>1.0</version>
		<dependencies>
			<dependency>
				<groupId>com.google.guava</groupId>
				<artifactId>guava</artifactId>
			</dependency>
		</dependencies>
	</project>`)

	m, err := BuildModel(context.Background(), pom, BuildOptions{Lenient: true})
	require.NoError(t, err)
	require.Empty(t, m.Deps)
}

func TestBuildModel_BOMImport(t *testing.T) {
	src := memoryPOMSource{poms: map[GA]string{
		{GroupID: "com.example", ArtifactID: "bom"}: `<project>
			<groupId>com.example</groupId>
			<artifactId>bom</artifactId>
			<version>1.0</version>
			<dependencyManagement>
				<dependencies>
					<dependency>
						<groupId>com.google.guava</groupId>
						<artifactId>guava</artifactId>
						<version>31.1-jre</version>
					</dependency>
				</dependencies>
			</dependencyManagement>
		</project>`,
	}}

	pom := mustParsePOM(t, `<project>
		<groupId>com.example</groupId>
		<artifactId>app</artifactId>
		<version>1.0</version>
		<dependencyManagement>
			<dependencies>
				<dependency>
					<groupId>com.example</groupId>
					<artifactId>bom</artifactId>
					<version>1.0</version>
					<type>pom</type>
					<scope>import</scope>
				</dependency>
			</dependencies>
		</dependencyManagement>
		<dependencies>
			<dependency>
				<groupId>com.google.guava</groupId>
				<artifactId>guava</artifactId>
			</dependency>
		</dependencies>
	</project>`)

	m, err := BuildModel(context.Background(), pom, BuildOptions{Source: src})
	require.NoError(t, err)
	dep := m.Deps[GACT{GroupID: "com.google.guava", ArtifactID: "guava", Packaging: "jar"}]
	require.Equal(t, "31.1-jre", dep.Version)
}

func TestBuildModel_ProfileActivationByProperty(t *testing.T) {
	pom := mustParsePOM(t, `<project>
		<groupId>com.example</groupId>
		<artifactId>app</artifactId>
		<version>1.0</version>
		<profiles>
			<profile>
				<id>with-extra</id>
				<activation>
					<property><name>enableExtra</name></property>
				</activation>
				<dependencies>
					<dependency>
						<groupId>com.example</groupId>
						<artifactId>extra</artifactId>
						<version>2.0</version>
					</dependency>
				</dependencies>
			</profile>
		</profiles>
	</project>`)

	m, err := BuildModel(context.Background(), pom, BuildOptions{
		Constraints: ProfileConstraints{Properties: map[string]string{"enableExtra": ""}},
	})
	require.NoError(t, err)
	_, ok := m.Deps[GACT{GroupID: "com.example", ArtifactID: "extra", Packaging: "jar"}]
	require.True(t, ok)

	m2, err := BuildModel(context.Background(), pom, BuildOptions{})
	require.NoError(t, err)
	_, ok = m2.Deps[GACT{GroupID: "com.example", ArtifactID: "extra", Packaging: "jar"}]
	require.False(t, ok)
}

// fakeProvider resolves dependencies against a fixed map of GA -> Model,
// mimicking a tiny in-memory dependency graph for transitive-closure tests.
type fakeProvider struct {
	models map[GA]*Model
}

func (p fakeProvider) ModelFor(ctx context.Context, d Dependency) (*Model, error) {
	m, ok := p.models[d.GA()]
	if !ok {
		return &Model{Deps: map[GACT]Dependency{}}, nil
	}
	return m, nil
}

func depNode(group, artifact, version, scope string) Dependency {
	return Dependency{GroupID: group, ArtifactID: artifact, Version: version, Packaging: "jar", Scope: scope}
}

// newTestModel builds a Model whose DepOrder matches the given dependencies'
// insertion order, matching what BuildModel itself would have produced.
func newTestModel(deps ...Dependency) *Model {
	m := &Model{Deps: map[GACT]Dependency{}}
	for _, d := range deps {
		key := d.GACT()
		m.Deps[key] = d
		m.DepOrder = append(m.DepOrder, key)
	}
	return m
}

func TestDependencies_NearestWinsMediation(t *testing.T) {
	// root -> a -> shared@1.0
	// root -> b -> shared@2.0
	// "a" is enqueued first, so shared@1.0 should win.
	a := depNode("com.example", "a", "1.0", "compile")
	b := depNode("com.example", "b", "1.0", "compile")

	aModel := newTestModel(depNode("com.example", "shared", "1.0", "compile"))
	bModel := newTestModel(depNode("com.example", "shared", "2.0", "compile"))
	provider := fakeProvider{models: map[GA]*Model{
		{GroupID: "com.example", ArtifactID: "a"}: aModel,
		{GroupID: "com.example", ArtifactID: "b"}: bModel,
	}}

	root := &Model{}
	resolved, _, err := root.Dependencies(context.Background(), []Dependency{a, b}, provider, 10, 0)
	require.NoError(t, err)

	var shared Dependency
	found := false
	for _, r := range resolved {
		if r.Dependency.ArtifactID == "shared" {
			shared = r.Dependency
			found = true
		}
	}
	require.True(t, found)
	require.Equal(t, "1.0", shared.Version)
}

func TestDependencies_ScopeTransition(t *testing.T) {
	runtimeDep := depNode("com.example", "r", "1.0", "runtime")
	childModel := newTestModel(depNode("com.example", "child", "1.0", "compile"))
	provider := fakeProvider{models: map[GA]*Model{
		{GroupID: "com.example", ArtifactID: "r"}: childModel,
	}}

	root := &Model{}
	resolved, _, err := root.Dependencies(context.Background(), []Dependency{runtimeDep}, provider, 10, 0)
	require.NoError(t, err)

	for _, r := range resolved {
		if r.Dependency.ArtifactID == "child" {
			require.Equal(t, "runtime", r.Dependency.Scope)
		}
	}
}

func TestDependencies_ProvidedNotTransitive(t *testing.T) {
	providedDep := depNode("com.example", "p", "1.0", "provided")
	childModel := newTestModel(depNode("com.example", "child", "1.0", "compile"))
	provider := fakeProvider{models: map[GA]*Model{
		{GroupID: "com.example", ArtifactID: "p"}: childModel,
	}}

	root := &Model{}
	resolved, _, err := root.Dependencies(context.Background(), []Dependency{providedDep}, provider, 10, 0)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	require.Equal(t, "p", resolved[0].Dependency.ArtifactID)
}

func TestDependencies_OptionalDroppedPastDepthZero(t *testing.T) {
	a := depNode("com.example", "a", "1.0", "compile")
	optionalChild := depNode("com.example", "opt", "1.0", "compile")
	optionalChild.Optional = true
	aModel := newTestModel(optionalChild)
	provider := fakeProvider{models: map[GA]*Model{
		{GroupID: "com.example", ArtifactID: "a"}: aModel,
	}}

	root := &Model{}
	resolved, _, err := root.Dependencies(context.Background(), []Dependency{a}, provider, 10, 0)
	require.NoError(t, err)
	for _, r := range resolved {
		require.NotEqual(t, "opt", r.Dependency.ArtifactID)
	}
}

func TestDependencies_ExclusionPropagation(t *testing.T) {
	a := depNode("com.example", "a", "1.0", "compile")
	a.Exclusions = []GA{{GroupID: "com.example", ArtifactID: "excluded"}}
	aModel := newTestModel(depNode("com.example", "excluded", "1.0", "compile"))
	provider := fakeProvider{models: map[GA]*Model{
		{GroupID: "com.example", ArtifactID: "a"}: aModel,
	}}

	root := &Model{}
	resolved, _, err := root.Dependencies(context.Background(), []Dependency{a}, provider, 10, 0)
	require.NoError(t, err)
	for _, r := range resolved {
		require.NotEqual(t, "excluded", r.Dependency.ArtifactID)
	}
}
