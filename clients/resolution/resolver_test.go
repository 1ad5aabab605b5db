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

package resolution_test

import (
	"context"
	"testing"

	"github.com/scijava/jgo/clients/clienttest"
	"github.com/scijava/jgo/clients/datasource"
	"github.com/scijava/jgo/clients/resolution"
	"github.com/scijava/jgo/maven"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, srv *clienttest.MockHTTPServer) *resolution.Resolver {
	t.Helper()
	client, err := datasource.NewRegistryClient(datasource.Registry{URL: srv.URL, ReleasesEnabled: true}, t.TempDir())
	require.NoError(t, err)
	return resolution.New(client)
}

func TestResolve_DirectDependencyNoTransitive(t *testing.T) {
	srv := clienttest.NewMockHTTPServer(t)
	srv.SetResponse(t, "com/example/widget/1.0/widget-1.0.pom", []byte(`
		<project>
			<groupId>com.example</groupId>
			<artifactId>widget</artifactId>
			<version>1.0</version>
		</project>
	`))

	r := newTestResolver(t, srv)
	inputs := []maven.Dependency{
		{GroupID: "com.example", ArtifactID: "widget", Version: "1.0", Packaging: "jar", Scope: "compile"},
	}

	resolvedInputs, resolvedTransitive, err := r.Resolve(context.Background(), inputs, 0)
	require.NoError(t, err)
	require.Len(t, resolvedInputs, 1)
	require.Equal(t, "widget", resolvedInputs[0].Dependency.ArtifactID)
	require.Empty(t, resolvedTransitive)
}

func TestResolve_TransitiveClosureAndTestScopeDropped(t *testing.T) {
	srv := clienttest.NewMockHTTPServer(t)
	srv.SetResponse(t, "com/example/app/1.0/app-1.0.pom", []byte(`
		<project>
			<groupId>com.example</groupId>
			<artifactId>app</artifactId>
			<version>1.0</version>
			<dependencies>
				<dependency>
					<groupId>com.example</groupId>
					<artifactId>lib</artifactId>
					<version>2.0</version>
				</dependency>
				<dependency>
					<groupId>com.example</groupId>
					<artifactId>test-helper</artifactId>
					<version>1.0</version>
					<scope>test</scope>
				</dependency>
			</dependencies>
		</project>
	`))
	srv.SetResponse(t, "com/example/lib/2.0/lib-2.0.pom", []byte(`
		<project>
			<groupId>com.example</groupId>
			<artifactId>lib</artifactId>
			<version>2.0</version>
		</project>
	`))

	r := newTestResolver(t, srv)
	inputs := []maven.Dependency{
		{GroupID: "com.example", ArtifactID: "app", Version: "1.0", Packaging: "jar", Scope: "compile"},
	}

	resolvedInputs, resolvedTransitive, err := r.Resolve(context.Background(), inputs, 0)
	require.NoError(t, err)
	require.Len(t, resolvedInputs, 1)

	var names []string
	for _, rd := range resolvedTransitive {
		names = append(names, rd.Dependency.ArtifactID)
	}
	require.Contains(t, names, "lib")
	require.NotContains(t, names, "test-helper")
}

func TestDownloadBatch(t *testing.T) {
	srv := clienttest.NewMockHTTPServer(t)
	srv.SetResponse(t, "com/example/a/1.0/a-1.0.jar", []byte("jar-a"))
	srv.SetResponse(t, "com/example/b/1.0/b-1.0.jar", []byte("jar-b"))

	r := newTestResolver(t, srv)
	deps := []maven.Dependency{
		{GroupID: "com.example", ArtifactID: "a", Version: "1.0", Packaging: "jar"},
		{GroupID: "com.example", ArtifactID: "b", Version: "1.0", Packaging: "jar"},
	}

	paths, err := r.DownloadBatch(context.Background(), deps, 2)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		require.FileExists(t, p)
	}
}

func TestGetDependencyTree(t *testing.T) {
	srv := clienttest.NewMockHTTPServer(t)
	srv.SetResponse(t, "com/example/app/1.0/app-1.0.pom", []byte(`
		<project>
			<groupId>com.example</groupId>
			<artifactId>app</artifactId>
			<version>1.0</version>
			<dependencies>
				<dependency>
					<groupId>com.example</groupId>
					<artifactId>lib</artifactId>
					<version>2.0</version>
				</dependency>
			</dependencies>
		</project>
	`))
	srv.SetResponse(t, "com/example/lib/2.0/lib-2.0.pom", []byte(`
		<project>
			<groupId>com.example</groupId>
			<artifactId>lib</artifactId>
			<version>2.0</version>
		</project>
	`))

	r := newTestResolver(t, srv)
	inputs := []maven.Dependency{
		{GroupID: "com.example", ArtifactID: "app", Version: "1.0", Packaging: "jar", Scope: "compile"},
	}

	roots, err := r.GetDependencyTree(context.Background(), inputs, 0)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Equal(t, "app", roots[0].Dependency.ArtifactID)
	require.Len(t, roots[0].Children, 1)
	require.Equal(t, "lib", roots[0].Children[0].Dependency.ArtifactID)
}
