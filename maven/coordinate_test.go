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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_ScenarioA(t *testing.T) {
	c, err := Parse("org.foo:bar:natives-linux-x86_64")
	require.NoError(t, err)
	require.Equal(t, "org.foo", c.GroupID)
	require.Equal(t, "bar", c.ArtifactID)
	require.Equal(t, "natives-linux-x86_64", c.Classifier)
	require.Equal(t, "", c.Version)
	require.Equal(t, "jar", c.Packaging)

	c2, err := Parse("org.foo:bar:1.0.0")
	require.NoError(t, err)
	require.Equal(t, "1.0.0", c2.Version)
	require.Equal(t, "", c2.Classifier)
}

func TestParse_Shapes(t *testing.T) {
	tests := []struct {
		in   string
		want Coordinate
	}{
		{"org.foo:bar", Coordinate{GroupID: "org.foo", ArtifactID: "bar", Packaging: "jar"}},
		{"org.foo:bar:1.0", Coordinate{GroupID: "org.foo", ArtifactID: "bar", Version: "1.0", Packaging: "jar"}},
		{"org.foo:bar:pom", Coordinate{GroupID: "org.foo", ArtifactID: "bar", Packaging: "pom"}},
		{"org.foo:bar:jar:1.0", Coordinate{GroupID: "org.foo", ArtifactID: "bar", Packaging: "jar", Version: "1.0"}},
		{"org.foo:bar:1.0:sources", Coordinate{GroupID: "org.foo", ArtifactID: "bar", Version: "1.0", Classifier: "sources", Packaging: "jar"}},
		{"org.foo:bar:jar:sources:1.0", Coordinate{GroupID: "org.foo", ArtifactID: "bar", Packaging: "jar", Classifier: "sources", Version: "1.0"}},
		{"org.foo:bar:jar:sources:1.0:test", Coordinate{GroupID: "org.foo", ArtifactID: "bar", Packaging: "jar", Classifier: "sources", Version: "1.0", Scope: "test"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Suffixes(t *testing.T) {
	c, err := Parse("org.foo:bar:1.0 (optional)")
	require.NoError(t, err)
	require.True(t, c.Optional)
	require.Equal(t, "1.0", c.Version)

	c, err = Parse("org.foo:bar:1.0!")
	require.NoError(t, err)
	require.True(t, c.Raw)

	c, err = Parse(`org.foo:bar:1.0\!`)
	require.NoError(t, err)
	require.True(t, c.Raw)

	c, err = Parse("org.foo:bar:1.0(c)")
	require.NoError(t, err)
	require.Equal(t, PlacementClassPath, c.Placement)

	c, err = Parse("org.foo:bar:1.0(m)")
	require.NoError(t, err)
	require.Equal(t, PlacementModulePath, c.Placement)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("org.foo")
	require.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = Parse("a:b:c:d:e:f:g")
	require.ErrorIs(t, err, ErrInvalidCoordinate)
}

// TestRoundTrip verifies invariant 1: Parse(c.String()) re-parses equal.
func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"org.foo:bar",
		"org.foo:bar:1.0",
		"org.foo:bar:pom",
		"org.foo:bar:jar:1.0",
		"org.foo:bar:1.0:sources",
		"org.foo:bar:jar:sources:1.0",
		"org.foo:bar:jar:sources:1.0:test",
		"org.foo:bar:natives-linux-x86_64", // spec.md 8 Scenario A: classifier, no version
		"org.foo:bar:war:sources:",         // non-default packaging, classifier, no version
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			c1, err := Parse(in)
			require.NoError(t, err)
			c2, err := Parse(c1.String())
			require.NoError(t, err)
			require.Equal(t, c1, c2)
		})
	}
}
