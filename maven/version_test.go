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

// TestReleaseVersion_ScenarioD: R1 has [1.0, 1.5] with a newer lastUpdated,
// R2 has [2.0] with an older lastUpdated. release must still return 2.0.
func TestReleaseVersion_ScenarioD(t *testing.T) {
	repos := []RepositoryVersions{
		{Repository: "R1", Versions: []string{"1.0", "1.5"}, LastUpdated: "T2"},
		{Repository: "R2", Versions: []string{"2.0"}, LastUpdated: "T1"},
	}
	v, ok := ReleaseVersion(repos)
	require.True(t, ok)
	require.Equal(t, "2.0", v)
}

func TestReleaseVersion_DropsSnapshots(t *testing.T) {
	repos := []RepositoryVersions{
		{Versions: []string{"1.0", "2.0-SNAPSHOT"}},
	}
	v, ok := ReleaseVersion(repos)
	require.True(t, ok)
	require.Equal(t, "1.0", v)
}

func TestLatestVersion_IncludesSnapshots(t *testing.T) {
	repos := []RepositoryVersions{
		{Versions: []string{"1.0", "2.0-SNAPSHOT"}},
	}
	v, ok := LatestVersion(repos)
	require.True(t, ok)
	require.Equal(t, "2.0-SNAPSHOT", v)
}

func TestCompareVersions_QualifierOrdering(t *testing.T) {
	require.True(t, CompareVersions("1.0-alpha", "1.0-beta") < 0)
	require.True(t, CompareVersions("1.0-beta", "1.0-milestone") < 0)
	require.True(t, CompareVersions("1.0-milestone", "1.0-rc") < 0)
	require.True(t, CompareVersions("1.0-rc", "1.0-SNAPSHOT") < 0)
	require.True(t, CompareVersions("1.0-SNAPSHOT", "1.0") < 0)
	require.True(t, CompareVersions("1.0", "1.0-sp") < 0)
}
