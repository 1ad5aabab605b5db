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

package env_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/scijava/jgo/env"
	"github.com/stretchr/testify/require"
)

func TestLockFile_WriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jgo.lock.toml")

	lf := &env.LockFile{
		Dependencies: []env.LockedDependency{
			{
				GroupID:    "com.example",
				ArtifactID: "widget",
				Version:    "1.0",
				Packaging:  "jar",
				SHA256:     "deadbeef",
				IsModular:  true,
				ModuleName: "com.example.widget",
				JarType:    "AUTOMATIC",
			},
		},
		EnvironmentName:   "widget-env",
		MinJavaVersion:    11,
		Entrypoints:       map[string]string{"run": "com.example.Main"},
		DefaultEntrypoint: "run",
		SpecHash:          "abc123",
		LinkStrategy:      env.LinkAuto,
	}
	require.NoError(t, lf.Write(path))

	got, err := env.ReadLockFile(path)
	require.NoError(t, err)
	require.Equal(t, lf.EnvironmentName, got.EnvironmentName)
	require.Equal(t, lf.MinJavaVersion, got.MinJavaVersion)
	require.Equal(t, lf.DefaultEntrypoint, got.DefaultEntrypoint)
	require.Equal(t, lf.LinkStrategy, got.LinkStrategy)
	require.Len(t, got.Dependencies, 1)
	require.Equal(t, "widget", got.Dependencies[0].ArtifactID)
	require.Equal(t, "com.example.Main", got.Entrypoints["run"])
}

func TestSpecHash_DeterministicForSameContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jgo.toml")
	require.NoError(t, os.WriteFile(path, []byte("[dependencies]\ncoordinates = [\"com.example:widget:1.0\"]\n"), 0o644))

	h1, err := env.SpecHash(path)
	require.NoError(t, err)
	h2, err := env.SpecHash(path)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64)
}
