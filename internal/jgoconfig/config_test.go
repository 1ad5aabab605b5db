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

package jgoconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/scijava/jgo/internal/jgoconfig"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[environment]
name = "widget-env"

[java]
version = "17"
vendor = "temurin"

[[repositories]]
id = "sonatype-snapshots"
url = "https://oss.sonatype.org/content/repositories/snapshots"
releases = false
snapshots = true

[dependencies]
coordinates = ["com.example:widget:1.0", "com.example:gizmo:2.0"]
exclusions = ["org.slf4j:*"]

[entrypoints]
run = "com.example.Main"
debug = "com.example.DebugMain"
default = "run"

[settings]
link_strategy = "HARD"
cache_dir = "/tmp/jgo-cache"
`

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jgo.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DecodesAllSections(t *testing.T) {
	path := writeTOML(t, sampleTOML)

	cfg, err := jgoconfig.Load(path)
	require.NoError(t, err)

	require.Equal(t, "widget-env", cfg.Environment.Name)
	require.Equal(t, "17", cfg.Java.Version)
	require.Equal(t, "temurin", cfg.Java.Vendor)

	require.Len(t, cfg.Repositories, 1)
	require.Equal(t, "sonatype-snapshots", cfg.Repositories[0].ID)
	require.True(t, cfg.Repositories[0].Snapshots)
	require.False(t, cfg.Repositories[0].Releases)

	require.Equal(t, []string{"com.example:widget:1.0", "com.example:gizmo:2.0"}, cfg.Dependencies.Coordinates)
	require.Equal(t, []string{"org.slf4j:*"}, cfg.Dependencies.Exclusions)

	require.Equal(t, "com.example.Main", cfg.Entrypoints["run"])
	class, ok := cfg.Entrypoints.DefaultClass()
	require.True(t, ok)
	require.Equal(t, "com.example.Main", class)

	require.Equal(t, "HARD", cfg.Settings.LinkStrategy)
	require.Equal(t, "/tmp/jgo-cache", cfg.Settings.CacheDir)
}

func TestLoad_RejectsEmptyCoordinates(t *testing.T) {
	path := writeTOML(t, `
[dependencies]
coordinates = []
`)

	_, err := jgoconfig.Load(path)
	require.ErrorIs(t, err, jgoconfig.ErrNoCoordinates)
}

func TestLoad_RejectsUnknownDefaultEntrypoint(t *testing.T) {
	path := writeTOML(t, `
[dependencies]
coordinates = ["com.example:widget:1.0"]

[entrypoints]
run = "com.example.Main"
default = "launch"
`)

	_, err := jgoconfig.Load(path)
	require.ErrorIs(t, err, jgoconfig.ErrUnknownDefaultEntrypoint)
}

func TestEntrypoints_DefaultClass_NoDefaultConfigured(t *testing.T) {
	e := jgoconfig.Entrypoints{"run": "com.example.Main"}
	_, ok := e.DefaultClass()
	require.False(t, ok)
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := writeTOML(t, `this is not valid toml [[[`)

	_, err := jgoconfig.Load(path)
	require.Error(t, err)
}
