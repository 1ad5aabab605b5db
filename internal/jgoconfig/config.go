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

// Package jgoconfig decodes jgo.toml, the input spec that names an
// environment's dependencies, repositories, entrypoints, and build settings
// (spec 3, "jgo.toml (input spec)"). The environment builder reads it;
// nothing in this module writes it back.
package jgoconfig

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// ErrNoCoordinates is returned when [dependencies].coordinates is empty.
var ErrNoCoordinates = errors.New("jgo.toml: dependencies.coordinates must not be empty")

// ErrUnknownDefaultEntrypoint is returned when [entrypoints].default names a
// key that isn't present in the same table.
var ErrUnknownDefaultEntrypoint = errors.New("jgo.toml: entrypoints.default names an unknown entry")

// Config is the decoded shape of jgo.toml.
type Config struct {
	Environment  Environment  `toml:"environment"`
	Java         Java         `toml:"java"`
	Repositories []Repository `toml:"repositories"`
	Dependencies Dependencies `toml:"dependencies"`
	Entrypoints  Entrypoints  `toml:"entrypoints"`
	Settings     Settings     `toml:"settings"`
}

// Environment names the environment being built.
type Environment struct {
	Name string `toml:"name"`
}

// Java constrains the JVM an environment is built against.
type Java struct {
	Version string `toml:"version"`
	Vendor  string `toml:"vendor"`
}

// Repository is one configured Maven repository, beyond the implicit
// Maven Central default.
type Repository struct {
	ID        string `toml:"id"`
	URL       string `toml:"url"`
	Releases  bool   `toml:"releases"`
	Snapshots bool   `toml:"snapshots"`
}

// Dependencies lists the top-level coordinates an environment resolves from,
// plus exclusions applied across the whole resolution (spec 4.3).
type Dependencies struct {
	Coordinates []string `toml:"coordinates"`
	Exclusions  []string `toml:"exclusions,omitempty"`
}

// Entrypoints maps a named entrypoint to a fully- or partially-qualified
// main class, plus the reserved "default" key naming which entry to launch
// when none is specified on the command line (spec 4.5 main-class priority).
type Entrypoints map[string]string

// DefaultClass resolves the reserved "default" key to the main-class string
// it points at. Returns ok=false when no default is configured.
func (e Entrypoints) DefaultClass() (class string, ok bool) {
	name, hasDefault := e["default"]
	if !hasDefault || name == "" {
		return "", false
	}
	class, ok = e[name]
	return class, ok
}

// Settings holds per-environment build knobs that aren't part of the
// dependency set itself.
type Settings struct {
	LinkStrategy string `toml:"link_strategy"`
	CacheDir     string `toml:"cache_dir"`
}

// Load decodes path as jgo.toml and validates the fixed invariants that
// don't depend on a live resolver: at least one coordinate, and a default
// entrypoint (if set) that actually resolves.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("jgoconfig: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants Load enforces, exported so callers that
// build a Config in memory (tests, programmatic construction) can reuse it.
func (c *Config) Validate() error {
	if len(c.Dependencies.Coordinates) == 0 {
		return ErrNoCoordinates
	}
	if name, hasDefault := c.Entrypoints["default"]; hasDefault && name != "" {
		if _, ok := c.Entrypoints[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownDefaultEntrypoint, name)
		}
	}
	return nil
}
