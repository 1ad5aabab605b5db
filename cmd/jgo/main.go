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

// Command jgo is a minimal example entrypoint: it reads a jgo.toml, builds
// (or reuses) the environment it describes, and prints the classpath/
// module-path and main-class a caller would hand to `java`. It is not a
// full CLI (no subcommands, no dependency-tree printer) — those live in the
// library packages this binary wires together, for a caller that wants more.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/scijava/jgo/clients/datasource"
	"github.com/scijava/jgo/clients/resolution"
	"github.com/scijava/jgo/env"
	"github.com/scijava/jgo/internal/jgoconfig"
	"github.com/scijava/jgo/log"
	"github.com/scijava/jgo/maven"
)

func main() {
	if err := run(); err != nil {
		log.Errorf("jgo: %v", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		specPath   = flag.String("config", "jgo.toml", "path to the jgo.toml environment spec")
		cacheDir   = flag.String("cache-dir", defaultCacheDir(), "artifact and environment cache directory")
		update     = flag.Bool("update", false, "force re-resolution even if a cached environment is valid")
		entrypoint = flag.String("entrypoint", "", "named entrypoint to launch (overrides jgo.toml's default)")
		maxWorkers = flag.Int("max-workers", 8, "maximum concurrent artifact downloads")
		verbose    = flag.Bool("verbose", false, "log cache hits/misses and retry backoff at debug level")
	)
	flag.Parse()

	if *verbose {
		log.SetLogger(&log.DefaultLogger{Verbose: true})
	}

	cfg, err := jgoconfig.Load(*specPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", *specPath, err)
	}

	deps, err := toDependencies(cfg)
	if err != nil {
		return err
	}

	client, err := datasource.NewRegistryClient(datasource.Registry{ReleasesEnabled: true}, "")
	if err != nil {
		return fmt.Errorf("building registry client: %w", err)
	}
	for _, repo := range cfg.Repositories {
		if err := client.AddRegistry(datasource.Registry{
			ID:               repo.ID,
			URL:              repo.URL,
			ReleasesEnabled:  repo.Releases,
			SnapshotsEnabled: repo.Snapshots,
		}); err != nil {
			return fmt.Errorf("adding repository %q: %w", repo.ID, err)
		}
	}
	resolver := resolution.New(client)

	if *cacheDir != "" {
		if err := os.MkdirAll(*cacheDir, 0o755); err != nil {
			return fmt.Errorf("creating cache dir: %w", err)
		}
	}

	entrypoints := make(map[string]string, len(cfg.Entrypoints))
	for name, class := range cfg.Entrypoints {
		if name != "default" {
			entrypoints[name] = class
		}
	}
	endpointClass := *entrypoint
	if class, ok := entrypoints[*entrypoint]; ok {
		endpointClass = class
	}

	projectDir := filepath.Dir(*specPath)
	opts := env.BuildOptions{
		CacheDir:          *cacheDir,
		ProjectDir:        projectDir,
		Update:            *update,
		LinkStrategy:      env.LinkStrategy(cfg.Settings.LinkStrategy),
		MaxWorkers:        *maxWorkers,
		EnvironmentName:   cfg.Environment.Name,
		JavaVersion:       cfg.Java.Version,
		JavaVendor:        cfg.Java.Vendor,
		Entrypoints:       entrypoints,
		DefaultEntrypoint: cfg.Entrypoints["default"],
		EndpointClass:     endpointClass,
	}
	if cfg.Settings.CacheDir != "" {
		opts.CacheDir = cfg.Settings.CacheDir
	}

	e, err := env.Build(context.Background(), resolver, deps, opts)
	if err != nil {
		return fmt.Errorf("building environment: %w", err)
	}

	log.Infof("environment ready at %s (main class %s)", e.Path(), e.MainClass())
	fmt.Println(launchArgs(e))
	return nil
}

// toDependencies parses jgo.toml's coordinate strings and applies the
// blanket exclusions to every one of them.
func toDependencies(cfg *jgoconfig.Config) ([]maven.Dependency, error) {
	var exclusions []maven.GA
	for _, pattern := range cfg.Dependencies.Exclusions {
		c, err := maven.Parse(pattern)
		if err != nil {
			return nil, fmt.Errorf("parsing exclusion %q: %w", pattern, err)
		}
		exclusions = append(exclusions, maven.GA{GroupID: c.GroupID, ArtifactID: c.ArtifactID})
	}

	deps := make([]maven.Dependency, 0, len(cfg.Dependencies.Coordinates))
	for _, coord := range cfg.Dependencies.Coordinates {
		c, err := maven.Parse(coord)
		if err != nil {
			return nil, fmt.Errorf("parsing coordinate %q: %w", coord, err)
		}
		d := maven.DependencyOf(c)
		d.Exclusions = append(d.Exclusions, exclusions...)
		deps = append(deps, d)
	}
	return deps, nil
}

// launchArgs renders the classpath/module-path and main-class selection a
// caller would hand to `java`. This binary prints it rather than exec'ing
// java directly, since no java installation is guaranteed to exist here.
func launchArgs(e *env.Environment) string {
	var args string
	if e.HasClasspath() {
		args += "-cp " + strings.Join(e.Classpath(), string(os.PathListSeparator)) + " "
	}
	if e.HasModules() {
		args += "-p " + strings.Join(e.ModulePathJars(), string(os.PathListSeparator)) + " "
	}
	return args + e.MainClass()
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jgo-cache"
	}
	return filepath.Join(home, ".jgo", "cache")
}
