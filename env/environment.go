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

package env

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Environment is a read-only handle on a materialized environment
// directory (spec 3 "Environment").
type Environment struct {
	path           string
	classpath      []string
	modulePathJars []string
	mainClass      string
	minJavaVersion int
}

// Path returns the environment's root directory.
func (e *Environment) Path() string { return e.path }

// Classpath returns the sorted list of class-path (non-modular) JARs.
func (e *Environment) Classpath() []string { return e.classpath }

// ModulePathJars returns the sorted list of module-path (modular or
// modularizable) JARs.
func (e *Environment) ModulePathJars() []string { return e.modulePathJars }

// AllJars returns every JAR in the environment, sorted.
func (e *Environment) AllJars() []string {
	all := append(append([]string{}, e.classpath...), e.modulePathJars...)
	sort.Strings(all)
	return all
}

// MainClass returns the resolved entrypoint class name, or "" if none could
// be determined.
func (e *Environment) MainClass() string { return e.mainClass }

// MinJavaVersion returns the highest class-file-derived Java release number
// across every JAR in the environment.
func (e *Environment) MinJavaVersion() int { return e.minJavaVersion }

// HasModules reports whether the environment has any module-path JARs.
func (e *Environment) HasModules() bool { return len(e.modulePathJars) > 0 }

// HasClasspath reports whether the environment has any class-path JARs.
func (e *Environment) HasClasspath() bool { return len(e.classpath) > 0 }

// Open builds an Environment handle from an already-materialized
// environment directory and its lockfile, resolving the main class per
// spec 4.5's priority order: mainClassOverride > endpointClassSuffix >
// lockfile default entrypoint > MANIFEST.MF auto-detection.
func Open(dir string, lf *LockFile, mainClassOverride, endpointClassSuffix string) (*Environment, error) {
	classpath, err := listJars(filepath.Join(dir, "jars"))
	if err != nil {
		return nil, err
	}
	modulePathJars, err := listJars(filepath.Join(dir, "modules"))
	if err != nil {
		return nil, err
	}

	e := &Environment{
		path:           dir,
		classpath:      classpath,
		modulePathJars: modulePathJars,
		minJavaVersion: lf.MinJavaVersion,
	}
	e.mainClass = resolveMainClass(e, lf, mainClassOverride, endpointClassSuffix)
	return e, nil
}

func listJars(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var jars []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".jar") {
			continue
		}
		jars = append(jars, filepath.Join(dir, ent.Name()))
	}
	sort.Strings(jars)
	return jars, nil
}

// resolveMainClass implements spec 4.5's main-class resolution priority.
// Simple names and partial (suffix) forms are completed by scanning every
// JAR in the environment for a matching class; a lookup that can't be
// completed is returned as-is rather than failing the build, since an
// unresolved main class only matters once something tries to launch.
func resolveMainClass(e *Environment, lf *LockFile, override, endpointSuffix string) string {
	for _, candidate := range []string{override, endpointSuffix} {
		if candidate == "" {
			continue
		}
		if fq, ok := completeClassName(e, candidate); ok {
			return fq
		}
		return candidate
	}

	if lf.DefaultEntrypoint != "" {
		if fq, ok := lf.Entrypoints[lf.DefaultEntrypoint]; ok {
			return fq
		}
		if fq, ok := completeClassName(e, lf.DefaultEntrypoint); ok {
			return fq
		}
		return lf.DefaultEntrypoint
	}

	for _, jar := range e.AllJars() {
		if mc, err := manifestAttribute(jar, "Main-Class"); err == nil && mc != "" {
			return mc
		}
	}
	return ""
}

// completeClassName resolves a simple class name (no dots) or a dotted
// suffix to the fully-qualified class name of a matching .class file found
// in any JAR of the environment.
func completeClassName(e *Environment, name string) (string, bool) {
	name = strings.TrimPrefix(name, "@")
	for _, jar := range e.AllJars() {
		if fq, ok := findClassInJar(jar, name); ok {
			return fq, true
		}
	}
	return "", false
}

// findClassInJar scans jarPath's class files for one whose fully-qualified
// dotted name equals name, or (when name has no package qualifier) whose
// simple name matches, or which ends with "."+name (suffix match).
func findClassInJar(jarPath, name string) (string, bool) {
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return "", false
	}
	defer r.Close()

	hasDot := strings.Contains(name, ".")
	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, ".class") || strings.Contains(f.Name, "META-INF/") {
			continue
		}
		fq := strings.TrimSuffix(strings.ReplaceAll(f.Name, "/", "."), ".class")
		switch {
		case fq == name:
			return fq, true
		case hasDot && strings.HasSuffix(fq, "."+name):
			return fq, true
		case !hasDot && simpleName(fq) == name:
			return fq, true
		}
	}
	return "", false
}

func simpleName(fqClassName string) string {
	if i := strings.LastIndexByte(fqClassName, '.'); i >= 0 {
		return fqClassName[i+1:]
	}
	return fqClassName
}
