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

// Package env materializes resolved Maven dependencies into a launchable
// directory: JPMS-aware JAR classification, a content-addressed metadata
// cache, linking into jars/ or modules/, and jgo.lock.toml bookkeeping
// (spec 4.5).
package env

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/textproto"
	"os/exec"
	"strings"

	"github.com/scijava/jgo/log"
	"github.com/scijava/jgo/maven"
)

// JarType classifies a JAR's JPMS placement (spec 4.5). Ordinal values
// match the jar_type field of the artifact cache metadata JSON (spec 6):
// 0=PLAIN, 1=EXPLICIT, 2=AUTOMATIC, 3=DERIVABLE.
type JarType int

const (
	JarPlain JarType = iota
	JarExplicit
	JarAutomatic
	JarDerivable
)

func (t JarType) String() string {
	switch t {
	case JarExplicit:
		return "EXPLICIT"
	case JarAutomatic:
		return "AUTOMATIC"
	case JarDerivable:
		return "DERIVABLE"
	default:
		return "PLAIN"
	}
}

// Modular reports whether t belongs on the module path.
func (t JarType) Modular() bool {
	return t == JarExplicit || t == JarAutomatic || t == JarDerivable
}

// ModuleInfo records what ClassifyJar discovered about a JAR's module
// identity (spec 6's artifact cache metadata "module_info" object).
type ModuleInfo struct {
	IsModular   bool
	IsAutomatic bool
	ModuleName  string
}

// classMagic is the 4-byte magic number at the start of every .class file.
const classMagic = 0xCAFEBABE

// ClassifyJar inspects the JAR at path and returns its JPMS classification,
// module identity, and the minimum Java release required by any class file
// it contains (spec 4.5 "JAR classification").
func ClassifyJar(ctx context.Context, path string) (JarType, ModuleInfo, int, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return JarPlain, ModuleInfo{}, 0, fmt.Errorf("open jar %s: %w", path, err)
	}
	defer r.Close()

	var (
		hasModuleInfo   bool
		automaticName   string
		minJavaVersion  int
		sawUnnamedClass bool
		sawNamedClass   bool
	)

	for _, f := range r.File {
		switch {
		case f.Name == "module-info.class":
			hasModuleInfo = true

		case f.Name == "META-INF/MANIFEST.MF":
			name, err := readManifestHeader(f, "Automatic-Module-Name")
			if err != nil {
				log.Warnf("jgo: failed to read manifest in %s: %v", path, err)
				continue
			}
			automaticName = name

		case strings.HasSuffix(f.Name, ".class") && !strings.HasPrefix(f.Name, "META-INF/"):
			major, err := classFileMajorVersion(f)
			if err != nil {
				log.Warnf("jgo: failed to read class file version for %s in %s: %v", f.Name, path, err)
				continue
			}
			if release := javaReleaseForClassMajor(major); release > minJavaVersion {
				minJavaVersion = release
			}
			if strings.Contains(f.Name, "/") {
				sawNamedClass = true
			} else {
				sawUnnamedClass = true
			}
		}
	}

	switch {
	case hasModuleInfo:
		return JarExplicit, ModuleInfo{IsModular: true}, minJavaVersion, nil

	case automaticName != "":
		if sawUnnamedClass {
			// Cannot be placed on the module path with classes in the
			// unnamed package (spec 4.5).
			return JarPlain, ModuleInfo{}, minJavaVersion, nil
		}
		return JarAutomatic, ModuleInfo{IsModular: true, IsAutomatic: true, ModuleName: automaticName}, minJavaVersion, nil

	case sawNamedClass && !sawUnnamedClass:
		name, err := deriveModuleNameFromProbe(ctx, path)
		if err != nil {
			log.Warnf("jgo: %v, treating %s as PLAIN", err, path)
			return JarPlain, ModuleInfo{}, minJavaVersion, nil
		}
		return JarDerivable, ModuleInfo{IsModular: true, IsAutomatic: true, ModuleName: name}, minJavaVersion, nil

	default:
		return JarPlain, ModuleInfo{}, minJavaVersion, nil
	}
}

// readManifestHeader reads a single named attribute from a JAR's
// MANIFEST.MF, using textproto's MIME-header reader to handle the
// manifest's RFC 822-style continuation-line folding.
func readManifestHeader(f *zip.File, attr string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	tp := textproto.NewReader(bufio.NewReader(rc))
	header, err := tp.ReadMIMEHeader()
	if err != nil && len(header) == 0 {
		return "", err
	}
	return header.Get(attr), nil
}

func classFileMajorVersion(f *zip.File) (int, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	var header [8]byte
	if _, err := io.ReadFull(rc, header[:]); err != nil {
		return 0, err
	}
	if binary.BigEndian.Uint32(header[:4]) != classMagic {
		return 0, fmt.Errorf("not a class file: %s", f.Name)
	}
	return int(binary.BigEndian.Uint16(header[6:8])), nil
}

// javaReleaseForClassMajor maps a .class file's major version to the Java
// release that produced it. Major 49 is Java 5; each later release
// increments major by one. Pre-5 majors aren't meaningful as a
// min_java_version floor and are reported as 0.
func javaReleaseForClassMajor(major int) int {
	if major < 49 {
		return 0
	}
	return major - 44
}

// deriveModuleNameFromProbe shells out to the "jar" tool to derive the
// automatic module name the JPMS runtime would assign this JAR (spec 4.5:
// DERIVABLE classification "requires a JDK-tool probe"). A missing tool or
// non-zero exit is surfaced as maven.ErrModuleClassification so the caller
// can downgrade to PLAIN rather than fail the whole build.
func deriveModuleNameFromProbe(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "jar", "--describe-module", "--file", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s: %v: %s", maven.ErrModuleClassification, cmd.String(), err, stderr.String())
	}
	name := parseDescribeModuleOutput(stdout.String())
	if name == "" {
		return "", fmt.Errorf("%w: could not parse module name from %q", maven.ErrModuleClassification, stdout.String())
	}
	return name, nil
}

// manifestAttribute opens the JAR at jarPath and returns the named
// MANIFEST.MF attribute, or "" if the manifest or the attribute is absent.
func manifestAttribute(jarPath, attr string) (string, error) {
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return "", fmt.Errorf("open jar %s: %w", jarPath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "META-INF/MANIFEST.MF" {
			continue
		}
		return readManifestHeader(f, attr)
	}
	return "", nil
}

// parseDescribeModuleOutput extracts the module name from the first line of
// `jar --describe-module` output, which looks like "name@version automatic"
// or "name automatic".
func parseDescribeModuleOutput(out string) string {
	line := strings.SplitN(strings.TrimSpace(out), "\n", 2)[0]
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	name := fields[0]
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return name
}
