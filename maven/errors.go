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

// Package maven implements the Maven coordinate, POM, and model-building
// machinery that the jgo environment-resolution engine is built on.
package maven

import "errors"

// Sentinel error kinds, matched with errors.Is. Wrap with fmt.Errorf("...: %w", ErrX)
// to attach context.
var (
	// ErrInvalidCoordinate is returned when a coordinate string is malformed
	// or has an illegal number of colon-separated parts.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrUnresolvableVersion is returned when RELEASE/LATEST could not be
	// resolved because no repository metadata listed any version.
	ErrUnresolvableVersion = errors.New("unresolvable version")

	// ErrArtifactNotFound is returned when an artifact is absent from every
	// configured repository.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrChecksumMismatch is returned when a downloaded file's hash disagrees
	// with its published checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrModelBuild is returned for cyclic property references, missing
	// mandatory coordinate fields, or a dependency with no version and no
	// management entry to supply one.
	ErrModelBuild = errors.New("model build error")

	// ErrNetworkTransient marks a retryable HTTP status or connection error.
	ErrNetworkTransient = errors.New("transient network error")

	// ErrModuleClassification marks a failed JDK-tool probe; callers should
	// downgrade the JAR to PLAIN and continue rather than fail the build.
	ErrModuleClassification = errors.New("module classification failed")
)
