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

package datasource

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/scijava/jgo/log"
	"github.com/scijava/jgo/maven"
)

// mavenCentral is the default repository used when no registry is configured.
const mavenCentral = "https://repo.maven.apache.org/maven2"

// maxRetries bounds how many times a transient (429/5xx) response is
// retried before giving up, per spec 5's network-retry policy.
const maxRetries = 3

var errAPIFailed = errors.New("maven registry query failed")

// Registry identifies one configured Maven repository.
type Registry struct {
	URL    string
	Parsed *url.URL

	ID               string
	ReleasesEnabled  bool
	SnapshotsEnabled bool
}

// RegistryClient fetches POMs, metadata, and artifact bytes from a list of
// configured Maven registries, with an optional local-repository read
// fallback and an in-memory (gob-serializable) response cache.
type RegistryClient struct {
	defaultRegistry Registry
	registries      []Registry
	registryAuths   map[string]*HTTPAuthentication
	localRepo       string // e.g. ~/.m2/repository, checked before any network fetch

	mu             *sync.Mutex
	cacheTimestamp *time.Time
	responses      *RequestCache[string, response]

	httpClient *http.Client
}

type response struct {
	StatusCode int
	Body       []byte
}

// NewRegistryClient returns a RegistryClient rooted at registry, falling
// back to Maven Central when registry.URL is empty.
func NewRegistryClient(registry Registry, localRepo string) (*RegistryClient, error) {
	if registry.URL == "" {
		registry.URL = mavenCentral
		registry.ID = "central"
	}
	if registry.ID == "" {
		registry.ID = "default"
	}
	u, err := url.Parse(registry.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Maven registry %s: %w", registry.URL, err)
	}
	registry.Parsed = u

	globalSettings := ParseMavenSettings(globalMavenSettingsFile())
	userSettings := ParseMavenSettings(userMavenSettingsFile())

	return &RegistryClient{
		defaultRegistry: registry,
		localRepo:       localRepo,
		mu:              &sync.Mutex{},
		responses:       NewRequestCache[string, response](),
		registryAuths:   MakeMavenAuth(globalSettings, userSettings),
		httpClient:      http.DefaultClient,
	}, nil
}

// AddRegistry adds registry to the set consulted after the default one.
func (c *RegistryClient) AddRegistry(registry Registry) error {
	if registry.ID == c.defaultRegistry.ID {
		return nil
	}
	for _, r := range c.registries {
		if r.ID == registry.ID {
			return nil
		}
	}
	u, err := url.Parse(registry.URL)
	if err != nil {
		return fmt.Errorf("invalid Maven registry %s: %w", registry.URL, err)
	}
	registry.Parsed = u
	c.registries = append(c.registries, registry)
	return nil
}

func (c *RegistryClient) allRegistries() []Registry {
	return append(append([]Registry{}, c.registries...), c.defaultRegistry)
}

// POMSource adapts this client to maven.POMSource, for parent-POM and BOM
// fetches performed during Model building. Co-located parent lookups always
// miss (LocalFile), since a registry has no notion of a caller's working
// directory; that case is served by maven.FileSystemPOMSource instead.
func (c *RegistryClient) POMSource() maven.POMSource {
	return registryPOMSource{c}
}

type registryPOMSource struct{ client *RegistryClient }

func (registryPOMSource) LocalFile(string) (io.ReadCloser, bool, error) { return nil, false, nil }

func (s registryPOMSource) FetchPOM(ctx context.Context, groupID, artifactID, version string) (*maven.POM, error) {
	return s.client.FetchPOM(ctx, groupID, artifactID, version)
}

// FetchPOM fetches and parses the pom.xml for (groupID, artifactID,
// version), trying every enabled registry until one succeeds. Snapshot
// versions are resolved through the version-level maven-metadata.xml first.
func (c *RegistryClient) FetchPOM(ctx context.Context, groupID, artifactID, version string) (*maven.POM, error) {
	if !strings.HasSuffix(version, "-SNAPSHOT") {
		var lastErr error
		for _, reg := range c.allRegistries() {
			if !reg.ReleasesEnabled && reg.ID != c.defaultRegistry.ID {
				continue
			}
			filename := maven.ArtifactFilename(artifactID, version, "", "pom")
			body, err := c.fetch(ctx, reg, groupPath(groupID, artifactID, version, filename))
			if err != nil {
				lastErr = err
				continue
			}
			return maven.ParsePOM(bytes.NewReader(body))
		}
		return nil, fmt.Errorf("%w: %s:%s:%s: %v", maven.ErrArtifactNotFound, groupID, artifactID, version, lastErr)
	}

	var lastErr error
	for _, reg := range c.allRegistries() {
		if !reg.SnapshotsEnabled {
			continue
		}
		snapMeta, err := c.fetchSnapshotMetadata(ctx, reg, groupID, artifactID, version)
		filename := ""
		if err == nil {
			if v, ok := snapMeta.FilenameFor("", "pom"); ok {
				filename = maven.SnapshotDownloadFilename(artifactID, v, "", "pom")
			}
		}
		if filename == "" {
			filename = maven.ArtifactFilename(artifactID, version, "", "pom")
		}
		body, err := c.fetch(ctx, reg, groupPath(groupID, artifactID, version, filename))
		if err != nil {
			lastErr = err
			continue
		}
		return maven.ParsePOM(bytes.NewReader(body))
	}
	return nil, fmt.Errorf("%w: %s:%s:%s: %v", maven.ErrArtifactNotFound, groupID, artifactID, version, lastErr)
}

// FetchVersions returns every registry's contribution to (groupID,
// artifactID)'s version listing, for maven.ReleaseVersion/LatestVersion.
func (c *RegistryClient) FetchVersions(ctx context.Context, groupID, artifactID string) ([]maven.RepositoryVersions, error) {
	var out []maven.RepositoryVersions
	for _, reg := range c.allRegistries() {
		body, err := c.fetch(ctx, reg, []string{groupPathPrefix(groupID), artifactID, "maven-metadata.xml"})
		if err != nil {
			continue
		}
		meta, err := maven.ParseProjectMetadata(bytes.NewReader(body), reg.ID)
		if err != nil {
			continue
		}
		out = append(out, maven.RepositoryVersions{Repository: reg.ID, Versions: meta.Versions, LastUpdated: meta.LastUpdated})
	}
	return out, nil
}

func (c *RegistryClient) fetchSnapshotMetadata(ctx context.Context, reg Registry, groupID, artifactID, version string) (*maven.SnapshotMetadata, error) {
	body, err := c.fetch(ctx, reg, groupPath(groupID, artifactID, version, "maven-metadata.xml"))
	if err != nil {
		return nil, err
	}
	return maven.ParseSnapshotMetadata(bytes.NewReader(body))
}

// FetchArtifact downloads the raw bytes of an artifact file (jar, pom, or
// any other packaging), preferring the local repository cache over the
// network, trying every configured registry in order. Only the SNAPSHOT
// metadata lookup honors SnapshotsEnabled; the artifact fetch itself ignores
// the releases/snapshots flags.
func (c *RegistryClient) FetchArtifact(ctx context.Context, groupID, artifactID, version, classifier, packaging string) ([]byte, error) {
	filename := maven.ArtifactFilename(artifactID, version, classifier, packaging)
	if strings.HasSuffix(version, "-SNAPSHOT") {
		for _, reg := range c.allRegistries() {
			if !reg.SnapshotsEnabled {
				continue
			}
			if meta, err := c.fetchSnapshotMetadata(ctx, reg, groupID, artifactID, version); err == nil {
				if v, ok := meta.FilenameFor(classifier, packaging); ok {
					filename = maven.SnapshotDownloadFilename(artifactID, v, classifier, packaging)
				}
			}
			break
		}
	}

	var lastErr error
	for _, reg := range c.allRegistries() {
		body, err := c.fetch(ctx, reg, groupPath(groupID, artifactID, version, filename))
		if err != nil {
			lastErr = err
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("%w: %s:%s:%s: %v", maven.ErrArtifactNotFound, groupID, artifactID, version, lastErr)
}

// DownloadArtifact ensures the artifact file for (groupID, artifactID,
// version, classifier, packaging) is present under the repo-cache and
// returns its path, verifying against a sidecar .sha1/.md5 checksum when one
// is published. Presence of the final file is the completion marker (spec
// 5's idempotent-download invariant): a second call against an
// already-cached artifact does no network I/O.
func (c *RegistryClient) DownloadArtifact(ctx context.Context, groupID, artifactID, version, classifier, packaging string) (string, error) {
	if c.localRepo == "" {
		return "", fmt.Errorf("%w: no repo-cache directory configured", maven.ErrArtifactNotFound)
	}

	filename := maven.ArtifactFilename(artifactID, version, classifier, packaging)
	if strings.HasSuffix(version, "-SNAPSHOT") {
		for _, reg := range c.allRegistries() {
			if !reg.SnapshotsEnabled {
				continue
			}
			if meta, err := c.fetchSnapshotMetadata(ctx, reg, groupID, artifactID, version); err == nil {
				if v, ok := meta.FilenameFor(classifier, packaging); ok {
					filename = maven.SnapshotDownloadFilename(artifactID, v, classifier, packaging)
				}
			}
			break
		}
	}

	// Cache the SNAPSHOT artifact under its stable (non-timestamped) name,
	// even though the timestamped filename was used to fetch it (spec 4.4).
	cacheFilename := maven.ArtifactFilename(artifactID, version, classifier, packaging)
	path := filepath.Join(append([]string{c.localRepo}, groupPath(groupID, artifactID, version, cacheFilename)...)...)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	var lastErr error
	for _, reg := range c.allRegistries() {
		body, err := c.fetch(ctx, reg, groupPath(groupID, artifactID, version, filename))
		if err != nil {
			lastErr = err
			continue
		}
		if err := c.verifyChecksum(ctx, reg, groupID, artifactID, version, filename, body); err != nil {
			// fetch already cached the rejected bytes; remove them so they
			// are not later taken as a completed download.
			if c.localRepo != "" {
				os.Remove(filepath.Join(append([]string{c.localRepo}, groupPath(groupID, artifactID, version, filename)...)...))
			}
			return "", err
		}
		if err := writeFile(path, body); err != nil {
			return "", fmt.Errorf("cache artifact %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: %s:%s:%s: %v", maven.ErrArtifactNotFound, groupID, artifactID, version, lastErr)
}

// verifyChecksum checks body against a published .sha1 (preferred) or .md5
// sidecar, when one is available. A missing sidecar is not an error: not
// every repository publishes checksums for every artifact.
func (c *RegistryClient) verifyChecksum(ctx context.Context, reg Registry, groupID, artifactID, version, filename string, body []byte) error {
	for _, algo := range []string{"sha1", "md5"} {
		want, err := c.FetchChecksum(ctx, groupID, artifactID, version, filename, algo)
		if err != nil {
			continue
		}
		got := hashHex(algo, body)
		if !strings.EqualFold(got, want) {
			return fmt.Errorf("%w: %s: expected %s %s, got %s", maven.ErrChecksumMismatch, filename, algo, want, got)
		}
		return nil
	}
	return nil
}

// FetchChecksum fetches the sidecar .sha1 or .md5 checksum file for a
// previously-named artifact filename, returning the hex digest it contains.
// A missing sidecar is reported as maven.ErrArtifactNotFound, which callers
// treat as "no checksum available" rather than a hard failure.
func (c *RegistryClient) FetchChecksum(ctx context.Context, groupID, artifactID, version, filename, algo string) (string, error) {
	var lastErr error
	for _, reg := range c.allRegistries() {
		body, err := c.fetch(ctx, reg, groupPath(groupID, artifactID, version, filename+"."+algo))
		if err != nil {
			lastErr = err
			continue
		}
		return strings.Fields(strings.TrimSpace(string(body)))[0], nil
	}
	return "", fmt.Errorf("%w: checksum for %s: %v", maven.ErrArtifactNotFound, filename, lastErr)
}

func hashHex(algo string, body []byte) string {
	switch algo {
	case "sha1":
		sum := sha1.Sum(body)
		return hex.EncodeToString(sum[:])
	default:
		sum := md5.Sum(body)
		return hex.EncodeToString(sum[:])
	}
}

func groupPathPrefix(groupID string) string {
	return strings.ReplaceAll(groupID, ".", "/")
}

func groupPath(groupID, artifactID, version, filename string) []string {
	return []string{groupPathPrefix(groupID), artifactID, version, filename}
}

// fetch retrieves paths under registry, preferring the local repository
// cache, falling back to a network GET with retry on transient failures,
// and caching successful network responses both in memory and (when a
// local repository is configured) on disk.
func (c *RegistryClient) fetch(ctx context.Context, reg Registry, paths []string) ([]byte, error) {
	var localPath string
	if c.localRepo != "" {
		localPath = filepath.Join(append([]string{c.localRepo}, paths...)...)
		if b, err := os.ReadFile(localPath); err == nil {
			return b, nil
		} else if !os.IsNotExist(err) {
			log.Warnf("jgo: error reading local repository cache %s: %v", localPath, err)
		}
	}

	u := joinURL(reg.Parsed, paths)
	resp, err := c.responses.Get(u, func() (response, error) { return c.getWithRetry(ctx, reg, u) })
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d for %s", errAPIFailed, resp.StatusCode, u)
	}

	if localPath != "" {
		if err := writeFile(localPath, resp.Body); err != nil {
			log.Warnf("jgo: failed to write local repository cache entry %s: %v", localPath, err)
		}
	}
	return resp.Body, nil
}

func (c *RegistryClient) getWithRetry(ctx context.Context, reg Registry, u string) (response, error) {
	auth := c.registryAuths[reg.ID]

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			log.Debugf("jgo: retrying %s after %v (attempt %d/%d): %v", u, delay, attempt, maxRetries, lastErr)
			select {
			case <-ctx.Done():
				return response{}, ctx.Err()
			case <-time.After(delay):
			}
		} else {
			log.Infof("jgo: fetching %s", u)
		}
		resp, err := auth.Get(ctx, c.httpClient, u)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", maven.ErrNetworkTransient, err)
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		retryAfter := resp.Header.Get("Retry-After")
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response body: %w", readErr)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("%w: status %d", maven.ErrNetworkTransient, resp.StatusCode)
			if secs, convErr := strconv.Atoi(retryAfter); convErr == nil && secs > 0 {
				select {
				case <-ctx.Done():
					return response{}, ctx.Err()
				case <-time.After(time.Duration(secs) * time.Second):
				}
			}
			continue
		}

		return response{StatusCode: resp.StatusCode, Body: body}, nil
	}
	return response{}, fmt.Errorf("%w: %s exhausted %d retries: %v", maven.ErrArtifactNotFound, u, maxRetries, lastErr)
}

func joinURL(base *url.URL, paths []string) string {
	u := *base
	return u.JoinPath(paths...).String()
}

// writeFile writes data to path, creating parent directories as needed.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
