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

//nolint:dupl
package datasource

import (
	"time"
)

type mavenRegistryCache struct {
	Timestamp *time.Time
	Responses map[string]response // url -> response
}

// GobEncode serializes the client's response cache, so a resolution's
// network fetches can be persisted and replayed by a later process.
func (c *RegistryClient) GobEncode() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cacheTimestamp == nil {
		now := time.Now().UTC()
		c.cacheTimestamp = &now
	}

	cache := mavenRegistryCache{
		Timestamp: c.cacheTimestamp,
		Responses: c.responses.GetMap(),
	}

	return gobMarshal(&cache)
}

// GobDecode restores a previously-serialized response cache, discarding it
// if it is older than cacheExpiry.
func (c *RegistryClient) GobDecode(b []byte) error {
	var cache mavenRegistryCache
	if err := gobUnmarshal(b, &cache); err != nil {
		return err
	}

	if cache.Timestamp != nil && time.Since(*cache.Timestamp) >= cacheExpiry {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cacheTimestamp = cache.Timestamp
	c.responses.SetMap(cache.Responses)

	return nil
}
