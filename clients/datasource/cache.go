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

// Package datasource implements the HTTP and filesystem boundary jgo's
// resolver talks to: Maven registry fetches, repo-cache reads, and
// settings.xml credential parsing.
package datasource

import (
	"bytes"
	"encoding/gob"
	"sync"
	"time"

	"github.com/scijava/jgo/log"
)

// cacheExpiry bounds how long a serialized response cache is trusted before
// being treated as empty; beyond this, registry metadata is refetched
// rather than risk serving a long-stale version listing.
const cacheExpiry = 24 * time.Hour

// RequestCache memoizes the result of a loader function by key, so that
// repeated lookups for the same registry URL during a single resolution
// (and across resolutions, once persisted) hit memory instead of the
// network. Safe for concurrent use.
type RequestCache[K comparable, V any] struct {
	mu   sync.Mutex
	data map[K]V
}

// NewRequestCache returns an empty RequestCache.
func NewRequestCache[K comparable, V any]() *RequestCache[K, V] {
	return &RequestCache[K, V]{data: make(map[K]V)}
}

// Get returns the cached value for key, calling load and storing its result
// if this is the first lookup for key. If load returns an error, nothing is
// cached and the error is propagated to the caller.
func (c *RequestCache[K, V]) Get(key K, load func() (V, error)) (V, error) {
	c.mu.Lock()
	if v, ok := c.data[key]; ok {
		c.mu.Unlock()
		log.Debugf("jgo: response cache hit for %v", key)
		return v, nil
	}
	c.mu.Unlock()

	log.Debugf("jgo: response cache miss for %v, fetching", key)
	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	c.data[key] = v
	c.mu.Unlock()
	return v, nil
}

// GetMap returns a shallow copy of the cache's current contents, for
// serialization.
func (c *RequestCache[K, V]) GetMap() map[K]V {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[K]V, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// SetMap replaces the cache's contents, for deserialization.
func (c *RequestCache[K, V]) SetMap(m map[K]V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = m
}

func gobMarshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobUnmarshal(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
