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

// Package clienttest provides mock HTTP servers for registry client tests.
package clienttest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockHTTPServer is a simple HTTP server for mocking Maven registry
// responses keyed by URL path.
type MockHTTPServer struct {
	*httptest.Server

	mu            sync.Mutex
	response      map[string][]byte
	authorization string
}

// NewMockHTTPServer starts a server that is closed automatically when t ends.
func NewMockHTTPServer(t *testing.T) *MockHTTPServer {
	t.Helper()
	mock := &MockHTTPServer{response: make(map[string][]byte)}
	mock.Server = httptest.NewServer(mock)
	t.Cleanup(mock.Server.Close)
	return mock
}

// SetResponse sets the body returned for requests to path.
func (m *MockHTTPServer) SetResponse(t *testing.T, path string, body []byte) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response[strings.TrimPrefix(path, "/")] = body
}

// SetAuthorization requires every request to carry this exact Authorization
// header value, responding 401 otherwise.
func (m *MockHTTPServer) SetAuthorization(t *testing.T, auth string) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authorization = auth
}

// ServeHTTP implements http.Handler.
func (m *MockHTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	wantAuth := m.authorization
	body, ok := m.response[strings.TrimPrefix(r.URL.EscapedPath(), "/")]
	m.mu.Unlock()

	if wantAuth != "" && r.Header.Get("Authorization") != wantAuth {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("unauthorized"))
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not found"))
		return
	}
	w.Write(body)
}
