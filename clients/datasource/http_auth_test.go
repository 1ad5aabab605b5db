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
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPAuthentication_Get_NoCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var a *HTTPAuthentication
	resp, err := a.Get(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPAuthentication_Get_AlwaysAuthBasic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	a := &HTTPAuthentication{
		SupportedMethods: []HTTPAuthMethod{AuthBasic},
		AlwaysAuth:       true,
		Username:         "alice",
		Password:         "hunter2",
	}
	resp, err := a.Get(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPAuthentication_Get_ChallengedBasic(t *testing.T) {
	credentials := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:hunter2"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != credentials {
			w.Header().Set("WWW-Authenticate", `Basic realm="test"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	a := &HTTPAuthentication{
		SupportedMethods: []HTTPAuthMethod{AuthDigest, AuthBasic},
		Username:         "alice",
		Password:         "hunter2",
	}
	resp, err := a.Get(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestHTTPAuthentication_Get_ChallengedDigest exercises the icholy/digest
// wiring end to end: the server issues a real RFC 7616 challenge, and the
// retry must carry a Digest Authorization header computed against it.
func TestHTTPAuthentication_Get_ChallengedDigest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Digest ") {
			w.Header().Set("WWW-Authenticate", `Digest realm="test", nonce="abc123", qop="auth", algorithm=MD5`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !strings.Contains(authz, `username="alice"`) || !strings.Contains(authz, `nonce="abc123"`) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	a := &HTTPAuthentication{
		SupportedMethods: []HTTPAuthMethod{AuthDigest, AuthBasic},
		Username:         "alice",
		Password:         "hunter2",
	}
	resp, err := a.Get(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPAuthentication_supports(t *testing.T) {
	a := &HTTPAuthentication{SupportedMethods: []HTTPAuthMethod{AuthBasic}}
	require.True(t, a.supports(AuthBasic))
	require.False(t, a.supports(AuthDigest))
}
