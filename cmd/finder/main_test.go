package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/twpayne/go-geom/encoding/geojson"

	"tutorfinder/internal/directory"
	"tutorfinder/pkg/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listingServer(t *testing.T) *httptest.Server {
	t.Helper()
	near := geo.Offset(directory.DefaultAnchor, 950, 90)
	far := geo.Offset(directory.DefaultAnchor, 1200, 90)
	providers := []map[string]interface{}{
		{"id": "p1", "name": "Ayesha Khan", "service": "Math Tutor", "lat": near.Lat, "lng": near.Lng, "rating": 4.5,
			"userReviews": []map[string]interface{}{{"user": "bob", "rating": 5, "text": "great"}}},
		{"id": "p2", "name": "Bilal Plumbing", "service": "Plumber", "lat": far.Lat, "lng": far.Lng, "rating": "3"},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/providers":
			_ = json.NewEncoder(w).Encode(providers)
		case "/api/auth":
			var req map[string]string
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["password"] != "pw" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"u1","username":"BOB","role":"user"}`))
		case "/api/stats":
			_, _ = w.Write([]byte(`{"totalUsers":2,"totalProviders":2}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, srv *httptest.Server, sessionDir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	base := []string{"--api-url", srv.URL, "--session-dir", sessionDir, "--log-level", "panic"}
	err := run(context.Background(), append(base, args...), &out)
	return out.String(), err
}

func TestRun_List(t *testing.T) {
	srv := listingServer(t)

	out, err := runCLI(t, srv, t.TempDir(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ayesha Khan")
	assert.NotContains(t, out, "Bilal Plumbing")

	out, err = runCLI(t, srv, t.TempDir(), "--radius", "2", "--service", "Plumber", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Bilal Plumbing")
	assert.NotContains(t, out, "Ayesha Khan")
}

func TestRun_SearchAndShow(t *testing.T) {
	srv := listingServer(t)

	out, err := runCLI(t, srv, t.TempDir(), "search", "plumb")
	require.NoError(t, err)
	assert.Contains(t, out, "Bilal Plumbing")
	assert.NotContains(t, out, "Ayesha Khan")

	out, err = runCLI(t, srv, t.TempDir(), "show", "p2")
	require.NoError(t, err)
	assert.Contains(t, out, "Bilal Plumbing")

	out, err = runCLI(t, srv, t.TempDir(), "show", "p1")
	require.NoError(t, err)
	assert.Contains(t, out, "5/5 bob: great")

	_, err = runCLI(t, srv, t.TempDir(), "show", "nope")
	assert.ErrorIs(t, err, directory.ErrUnknownProvider)
}

func TestRun_GeoJSON(t *testing.T) {
	srv := listingServer(t)

	out, err := runCLI(t, srv, t.TempDir(), "geojson")
	require.NoError(t, err)

	var fc geojson.FeatureCollection
	require.NoError(t, fc.UnmarshalJSON([]byte(strings.TrimSpace(out))))
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "p1", fc.Features[0].ID)
	assert.Equal(t, "radius", fc.Features[1].Properties["kind"])
}

func TestRun_LoginLogout(t *testing.T) {
	srv := listingServer(t)
	dir := t.TempDir()
	sessionFile := filepath.Join(dir, directory.SessionKey+".json")

	_, err := runCLI(t, srv, dir, "--username", "bob", "--password", "wrong", "login")
	require.Error(t, err)
	assert.NoFileExists(t, sessionFile)

	out, err := runCLI(t, srv, dir, "--username", "bob", "--password", "pw", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "signed in as BOB (user)")
	assert.FileExists(t, sessionFile)

	_, err = runCLI(t, srv, dir, "logout")
	require.NoError(t, err)
	_, err = os.Stat(sessionFile)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_StatsAndErrors(t *testing.T) {
	srv := listingServer(t)

	out, err := runCLI(t, srv, t.TempDir(), "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "users: 2")

	_, err = runCLI(t, srv, t.TempDir(), "bogus")
	assert.EqualError(t, err, `unknown command "bogus"`)

	_, err = runCLI(t, srv, t.TempDir(), "review")
	assert.EqualError(t, err, "review takes exactly one argument")

	_, err = runCLI(t, srv, t.TempDir(), "--rating", "5", "review", "p1")
	assert.ErrorIs(t, err, directory.ErrNotSignedIn)

	_, err = runCLI(t, srv, t.TempDir(), "watch")
	assert.EqualError(t, err, "watch needs --rabbitmq-url")
}
