package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fleetsim/vehiclesim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, "secret", c.apiKey)
	assert.NotNil(t, c.httpClient)
}

func TestHealthcheck(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthcheck", r.URL.Path)
		w.WriteHeader(status)
	}))
	defer server.Close()

	c := New(server.URL, "")
	assert.NoError(t, c.Healthcheck(context.Background()))

	status = http.StatusInternalServerError
	assert.ErrorContains(t, c.Healthcheck(context.Background()), "status 500")
}

func TestHealthcheck_ServerDown(t *testing.T) {
	c := New("http://127.0.0.1:1", "")
	assert.Error(t, c.Healthcheck(context.Background()))
}

func TestUpload(t *testing.T) {
	form := map[string]string{}
	var content []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, uploadPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		if !assert.NoError(t, r.ParseMultipartForm(10<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for k, v := range r.MultipartForm.Value {
			form[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		if assert.NoError(t, err) {
			content, _ = io.ReadAll(f)
			f.Close()
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "depot_20240301_080000.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("run data"), 0644))

	c := New(server.URL, "mysecret")
	err := c.Upload(context.Background(), path, core.UploadMetadata{
		RunID:    "run-1",
		RunName:  "depot",
		Tag:      "nightly",
		Duration: 90 * time.Minute,
		Vehicles: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"secret":   "mysecret",
		"filename": "depot_20240301_080000.json.gz",
		"runId":    "run-1",
		"runName":  "depot",
		"tag":      "nightly",
		"duration": "5400.0",
		"vehicles": "3",
	}, form)
	assert.Equal(t, "run data", string(content))
}

func TestUpload_FileNotFound(t *testing.T) {
	c := New("http://localhost:5000", "secret")
	assert.Error(t, c.Upload(context.Background(), "/nonexistent/run.json.gz", core.UploadMetadata{}))
}

func TestUpload_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	c := New(server.URL, "wrong-secret")
	assert.ErrorContains(t, c.Upload(context.Background(), path, core.UploadMetadata{}), "status 403")
}
