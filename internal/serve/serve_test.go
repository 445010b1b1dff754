package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func siteDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Gallery</h1>"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "img"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "img", "a.jpg"), []byte("jpeg"), 0644))
	return dir
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_ServesIndex(t *testing.T) {
	h := Handler(siteDir(t), slog.Default())

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Gallery")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestHandler_ServesAssets(t *testing.T) {
	h := Handler(siteDir(t), slog.Default())

	rec := get(t, h, "/img/a.jpg")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg", rec.Body.String())
}

func TestHandler_NoDirectoryListing(t *testing.T) {
	h := Handler(siteDir(t), slog.Default())

	assert.Equal(t, http.StatusNotFound, get(t, h, "/img/").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/missing.html").Code)
}

func TestHandler_NoStore(t *testing.T) {
	h := Handler(siteDir(t), slog.Default())
	assert.Equal(t, "no-store", get(t, h, "/img/a.jpg").Header().Get("Cache-Control"))
}

func TestAccessLog_RecordsFileAndOutcome(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := Handler(siteDir(t), logger)

	get(t, h, "/")
	get(t, h, "/img/a.jpg")
	get(t, h, "/album__paris.html")

	var lines []map[string]any
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 3)

	assert.Equal(t, "served", lines[0]["msg"])
	assert.Equal(t, "index.html", lines[0]["file"])

	assert.Equal(t, "img/a.jpg", lines[1]["file"])
	assert.Equal(t, float64(4), lines[1]["bytes"])

	assert.Equal(t, "missing", lines[2]["msg"])
	assert.Equal(t, "WARN", lines[2]["level"])
	assert.Equal(t, "album__paris.html", lines[2]["file"])
	assert.Equal(t, float64(http.StatusNotFound), lines[2]["status"])
}

func TestAccessLog_RecoversPanics(t *testing.T) {
	h := accessLog(slog.Default(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("template bug")
	}))

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSitePath(t *testing.T) {
	tests := map[string]string{
		"/":                 "index.html",
		"":                  "index.html",
		"/pages/":           "pages/index.html",
		"/img/a.jpg":        "img/a.jpg",
		"/../../etc/passwd": "etc/passwd",
	}
	for in, want := range tests {
		assert.Equal(t, want, sitePath(in), in)
	}
}

func TestServer_RunAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	addrs := make(chan string, 1)
	s := &Server{Addr: "127.0.0.1:0", Dir: siteDir(t), Ready: func(addr string) { addrs <- addr }}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var addr string
	select {
	case addr = <-addrs:
	case err := <-done:
		t.Fatalf("server exited: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Gallery")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_MissingDir(t *testing.T) {
	s := &Server{Addr: "127.0.0.1:0", Dir: filepath.Join(t.TempDir(), "nope")}
	assert.Error(t, s.Run(context.Background()))
}
