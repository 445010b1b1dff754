package serve

import (
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// noStore keeps browsers from caching pages, so a rebuilt site shows up on
// the next reload.
func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// accessLog tags each request with an id and logs the site file it
// resolved to. Missing files are logged as warnings since they usually
// point at a broken link in the generated pages. A panicking handler
// becomes a 500.
func accessLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		rec := &recorder{ResponseWriter: w}

		defer func() {
			if p := recover(); p != nil {
				logger.Error("handler panic", "file", sitePath(r.URL.Path), "panic", p, "request_id", id)
				if rec.status == 0 {
					http.Error(rec, "internal server error", http.StatusInternalServerError)
				}
			}

			level := slog.LevelInfo
			switch {
			case rec.status >= 500:
				level = slog.LevelError
			case rec.status == http.StatusNotFound:
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, outcome(rec.status),
				"file", sitePath(r.URL.Path),
				"status", rec.status,
				"bytes", rec.bytes,
				"duration", time.Since(start),
				"request_id", id,
			)
		}()

		next.ServeHTTP(rec, r)
	})
}

// sitePath maps a request path to the file it serves, relative to the
// site root
func sitePath(urlPath string) string {
	p := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if p == "" || strings.HasSuffix(urlPath, "/") {
		return path.Join(p, "index.html")
	}
	return p
}

func outcome(status int) string {
	switch status {
	case http.StatusOK, http.StatusPartialContent:
		return "served"
	case http.StatusNotModified:
		return "not modified"
	case http.StatusNotFound:
		return "missing"
	case http.StatusMovedPermanently:
		return "redirected"
	}
	return strings.ToLower(http.StatusText(status))
}

// recorder captures the status and size of a response
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *recorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *recorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
