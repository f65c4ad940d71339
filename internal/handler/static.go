package handler

import (
	"net/http"
	"strings"
)

// UploadsHandler serves stored blobs from root under prefix. Blob keys are
// never reused, so successful responses are cacheable forever. Errors are
// not cached.
func UploadsHandler(prefix, root string) http.Handler {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(root)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(&immutableWriter{ResponseWriter: w}, r)
	})
}

// immutableWriter adds long-lived caching headers to 2xx and 304
// responses only.
type immutableWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *immutableWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if (code >= 200 && code < 300) || code == http.StatusNotModified {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Del("Cache-Control")
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *immutableWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(p)
}

func (w *immutableWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
