//go:build dev

package resources

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// staticDir resolves the static directory next to this source file so the
// binary can run from any working directory.
func staticDir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return StaticDirectoryPath
	}
	return filepath.Join(filepath.Dir(filename), "static")
}

// Handler serves static files from disk without caching.
func Handler() http.Handler {
	dir := staticDir()
	slog.Info("static assets served from filesystem", slog.String("path", dir))

	files := http.StripPrefix("/static/", http.FileServer(http.FS(os.DirFS(dir))))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		files.ServeHTTP(w, r)
	})
}
