package handlers

import (
	"net/http"
	"os"
	"path/filepath"
)

// SPAHandler serves the dashboard build and falls back to index.html for
// client-side routes.
type SPAHandler struct {
	staticPath string
	indexPath  string
	fileServer http.Handler
}

func NewSPAHandler(staticPath string) *SPAHandler {
	return &SPAHandler{
		staticPath: staticPath,
		indexPath:  filepath.Join(staticPath, "index.html"),
		fileServer: http.FileServer(http.Dir(staticPath)),
	}
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(h.staticPath, filepath.Clean("/"+r.URL.Path))

	info, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && info.IsDir() && r.URL.Path != "/") {
		http.ServeFile(w, r, h.indexPath)
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.fileServer.ServeHTTP(w, r)
}
