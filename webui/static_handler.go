package webui

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"finparser/webui/static"
)

// StaticAssetHandler serves the embedded UI. Paths are resolved relative to
// the filesystem root after stripping Prefix; the root path serves IndexFile.
type StaticAssetHandler struct {
	fs          fs.FS
	prefix      string
	indexFile   string
	cacheMaxAge int
}

// StaticAssetConfig configures a StaticAssetHandler.
type StaticAssetConfig struct {
	Prefix    string
	IndexFile string

	// CacheMaxAge in seconds; 0 disables caching
	CacheMaxAge int
}

// DefaultStaticAssetConfig serves /static from the embedded assets.
func DefaultStaticAssetConfig() StaticAssetConfig {
	return StaticAssetConfig{
		Prefix:      "/static",
		IndexFile:   "index.html",
		CacheMaxAge: 3600,
	}
}

// NewStaticAssetHandler creates a handler over the embedded assets.
func NewStaticAssetHandler(config StaticAssetConfig) *StaticAssetHandler {
	return NewStaticAssetHandlerWithFS(static.FS, config)
}

// NewStaticAssetHandlerWithFS creates a handler over fsys.
func NewStaticAssetHandlerWithFS(fsys fs.FS, config StaticAssetConfig) *StaticAssetHandler {
	if config.IndexFile == "" {
		config.IndexFile = "index.html"
	}
	return &StaticAssetHandler{
		fs:          fsys,
		prefix:      config.Prefix,
		indexFile:   config.IndexFile,
		cacheMaxAge: config.CacheMaxAge,
	}
}

func (h *StaticAssetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, h.prefix)
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" {
		name = h.indexFile
	}
	h.serveFile(w, name)
}

// ServeIndex serves the index page regardless of the request path.
func (h *StaticAssetHandler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, h.indexFile)
}

func (h *StaticAssetHandler) serveFile(w http.ResponseWriter, name string) {
	data, err := fs.ReadFile(h.fs, name)
	if err != nil {
		http.Error(w, "404 page not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", detectContentType(name))
	if h.cacheMaxAge > 0 && name != h.indexFile {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(h.cacheMaxAge))
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func detectContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
