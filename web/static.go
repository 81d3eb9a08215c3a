package web

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brensch/gridsnake/store"
)

var mimeTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".ico":  "image/x-icon",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
}

const assetCacheControl = "public, max-age=3600"

// staticHandler serves files under root. Unknown paths fall back to the root
// index.html so client-side routes load the app. The index page is rendered
// with the stored language and theme already applied.
type staticHandler struct {
	root     string
	settings func() store.Settings
	logger   *slog.Logger
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	root, err := filepath.Abs(h.root)
	if err != nil {
		serverError(w)
		return
	}

	reqPath := r.URL.Path
	if reqPath == "/" || reqPath == "" {
		reqPath = "/index.html"
	}
	filePath := filepath.Join(root, filepath.FromSlash(strings.TrimLeft(reqPath, "/")))
	if filePath != root && !strings.HasPrefix(filePath, root+string(filepath.Separator)) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Forbidden"))
		return
	}

	if fi, err := os.Stat(filePath); err == nil && fi.IsDir() {
		filePath = filepath.Join(filePath, "index.html")
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		h.serveIndex(w, r, root)
		return
	}
	if err != nil {
		h.logger.Error("read static file failed", "path", filePath, "err", err)
		serverError(w)
		return
	}

	if filePath == filepath.Join(root, "index.html") {
		h.writeIndex(w, r, data)
		return
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	ctype, ok := mimeTypes[ext]
	if !ok {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", assetCacheControl)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}

func (h *staticHandler) serveIndex(w http.ResponseWriter, r *http.Request, root string) {
	data, err := os.ReadFile(filepath.Join(root, "index.html"))
	if err != nil {
		h.logger.Error("read index failed", "root", root, "err", err)
		serverError(w)
		return
	}
	h.writeIndex(w, r, data)
}

// writeIndex is not cached since it carries per-install settings.
func (h *staticHandler) writeIndex(w http.ResponseWriter, r *http.Request, data []byte) {
	out, err := renderIndex(data, h.settings())
	if err != nil {
		h.logger.Warn("index not rendered, serving as is", "err", err)
		out = data
	}
	w.Header().Set("Content-Type", mimeTypes[".html"])
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(out)
	}
}

// renderIndex sets lang and data-theme on <html> and preselects the matching
// options of the language and theme pickers.
func renderIndex(data []byte, s store.Settings) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	doc.Find("html").SetAttr("lang", s.Lang).SetAttr("data-theme", s.Theme)
	selectOption(doc, "#langSelect", s.Lang)
	selectOption(doc, "#themeSelect", s.Theme)
	selectOption(doc, "#difficultySelect", s.Difficulty)
	selectOption(doc, "#mapSelect", s.Map)

	html, err := doc.Html()
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

func selectOption(doc *goquery.Document, selectID, value string) {
	doc.Find(selectID + " option").Each(func(i int, opt *goquery.Selection) {
		if v, _ := opt.Attr("value"); v == value {
			opt.SetAttr("selected", "selected")
		} else {
			opt.RemoveAttr("selected")
		}
	})
}

func serverError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte("Server error"))
}
