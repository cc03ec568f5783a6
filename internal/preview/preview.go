// Package preview serves a documentation tree over HTTP so a reviewer can
// browse staged or published guides before approving them.
package preview

import (
	"context"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/synth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var indexPage = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Wallets}}<ul>
{{range .Wallets}}<li><a href="/{{.Slug}}/">{{.Name}}</a>{{if .Version}} {{.Version}}{{end}} ({{.TotalSteps}} steps, {{or .LastUpdated "unknown"}})</li>
{{end}}</ul>{{else}}<p>No guides found.</p>{{end}}
</body>
</html>
`))

// Server exposes one documentation root
type Server struct {
	root  string
	title string
	fsys  fs.FS
}

// New creates a preview server for the trees below root
func New(root, title string) *Server {
	return &Server{root: root, title: title, fsys: os.DirFS(root)}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/", s.handleIndex)
	r.Get("/api/wallets", s.handleWallets)
	r.Get("/{wallet}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/"+chi.URLParam(r, "wallet")+"/", http.StatusMovedPermanently)
	})
	r.Get("/{wallet}/*", s.handleFile)
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	entries, err := synth.ScanPublished(s.root)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage.Execute(w, struct {
		Title   string
		Wallets []synth.IndexEntry
	}{s.title, entries}); err != nil {
		logger.LogError("Rendering preview index failed", err, nil)
	}
}

func (s *Server) handleWallets(w http.ResponseWriter, _ *http.Request) {
	entries, err := synth.ScanPublished(s.root)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []synth.IndexEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	rest := chi.URLParam(r, "*")
	if rest == "" {
		rest = synth.MasterFile
	}
	name := path.Join(wallet, rest)
	if strings.HasPrefix(wallet, ".") || !fs.ValidPath(name) {
		http.NotFound(w, r)
		return
	}
	if info, err := fs.Stat(s.fsys, name); err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	if strings.HasSuffix(name, ".md") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	}
	http.ServeFileFS(w, r, s.fsys, name)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.LogInfo("Preview server starting", map[string]interface{}{"addr": addr, "root": s.root})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.LogInfo("Preview server stopped", nil)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
