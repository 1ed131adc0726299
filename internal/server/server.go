// Package server delivers extracted bundles over HTTP: pages and files by
// alias, plus the raw files below the storage URL prefix.
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"minisite-go/internal/minisite"
	"minisite-go/internal/urlbag"
)

// Route kinds used as the metrics "kind" label.
const (
	kindAlias    = "alias"
	kindFile     = "file"
	kindRedirect = "redirect"
)

// Assets is the part of minisite.Service the server reads from.
type Assets interface {
	FindByAlias(alias string) (*minisite.Asset, error)
	FindByURI(uri string) (*minisite.Asset, error)
	FindIndexByPrefix(prefix string) (*minisite.Asset, error)
	RenderPage(asset *minisite.Asset) ([]byte, bool, error)
	Open(asset *minisite.Asset) (io.ReadCloser, error)
}

// Storage maps URL paths below the public prefix back to storage URIs.
type Storage interface {
	URLPrefix() string
	FromURL(urlPath string) (string, bool)
}

// Server routes requests to assets.
type Server struct {
	assets  Assets
	storage Storage
	logger  minisite.Logger
	metrics *Metrics
}

// New creates a Server. metrics may be nil.
func New(assets Assets, storage Storage, logger minisite.Logger, metrics *Metrics) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{
		assets:  assets,
		storage: storage,
		logger:  logger,
		metrics: metrics,
	}
}

// Router returns the HTTP routes:
//
//	GET /health              liveness
//	GET /metrics             Prometheus metrics
//	GET <public_url>/{path}  extracted files by storage path
//	GET /{alias}             assets by alias; a bundle prefix redirects to its index page
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", HealthCheck).Methods("GET", "HEAD")
	router.Handle("/metrics", s.metrics.Handler())

	if prefix := s.storage.URLPrefix(); prefix != "" {
		router.PathPrefix(prefix + "/").HandlerFunc(s.serveFile).Methods("GET", "HEAD")
	}
	router.PathPrefix("/").HandlerFunc(s.serveAlias).Methods("GET", "HEAD")

	return router
}

// HealthCheck returns service health status
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	uri, ok := s.storage.FromURL(r.URL.Path)
	if !ok {
		s.notFound(w, kindFile)
		return
	}

	asset, err := s.assets.FindByURI(uri)
	if err != nil {
		s.fail(w, kindFile, err)
		return
	}
	if asset == nil {
		s.notFound(w, kindFile)
		return
	}
	s.deliver(w, r, kindFile, asset)
}

func (s *Server) serveAlias(w http.ResponseWriter, r *http.Request) {
	asset, err := s.assets.FindByAlias(r.URL.Path)
	if errors.Is(err, urlbag.ErrExternalMismatch) || errors.Is(err, urlbag.ErrNoPath) {
		s.notFound(w, kindAlias)
		return
	}
	if err != nil {
		s.fail(w, kindAlias, err)
		return
	}
	if asset != nil {
		s.deliver(w, r, kindAlias, asset)
		return
	}

	// A bundle's prefix leads to its entry page. Redirecting keeps the
	// page's relative links resolving against the right directory.
	index, err := s.assets.FindIndexByPrefix(r.URL.Path)
	if errors.Is(err, minisite.ErrInvalidAliasPrefix) {
		s.notFound(w, kindAlias)
		return
	}
	if err != nil {
		s.fail(w, kindAlias, err)
		return
	}
	if index == nil || index.URL() == r.URL.Path {
		s.notFound(w, kindAlias)
		return
	}

	http.Redirect(w, r, index.URL(), http.StatusFound)
	s.metrics.recordRequest(kindRedirect, http.StatusFound)
}

// deliver writes an asset: pages rendered with their links rewritten, other
// files streamed as stored.
func (s *Server) deliver(w http.ResponseWriter, r *http.Request, kind string, asset *minisite.Asset) {
	for k, v := range asset.Headers() {
		w.Header()[k] = v
	}
	w.Header().Set("Cache-Control", "max-age="+strconv.Itoa(asset.CacheMaxAge()))

	if asset.IsDocument() {
		start := time.Now()
		content, rewritten, err := s.assets.RenderPage(asset)
		if err != nil {
			s.unreadable(w, kind, asset, err)
			return
		}
		s.metrics.recordRender(start, rewritten, true)

		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.WriteHeader(http.StatusOK)
		w.Write(content)
		s.metrics.recordRequest(kind, http.StatusOK)
		return
	}

	f, err := s.assets.Open(asset)
	if err != nil {
		s.unreadable(w, kind, asset, err)
		return
	}
	defer f.Close()

	if rs, ok := f.(io.ReadSeeker); ok {
		// ServeContent handles ranges and sets the length itself.
		w.Header().Del("Content-Length")
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		http.ServeContent(sw, r, asset.Bag.Basename(), time.Time{}, rs)
		s.metrics.recordRequest(kind, sw.status)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Warn("streaming asset", "source", asset.Record.Source, "error", err)
	}
	s.metrics.recordRequest(kind, http.StatusOK)
}

// unreadable answers 404 for an asset whose file is gone or unreadable.
func (s *Server) unreadable(w http.ResponseWriter, kind string, asset *minisite.Asset, err error) {
	s.logger.Warn("asset file unreadable", "source", asset.Record.Source, "error", err)
	for k := range w.Header() {
		w.Header().Del(k)
	}
	s.notFound(w, kind)
}

func (s *Server) notFound(w http.ResponseWriter, kind string) {
	http.Error(w, "Not Found", http.StatusNotFound)
	s.metrics.recordRequest(kind, http.StatusNotFound)
}

func (s *Server) fail(w http.ResponseWriter, kind string, err error) {
	s.logger.Error("serving request", "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	s.metrics.recordRequest(kind, http.StatusInternalServerError)
}

// ListenAndServe serves the router on addr until the server is shut down.
func ListenAndServe(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving on %s: %w", srv.Addr, err)
	}
	return nil
}

// statusWriter remembers the status code written through it.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
