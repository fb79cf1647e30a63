package rest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/restmap/restmap/pkg/httputil"
	mw "github.com/restmap/restmap/pkg/httputil/middleware"
	"github.com/restmap/restmap/pkg/metrics"
	"github.com/restmap/restmap/pkg/registry"
	"github.com/restmap/restmap/pkg/resource"
	"github.com/restmap/restmap/pkg/schema"
	"go.uber.org/zap"
)

// Server dispatches CRUD requests to registered resources. The registry is
// populated and reflected before Start; request handling only reads it.
type Server struct {
	pool     *pgxpool.Pool
	registry *registry.Registry
	catalog  *schema.Catalog
	router   *httputil.Router
	logger   *zap.Logger
	baseURL  string
	mount    sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithBaseURL mounts all resource routes under the given prefix.
func WithBaseURL(baseURL string) Option {
	return func(s *Server) { s.baseURL = baseURL }
}

// WithCatalog attaches the schema catalog so the server can expose catalog
// metadata and log reloads.
func WithCatalog(catalog *schema.Catalog) Option {
	return func(s *Server) { s.catalog = catalog }
}

// NewServer builds a server over an established pool and a populated,
// reflected registry.
func NewServer(pool *pgxpool.Pool, reg *registry.Registry, opts ...Option) *Server {
	s := &Server{
		pool:     pool,
		registry: reg,
		router: httputil.NewRouter(httputil.WithServerOptions(func(srv *http.Server) {
			srv.ReadHeaderTimeout = 10 * time.Second
		})),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddMiddleware appends middleware applied to every route. Must be called
// before Start or Handler; later calls have no effect.
func (s *Server) AddMiddleware(middleware ...httputil.Middleware) {
	for _, m := range middleware {
		s.router.Use(m)
	}
}

// Handler returns the server as a plain http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	s.mount.Do(s.routes)
	return s.router
}

func (s *Server) routes() {
	r := s.router
	if s.baseURL != "" {
		r = r.Group(s.baseURL)
	}

	r.HandleFunc("GET /{endpoint}", s.dispatch(s.handleList))
	r.HandleFunc("POST /{endpoint}", s.dispatch(s.handleCreate))
	r.HandleFunc("GET /{endpoint}/{id}", s.dispatch(s.handleGet))
	r.HandleFunc("PATCH /{endpoint}/{id}", s.dispatch(s.handlePatch))
	r.HandleFunc("PUT /{endpoint}/{id}", s.dispatch(s.handlePut))
	r.HandleFunc("DELETE /{endpoint}/{id}", s.dispatch(s.handleDelete))

	if s.catalog != nil {
		r.HandleFunc("GET /", s.handleIndex)
	}
}

type resourceHandler func(w http.ResponseWriter, r *http.Request, res *resource.Resource)

// dispatch resolves the endpoint and enforces the method allowlist before
// any database access, then records request metrics.
func (s *Server) dispatch(h resourceHandler) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.PathValue("endpoint")

		res, ok := s.registry.Lookup(endpoint)
		if !ok {
			httputil.Error(w, http.StatusNotFound, "unknown endpoint: "+endpoint)
			return
		}
		if !res.Allows(r.Method) {
			httputil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		start := time.Now()
		rec := mw.NewResponseRecorder(w)
		h(rec, r, res)
		metrics.ObserveRequest(endpoint, r.Method, rec.StatusCode, time.Since(start))
	}
}

// handleIndex lists the registered endpoints.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Endpoint string   `json:"endpoint"`
		Table    string   `json:"table"`
		Schema   string   `json:"schema"`
		Methods  []string `json:"methods"`
	}

	entries := make([]entry, 0, s.registry.Len())
	for _, res := range s.registry.Resources() {
		methods := res.Methods
		if len(methods) == 0 {
			methods = resource.DefaultMethods
		}
		entries = append(entries, entry{
			Endpoint: res.EndpointName(),
			Table:    res.TableName,
			Schema:   res.SchemaName(),
			Methods:  methods,
		})
	}
	httputil.JSON(w, http.StatusOK, entries)
}

// location returns the path of a row including the base URL prefix.
func (s *Server) location(row *resource.Row) string {
	return s.baseURL + row.ResourceURI()
}

// Start begins serving on addr.
func (s *Server) Start(addr string) error {
	s.mount.Do(s.routes)
	s.logger.Info("server starting", zap.String("addr", addr))
	return s.router.ListenAndServe(addr)
}

// Shutdown gracefully stops the HTTP server. The pool and catalog belong
// to the caller.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.router.Shutdown(ctx)
}
