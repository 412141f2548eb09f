/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package api serves the query translator over HTTP for the visual editor.

Endpoints:
==========

	POST /v1/parse     {"sql": "..."}             -> {"query": {...}, "diagnostics": [...]}
	POST /v1/generate  {"query": {...}}           -> {"sql": "...", "formatted": "..."}
	POST /v1/format    {"sql": "..."}             -> {"formatted": "..."}
	POST /v1/validate  {"query": {...}}           -> {"valid": true, "errors": []}
	POST /v1/check     {"query": {...}}           -> {"sql": "...", "compatible": true, "problems": []}
	POST /v1/preview   {"query": {...}}           -> {"sql": "...", "columns": [...], "rows": [...]}
	GET  /health, /health/live, /health/ready
	GET  /metrics

Endpoints that take a model also accept {"sql": "..."} in place of
{"query": ...}; the text is parsed first. /v1/check given both compares the
text against the model.

Errors:
=======

Failures answer with {"error": {"code", "category", "message", "detail",
"hint"}, "request_id"}. Unsupported statements and invalid models are 422,
malformed requests 400, a disabled preview 503 and a failing preview
database 502.
*/
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"querysync/internal/cache"
	"querysync/internal/health"
	"querysync/internal/logging"
	"querysync/internal/metrics"
	"querysync/internal/preview"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

const shutdownTimeout = 5 * time.Second

// Options configure a Server. Nil Cache parses every request, nil Preview
// disables /v1/preview and nil Metrics uses the process-wide metrics.
type Options struct {
	Addr    string
	Version string
	Cache   *cache.ParseCache
	Preview *preview.Runner
	Metrics *metrics.Metrics

	// Responses smaller than this are sent uncompressed. Zero uses the
	// gzhttp default.
	GzipMinSize int
}

// Server is the translator HTTP API.
type Server struct {
	addr    string
	cache   *cache.ParseCache
	preview *preview.Runner
	metrics *metrics.Metrics
	health  *health.Checker
	logger  *logging.Logger
	handler http.Handler
}

// NewServer builds the router and middleware chain.
func NewServer(opts Options) *Server {
	s := &Server{
		addr:    opts.Addr,
		cache:   opts.Cache,
		preview: opts.Preview,
		metrics: opts.Metrics,
		logger:  logging.NewLogger("api"),
	}
	if s.metrics == nil {
		s.metrics = metrics.Get()
	}

	s.health = health.NewChecker(opts.Version)
	s.health.RegisterCheck("translator", health.TranslatorCheck())
	var ping func() error
	if s.preview.Enabled() {
		ping = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return s.preview.Ping(ctx)
		}
	}
	s.health.RegisterCheck("preview", health.PreviewCheck(ping))

	router := mux.NewRouter()
	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/parse", s.handleParse).Methods(http.MethodPost)
	v1.HandleFunc("/generate", s.handleGenerate).Methods(http.MethodPost)
	v1.HandleFunc("/format", s.handleFormat).Methods(http.MethodPost)
	v1.HandleFunc("/validate", s.handleValidate).Methods(http.MethodPost)
	v1.HandleFunc("/check", s.handleCheck).Methods(http.MethodPost)
	v1.HandleFunc("/preview", s.handlePreview).Methods(http.MethodPost)

	s.health.Register(router)
	router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	compress, err := Compress(opts.GzipMinSize)
	if err != nil {
		s.logger.Warn("Response compression disabled", "error", err)
		s.handler = Chain(RequestLogger(s.logger), CORS)(router)
		return s
	}
	s.handler = Chain(RequestLogger(s.logger), CORS, compress)(router)
	return s
}

// Handler returns the complete HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
