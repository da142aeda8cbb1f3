// Package addon serves the Stremio addon protocol over HTTP.
//
// Every addon route starts with the descriptor token, so the server itself keeps no account state:
//
//	/{token}/manifest.json
//	/{token}/catalog/{type}/{catalogId}[/{extra}].json
//	/{token}/meta/{type}/{id}.json
//	/{token}/stream/{type}/{id}.json
package addon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/snapetech/iptvaddon/internal/catalog"
	"github.com/snapetech/iptvaddon/internal/config"
	"github.com/snapetech/iptvaddon/internal/health"
	"github.com/snapetech/iptvaddon/internal/log"
	"github.com/snapetech/iptvaddon/internal/metrics"
	"github.com/snapetech/iptvaddon/internal/streamid"
)

// Version is reported in the manifest and on /healthz.
var Version = "1.0.0"

// Server wires the catalog service to the addon routes.
type Server struct {
	cfg      *config.Config
	catalog  *catalog.Service
	resolver streamid.Resolver
	logger   zerolog.Logger
	started  time.Time
}

// New returns a Server. svc performs all upstream work.
func New(cfg *config.Config, svc *catalog.Service) *Server {
	return &Server{
		cfg:      cfg,
		catalog:  svc,
		resolver: streamid.Resolver{LiveTemplate: cfg.LiveURLTemplate},
		logger:   log.WithComponent("addon"),
		started:  time.Now(),
	}
}

// Handler returns the full route tree with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverPanics)
	r.Use(requestID)
	r.Use(cors(s.cfg.CORSOrigins))
	r.Use(metrics.Middleware(routePattern))
	r.Use(log.AccessLog(routePattern))

	r.Get("/", s.handleConfigurePage)
	r.Get("/configure", s.handleConfigurePage)
	r.Post("/configure", s.handleConfigureSubmit)
	r.Get("/manifest.json", s.handleUnconfiguredManifest)
	r.Get("/healthz", health.Handler(s.started, Version).ServeHTTP)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/{token}", func(r chi.Router) {
		r.Use(rateLimit(s.cfg.RateLimitPerMinute))
		r.Get("/manifest.json", s.handleManifest)
		r.Get("/configure", s.handleConfigurePage)
		r.Get("/catalog/{type}/{id}", s.handleCatalog)
		r.Get("/catalog/{type}/{id}/{extra}", s.handleCatalog)
		r.Get("/meta/{type}/{id}", s.handleMeta)
		r.Get("/stream/{type}/{id}", s.handleStream)
	})
	return r
}

// Run listens on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Str("version", Version).Msg("addon listening")
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info().Msg("shutting down addon")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("addon shutdown")
		}
		<-serverErr
		return nil
	}
}
