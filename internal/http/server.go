package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	applog "ocorrencias/internal/log"
	"ocorrencias/internal/metrics"
	"ocorrencias/internal/middleware/ratelimit"
	"ocorrencias/internal/middleware/security"
	"ocorrencias/internal/middleware/trace"
	"ocorrencias/internal/services"
	appweb "ocorrencias/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config holds the listener and hardening settings of the server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    ratelimit.Config
	// TrustedProxies extends the default private networks (CIDR).
	TrustedProxies []string
}

// Dependencies are the collaborators the handlers use.
type Dependencies struct {
	Service *services.DashboardService
	Logger  *applog.Logger
	Metrics *metrics.Metrics
	// Backend names the data source, reported by /readyz.
	Backend string
}

type Server struct {
	http.Server
	svc       *services.DashboardService
	templates *template.Template
	logger    *applog.Logger
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	backend   string
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and mounts every route.
func NewServer(cfg Config, deps Dependencies) (*Server, error) {
	if deps.Service == nil {
		return nil, errors.New("dashboard service is required")
	}
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector(deps.Logger.Logger)
	for _, cidr := range cfg.TrustedProxies {
		if err := detector.AddTrustedProxy(strings.TrimSpace(cidr)); err != nil {
			return nil, err
		}
	}

	s := &Server{
		Server: http.Server{
			Addr:         cfg.Addr,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		svc:       deps.Service,
		templates: t,
		logger:    deps.Logger.WithComponent(applog.ComponentHTTP),
		metrics:   deps.Metrics,
		limiter:   ratelimit.NewLimiter(cfg.RateLimit),
		detector:  detector,
		backend:   deps.Backend,
		started:   time.Now(),
	}

	router, err := s.routes()
	if err != nil {
		s.limiter.Stop()
		return nil, err
	}
	s.Handler = router
	return s, nil
}

func (s *Server) routes() (chi.Router, error) {
	r := chi.NewRouter()

	r.Use(trace.NewMiddleware(s.logger, s.detector.ExtractClientIP, s.metrics).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited))

		r.Get("/", s.handleIndex)
		r.Get("/ui/body", s.handleBody)

		r.Route("/api", func(r chi.Router) {
			r.Get("/options", s.handleOptions)
			r.Get("/charts", s.handleCharts)
			r.Get("/occurrences", s.handleOccurrences)
		})

		r.Get("/charts/{name}.png", s.handleChartPNG)
		r.Get("/export.csv", s.handleExportCSV)
		r.Get("/export.xlsx", s.handleExportXLSX)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Página não encontrada").Write(w)
	})
	return r, nil
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncRateLimited()
	s.logger.WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.").Write(w)
}

// Shutdown stops background goroutines and drains the listener. Safe to call twice.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
