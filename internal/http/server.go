package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"networth/internal/core"
	"networth/internal/log"
	"networth/internal/middleware/ratelimit"
	"networth/internal/middleware/security"
	"networth/internal/middleware/trace"
	"networth/internal/services"
	appweb "networth/web"
)

// Options configures the server beyond its address and dashboard.
type Options struct {
	CORSOrigins []string
	// Currency is the ISO code used to render money on the HTML pages.
	Currency string
	Logger   *log.Logger
	// ReloadLimit bounds POST /api/reload and /ui/reload per client.
	ReloadLimit ratelimit.Config
}

// Server serves the JSON API and the HTML dashboard.
type Server struct {
	http.Server

	dashboard *services.Dashboard
	templates *template.Template
	currency  string
	logger    *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, d *services.Dashboard, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	if opts.Currency == "" {
		opts.Currency = core.DefaultCurrency
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	s := &Server{
		dashboard: d,
		currency:  opts.Currency,
		logger:    logger.WithComponent(log.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(opts.ReloadLimit),
		detector:  security.NewDetector(logger),
		started:   time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	t, err := template.New("").Funcs(s.templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err.Error())
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(opts.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
	return s
}

func (s *Server) routes(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(s.tracer.Middleware)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		r.With(security.StaticAssetMiddleware(3600)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	r.Get("/", s.handleIndex)
	r.Get("/asset-types/{type}", s.handleAssetTypePage)
	r.Get("/vehicles", s.handleVehiclesPage)
	r.With(s.limiter.Middleware(s.detector.ExtractClientIP, s.uiRateLimited)).
		Post("/ui/reload", s.handleUIReload)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", trace.HeaderRequestID},
			ExposedHeaders: []string{trace.HeaderRequestID},
			MaxAge:         300,
		}))
		r.Use(security.NoStore)

		r.Get("/overview", s.handleOverview)
		r.Get("/asset-types/{type}", s.handleAssetType)
		r.Get("/allocation", s.handleAllocation)
		r.Get("/performance", s.handlePerformance)
		r.Get("/risk", s.handleRisk)
		r.Get("/pensions", s.handlePensions)
		r.Get("/classification", s.handleClassification)
		r.Get("/vehicles", s.handleVehicles)
		r.Get("/vehicles/{id}", s.handleVehicle)
		r.With(s.limiter.Middleware(s.detector.ExtractClientIP, s.apiRateLimited)).
			Post("/reload", s.handleReload)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	return r
}

// Shutdown stops accepting requests, drains in-flight ones and releases the
// rate limiter. Only the first call has an effect.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) apiRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

func (s *Server) uiRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
	errorFragment(http.StatusTooManyRequests, "Too many reloads, try again in a minute").write(w)
}
