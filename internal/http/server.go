package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"planner/internal/dashboard"
	"planner/internal/log"
	"planner/internal/middleware/ratelimit"
	"planner/internal/middleware/security"
	"planner/internal/middleware/trace"
	"planner/internal/shell"
	appweb "planner/web"
)

const (
	requestTimeout = 7 * time.Second
	readyTimeout   = 5 * time.Second
)

// Checker is a dependency the readiness probe pings.
type Checker interface {
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Addr          string
	Cookie        CookieConfig
	AuthRateLimit int
	Checks        map[string]Checker
	Logger        *log.Logger

	// TrustedProxies are CIDRs whose forwarding headers name the client.
	// Empty selects security.DefaultTrustedProxies.
	TrustedProxies []string

	// ViewWait is how long /ui/view waits for a loading shell before
	// answering with the polling spinner.
	ViewWait time.Duration

	// PollDelay is the spinner's re-poll delay, in htmx syntax.
	PollDelay string
}

// Server wraps http.Server with the planner's routes and collaborators.
type Server struct {
	http.Server

	registry  *shell.Registry
	charts    *dashboard.ChartCache
	templates *template.Template
	cookie    CookieConfig
	viewWait  time.Duration
	pollDelay string
	checks    map[string]Checker

	logger     *log.Logger
	structured *log.StructuredLogger
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware
	started    time.Time
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options, registry *shell.Registry, charts *dashboard.ChartCache) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.Wrap(nil, log.ComponentHTTP)
	}
	if opts.Cookie.Name == "" {
		opts.Cookie.Name = "planner_client"
	}
	if opts.ViewWait <= 0 {
		opts.ViewWait = 500 * time.Millisecond
	}
	if opts.PollDelay == "" {
		opts.PollDelay = "500ms"
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	detector, err := security.NewDetector(security.DetectorConfig{TrustedProxies: opts.TrustedProxies})
	if err != nil {
		return nil, err
	}
	s := &Server{
		registry:   registry,
		charts:     charts,
		templates:  t,
		cookie:     opts.Cookie,
		viewWait:   opts.ViewWait,
		pollDelay:  opts.PollDelay,
		checks:     opts.Checks,
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.AuthRateLimit}),
		detector:   detector,
		tracer:     trace.NewMiddleware(detector.ExtractClientIP, opts.Logger.WithComponent(log.ComponentTrace)),
		started:    time.Now(),
	}

	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/view", s.handleView)
	mux.HandleFunc("GET /ui/auth", s.handleAuthMode)
	mux.Handle("POST /ui/auth", s.limiter.Middleware(detector.ExtractClientIP, s.rateLimited)(http.HandlerFunc(s.handleAuthSubmit)))
	mux.HandleFunc("POST /ui/signout", s.handleSignOut)
	mux.HandleFunc("POST /ui/expense/modal", s.handleOpenModal)
	mux.HandleFunc("POST /ui/expense/modal/close", s.handleCloseModal)
	mux.HandleFunc("POST /ui/expense", s.handleSubmitExpense)
	mux.HandleFunc("GET /ui/chart.png", s.handleChart(dashboard.FormatPNG))
	mux.HandleFunc("GET /ui/chart.svg", s.handleChart(dashboard.FormatSVG))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	var h http.Handler = mux
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = detector.Middleware(opts.Logger)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Shutdown stops accepting requests, then releases the rate limiter and every
// live shell.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	s.limiter.Stop()
	s.registry.Close()
	return err
}

// render executes a named template into a buffer so a failure never leaves a
// half-written partial on the wire.
func (s *Server) render(ctx context.Context, name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.structured.LogError(ctx, "Template execution failed", err, log.OpRender, nil)
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	fields := log.NewFields().
		WithClientIP(s.detector.ExtractClientIP(r)).
		WithHTTPRequest(r.Method, r.URL.Path, "", "", "")
	s.logger.WarnContext(r.Context(), "Rate limit exceeded", fields.ToSlice()...)
	TooManyRequestsError("Too many attempts. Please try again in a minute.").Write(w)
}
