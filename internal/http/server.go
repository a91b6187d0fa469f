// Package http serves the fintrack web UI, JSON API and live update stream.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/live"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	appweb "fintrack/web"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Auth         *services.AuthService
	Transactions *services.TransactionService
	Tokens       *auth.Tokens
	Hub          *live.Hub
	Store        Pinger
	Logger       *applog.Logger
}

// Options tune request handling.
type Options struct {
	SecureCookies      bool
	FeedLimit          int
	RateLimitPerMinute int
	// AuthRateLimitPerMinute throttles sign-in, sign-up and OTP requests
	// per client, on pages and the API alike.
	AuthRateLimitPerMinute int
	PhonePrefix            string
	TrustedProxies     []string
	// KeepAlive is the SSE comment interval.
	KeepAlive time.Duration
}

// Server wraps http.Server with the router, templates and middleware state.
type Server struct {
	http.Server
	router    *mux.Router
	templates *template.Template
	validate  *validator.Validate
	logger    *applog.Logger

	auth         *services.AuthService
	transactions *services.TransactionService
	tokens       *auth.Tokens
	hub          *live.Hub
	store        Pinger
	opts         Options

	rateLimiter      *ratelimit.Limiter
	authLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	streamsDone  chan struct{}
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	if opts.FeedLimit <= 0 {
		opts.FeedLimit = 50
	}
	if opts.PhonePrefix == "" {
		opts.PhonePrefix = core.DefaultPhonePrefix
	}
	if opts.AuthRateLimitPerMinute <= 0 {
		opts.AuthRateLimitPerMinute = 10
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 25 * time.Second
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	router := mux.NewRouter()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		router:           router,
		validate:         newValidator(opts.PhonePrefix),
		logger:           logger,
		auth:             deps.Auth,
		transactions:     deps.Transactions,
		tokens:           deps.Tokens,
		hub:              deps.Hub,
		store:            deps.Store,
		opts:             opts,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		authLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.AuthRateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, logger),
		appMetrics:       newAppMetrics(),
		streamsDone:      make(chan struct{}),
	}

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", "error", err)
	} else {
		s.templates = t
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	headers := security.DefaultHeadersConfig()
	headers.ForceHSTS = s.opts.SecureCookies

	r.Use(s.traceMiddleware.Middleware)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(trace.RequestID))
	r.Use(security.NewHeadersMiddleware(headers).Middleware)
	r.Use(s.securityDetector.Middleware)
	r.Use(auth.Session(s.tokens))

	// Probes and assets skip rate limiting.
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}
	r.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	s.apiRoutes(r.PathPrefix("/api/v1").Subrouter())

	app := r.PathPrefix("/").Subrouter()
	app.Use(s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.rateLimited))

	app.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	app.HandleFunc("/login", s.handleLoginPage).Methods(http.MethodGet)
	app.Handle("/login", s.throttleAuth(s.handleLogin, s.rateLimited)).Methods(http.MethodPost)
	app.HandleFunc("/signup", s.handleSignupPage).Methods(http.MethodGet)
	app.Handle("/signup", s.throttleAuth(s.handleSignup, s.rateLimited)).Methods(http.MethodPost)
	app.Handle("/login/otp", s.throttleAuth(s.handleRequestOTP, s.rateLimited)).Methods(http.MethodPost)
	app.Handle("/login/otp/verify", s.throttleAuth(s.handleVerifyOTP, s.rateLimited)).Methods(http.MethodPost)
	app.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	app.HandleFunc("/cashflow", s.handleCashflow).Methods(http.MethodGet)
	app.HandleFunc("/ui/cashflow", s.handleFeedPartial).Methods(http.MethodGet)

	pages := app.NewRoute().Subrouter()
	pages.Use(auth.RequirePage)
	pages.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	pages.HandleFunc("/ui/summary", s.handleSummaryPartial).Methods(http.MethodGet)
	pages.HandleFunc("/ui/transactions", s.handleTransactionsPartial).Methods(http.MethodGet)
	pages.HandleFunc("/ui/transactions/{id}/edit", s.handleEditForm).Methods(http.MethodGet)
	pages.HandleFunc("/transactions/export", s.handleExport).Methods(http.MethodGet)
	pages.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	pages.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods(http.MethodPut, http.MethodPost)
	pages.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods(http.MethodDelete)
}

// rateLimited renders the 429 body; Retry-After is already set.
func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, slow down").Write(w)
}

// throttleAuth guards a credential endpoint with the stricter auth limiter.
func (s *Server) throttleAuth(h http.HandlerFunc, onLimit http.HandlerFunc) http.Handler {
	return s.authLimiter.Middleware(s.securityDetector.ExtractClientIP, onLimit)(h)
}

// Ready reports whether the store answers and the templates loaded.
func (s *Server) Ready(ctx context.Context) error {
	if s.templates == nil {
		return errTemplatesNotLoaded
	}
	if s.store == nil {
		return nil
	}
	return s.store.Ping(ctx)
}

// Shutdown ends live streams, stops background goroutines and drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.streamsDone)
		s.rateLimiter.Stop()
		s.authLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
