package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"sfms/internal/core"
	"sfms/internal/log"
	"sfms/internal/middleware/auth"
	"sfms/internal/middleware/ratelimit"
	"sfms/internal/middleware/security"
	"sfms/internal/middleware/trace"
)

// FunctionPath is where the hosted functions runtime routes the endpoint.
const FunctionPath = "/functions/v1/tax-tips"

// Insights is the application surface the endpoint dispatches to.
type Insights interface {
	TaxTips(ctx context.Context, userID string, year *int) (core.TaxTipsReport, error)
	DebtAffordability(ctx context.Context, userID string, monthlyIncome decimal.Decimal) (core.DTIAnalysis, error)
	Ready(ctx context.Context) error
}

// Options tunes the server. Zero values select defaults.
type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	MaxBodyBytes       int64
	// JWTSecret enables bearer token verification when non-empty.
	JWTSecret string
}

type Server struct {
	http.Server
	insights       Insights
	limiter        *ratelimit.Limiter
	detector       *security.Detector
	requestTimeout time.Duration
	maxBodyBytes   int64
	shutdownOnce   sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, insights Insights, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	s := &Server{
		insights:       insights,
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:       security.NewDetector(),
		requestTimeout: opts.RequestTimeout,
		maxBodyBytes:   opts.MaxBodyBytes,
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	endpoint := []mux.MiddlewareFunc{
		s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		}),
	}
	if opts.JWTSecret != "" {
		endpoint = append(endpoint, auth.NewVerifier(opts.JWTSecret).Middleware(func(w http.ResponseWriter, _ *http.Request, status int, msg string) {
			writeError(w, status, msg)
		}))
	}
	preflight := chain(http.HandlerFunc(handlePreflight), endpoint)
	insightsHandler := chain(http.HandlerFunc(s.handleInsights), endpoint)
	// Routes live on the root router so other methods get a 405.
	for _, path := range []string{FunctionPath, "/"} {
		r.Handle(path, preflight).Methods(http.MethodOptions)
		r.Handle(path, insightsHandler).Methods(http.MethodPost)
	}

	var handler http.Handler = r
	handler = recoverMiddleware(handler)
	handler = security.CORSMiddleware(security.DefaultCORSConfig())(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.FromRequest)(handler)
	handler = log.Middleware(logger.WithComponent(log.ComponentHTTP))(handler)
	handler = trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       opts.RequestTimeout + 5*time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// chain applies middlewares so that the first one runs outermost.
func chain(h http.Handler, mws []mux.MiddlewareFunc) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// recoverMiddleware turns a panic into the error envelope.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.FromContext(r.Context()).Error("Panic while handling request",
					log.FieldError, fmt.Sprint(rec),
					log.FieldPath, r.URL.Path,
					"stack", string(debug.Stack()))
				writeError(w, http.StatusBadRequest, "request failed")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.insights.Ready(ctx); err != nil {
		slog.WarnContext(ctx, "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed")
}
