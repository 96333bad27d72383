// Package server implements the HTTP API for the optimization calculator.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is the default requests per second limit.
	DefaultRateLimit = 100
	// DefaultRateBurst is the default burst size for rate limiting.
	DefaultRateBurst = 100
	// DefaultBatchConcurrency is the default number of scenarios evaluated in parallel.
	DefaultBatchConcurrency = 4
	// MaxBatchScenarios caps the number of scenarios in one batch request.
	MaxBatchScenarios = 100
	// errorKey is the logging key for error messages.
	errorKey = "error"
	// maxRequestSize limits request bodies to prevent memory exhaustion.
	maxRequestSize = 1 << 20 // 1MB
	// requestIDHeader carries the per-request correlation ID.
	requestIDHeader = "X-Request-ID"
)

type requestIDKey struct{}

// Server handles HTTP requests for the calculator API.
//
//nolint:govet // fieldalignment: struct field ordering optimized for readability over memory
type Server struct {
	logger         *slog.Logger
	csrfProtection *http.CrossOriginProtection
	metrics        *metrics
	// Per-IP rate limiting.
	ipLimiters       map[string]*rate.Limiter
	allowedOrigins   []string
	ipLimitersMu     sync.RWMutex
	serverCommit     string
	rateLimit        int
	rateBurst        int
	batchConcurrency int
	allowAllCors     bool
}

// New creates a new Server instance.
func New() *Server {
	ctx := context.Background()
	logger := slog.Default().With("component", "iiwsit-server")

	// Configure CSRF protection using Sec-Fetch-Site and Origin headers.
	// Cross-origin POST requests are blocked. GET, HEAD, and OPTIONS are safe methods and always allowed.
	csrfProtection := http.NewCrossOriginProtection()

	logger.InfoContext(ctx, "Server initialized with CSRF protection enabled")

	return &Server{
		logger:           logger,
		csrfProtection:   csrfProtection,
		metrics:          newMetrics(),
		ipLimiters:       make(map[string]*rate.Limiter),
		rateLimit:        DefaultRateLimit,
		rateBurst:        DefaultRateBurst,
		batchConcurrency: DefaultBatchConcurrency,
	}
}

// SetCommit sets the server commit hash.
func (s *Server) SetCommit(commit string) {
	s.serverCommit = commit
}

// SetCORSConfig sets the CORS configuration.
//
//nolint:revive // flag-parameter: allowAll is a clear boolean flag for CORS configuration
func (s *Server) SetCORSConfig(origins string, allowAll bool) {
	ctx := context.Background()
	if allowAll {
		s.allowAllCors = true
		s.logger.WarnContext(ctx, "🚨 CORS configured to allow all origins - DEVELOPMENT MODE ONLY")
		return
	}

	s.allowAllCors = false
	s.allowedOrigins = nil
	if origins == "" {
		return
	}
	for _, origin := range strings.Split(origins, ",") {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}

		// Wildcards must look like *.domain.com or https://*.domain.com
		if strings.Contains(origin, "*") {
			valid := strings.HasPrefix(origin, "*.") ||
				strings.HasPrefix(origin, "https://*.") ||
				strings.HasPrefix(origin, "http://*.")
			if !valid || strings.Count(origin, "*") > 1 {
				s.logger.ErrorContext(ctx, "Invalid wildcard CORS origin", "origin", origin)
				continue
			}
		}

		s.allowedOrigins = append(s.allowedOrigins, origin)
	}
	s.logger.InfoContext(ctx, "CORS origins configured", "origins", s.allowedOrigins)
}

// SetRateLimit sets the rate limiting configuration.
func (s *Server) SetRateLimit(rps int, burst int) {
	ctx := context.Background()
	s.rateLimit = rps
	s.rateBurst = burst
	s.logger.InfoContext(ctx, "Rate limit configured (per-IP)", "requests_per_sec", rps, "burst", burst)
}

// SetBatchConcurrency sets how many batch scenarios are evaluated in parallel.
func (s *Server) SetBatchConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	s.batchConcurrency = n
	s.logger.InfoContext(context.Background(), "Batch concurrency configured", "concurrency", n)
}

// limiter returns a rate limiter for the given IP address.
func (s *Server) limiter(ctx context.Context, ip string) *rate.Limiter {
	s.ipLimitersMu.RLock()
	limiter, exists := s.ipLimiters[ip]
	s.ipLimitersMu.RUnlock()

	if exists {
		return limiter
	}

	s.ipLimitersMu.Lock()
	defer s.ipLimitersMu.Unlock()

	// Double-check after acquiring write lock.
	if existingLimiter, exists := s.ipLimiters[ip]; exists {
		return existingLimiter
	}

	limiter = rate.NewLimiter(rate.Limit(s.rateLimit), s.rateBurst)
	s.ipLimiters[ip] = limiter

	// Cleanup old limiters if map grows too large (prevent memory leak).
	const maxLimiters = 10000
	if len(s.ipLimiters) > maxLimiters {
		count := 0
		target := len(s.ipLimiters) / 2
		for ip := range s.ipLimiters {
			delete(s.ipLimiters, ip)
			count++
			if count >= target {
				break
			}
		}
		s.logger.InfoContext(ctx, "Cleaned up old IP rate limiters", "removed", count, "remaining", len(s.ipLimiters))
	}

	return limiter
}

// allow applies per-IP rate limiting and writes 429 when the client is over its limit.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, handler string) bool {
	ctx := r.Context()
	ip := clientIP(r)
	if s.limiter(ctx, ip).Allow() {
		return true
	}
	s.logger.WarnContext(ctx, "["+handler+"] Rate limit exceeded", "client_ip", ip, "path", r.URL.Path)
	s.writeError(w, r, NewRequestError(http.StatusTooManyRequests, ErrRateLimit.Error()))
	return false
}

// clientIP extracts the caller's address.
// X-Forwarded-For is trusted, so deploy behind a proxy that sanitizes it.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Shutdown gracefully shuts down the server.
func (*Server) Shutdown() {
	// Nothing to do - in-memory structures will be garbage collected.
}

// requestID returns the correlation ID assigned by ServeHTTP.
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string) //nolint:errcheck // absent outside ServeHTTP
	return id
}

// ServeHTTP implements http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		s.metrics.observeRequest(rec.status, r.Method, routeLabel(r.URL.Path), time.Since(start))
	}()

	// Reuse a well-formed caller ID so logs correlate across services.
	id := r.Header.Get(requestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	rec.Header().Set(requestIDHeader, id)
	r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

	// Apply CSRF protection first.
	if s.csrfProtection != nil {
		if err := s.csrfProtection.Check(r); err != nil {
			s.logger.WarnContext(r.Context(), "CSRF check failed - cross-origin request denied",
				"origin", r.Header.Get("Origin"),
				"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
				errorKey, err)
			http.Error(rec, "Cross-origin request denied", http.StatusForbidden)
			return
		}
	}

	// Security headers.
	rec.Header().Set("X-Content-Type-Options", "nosniff")
	rec.Header().Set("X-Frame-Options", "DENY")
	rec.Header().Set("X-XSS-Protection", "1; mode=block")
	rec.Header().Set("Referrer-Policy", "no-referrer")
	rec.Header().Set("Cross-Origin-Resource-Policy", "cross-origin")

	// Handle CORS.
	origin := r.Header.Get("Origin")
	if s.allowAllCors {
		// Echo the origin rather than using a wildcard.
		if origin != "" {
			rec.Header().Set("Access-Control-Allow-Origin", origin)
			s.logger.DebugContext(r.Context(), "CORS allowed (dev mode)", "origin", origin)
		}
	} else if origin != "" && s.isOriginAllowed(origin) {
		rec.Header().Set("Access-Control-Allow-Origin", origin)
		rec.Header().Set("Vary", "Origin")
	}
	rec.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	rec.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
	rec.Header().Set("Access-Control-Expose-Headers", requestIDHeader)

	// Handle preflight OPTIONS request.
	if r.Method == http.MethodOptions {
		rec.WriteHeader(http.StatusNoContent)
		return
	}

	// Route requests.
	switch r.URL.Path {
	case "/v1/calculate":
		if r.Method != http.MethodPost && r.Method != http.MethodGet {
			http.Error(rec, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleCalculate(rec, r)
	case "/v1/calculate/batch":
		if r.Method != http.MethodPost {
			http.Error(rec, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleBatch(rec, r)
	case "/v1/defaults":
		if r.Method != http.MethodGet {
			http.Error(rec, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleDefaults(rec, r)
	case "/health":
		s.handleHealth(rec, r)
	case "/metrics":
		s.metrics.handler().ServeHTTP(rec, r)
	default:
		http.NotFound(rec, r)
	}
}

// isOriginAllowed checks if an origin is in the allowed list.
// Supports exact matches and wildcard subdomain patterns (*.example.com or https://*.example.com).
func (s *Server) isOriginAllowed(origin string) bool {
	protocol, host, ok := strings.Cut(origin, "://")
	if !ok || (protocol != "http" && protocol != "https") {
		return false
	}
	// Drop path, then port.
	host, _, _ = strings.Cut(host, "/")
	host, _, _ = strings.Cut(host, ":")

	for _, allowed := range s.allowedOrigins {
		if allowed == origin {
			return true
		}
		if !strings.Contains(allowed, "*") {
			continue
		}

		wildcard := allowed
		if requiredProtocol, rest, hasProtocol := strings.Cut(allowed, "://"); hasProtocol {
			if protocol != requiredProtocol {
				continue
			}
			wildcard = rest
		}
		domain, isWildcard := strings.CutPrefix(wildcard, "*.")
		if !isWildcard {
			continue
		}

		// Matches example.com and any subdomain, but not notexample.com.
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// handleHealth provides a simple health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "healthy"}); err != nil {
		s.logger.ErrorContext(ctx, "[handleHealth] Error encoding response", errorKey, err)
	}
}

// writeJSON sends v with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any, handler string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent, so the status cannot change.
		s.logger.ErrorContext(r.Context(), "["+handler+"] Error encoding response", errorKey, err)
	}
}
