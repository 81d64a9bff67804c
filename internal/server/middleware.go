package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/niftyscope/internal/handlers"
)

// contextKey is the type for context keys used in middleware.
type contextKey string

const correlationIDKey contextKey = "correlation_id"

const (
	// maxRequestBody caps every request body; JSON handlers apply a tighter limit.
	maxRequestBody = 1 << 20
	// maxCorrelationID bounds a caller supplied correlation ID before it reaches the logs.
	maxCorrelationID = 128

	csrfCookie = "_csrf"
	csrfHeader = "X-CSRF-Token"

	contentSecurityPolicy = "default-src 'self'; " +
		"script-src 'self' https://cdn.jsdelivr.net; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:; " +
		"connect-src 'self'; " +
		"frame-ancestors 'none'"
)

// corsPolicy is what cross-origin callers may send to one group of routes.
type corsPolicy struct {
	methods string
	headers string
}

// Only the JSON API and the MCP endpoint are meant for scripts and agents on
// other origins; pages and static files get no CORS headers.
var (
	apiCORS = corsPolicy{
		methods: "GET, POST, DELETE, OPTIONS",
		headers: "Content-Type, " + handlers.ViewHeader,
	}
	mcpCORS = corsPolicy{
		methods: "GET, POST, DELETE, OPTIONS",
		headers: "Content-Type, Accept, Mcp-Session-Id, Mcp-Protocol-Version",
	}
)

func corsPolicyFor(path string) (corsPolicy, bool) {
	switch {
	case strings.HasPrefix(path, "/api/"):
		return apiCORS, true
	case path == "/mcp":
		return mcpCORS, true
	default:
		return corsPolicy{}, false
	}
}

// withMiddleware wraps the router. The first middleware listed runs first.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		s.correlationIDMiddleware,
		s.loggingMiddleware,
		s.securityHeadersMiddleware,
		s.corsMiddleware,
		s.csrfMiddleware,
		s.maxBodySizeMiddleware(maxRequestBody),
		s.recoveryMiddleware,
	}
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}
	return handler
}

// correlationIDMiddleware tags the request with the caller's X-Request-ID or
// X-Correlation-ID, or a fresh UUID when neither is usable.
func (s *Server) correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = r.Header.Get("X-Correlation-ID")
		}
		if id == "" || len(id) > maxCorrelationID {
			id = uuid.NewString()
		}

		w.Header().Set("X-Correlation-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), correlationIDKey, id)))
	})
}

// loggingMiddleware writes one line per request. Static assets and successful
// requests log at debug, client errors at warn and server errors at error.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		event := s.logger.Debug()
		switch {
		case rw.statusCode >= 500:
			event = s.logger.Error()
		case rw.statusCode >= 400 && !strings.HasPrefix(r.URL.Path, "/static/"):
			event = s.logger.Warn()
		}

		correlationID, _ := r.Context().Value(correlationIDKey).(string)
		event.
			Str("correlation_id", correlationID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Int("bytes", rw.bytesWritten).
			Str("remote", r.RemoteAddr).
			Msg("HTTP request")
	})
}

// corsMiddleware answers preflights and sets CORS headers for the API and MCP routes.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		policy, ok := corsPolicyFor(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", policy.methods)
		h.Set("Access-Control-Allow-Headers", policy.headers)
		h.Set("Access-Control-Expose-Headers", "X-Correlation-ID, Mcp-Session-Id")

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware turns a handler panic into a 500, JSON for API routes.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			correlationID, _ := r.Context().Value(correlationIDKey).(string)
			s.logger.Error().
				Str("correlation_id", correlationID).
				Str("error", fmt.Sprintf("%v", rec)).
				Str("path", r.URL.Path).
				Msg("panic recovered")

			if strings.HasPrefix(r.URL.Path, "/api/") {
				handlers.WriteError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}

// securityHeadersMiddleware sets the security headers for every response. The
// CSP admits the chart library CDN used by the stock page.
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		next.ServeHTTP(w, r)
	})
}

// maxBodySizeMiddleware limits the size of request bodies.
func (s *Server) maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// csrfExempt reports whether path skips the token check. The API and MCP
// endpoints only take JSON bodies, which a cross-site form cannot send.
func csrfExempt(path string) bool {
	return strings.HasPrefix(path, "/api/") || path == "/mcp"
}

// csrfMiddleware issues a _csrf cookie on page loads and requires unsafe
// requests outside the JSON endpoints to echo it in X-CSRF-Token.
func (s *Server) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if c, err := r.Cookie(csrfCookie); err != nil || c.Value == "" {
				http.SetCookie(w, &http.Cookie{
					Name:     csrfCookie,
					Value:    generateCSRFToken(),
					Path:     "/",
					HttpOnly: false,
					SameSite: http.SameSiteStrictMode,
				})
			}
			next.ServeHTTP(w, r)
			return
		case http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		if csrfExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		c, err := r.Cookie(csrfCookie)
		if err != nil || c.Value == "" {
			http.Error(w, "Forbidden: missing CSRF token", http.StatusForbidden)
			return
		}
		if token := r.Header.Get(csrfHeader); token == "" || token != c.Value {
			http.Error(w, "Forbidden: invalid CSRF token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func generateCSRFToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}

// responseWriter records the status code and body size for the request log.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// Flush lets streamed MCP responses reach the client through the logging wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
