package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Middleware wraps a whole handler tree.
type Middleware func(http.Handler) http.Handler

// RouteMiddleware wraps a single route.
type RouteMiddleware func(http.HandlerFunc) http.HandlerFunc

// SetChain applies middlewares to h from the outside in: the first
// middleware given is the outermost.
func SetChain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	return h
}

// SetRouteChain applies route middlewares to a handler func, first given
// being the outermost.
func SetRouteChain(h http.HandlerFunc, middlewares ...RouteMiddleware) http.HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	return h
}

// HTTPResponseTraceInjection copies the active trace id onto the response so
// customers can quote it in support tickets.
func HTTPResponseTraceInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc := trace.SpanContextFromContext(r.Context())
		if sc.HasTraceID() {
			w.Header().Set("X-Trace-Id", sc.TraceID().String())
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

type HTTPRequestLogger struct {
	logger         *logrus.Logger
	debug          bool
	minLevelStatus int
}

// NewHTTPRequestLogger logs every request when debug is on, otherwise only
// responses at or above minLevelStatus.
func NewHTTPRequestLogger(logger *logrus.Logger, debug bool, minLevelStatus int) *HTTPRequestLogger {
	return &HTTPRequestLogger{
		logger:         logger,
		debug:          debug,
		minLevelStatus: minLevelStatus,
	}
}

func (l *HTTPRequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		if !l.debug && rec.statusCode < l.minLevelStatus {
			return
		}

		entry := l.logger.WithContext(r.Context()).WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.statusCode,
			"durationMs": time.Since(start).Milliseconds(),
			"remoteAddr": r.RemoteAddr,
		})

		if rec.statusCode >= http.StatusInternalServerError {
			entry.Error()
			return
		}

		entry.Info()
	})
}
