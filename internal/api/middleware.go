package api

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"asset-tokenization-kit/internal/apperr"
	"asset-tokenization-kit/internal/auth"
	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/logging"
	"asset-tokenization-kit/internal/observability"
)

const traceHeader = "X-Trace-ID"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// traceMiddleware assigns the request trace id and echoes it back.
func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if traceID == "" {
			traceID = logging.NewTraceID()
		}
		w.Header().Set(traceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(logging.WithTraceID(r.Context(), traceID)))
	})
}

// recoverMiddleware turns panics into 500 responses and records them on the span.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				err := fmt.Errorf("panic: %v", v)
				span := trace.SpanFromContext(r.Context())
				span.RecordError(err)
				span.SetStatus(codes.Error, "panic")
				logging.FromContext(r.Context(), s.log).WithField("path", r.URL.Path).Error(err.Error())
				s.writeError(w, r, apperr.Internal(err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// instrument opens a server span per route, records Prometheus metrics and
// writes the access log.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.DefaultMetrics.HTTPInFlight.Inc()
		defer observability.DefaultMetrics.HTTPInFlight.Dec()

		route := routeTemplate(r)
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.String("http.method", r.Method),
		)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r.WithContext(ctx))

		duration := time.Since(start)
		span.SetAttributes(attribute.Int("http.status_code", wrapped.statusCode))
		if wrapped.statusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
		}
		observability.RecordHTTPRequest(route, r.Method, strconv.Itoa(wrapped.statusCode), duration.Seconds())

		logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
			"method":      r.Method,
			"route":       route,
			"status":      wrapped.statusCode,
			"duration_ms": duration.Milliseconds(),
		}).Info("request")
	})
}

// corsMiddleware answers preflight requests and sets CORS headers for
// allowed origins. An origin list containing "*" allows any origin.
func corsMiddleware(origins []string) mux.MiddlewareFunc {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[origin]) {
				h := w.Header()
				if allowAll {
					h.Set("Access-Control-Allow-Origin", "*")
				} else {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+traceHeader)
				h.Set("Access-Control-Expose-Headers", traceHeader)
				h.Set("Access-Control-Max-Age", "3600")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth resolves the bearer token into the calling principal.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.writeError(w, r, apperr.Unauthorized("missing bearer token"))
			return
		}
		p, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := auth.WithPrincipal(r.Context(), p)
		ctx = logging.WithUserID(ctx, p.User.ID)
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("user.id", p.User.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// rateLimit rejects requests over the limiter's budget. Authenticated
// callers are keyed by user id, anonymous ones by client IP.
func (s *Server) rateLimit(name string, next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + s.clientIP(r)
		if p := auth.PrincipalFrom(r.Context()); p != nil {
			key = "user:" + p.User.ID
		}
		if !s.limiter.Allow(name + "|" + key) {
			observability.RecordRateLimitReject(name)
			w.Header().Set("Retry-After", "1")
			s.writeError(w, r, apperr.TooManyRequests("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the peer address. X-Forwarded-For is only read when the
// peer is a trusted proxy; hops are walked right to left and the first
// untrusted one is the client.
func (s *Server) clientIP(r *http.Request) string {
	peer := remoteAddr(r)
	if !s.trustedProxy(peer) {
		return peer
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		addr, err := netip.ParseAddr(hop)
		if err != nil {
			// Garbage in the chain: stop at the last address we can vouch for.
			return peer
		}
		hop = addr.Unmap().String()
		if !s.trustedProxy(hop) {
			return hop
		}
		peer = hop
	}
	return peer
}

func remoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) trustedProxy(ip string) bool {
	if len(s.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range s.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (s *Server) clientInfo(r *http.Request) auth.ClientInfo {
	return auth.ClientInfo{IPAddress: s.clientIP(r), UserAgent: r.UserAgent()}
}

// currentUser returns the authenticated user. Only valid behind requireAuth.
func currentUser(r *http.Request) *domain.User {
	return auth.PrincipalFrom(r.Context()).User
}
