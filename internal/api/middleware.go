package api

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"wardrobe/internal/metrics"
	"wardrobe/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	requestIDHeader   = "X-Request-ID"
	idempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replay"
	tokenQueryParam   = "access_token"
	maxIdempotencyKey = 128
)

// statusRecorder captures the status code. It keeps Hijack and Flush so
// websocket upgrades pass through.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return h.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *HTTPServer) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().
					Str("request_id", RequestIDFrom(r.Context())).
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				writeError(w, http.StatusInternalServerError, "internal", "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware assigns the request id, logs the request and records
// per-route metrics labelled with the route template.
func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		r = r.WithContext(withRequestID(r.Context(), requestID))

		endpoint := s.endpointLabel(r)
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		metrics.IncHTTP(endpoint, recorder.status)
		metrics.ObserveHTTP(endpoint, dur)

		event := s.log.Info()
		if recorder.status >= http.StatusInternalServerError {
			event = s.log.Error()
		}
		event.
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Int("size", recorder.size).
			Dur("duration", dur).
			Msg("http request")
	})
}

func (s *HTTPServer) endpointLabel(r *http.Request) string {
	var match mux.RouteMatch
	if s.router.Match(r, &match) && match.Route != nil {
		if tpl, err := match.Route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Idempotency-Key, X-Request-ID, X-API-Key, X-API-Extra")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// gatewayMiddleware applies the API client key check and the per-client
// token bucket.
func (s *HTTPServer) gatewayMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.Enabled || !strings.HasPrefix(r.URL.Path, apiPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		if s.gate.enabled {
			err := s.gate.check(r.Header.Get(s.gate.apiKeyHeader), r.Header.Get(s.gate.extraHeader), requiredPermissionHTTP(r))
			if err != nil {
				statusCode := http.StatusUnauthorized
				if err == errPermissionDenied {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, codeUnauthenticated, err.Error())
				return
			}
		}

		if !s.limiter.allow(s.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requiredPermissionHTTP(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, apiPrefix+"/reports"),
		strings.HasSuffix(path, "/resolve"),
		strings.HasSuffix(path, "/returns/disputed"):
		return permDesk
	case r.Method == http.MethodGet:
		return permRentalsRead
	default:
		return permRentalsWrite
	}
}

func (s *HTTPServer) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(s.gate.apiKeyHeader)); apiKey != "" {
		return apiKey
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

// authMiddleware resolves the bearer token into the request principal.
// Browsers cannot set headers on websocket upgrades, so those may pass the
// token as a query parameter instead.
func (s *HTTPServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r.Header.Get("Authorization"))
		if raw == "" && websocket.IsWebSocketUpgrade(r) {
			raw = r.URL.Query().Get(tokenQueryParam)
		}
		if raw == "" || s.tokens == nil {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "missing bearer token")
			return
		}

		p, err := s.tokens.Parse(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}

// principalLimitMiddleware enforces the per-user request quota kept in the
// shared request state store. A failing store lets the request through.
func (s *HTTPServer) principalLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if s.state == nil || !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%d", p.Role(), p.UserID())
		allowed, err := s.state.CheckRateLimit(r.Context(), key, s.perPrincipal, s.window)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
		} else if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(s.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// captureWriter keeps a copy of the response for the idempotency cache.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

// idempotencyMiddleware replays the stored response when the same principal
// repeats a POST with the same Idempotency-Key. Server errors are not stored.
func (s *HTTPServer) idempotencyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
		p, ok := PrincipalFrom(r.Context())
		if r.Method != http.MethodPost || clientKey == "" || s.state == nil || !ok {
			next.ServeHTTP(w, r)
			return
		}
		if len(clientKey) > maxIdempotencyKey {
			writeError(w, http.StatusBadRequest, "validation", "idempotency key is too long")
			return
		}

		key := fmt.Sprintf("idem:%s:%d:%s", p.Role(), p.UserID(), clientKey)
		stored, err := s.state.GetIdempotent(r.Context(), key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("idempotency lookup failed")
		}
		if stored != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(replayHeader, "true")
			w.WriteHeader(stored.StatusCode)
			_, _ = w.Write(stored.Body)
			return
		}

		capture := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(capture, r)
		if capture.status >= http.StatusInternalServerError {
			return
		}

		resp := &models.IdempotentResponse{
			Key:        key,
			StatusCode: capture.status,
			Body:       capture.body.Bytes(),
			StoredAt:   time.Now().UTC(),
		}
		if err := s.state.SaveIdempotent(r.Context(), resp, s.idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("idempotency save failed")
		}
	})
}
