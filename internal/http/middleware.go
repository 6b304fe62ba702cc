package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/space-reservations/internal/application"
)

// TokenVerifier validates a bearer token and resolves its principal.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (application.Principal, error)
}

// RequireAuth rejects requests without a valid bearer token and attaches the
// verified principal to the request context.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingBearerToken)
				return
			}

			principal, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
					ErrorCode: "AUTH_UNAUTHORIZED",
					Message:   "the provided token is invalid or expired",
				})
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a per-request logger to the context and records the
// request lifecycle.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}

// LoginRateLimiter throttles a handler per client address using a token
// bucket. Entries idle longer than an hour are pruned on the fly.
type LoginRateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	lastSeen time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type clientLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewLoginRateLimiter constructs a limiter allowing ratePerMinute attempts
// with the given burst per client address.
func NewLoginRateLimiter(ratePerMinute float64, burst int, logger *slog.Logger) *LoginRateLimiter {
	if ratePerMinute <= 0 {
		ratePerMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &LoginRateLimiter{
		clients:  make(map[string]*clientLimiter),
		limit:    rate.Limit(ratePerMinute / 60.0),
		burst:    burst,
		lastSeen: time.Hour,
		now:      time.Now,
		logger:   defaultLogger(logger),
	}
}

// Wrap limits the wrapped handler, answering 429 once a client's bucket is
// exhausted.
func (l *LoginRateLimiter) Wrap(next http.Handler) http.Handler {
	responder := newResponder(l.logger)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddress(r)
		if !l.allow(client) {
			l.logger.WarnContext(r.Context(), "login throttled", "client", client)
			responder.writeJSON(r.Context(), w, http.StatusTooManyRequests, errorResponse{
				ErrorCode: "AUTH_RATE_LIMITED",
				Message:   "too many login attempts, try again later",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *LoginRateLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for addr, entry := range l.clients {
		if now.Sub(entry.seen) > l.lastSeen {
			delete(l.clients, addr)
		}
	}

	entry, ok := l.clients[client]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = entry
	}
	entry.seen = now

	return entry.limiter.Allow()
}

func clientAddress(r *http.Request) string {
	if r == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func extractBearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, prefix))
	}
	return ""
}
