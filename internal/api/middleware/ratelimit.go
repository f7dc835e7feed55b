package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ledgerly/reportflow/internal/api/dto"
	"github.com/ledgerly/reportflow/internal/pkg/metrics"
	pkgredis "github.com/ledgerly/reportflow/internal/pkg/redis"
)

type RateLimiter struct {
	redis *pkgredis.Client
}

// NewRateLimiter returns a limiter backed by redis. A nil client disables
// limiting.
func NewRateLimiter(redis *pkgredis.Client) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func (rl *RateLimiter) Limit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl == nil || rl.redis == nil || limit <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, err := rl.redis.RateLimit(r.Context(), rl.getKey(r), limit, window)
			if err != nil {
				// If Redis fails, allow the request
				log.Warn().Err(err).Msg("rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(window).Unix()))

			if !allowed {
				metrics.RecordRateLimitHit(endpoint(r))
				dto.TooManyRequests(w, "rate limit exceeded", int(window.Seconds()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) getKey(r *http.Request) string {
	if claims := GetUserFromContext(r.Context()); claims != nil {
		return fmt.Sprintf("ratelimit:user:%s", claims.UserID.String())
	}

	// RealIP has already rewritten RemoteAddr from the forwarding headers.
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return fmt.Sprintf("ratelimit:ip:%s", ip)
}

func endpoint(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
