package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// rateLimiter enforces a per-caller token bucket (spec §5 Backpressure:
// "clients exceeding the rate limiter receive an explicit
// RateLimitExceeded error that is also audited"). Grounded on
// r3e-network-service_layer's infrastructure/middleware.RateLimiter,
// generalized from its per-user/per-IP key to this API's principal actor
// (falling back to the remote address for the unauthenticated /mcp
// transport endpoint).
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	window   time.Duration
}

// newRateLimiter expresses the budget the same way the spec's config
// does — N requests per a fixed window — and converts it to the
// rate.Limiter's requests-per-second shape internally.
func newRateLimiter(requestsPerWindow int, window time.Duration, burst int) *rateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if burst < 1 {
		burst = 1
	}
	rps := float64(requestsPerWindow) / window.Seconds()
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
		window:   window,
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = l
	}
	return l.Allow()
}

// middleware rejects a request once key's bucket is empty, audits the
// rejection, and responds with domain.NewRateLimit's sanitized message —
// spec §7 says a rate-limit response carries "the window bound and no
// other state", so the message names only the window, never the key or
// the caller's remaining quota.
func (a *API) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := principalFrom(r.Context()).actor()
		if key == "" {
			key = clientIP(r)
		}
		if !a.limiter.allow(key) {
			a.auditRateLimitExceeded(key, r)
			err := domain.NewRateLimit(fmt.Sprintf("rate limit exceeded, retry after %s", a.limiter.window))
			respondDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) auditRateLimitExceeded(actor string, r *http.Request) {
	evt := domain.NewAuditEvent(domain.AuditRateLimitExceeded, domain.SeverityMedium,
		actor, "http", r.URL.Path, "rate_limit", domain.AuditFailure)
	if err := a.auditor.Record(evt); err != nil {
		a.log.Printf("failed to record rate-limit audit event: %v", err)
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := splitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func splitHostPort(addr string) (string, string, error) {
	idx := strings.LastIndex(addr, ":")
	if idx == -1 {
		return "", "", fmt.Errorf("no port in address %q", addr)
	}
	return addr[:idx], addr[idx+1:], nil
}
