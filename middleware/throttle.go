package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/upb/waqf-policy-engine/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	throttleIdleTTL       = 5 * time.Minute
	throttleSweepInterval = time.Minute
)

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Throttle bounds the request rate of each caller with a token bucket. It
// keys on the authenticated caller when present and on the client IP otherwise.
type Throttle struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
	logger    *zap.Logger
}

// NewThrottle creates a throttle allowing perSecond requests with the given burst
func NewThrottle(perSecond float64, burst int, logger *zap.Logger) *Throttle {
	return &Throttle{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
		logger:  logger,
	}
}

// Handler is the middleware function
func (t *Throttle) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := CallerFromContext(r.Context())
		if key == "" {
			key = "ip:" + clientIP(r)
		}
		if !t.allow(key) {
			t.logger.Warn("request throttled",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("key", key))
			_ = utils.WriteTooManyRequests(w, "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *Throttle) allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if now.Sub(t.lastSweep) > throttleSweepInterval {
		for k, b := range t.buckets {
			if now.Sub(b.lastSeen) > throttleIdleTTL {
				delete(t.buckets, k)
			}
		}
		t.lastSweep = now
	}

	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(t.limit, t.burst)}
		t.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
