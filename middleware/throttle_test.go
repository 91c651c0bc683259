package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestThrottle(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serve := func(h http.Handler, req *http.Request) int {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("caller exhausts burst", func(t *testing.T) {
		throttle := NewThrottle(0.001, 2, zap.NewNop())
		h := throttle.Handler(okHandler)

		req := func(sub string) *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			return r.WithContext(WithClaims(r.Context(), validClaims(sub)))
		}

		assert.Equal(t, http.StatusOK, serve(h, req("u1")))
		assert.Equal(t, http.StatusOK, serve(h, req("u1")))
		assert.Equal(t, http.StatusTooManyRequests, serve(h, req("u1")))
		// independent bucket
		assert.Equal(t, http.StatusOK, serve(h, req("u2")))
	})

	t.Run("anonymous requests keyed by client ip", func(t *testing.T) {
		throttle := NewThrottle(0.001, 1, zap.NewNop())
		h := throttle.Handler(okHandler)

		first := httptest.NewRequest(http.MethodGet, "/", nil)
		first.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		assert.Equal(t, http.StatusOK, serve(h, first))

		again := httptest.NewRequest(http.MethodGet, "/", nil)
		again.Header.Set("X-Forwarded-For", "203.0.113.7")
		assert.Equal(t, http.StatusTooManyRequests, serve(h, again))

		other := httptest.NewRequest(http.MethodGet, "/", nil)
		other.RemoteAddr = "198.51.100.2:5555"
		assert.Equal(t, http.StatusOK, serve(h, other))
	})

	t.Run("idle buckets are swept", func(t *testing.T) {
		throttle := NewThrottle(0.001, 1, zap.NewNop())
		now := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
		throttle.now = func() time.Time { return now }

		assert.True(t, throttle.allow("k"))
		assert.False(t, throttle.allow("k"))

		now = now.Add(throttleIdleTTL + throttleSweepInterval + time.Second)
		assert.True(t, throttle.allow("k"))
		assert.Len(t, throttle.buckets, 1)
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.RemoteAddr = "garbage"
	assert.Equal(t, "garbage", clientIP(req))
}
