package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func limitedRequest(remote string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.RemoteAddr = remote
	return req
}

func TestRateLimit_BurstThenRejects(t *testing.T) {
	h := RateLimit(0.001, 3, slog.New(slog.NewTextHandler(io.Discard, nil)))(okHandler())

	for i := range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, limitedRequest("10.0.0.1:5000"))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, limitedRequest("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", errorCode(t, rec))
}

func TestRateLimit_IndependentPerIP(t *testing.T) {
	h := RateLimit(0.001, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, limitedRequest("10.0.0.1:1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, limitedRequest("10.0.0.1:1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, limitedRequest("10.0.0.2:1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	h := RateLimit(0, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))(okHandler())
	for range 50 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, limitedRequest("10.0.0.1:1"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestVisitorStore_SweepsIdleVisitors(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newVisitorStore(1, 1, time.Minute)
	s.now = func() time.Time { return now }
	s.lastSweep = now

	s.limiter("10.0.0.1")
	s.limiter("10.0.0.2")
	assert.Equal(t, 2, s.len())

	now = now.Add(30 * time.Second)
	s.limiter("10.0.0.2")

	now = now.Add(45 * time.Second)
	s.limiter("10.0.0.3")
	assert.Equal(t, 2, s.len(), "only the visitor idle past the ttl is evicted")
}
