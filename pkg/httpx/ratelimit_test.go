package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"

		require.Equal(t, "192.168.1.1", clientIP(req))
	})

	t.Run("prefers X-Forwarded-For first hop", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")

		require.Equal(t, "203.0.113.1", clientIP(req))
	})

	t.Run("uses X-Real-IP when X-Forwarded-For absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Real-IP", "203.0.113.2")

		require.Equal(t, "203.0.113.2", clientIP(req))
	})

	t.Run("falls back to RemoteAddr without a port", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1"

		require.Equal(t, "192.168.1.1", clientIP(req))
	})
}

func TestRateLimitByIP(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	send := func(handler http.Handler, addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("allows up to burst then rejects", func(t *testing.T) {
		cfg := RateLimitConfig{RequestsPerWindow: 1, Window: time.Hour, Burst: 3}
		handler := RateLimitByIP(cfg)(okHandler)

		for i := 0; i < 3; i++ {
			require.Equal(t, http.StatusOK, send(handler, "10.0.0.1:1000").Code)
		}

		rec := send(handler, "10.0.0.1:1000")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("tracks each client independently", func(t *testing.T) {
		cfg := RateLimitConfig{RequestsPerWindow: 1, Window: time.Hour, Burst: 1}
		handler := RateLimitByIP(cfg)(okHandler)

		require.Equal(t, http.StatusOK, send(handler, "10.0.0.1:1000").Code)
		require.Equal(t, http.StatusTooManyRequests, send(handler, "10.0.0.1:2000").Code, "same ip, different port")
		require.Equal(t, http.StatusOK, send(handler, "10.0.0.2:1000").Code)
	})

	t.Run("rejection body uses the common error shape", func(t *testing.T) {
		cfg := RateLimitConfig{RequestsPerWindow: 1, Window: time.Hour, Burst: 1}
		handler := RateLimitByIP(cfg)(okHandler)

		send(handler, "10.0.0.1:1000")
		rec := send(handler, "10.0.0.1:1000")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.JSONEq(t,
			`{"error":"rate_limit_exceeded","error_description":"Too many requests. Please try again later."}`,
			rec.Body.String(),
		)
	})
}
