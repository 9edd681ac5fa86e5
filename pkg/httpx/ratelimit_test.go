package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(t *testing.T, h http.Handler, remoteAddr string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitByIP_AllowsBurstThenBlocks(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}
	h := Chain(okHandler(), RateLimitByIP(cfg))

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doRequest(t, h, "10.0.0.1:1234"))
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimitByIP_KeysAreIndependent(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	h := Chain(okHandler(), RateLimitByIP(cfg))

	require.Equal(t, http.StatusOK, doRequest(t, h, "10.0.0.1:1111"))
	require.Equal(t, http.StatusTooManyRequests, doRequest(t, h, "10.0.0.1:2222"))
	require.Equal(t, http.StatusOK, doRequest(t, h, "10.0.0.2:3333"))
}

func TestIPKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:9999"
	require.Equal(t, "192.168.1.5", IPKeyExtractor(req))

	req.Header.Set("X-Real-IP", "203.0.113.9")
	require.Equal(t, "203.0.113.9", IPKeyExtractor(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	require.Equal(t, "198.51.100.7", IPKeyExtractor(req))
}
