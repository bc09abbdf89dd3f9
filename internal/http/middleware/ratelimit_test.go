package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func limitedEngine(rps float64, burst int) *gin.Engine {
	r := newTestEngine()
	r.Use(Owner())
	rl := NewRateLimiter(rps, burst, KeyByOwnerOrIP())
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestRateLimiter_ExhaustedBucketReturns429(t *testing.T) {
	r := limitedEngine(0.001, 2)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Owner-ID", "u1")
		r.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request should be limited, got %d", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	if !strings.Contains(last.Body.String(), `"too_many_requests"`) {
		t.Fatalf("unexpected body: %s", last.Body.String())
	}
}

func TestRateLimiter_BucketsAreIsolatedPerOwner(t *testing.T) {
	r := limitedEngine(0.001, 1)

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Owner-ID", "u1")
	r.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("u1 first request: %d", first.Code)
	}

	// u1 is now drained; a different owner still has a full bucket.
	other := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req2.Header.Set("X-Owner-ID", "u2")
	r.ServeHTTP(other, req2)
	if other.Code != http.StatusOK {
		t.Fatalf("u2 should not share u1's bucket, got %d", other.Code)
	}
}

func TestNewRateLimiter_CoercesBurst(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByOwnerOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst = %d, want 1", rl.burst)
	}
}
