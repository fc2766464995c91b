package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(capacity int, refill time.Duration) (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter(capacity, refill)
	l.now = clock.now
	return l, clock
}

func TestMemoryLimiterCapacity(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)
	defer l.Stop()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(ctx, "1.2.3.4"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if ok, _ := l.Allow(ctx, "1.2.3.4"); ok {
		t.Error("fourth request should be rejected")
	}
	if ok, _ := l.Allow(ctx, "5.6.7.8"); !ok {
		t.Error("other clients have their own bucket")
	}
}

func TestMemoryLimiterRefill(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)
	defer l.Stop()
	ctx := context.Background()

	l.Allow(ctx, "k")
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Fatal("bucket should be empty")
	}

	clock.advance(59 * time.Second)
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Error("bucket should not refill early")
	}

	clock.advance(time.Second)
	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Error("bucket should refill after the period")
	}
}

func TestMemoryLimiterCleanup(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)
	defer l.Stop()

	l.Allow(context.Background(), "idle")
	clock.advance(2 * time.Hour)
	l.cleanup()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.clients["idle"]; ok {
		t.Error("idle bucket should be removed")
	}
}

func TestMemoryLimiterStopTwice(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	l.Stop()
	l.Stop()
}

type errLimiter struct{}

func (errLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestMiddleware(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	defer l.Stop()

	h := Middleware(l, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/mer", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request: expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request: expected 429, got %d", rec.Code)
	}

	other := httptest.NewRequest(http.MethodPost, "/api/v1/tools/mer", nil)
	other.RemoteAddr = "10.0.0.2"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusNoContent {
		t.Errorf("different client: expected 204, got %d", rec.Code)
	}
}

func TestMiddlewareFailsOpen(t *testing.T) {
	h := Middleware(errLimiter{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected request through when limiter errors, got %d", rec.Code)
	}
}

func TestMiddlewareIgnoresSpoofedHeaders(t *testing.T) {
	l, _ := newTestLimiter(2, time.Hour)
	defer l.Stop()

	h := Middleware(l, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	limited := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/letters/draft", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("192.0.2.%d", i))
		req.Header.Set("True-Client-IP", fmt.Sprintf("192.0.2.%d", i))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	if limited != 18 {
		t.Errorf("expected 18 of 20 requests limited despite rotating headers, got %d", limited)
	}
}

func TestClientIP(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "127.0.0.1"})
	if err != nil {
		t.Fatalf("ParseTrustedProxies failed: %v", err)
	}

	testCases := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"direct client", "203.0.113.7:1234", nil, "203.0.113.7"},
		{"untrusted peer headers ignored", "203.0.113.7:1234", map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "5.6.7.8"}, "203.0.113.7"},
		{"trusted proxy forwarded", "10.1.2.3:80", map[string]string{"X-Forwarded-For": "198.51.100.9"}, "198.51.100.9"},
		{"spoofed left-most hop skipped", "10.1.2.3:80", map[string]string{"X-Forwarded-For": "1.1.1.1, 198.51.100.9, 10.0.0.5"}, "198.51.100.9"},
		{"trusted proxy real ip", "127.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.10"}, "198.51.100.10"},
		{"trusted proxy without headers", "127.0.0.1:80", nil, "127.0.0.1"},
		{"malformed forwarded hop", "10.1.2.3:80", map[string]string{"X-Forwarded-For": "not-an-ip"}, "10.1.2.3"},
		{"no port", "203.0.113.8", nil, "203.0.113.8"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req, proxies); got != tc.want {
				t.Errorf("ClientIP() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	got, err := ParseTrustedProxies([]string{" 192.168.0.0/16 ", "", "::1", "10.0.0.1"})
	if err != nil {
		t.Fatalf("ParseTrustedProxies failed: %v", err)
	}
	want := []netip.Prefix{
		netip.MustParsePrefix("192.168.0.0/16"),
		netip.MustParsePrefix("::1/128"),
		netip.MustParsePrefix("10.0.0.1/32"),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d prefixes, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("prefix %d: got %v, want %v", i, got[i], want[i])
		}
	}

	for _, bad := range []string{"10.0.0.0/33", "proxy.internal"} {
		if _, err := ParseTrustedProxies([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
