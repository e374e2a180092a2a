package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterKeysByIdentityBehindAuth(t *testing.T) {
	mw, tokens := newTestMiddleware()
	limiter := NewRateLimiter(0, 1, nil)

	// Same chain order as the server: auth outside, limiter inside, so
	// the limiter sees the authenticated user ID.
	chain := mw.Handler(limiter.Handler(okHandler()))

	send := func(userID string) int {
		token, err := tokens.Issue(userID, userID)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("u1"); code != http.StatusOK {
		t.Fatalf("first u1 request: status = %d, want 200", code)
	}
	if code := send("u1"); code != http.StatusTooManyRequests {
		t.Fatalf("second u1 request: status = %d, want 429", code)
	}

	// A different user from the same address gets its own bucket.
	if code := send("u2"); code != http.StatusOK {
		t.Fatalf("first u2 request: status = %d, want 200", code)
	}
}

func TestRateLimiterFallsBackToRemoteAddr(t *testing.T) {
	limiter := NewRateLimiter(0, 1, nil)
	chain := limiter.Handler(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", code)
	}
	if code := send("10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", code)
	}
	if code := send("10.0.0.2:1234"); code != http.StatusOK {
		t.Fatalf("other address: status = %d, want 200", code)
	}
}
