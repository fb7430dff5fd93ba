package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiterConfig(burst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1.0 / 60.0), // ほぼ補充されない
		GeneralBurst:    burst,
		CleanupInterval: time.Hour,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestRateLimiter_AllowsWithinBurst はバースト内のリクエストが通ることを検証する。
func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(3))
	defer rl.Stop()

	handler := rl.Middleware()(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/plots", nil)
		req.Header.Set(UserIDHeader, "user-1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

// TestRateLimiter_RejectsOverBurst はバースト超過が429になることを検証する。
func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(2))
	defer rl.Stop()

	handler := rl.Middleware()(okHandler())

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/plots", nil)
		req.Header.Set(UserIDHeader, "user-1")
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", last.Code, http.StatusTooManyRequests)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("Retry-Afterヘッダーがありません")
	}
}

// TestRateLimiter_IsolatesClients はクライアントごとに独立して制限されることを検証する。
func TestRateLimiter_IsolatesClients(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1))
	defer rl.Stop()

	handler := rl.Middleware()(okHandler())

	// user-1はバーストを使い切る
	req1 := httptest.NewRequest(http.MethodGet, "/plots", nil)
	req1.Header.Set(UserIDHeader, "user-1")
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, req1)

	req1b := httptest.NewRequest(http.MethodGet, "/plots", nil)
	req1b.Header.Set(UserIDHeader, "user-1")
	w1b := httptest.NewRecorder()
	handler.ServeHTTP(w1b, req1b)
	if w1b.Code != http.StatusTooManyRequests {
		t.Fatalf("user-1の2回目: status = %d, want 429", w1b.Code)
	}

	// user-2は影響を受けない
	req2 := httptest.NewRequest(http.MethodGet, "/plots", nil)
	req2.Header.Set(UserIDHeader, "user-2")
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)
	if w2.Code != http.StatusOK {
		t.Errorf("user-2: status = %d, want 200", w2.Code)
	}

	if rl.LimiterCount() != 2 {
		t.Errorf("LimiterCount = %d, want 2", rl.LimiterCount())
	}
}

// TestRateLimiter_FallsBackToRemoteAddr はヘッダーなしのとき接続元IPで識別することを検証する。
func TestRateLimiter_FallsBackToRemoteAddr(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1))
	defer rl.Stop()

	handler := rl.Middleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/plots", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/plots", nil)
	req2.RemoteAddr = "203.0.113.9:51235" // 同一IP別ポートは同一クライアント
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)
	if w2.Code != http.StatusTooManyRequests {
		t.Errorf("同一IPの2回目: status = %d, want 429", w2.Code)
	}
}

// TestRateLimiter_CleanupRemovesIdleEntries はアイドルエントリが削除されることを検証する。
func TestRateLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(2),
		GeneralBurst:    10,
		CleanupInterval: 10 * time.Millisecond,
	})
	defer rl.Stop()

	rl.getOrCreateLimiter("user:stale")
	if rl.LimiterCount() != 1 {
		t.Fatalf("LimiterCount = %d, want 1", rl.LimiterCount())
	}

	// CleanupIntervalの2倍を超えるまで待つ
	time.Sleep(50 * time.Millisecond)

	if rl.LimiterCount() != 0 {
		t.Errorf("LimiterCount = %d, want 0", rl.LimiterCount())
	}
}
