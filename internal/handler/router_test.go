package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/plotwatch/internal/metrics"
	"github.com/hitoshi/plotwatch/internal/middleware"
)

func TestRouter_ヘルスチェックはレート制限なしで200を返す(t *testing.T) {
	router := newTestRouter(t, &mockSnapshotSource{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスがJSONではありません: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status: got %q, want ok", body["status"])
	}
}

func TestRouter_Gathererを渡すとメトリクスエンドポイントが有効になる(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)
	router := NewRouter(&RouterDeps{
		Logger:      discardLogger(),
		RateLimiter: rl,
		Gatherer:    registry,
		Snapshots:   &mockSnapshotSource{},
		Sessions:    &mockSessionService{},
		Targets:     &mockTargets{},
	})

	collector.RecordCacheHit()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "plotwatch_cache_hit_total") {
		t.Error("メトリクス出力にplotwatch_cache_hit_totalが含まれていません")
	}
}

func TestRouter_Gathererがnilならメトリクスエンドポイントは404(t *testing.T) {
	router := newTestRouter(t, &mockSnapshotSource{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRouter_未定義のパスは404(t *testing.T) {
	router := newTestRouter(t, &mockSnapshotSource{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRouter_APIルートはレート制限される(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    1,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)
	router := NewRouter(&RouterDeps{
		Logger:      discardLogger(),
		RateLimiter: rl,
		Snapshots:   &mockSnapshotSource{},
		Sessions:    &mockSessionService{},
		Targets:     &mockTargets{},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/guilds/g1/target", nil)
	req.Header.Set(middleware.UserIDHeader, "user-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusTooManyRequests {
		t.Fatalf("1リクエスト目で429が返りました")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("2リクエスト目: status = %d, want 429", w.Code)
	}
}
