// Package handler はHTTP APIのルーティングとハンドラーを提供する。
// コマンド層(チャットボット)が内部APIとして呼び出す想定のサーフェス。
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/plotwatch/internal/metrics"
	"github.com/hitoshi/plotwatch/internal/middleware"
	"github.com/hitoshi/plotwatch/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger      *slog.Logger
	RateLimiter *middleware.RateLimiter
	Gatherer    prometheus.Gatherer

	// 区画ブラウズ
	Snapshots SnapshotSourceInterface
	Sessions  SessionServiceInterface
	PageSize  int

	// 通知先設定
	Targets TargetServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware → RateLimitMiddleware
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	// 死活監視
	r.Get("/health", handleHealth)

	// Prometheusスクレイプ
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	plotsHandler := NewPlotsHandler(deps.Snapshots, deps.Sessions, deps.PageSize)
	sessionHandler := NewSessionHandler(deps.Sessions)
	targetHandler := NewTargetHandler(deps.Targets)

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.Middleware())

		// 区画ブラウズ（ページングセッションを生成する）
		r.Get("/api/worlds/{worldID}/plots", plotsHandler.Browse)

		// ページングセッション操作
		r.Post("/api/sessions/{sessionID}/control", sessionHandler.Control)

		// ギルドの告知チャンネル設定
		r.Route("/api/guilds/{guildID}/target", func(r chi.Router) {
			r.Get("/", targetHandler.Get)
			r.Put("/", targetHandler.Set)
			r.Delete("/", targetHandler.Remove)
		})
	})

	return r
}

// handleHealth は死活監視エンドポイント。
// GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}
