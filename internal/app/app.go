// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/plotwatch/internal/announce"
	"github.com/hitoshi/plotwatch/internal/cache"
	"github.com/hitoshi/plotwatch/internal/chat"
	"github.com/hitoshi/plotwatch/internal/config"
	"github.com/hitoshi/plotwatch/internal/database"
	"github.com/hitoshi/plotwatch/internal/handler"
	"github.com/hitoshi/plotwatch/internal/logger"
	"github.com/hitoshi/plotwatch/internal/metrics"
	"github.com/hitoshi/plotwatch/internal/middleware"
	"github.com/hitoshi/plotwatch/internal/paissa"
	"github.com/hitoshi/plotwatch/internal/repository"
	"github.com/hitoshi/plotwatch/internal/scheduler"
	"github.com/hitoshi/plotwatch/internal/security"
	"github.com/hitoshi/plotwatch/internal/session"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Int("world_id", cfg.WorldID),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newSnapshotSource はPaissaDBクライアントとスナップショットキャッシュを
// 組み立てる。serveとworkerの両モードで共通の構成。
func newSnapshotSource(cfg *config.Config, collector *metrics.Collector) (*paissa.CachedSource, error) {
	guard := security.NewOutboundGuard()
	if err := guard.ValidateBaseURL(cfg.PaissaBaseURL); err != nil {
		return nil, fmt.Errorf("invalid PAISSA_BASE_URL: %w", err)
	}

	client := paissa.NewClient(
		guard.NewSafeClient(cfg.FetchTimeout, cfg.FetchMaxSize),
		slog.Default(),
		paissa.WithBaseURL(cfg.PaissaBaseURL),
		paissa.WithRateLimit(cfg.FetchRatePerMin),
		paissa.WithMaxBodySize(cfg.FetchMaxSize),
		paissa.WithMetrics(collector),
	)

	snapshotCache := cache.New(slog.Default(), collector)
	return paissa.NewCachedSource(client, snapshotCache, cfg.CacheTTL, cfg.WorldID), nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. スナップショット供給源の初期化
	source, err := newSnapshotSource(cfg, collector)
	if err != nil {
		return err
	}

	// 4. ページングセッションマネージャの初期化
	sessions := session.NewManager(cfg.SessionLifetime, cfg.PageSize, slog.Default(), collector)
	defer sessions.Shutdown()

	// 5. 通知先リポジトリの初期化
	targetRepo := repository.NewPostgresTargetRepo(db)

	// 6. ルーターの構築
	// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
		GeneralBurst:    cfg.RateLimitGeneral,
		CleanupInterval: 5 * time.Minute,
	})
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:      slog.Default(),
		RateLimiter: rateLimiter,
		Gatherer:    registry,
		Snapshots:   source,
		Sessions:    sessions,
		PageSize:    cfg.PageSize,
		Targets:     targetRepo,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// フェーズ告知スケジューラと失効登録の掃除ジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. スナップショット供給源の初期化
	source, err := newSnapshotSource(cfg, collector)
	if err != nil {
		return err
	}

	// 4. チャットゲートウェイと通知サービスの初期化
	// ゲートウェイはDiscordへの実接続を持つサイドカープロセス
	platform := chat.NewGatewayClient(
		&http.Client{Timeout: 10 * time.Second},
		slog.Default(),
		cfg.ChatGatewayURL,
		cfg.ChatGatewayToken,
	)
	targetRepo := repository.NewPostgresTargetRepo(db)
	announcer := announce.NewAnnouncer(platform, targetRepo, slog.Default(), collector)
	sweeper := announce.NewSweeper(platform, targetRepo, slog.Default(), collector)

	// 5. フェーズスケジューラの初期化
	phaseScheduler := scheduler.New(
		source, announcer, slog.Default(),
		cfg.RetryInterval, cfg.SettleDelay,
	)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Int("world_id", cfg.WorldID),
		slog.Duration("sweep_interval", cfg.SweepInterval),
	)

	// 死活監視とPrometheusスクレイプ用の軽量HTTPサーバー
	monitorServer := newMonitorServer(cfg.ServerPort, registry)
	go func() {
		if err := monitorServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("monitor server listen error", slog.String("error", err.Error()))
		}
	}()

	// フェーズスケジューラを起動（タイマー駆動のため即座に戻る）
	phaseScheduler.Start(ctx)
	defer phaseScheduler.Stop()

	// 掃除ジョブをメインgoroutineで実行（ブロッキング）
	sweeper.Run(ctx, cfg.SweepInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := monitorServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("monitor server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// newMonitorServer はワーカーモードの/healthと/metricsを提供するサーバーを返す。
func newMonitorServer(port string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", metrics.Handler(gatherer))
	return &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
