// Package paissa はPaissaDB APIのクライアントを提供する。
// ワールド単位の空き区画スナップショット取得を行う。
package paissa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/plotwatch/internal/model"
)

// defaultBaseURL はPaissaDB APIのデフォルトエンドポイント。
const defaultBaseURL = "https://paissadb.zhu.codes"

// userAgent はPaissaDB側の要請に従い、連絡先の分かるUAを名乗る。
const userAgent = "plotwatch/1.0 (+https://github.com/hitoshi/plotwatch)"

// ProviderError はPaissaDB APIが非成功ステータスを返したことを表す。
// 上流の一時障害はスケジューラ側のリトライで回復するため、致命的エラーとしては扱わない。
type ProviderError struct {
	StatusCode int
	WorldID    int
}

// Error はerrorインターフェースを実装する。
func (e *ProviderError) Error() string {
	return fmt.Sprintf("paissadb returned status %d for world %d", e.StatusCode, e.WorldID)
}

// MetricsRecorder はクライアントが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordSnapshotFetchSuccess()
	RecordSnapshotFetchFailure()
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
}

// Client はPaissaDB APIのクライアント。
// レートリミッターで呼び出し頻度を制御し、上流への過剰なリクエストを防ぐ。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	metrics    MetricsRecorder
	baseURL    string // テスト用にエンドポイントを差し替え可能
	maxBodySize int64
}

// Option はClientの生成オプション。
type Option func(*Client)

// WithBaseURL はAPIエンドポイントのベースURLを差し替える。
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithRateLimit は1分あたりの最大リクエスト数を設定する。
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
		}
	}
}

// WithMetrics はメトリクスレコーダーを設定する。
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithMaxBodySize はレスポンスボディの最大読み取りサイズを設定する。
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientにはsecurity.OutboundGuardが生成する防護付きクライアントを渡すことを想定している。
func NewClient(httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: httpClient,
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Limit(0.5), 30), // デフォルト30 req/min
		baseURL:    defaultBaseURL,
		maxBodySize: 5242880,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchWorldSnapshot は指定ワールドの空き区画スナップショットを取得する。
// 非成功ステータスの場合は*ProviderErrorを返す。
func (c *Client) FetchWorldSnapshot(ctx context.Context, worldID int) (*model.WorldSnapshot, error) {
	// レートリミッターで呼び出し頻度を制御（コンテキストキャンセルで中断可能）
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("レートリミッターの待機が中断されました: %w", err)
	}

	start := time.Now()

	reqURL := fmt.Sprintf("%s/worlds/%d", c.baseURL, worldID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		c.logger.Error("PaissaDB APIの呼び出しに失敗しました",
			slog.Int("world_id", worldID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("PaissaDB APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordHTTPStatus(resp.StatusCode)
		c.metrics.RecordFetchLatency(duration)
	}

	if resp.StatusCode != http.StatusOK {
		c.recordFailure()
		c.logger.Error("PaissaDB APIがエラーステータスを返しました",
			slog.Int("world_id", worldID),
			slog.Int("http_status", resp.StatusCode),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
		return nil, &ProviderError{StatusCode: resp.StatusCode, WorldID: worldID}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var snapshot model.WorldSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		c.recordFailure()
		c.logger.Error("PaissaDBレスポンスのパースに失敗しました",
			slog.Int("world_id", worldID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if c.metrics != nil {
		c.metrics.RecordSnapshotFetchSuccess()
	}
	c.logger.Info("ワールドスナップショットを取得しました",
		slog.Int("world_id", worldID),
		slog.String("world_name", snapshot.Name),
		slog.Int("district_count", len(snapshot.Districts)),
		slog.Int("open_plot_count", snapshot.NumOpenPlots),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return &snapshot, nil
}

func (c *Client) recordFailure() {
	if c.metrics != nil {
		c.metrics.RecordSnapshotFetchFailure()
	}
}
