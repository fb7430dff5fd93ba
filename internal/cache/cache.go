// Package cache はワールドスナップショットの短TTLメモ化を提供する。
// スケジューラとコマンド層を上流への冗長なフェッチから保護する。
package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hitoshi/plotwatch/internal/model"
)

// entry はキャッシュの1エントリ。スナップショットと取得時刻を保持する。
type entry struct {
	snapshot  *model.WorldSnapshot
	fetchedAt time.Time
}

// Metrics はキャッシュが記録するメトリクスのインターフェース。
type Metrics interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// SnapshotCache はキー付きのスナップショットキャッシュ。
// 失効したエントリは次のGetで遅延的に破棄され、バックグラウンドの掃除処理は持たない。
// キー数はワールド数に一致するため、メモリ使用量は実質的に固定である。
type SnapshotCache struct {
	mu      sync.Mutex
	entries map[string]entry
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time // テスト用に差し替え可能
}

// New はSnapshotCacheの新しいインスタンスを生成する。
// metricsはnilでもよい。
func New(logger *slog.Logger, metrics Metrics) *SnapshotCache {
	return &SnapshotCache{
		entries: make(map[string]entry),
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Get はキーに対応するスナップショットを返す。
// エントリの経過時間がttlを超えている場合はエントリを破棄してfalseを返す。
// キャッシュミスは正常系であり、エラーにはならない。
func (c *SnapshotCache) Get(key string, ttl time.Duration) (*model.WorldSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.recordMiss()
		return nil, false
	}

	age := c.now().Sub(e.fetchedAt)
	if age > ttl {
		// 遅延破棄: 読み取りと同一のロック内で削除し、半端な状態を観測させない
		delete(c.entries, key)
		c.recordMiss()
		c.logger.Info("キャッシュエントリが失効しました",
			slog.String("key", key),
			slog.String("age", humanize.Time(c.now().Add(-age))),
		)
		return nil, false
	}

	c.recordHit()
	c.logger.Info("キャッシュヒット",
		slog.String("key", key),
		slog.String("age", humanize.Time(c.now().Add(-age))),
	)
	return e.snapshot, true
}

// Set はキーに対応するスナップショットを無条件で上書きする。
func (c *SnapshotCache) Set(key string, snapshot *model.WorldSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		snapshot:  snapshot,
		fetchedAt: c.now(),
	}
	c.logger.Info("スナップショットをキャッシュしました", slog.String("key", key))
}

// Len は現在のエントリ数を返す。
func (c *SnapshotCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *SnapshotCache) recordHit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit()
	}
}

func (c *SnapshotCache) recordMiss() {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}
}
