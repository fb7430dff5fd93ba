package paissa

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/plotwatch/internal/cache"
	"github.com/hitoshi/plotwatch/internal/model"
)

// CachedSource はスナップショットキャッシュ越しの取得を提供する。
// スケジューラとAPIの双方がここを通ることで、上流への冗長な
// フェッチを短TTLのキャッシュで吸収する。
type CachedSource struct {
	client         *Client
	cache          *cache.SnapshotCache
	ttl            time.Duration
	defaultWorldID int
}

// NewCachedSource はCachedSourceの新しいインスタンスを生成する。
// ttlが0以下なら5分を使用する。
func NewCachedSource(client *Client, c *cache.SnapshotCache, ttl time.Duration, defaultWorldID int) *CachedSource {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedSource{
		client:         client,
		cache:          c,
		ttl:            ttl,
		defaultWorldID: defaultWorldID,
	}
}

// FetchWorld は指定ワールドのスナップショットをキャッシュ優先で返す。
func (s *CachedSource) FetchWorld(ctx context.Context, worldID int) (*model.WorldSnapshot, error) {
	key := fmt.Sprintf("world:%d", worldID)
	if snapshot, ok := s.cache.Get(key, s.ttl); ok {
		return snapshot, nil
	}

	snapshot, err := s.client.FetchWorldSnapshot(ctx, worldID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, snapshot)
	return snapshot, nil
}

// Snapshot は監視対象として設定されたワールドのスナップショットを返す。
// スケジューラのSnapshotSourceを満たす。
func (s *CachedSource) Snapshot(ctx context.Context) (*model.WorldSnapshot, error) {
	return s.FetchWorld(ctx, s.defaultWorldID)
}
