package cache

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/plotwatch/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockMetrics struct {
	hits   int
	misses int
}

func (m *mockMetrics) RecordCacheHit()  { m.hits++ }
func (m *mockMetrics) RecordCacheMiss() { m.misses++ }

func TestSnapshotCache_SetしたエントリをTTL内に取得できる(t *testing.T) {
	metrics := &mockMetrics{}
	c := New(discardLogger(), metrics)

	snap := &model.WorldSnapshot{ID: 74, Name: "Coeurl"}
	c.Set("world:74", snap)

	got, ok := c.Get("world:74", 60*time.Second)
	if !ok {
		t.Fatal("TTL内のGetがfalseを返しました")
	}
	if got != snap {
		t.Error("Setしたスナップショットと異なるポインタが返りました")
	}
	if metrics.hits != 1 {
		t.Errorf("ヒット数: got %d, want 1", metrics.hits)
	}
}

func TestSnapshotCache_存在しないキーはミスになる(t *testing.T) {
	metrics := &mockMetrics{}
	c := New(discardLogger(), metrics)

	_, ok := c.Get("world:99", 60*time.Second)
	if ok {
		t.Error("未登録キーのGetがtrueを返しました")
	}
	if metrics.misses != 1 {
		t.Errorf("ミス数: got %d, want 1", metrics.misses)
	}
}

func TestSnapshotCache_TTL超過で失効して破棄される(t *testing.T) {
	c := New(discardLogger(), nil)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("world:74", &model.WorldSnapshot{ID: 74})

	// 61秒経過させる
	c.now = func() time.Time { return base.Add(61 * time.Second) }

	_, ok := c.Get("world:74", 60*time.Second)
	if ok {
		t.Error("TTL超過後のGetがtrueを返しました")
	}
	if c.Len() != 0 {
		t.Errorf("失効エントリが破棄されていません: Len() = %d", c.Len())
	}
}

func TestSnapshotCache_TTL境界ちょうどは有効(t *testing.T) {
	c := New(discardLogger(), nil)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("world:74", &model.WorldSnapshot{ID: 74})

	c.now = func() time.Time { return base.Add(60 * time.Second) }

	if _, ok := c.Get("world:74", 60*time.Second); !ok {
		t.Error("age == ttl のGetがfalseを返しました")
	}
}

func TestSnapshotCache_Setは既存エントリを上書きする(t *testing.T) {
	c := New(discardLogger(), nil)

	c.Set("world:74", &model.WorldSnapshot{ID: 74, NumOpenPlots: 1})
	c.Set("world:74", &model.WorldSnapshot{ID: 74, NumOpenPlots: 5})

	got, ok := c.Get("world:74", time.Minute)
	if !ok {
		t.Fatal("Getがfalseを返しました")
	}
	if got.NumOpenPlots != 5 {
		t.Errorf("上書き後のNumOpenPlots: got %d, want 5", got.NumOpenPlots)
	}
}
