package announce

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/plotwatch/internal/model"
)

func TestSweep_消滅したギルドの登録を削除する(t *testing.T) {
	platform := &mockPlatform{
		guildExistsFunc: func(_ context.Context, guildID string) (bool, error) {
			return guildID != "guild-2", nil
		},
	}
	var removedIDs []string
	repo := &mockTargetRepo{
		listTargetsFunc: func(_ context.Context) ([]model.NotificationTarget, error) {
			return threeTargets(), nil
		},
		removeTargetFunc: func(_ context.Context, guildID string) (bool, error) {
			removedIDs = append(removedIDs, guildID)
			return true, nil
		},
	}

	s := NewSweeper(platform, repo, discardLogger(), nil)
	removed, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if removed != 1 {
		t.Errorf("削除件数: got %d, want 1", removed)
	}
	if len(removedIDs) != 1 || removedIDs[0] != "guild-2" {
		t.Errorf("削除対象: got %v, want [guild-2]", removedIDs)
	}
}

func TestSweep_消滅したチャンネルの登録を削除する(t *testing.T) {
	platform := &mockPlatform{
		textChannelExistsFunc: func(_ context.Context, channelID string) (bool, error) {
			return channelID != "chan-3", nil
		},
	}
	repo := &mockTargetRepo{
		listTargetsFunc: func(_ context.Context) ([]model.NotificationTarget, error) {
			return threeTargets(), nil
		},
	}

	s := NewSweeper(platform, repo, discardLogger(), nil)
	removed, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if removed != 1 {
		t.Errorf("削除件数: got %d, want 1", removed)
	}
}

func TestSweep_解決エラーは削除の根拠にしない(t *testing.T) {
	platform := &mockPlatform{
		guildExistsFunc: func(_ context.Context, guildID string) (bool, error) {
			if guildID == "guild-1" {
				return false, errors.New("rate limited")
			}
			return true, nil
		},
	}
	removeCalled := false
	repo := &mockTargetRepo{
		listTargetsFunc: func(_ context.Context) ([]model.NotificationTarget, error) {
			return threeTargets(), nil
		},
		removeTargetFunc: func(_ context.Context, guildID string) (bool, error) {
			removeCalled = true
			return true, nil
		},
	}

	s := NewSweeper(platform, repo, discardLogger(), nil)
	removed, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if removed != 0 {
		t.Errorf("削除件数: got %d, want 0", removed)
	}
	if removeCalled {
		t.Error("解決エラーのターゲットが削除されました")
	}
}

func TestSweep_削除失敗は件数に含めず巡回を継続する(t *testing.T) {
	platform := &mockPlatform{
		guildExistsFunc: func(_ context.Context, _ string) (bool, error) {
			return false, nil // 全ギルドが消滅している
		},
	}
	repo := &mockTargetRepo{
		listTargetsFunc: func(_ context.Context) ([]model.NotificationTarget, error) {
			return threeTargets(), nil
		},
		removeTargetFunc: func(_ context.Context, guildID string) (bool, error) {
			if guildID == "guild-1" {
				return false, errors.New("connection reset")
			}
			return true, nil
		},
	}

	s := NewSweeper(platform, repo, discardLogger(), nil)
	removed, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if removed != 2 {
		t.Errorf("削除件数: got %d, want 2", removed)
	}
}

func TestSweep_全て健在なら何も削除しない(t *testing.T) {
	repo := &mockTargetRepo{
		listTargetsFunc: func(_ context.Context) ([]model.NotificationTarget, error) {
			return threeTargets(), nil
		},
	}

	s := NewSweeper(&mockPlatform{}, repo, discardLogger(), nil)
	removed, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if removed != 0 {
		t.Errorf("削除件数: got %d, want 0", removed)
	}
}
