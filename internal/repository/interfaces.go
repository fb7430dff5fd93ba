// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/plotwatch/internal/model"
)

// TargetRepository はギルドごとの通知先設定の永続化インターフェース。
// このサブシステムで永続化されるのは通知先設定のみで、
// スナップショットやページングセッションは永続化しない。
type TargetRepository interface {
	// ListTargets は登録済みの通知先を全件返す。
	ListTargets(ctx context.Context) ([]model.NotificationTarget, error)

	// UpsertTarget はギルドの通知先チャンネルを冪等にUPSERTする。
	UpsertTarget(ctx context.Context, guildID, channelID string) error

	// RemoveTarget はギルドの通知先設定を削除する。
	// 削除された行が存在した場合はtrueを返す。
	RemoveTarget(ctx context.Context, guildID string) (bool, error)

	// GetTarget はギルドの通知先チャンネルIDを取得する。
	// 未設定の場合は空文字列とnilを返す。
	GetTarget(ctx context.Context, guildID string) (string, error)
}
