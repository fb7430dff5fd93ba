package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/plotwatch/internal/model"
)

// PostgresTargetRepo はPostgreSQLを使用した通知先リポジトリ。
type PostgresTargetRepo struct {
	db *sql.DB
}

// NewPostgresTargetRepo はPostgresTargetRepoを生成する。
func NewPostgresTargetRepo(db *sql.DB) *PostgresTargetRepo {
	return &PostgresTargetRepo{db: db}
}

// ListTargets は登録済みの通知先を全件返す。
func (r *PostgresTargetRepo) ListTargets(ctx context.Context) ([]model.NotificationTarget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT guild_id, announcement_channel_id
		 FROM guild_settings
		 ORDER BY guild_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []model.NotificationTarget
	for rows.Next() {
		var t model.NotificationTarget
		if err := rows.Scan(&t.GuildID, &t.ChannelID); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate targets: %w", err)
	}

	return targets, nil
}

// UpsertTarget はギルドの通知先チャンネルを冪等にUPSERTする。
func (r *PostgresTargetRepo) UpsertTarget(ctx context.Context, guildID, channelID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO guild_settings (guild_id, announcement_channel_id)
		 VALUES ($1, $2)
		 ON CONFLICT (guild_id)
		 DO UPDATE SET announcement_channel_id = $2, updated_at = now()`,
		guildID, channelID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert target: %w", err)
	}
	return nil
}

// RemoveTarget はギルドの通知先設定を削除する。
// 削除された行が存在した場合はtrueを返す。
func (r *PostgresTargetRepo) RemoveTarget(ctx context.Context, guildID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM guild_settings WHERE guild_id = $1`,
		guildID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove target: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

// GetTarget はギルドの通知先チャンネルIDを取得する。
// 未設定の場合は空文字列とnilを返す。
func (r *PostgresTargetRepo) GetTarget(ctx context.Context, guildID string) (string, error) {
	var channelID string
	err := r.db.QueryRowContext(ctx,
		`SELECT announcement_channel_id FROM guild_settings WHERE guild_id = $1`,
		guildID,
	).Scan(&channelID)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get target: %w", err)
	}

	return channelID, nil
}

// compile-time interface check
var _ TargetRepository = (*PostgresTargetRepo)(nil)
