package announce

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/plotwatch/internal/chat"
	"github.com/hitoshi/plotwatch/internal/repository"
)

// Sweeper は登録済みターゲットを検証し、消滅したギルドやチャンネルを
// 指している登録を削除する。
type Sweeper struct {
	platform chat.Platform
	targets  repository.TargetRepository
	logger   *slog.Logger
	metrics  Metrics
}

// NewSweeper はSweeperの新しいインスタンスを生成する。metricsはnilでもよい。
func NewSweeper(platform chat.Platform, targets repository.TargetRepository, logger *slog.Logger, metrics Metrics) *Sweeper {
	return &Sweeper{
		platform: platform,
		targets:  targets,
		logger:   logger,
		metrics:  metrics,
	}
}

// Sweep は全登録を1巡して失効したものを削除し、削除件数を返す。
// 個々のターゲットの検証エラーはログに残してスキップし、巡回は継続する。
// 解決エラーは「存在しない」とは区別され、削除の根拠にはしない。
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	s.logger.Info("失効した登録の掃除を開始します")

	targets, err := s.targets.ListTargets(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, target := range targets {
		stale, reason, err := s.isStale(ctx, target.GuildID, target.ChannelID)
		if err != nil {
			s.logger.Error("ターゲットの検証に失敗しました",
				slog.String("guild_id", target.GuildID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !stale {
			continue
		}

		if _, err := s.targets.RemoveTarget(ctx, target.GuildID); err != nil {
			s.logger.Error("失効した登録の削除に失敗しました",
				slog.String("guild_id", target.GuildID),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
		s.logger.Info("失効した登録を削除しました",
			slog.String("guild_id", target.GuildID),
			slog.String("channel_id", target.ChannelID),
			slog.String("reason", reason),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordSweepRemovals(removed)
	}
	s.logger.Info("掃除が完了しました", slog.Int("removed", removed))
	return removed, nil
}

func (s *Sweeper) isStale(ctx context.Context, guildID, channelID string) (bool, string, error) {
	guildOK, err := s.platform.GuildExists(ctx, guildID)
	if err != nil {
		return false, "", err
	}
	if !guildOK {
		return true, "ギルドが存在しません", nil
	}

	channelOK, err := s.platform.TextChannelExists(ctx, channelID)
	if err != nil {
		return false, "", err
	}
	if !channelOK {
		return true, "チャンネルが存在しないかテキストチャンネルではありません", nil
	}
	return false, "", nil
}

// Run は起動直後に1回Sweepを実行し、以後intervalごとに繰り返す。
// ctxのキャンセルで停止する。ワーカープロセスから専用goroutineで呼ばれる。
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("起動時の掃除に失敗しました", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("掃除ループを停止します")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("定期掃除に失敗しました", slog.String("error", err.Error()))
			}
		}
	}
}
