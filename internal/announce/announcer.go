// Package announce はフェーズ遷移通知の各ギルドへの配信と、
// 失効した登録の掃除を担当する。
package announce

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/plotwatch/internal/chat"
	"github.com/hitoshi/plotwatch/internal/model"
	"github.com/hitoshi/plotwatch/internal/phase"
	"github.com/hitoshi/plotwatch/internal/repository"
)

const (
	entryTitle = "Entry Period started"
	entryBody  = "The housing lottery entry period has started!\n" +
		"You can now place bids on available plots.\n\n" +
		"Use `/paissa` to check available plots on your world.\n\n" +
		"The entry phase typically lasts 5 days, but may vary due to maintenance or events."

	resultsTitle = "Results Period started"
	resultsBody  = "Lottery results are now available!\n" +
		"Check in-game to see if you won your plot.\n\n" +
		"Use `/paissa` to see which plots will be available next.\n\n" +
		"The result phase typically lasts 4 days, but may vary due to maintenance or events."
)

// Metrics は配信処理が記録するメトリクスのインターフェース。
type Metrics interface {
	RecordAnnouncementDelivered()
	RecordAnnouncementFailed()
	RecordSweepRemovals(n int)
}

// Announcer は登録済みの全ギルドターゲットへフェーズ通知を配信する。
// ターゲット単位で失敗を隔離し、1つの失敗が他の配信を妨げることはない。
type Announcer struct {
	platform chat.Platform
	targets  repository.TargetRepository
	logger   *slog.Logger
	metrics  Metrics
}

// NewAnnouncer はAnnouncerの新しいインスタンスを生成する。metricsはnilでもよい。
func NewAnnouncer(platform chat.Platform, targets repository.TargetRepository, logger *slog.Logger, metrics Metrics) *Announcer {
	return &Announcer{
		platform: platform,
		targets:  targets,
		logger:   logger,
		metrics:  metrics,
	}
}

// messageFor はフェーズに対応する告知文を返す。未知のフェーズにはfalseを返す。
func messageFor(p int) (chat.Message, bool) {
	switch p {
	case model.LottoPhaseEntry:
		return chat.Message{Title: entryTitle, Body: entryBody}, true
	case model.LottoPhaseResults:
		return chat.Message{Title: resultsTitle, Body: resultsBody}, true
	default:
		return chat.Message{}, false
	}
}

// Announce は指定フェーズの告知を全ターゲットへ配信し、成功数と失敗数を返す。
// 未知のフェーズは警告ログを出して何も配信しない。
// ターゲット一覧の読み取り失敗のみがエラーとして返る。
func (a *Announcer) Announce(ctx context.Context, p int) (success, failure int, err error) {
	msg, ok := messageFor(p)
	if !ok {
		a.logger.Warn("未知のフェーズのため告知をスキップします", slog.Int("phase", p))
		return 0, 0, nil
	}

	targets, err := a.targets.ListTargets(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("通知ターゲットの取得に失敗しました: %w", err)
	}

	a.logger.Info("フェーズ告知の配信を開始します",
		slog.String("phase", phase.Name(p)),
		slog.Int("targets", len(targets)),
	)

	for _, target := range targets {
		if err := a.deliver(ctx, target, msg); err != nil {
			a.logger.Error("告知の配信に失敗しました",
				slog.String("guild_id", target.GuildID),
				slog.String("channel_id", target.ChannelID),
				slog.String("error", err.Error()),
			)
			failure++
			a.recordFailed()
			continue
		}
		success++
		a.recordDelivered()
	}

	a.logger.Info("フェーズ告知の配信が完了しました",
		slog.String("phase", phase.Name(p)),
		slog.Int("success", success),
		slog.Int("failure", failure),
	)
	return success, failure, nil
}

// deliver は1ターゲットへの配信を行う。チャンネルが解決できない場合は失敗扱い。
func (a *Announcer) deliver(ctx context.Context, target model.NotificationTarget, msg chat.Message) error {
	ok, err := a.platform.TextChannelExists(ctx, target.ChannelID)
	if err != nil {
		return fmt.Errorf("チャンネルの解決に失敗しました: %w", err)
	}
	if !ok {
		return fmt.Errorf("チャンネル %s が存在しないかテキストチャンネルではありません", target.ChannelID)
	}
	if err := a.platform.SendMessage(ctx, target.ChannelID, msg); err != nil {
		return fmt.Errorf("メッセージの送信に失敗しました: %w", err)
	}
	return nil
}

func (a *Announcer) recordDelivered() {
	if a.metrics != nil {
		a.metrics.RecordAnnouncementDelivered()
	}
}

func (a *Announcer) recordFailed() {
	if a.metrics != nil {
		a.metrics.RecordAnnouncementFailed()
	}
}
