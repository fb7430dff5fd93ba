// Package scheduler はフェーズ境界に合わせた告知タイマーの管理を提供する。
// 推定されたフェーズ境界にちょうど1本のタイマーを張り、発火時に告知を
// 配信してから新しいスナップショットで再武装する。
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/plotwatch/internal/model"
	"github.com/hitoshi/plotwatch/internal/phase"
)

// state はスケジューラの状態。
type state int

const (
	stateUnarmed state = iota // タイマーなし(リトライタイマーのみ持ちうる)
	stateArmed                // フェーズ境界タイマーが武装済み
	stateFiring               // 発火コールバック実行中(再入ガード)
)

// SnapshotSource は推定に使うスナップショットの供給元。
// キャッシュ越しのフェッチがここに注入される。
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*model.WorldSnapshot, error)
}

// AnnounceService はフェーズ告知の配信インターフェース。
type AnnounceService interface {
	Announce(ctx context.Context, phase int) (success, failure int, err error)
}

// Scheduler はフェーズ遷移タイマーの状態機械。
// 不変条件: どの瞬間にも未処理のタイマー(フェーズ発火またはリトライ)は
// 最大1本。武装前に必ず既存のタイマーを解除する。
type Scheduler struct {
	source        SnapshotSource
	announcer     AnnounceService
	logger        *slog.Logger
	retryInterval time.Duration
	settleDelay   time.Duration

	mu        sync.Mutex
	state     state
	timer     *time.Timer
	nextPhase int
	boundary  time.Time
	stopped   bool

	now func() time.Time // テスト用に差し替え可能
}

// New はSchedulerの新しいインスタンスを生成する。
// retryIntervalが0以下なら1時間、settleDelayが0以下なら5分を使用する。
func New(
	source SnapshotSource,
	announcer AnnounceService,
	logger *slog.Logger,
	retryInterval time.Duration,
	settleDelay time.Duration,
) *Scheduler {
	if retryInterval <= 0 {
		retryInterval = time.Hour
	}
	if settleDelay <= 0 {
		settleDelay = 5 * time.Minute
	}
	return &Scheduler{
		source:        source,
		announcer:     announcer,
		logger:        logger,
		retryInterval: retryInterval,
		settleDelay:   settleDelay,
		now:           time.Now,
	}
}

// Start は推定を1回試み、結果に応じてフェーズタイマーまたはリトライ
// タイマーを武装する。プロセスを落とすことはなく、失敗は全てリトライに
// 吸収される。連続して呼んでもタイマーは1本しか残らない。
func (s *Scheduler) Start(ctx context.Context) {
	s.schedule(ctx)
}

// Stop は未処理のタイマーを全て解除し、以後の再武装を禁止する。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.cancelTimerLocked()
	s.state = stateUnarmed
	s.logger.Info("フェーズスケジューラを停止しました")
}

// schedule は新しいスナップショットから推定し直して武装する。
// 前回の境界時刻は信用しない。上流のクロックはメンテナンス等でずれうる。
func (s *Scheduler) schedule(ctx context.Context) {
	info := s.inferFresh(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.cancelTimerLocked()

	if info == nil {
		s.state = stateUnarmed
		s.logger.Info("フェーズ情報が得られないためリトライを予約します",
			slog.Duration("retry_interval", s.retryInterval),
		)
		s.timer = time.AfterFunc(s.retryInterval, func() { s.schedule(ctx) })
		return
	}

	next := phase.Opposite(info.Phase)
	delay := info.Until.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	s.state = stateArmed
	s.nextPhase = next
	s.boundary = info.Until
	s.timer = time.AfterFunc(delay, func() { s.fire(ctx, next) })
	s.logger.Info("フェーズ告知タイマーを武装しました",
		slog.String("current_phase", info.PhaseName),
		slog.String("next_phase", phase.Name(next)),
		slog.Time("boundary", info.Until),
	)
}

// inferFresh はスナップショットを取得して推定する。
// 進行中のフェーズが得られない場合(データなし・過去境界・取得エラー)は
// nilを返す。いずれもリトライ対象として同一に扱う。
func (s *Scheduler) inferFresh(ctx context.Context) *phase.Info {
	snapshot, err := s.source.Snapshot(ctx)
	if err != nil {
		s.logger.Error("スナップショットの取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil
	}

	info := phase.Infer(snapshot, s.now())
	if info == nil {
		s.logger.Warn("抽選フェーズ情報が見つかりません")
		return nil
	}
	if !info.IsCurrent {
		s.logger.Info("進行中のフェーズがありません",
			slog.String("latest_phase", info.PhaseName),
			slog.Time("ended_at", info.Until),
		)
		return nil
	}
	return info
}

// fire は境界タイマーの発火処理。告知を配信した後、上流データが境界後の
// 状態に追いつくのを待ってから再武装する。
func (s *Scheduler) fire(ctx context.Context, next int) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.state = stateFiring
	s.timer = nil
	s.mu.Unlock()

	success, failure, err := s.announcer.Announce(ctx, next)
	if err != nil {
		s.logger.Error("フェーズ告知の配信に失敗しました",
			slog.String("phase", phase.Name(next)),
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.Info("フェーズ告知を配信しました",
			slog.String("phase", phase.Name(next)),
			slog.Int("success", success),
			slog.Int("failure", failure),
		)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.state = stateUnarmed
	s.timer = time.AfterFunc(s.settleDelay, func() { s.schedule(ctx) })
	s.mu.Unlock()
}

// cancelTimerLocked は保留中のタイマーを解除する。muを保持して呼ぶこと。
func (s *Scheduler) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
