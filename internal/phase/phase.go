// Package phase はスナップショットから現在の抽選フェーズを推定する。
//
// 上流のデータでは多数の区画がそれぞれ同じ抽選クロックを報告するが、
// 鮮度にばらつきがある。未来の境界のうち最も近いもの(なければ過去の
// 境界のうち最も新しいもの)を採用することで、冗長で一部が古い観測から
// 単一のクロックを復元する。
package phase

import (
	"sort"
	"time"

	"github.com/hitoshi/plotwatch/internal/model"
)

// Info は推定されたフェーズの情報。
type Info struct {
	Phase     int       // model.LottoPhaseEntry または model.LottoPhaseResults
	PhaseName string    // 表示用のフェーズ名
	Until     time.Time // フェーズ境界時刻
	IsCurrent bool      // 境界が未来にある(= フェーズが進行中)かどうか
}

// Name はフェーズ番号に対応する表示名を返す。未知の値には空文字を返す。
func Name(p int) string {
	switch p {
	case model.LottoPhaseEntry:
		return "Entry Period"
	case model.LottoPhaseResults:
		return "Results Period"
	default:
		return ""
	}
}

// Opposite は次に到来するフェーズを返す。
// 応募期間の次は結果発表期間、結果発表期間の次は応募期間である。
func Opposite(p int) int {
	if p == model.LottoPhaseEntry {
		return model.LottoPhaseResults
	}
	return model.LottoPhaseEntry
}

type observation struct {
	phase int
	until time.Time
}

// Infer はスナップショット全体から単一の「進行中または直近に終了した」
// フェーズを推定する。利用可能なシグナルが無い場合はnilを返す。
// 推定はベストエフォートであり、エラーを返すことはない。
func Infer(snapshot *model.WorldSnapshot, now time.Time) *Info {
	if snapshot == nil {
		return nil
	}

	var obs []observation
	for _, district := range snapshot.Districts {
		for _, plot := range district.OpenPlots {
			if !plot.IsLottery() {
				continue
			}
			if plot.LottoPhase == nil || plot.LottoPhaseUntil == nil {
				continue
			}
			p := *plot.LottoPhase
			if p != model.LottoPhaseEntry && p != model.LottoPhaseResults {
				continue
			}
			until := *plot.LottoPhaseUntil
			if until <= 0 {
				continue
			}
			obs = append(obs, observation{phase: p, until: time.Unix(until, 0)})
		}
	}
	if len(obs) == 0 {
		return nil
	}

	// 境界時刻の昇順に並べ、最も近い未来の境界を探す。
	// 全てが過去なら最も新しい過去の境界(末尾)を採用する。
	sort.Slice(obs, func(i, j int) bool {
		return obs[i].until.Before(obs[j].until)
	})

	chosen := obs[len(obs)-1]
	current := false
	for _, o := range obs {
		if o.until.After(now) {
			chosen = o
			current = true
			break
		}
	}

	return &Info{
		Phase:     chosen.phase,
		PhaseName: Name(chosen.phase),
		Until:     chosen.until,
		IsCurrent: current,
	}
}
