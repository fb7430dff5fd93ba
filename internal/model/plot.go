// Package model はドメインモデルを定義する。
package model

import "time"

// WorldSnapshot はPaissaDBから取得したワールドの空き区画スナップショットを表す。
// 取得後はイミュータブルとして扱い、更新は新しいスナップショットへの
// 差し替えで行う（フィールドの書き換えは行わない）。
type WorldSnapshot struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	Districts     []District `json:"districts"`
	NumOpenPlots  int        `json:"num_open_plots"`
	OldestPlotTime float64   `json:"oldest_plot_time"`
}

// AllPlots は全住宅地の空き区画を1つのスライスにまとめて返す。
// 各区画には所属する住宅地のIDと名前を付与する。
func (w *WorldSnapshot) AllPlots() []PlotWithDistrict {
	var plots []PlotWithDistrict
	for _, d := range w.Districts {
		for _, p := range d.OpenPlots {
			plots = append(plots, PlotWithDistrict{
				Plot:         p,
				DistrictID:   d.ID,
				DistrictName: d.Name,
			})
		}
	}
	return plots
}

// District はワールド内の1つの住宅地を表す。
type District struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	NumOpenPlots  int     `json:"num_open_plots"`
	OldestPlotTime float64 `json:"oldest_plot_time"`
	OpenPlots     []Plot  `json:"open_plots"`
}

// Plot は1つの空き区画を表す。
// 抽選フェーズ関連のフィールドはPaissaDB側のデータ欠損により
// 存在しない場合があるため、ポインタで「不明」を表現する。
type Plot struct {
	WorldID         int     `json:"world_id"`
	DistrictID      int     `json:"district_id"`
	WardNumber      int     `json:"ward_number"`
	PlotNumber      int     `json:"plot_number"`
	Size            int     `json:"size"`
	Price           int64   `json:"price"`
	LastUpdatedTime float64 `json:"last_updated_time"`
	FirstSeenTime   float64 `json:"first_seen_time"`
	EstTimeOpenMin  float64 `json:"est_time_open_min"`
	EstTimeOpenMax  float64 `json:"est_time_open_max"`
	PurchaseSystem  int     `json:"purchase_system"`
	LottoEntries    *int    `json:"lotto_entries"`
	LottoPhase      *int    `json:"lotto_phase"`
	LottoPhaseUntil *int64  `json:"lotto_phase_until"`
}

// PlotWithDistrict は区画と所属住宅地の情報を結合したモデル。
// スナップショットをフラット化してフィルタ・ページングする際に使用する。
type PlotWithDistrict struct {
	Plot
	DistrictID   int
	DistrictName string
}

// 購入方式のビットフラグ。
const (
	// PurchaseSystemLottery は抽選方式を表すビット。
	// 未設定の区画は先着順（FCFS）で販売される。
	PurchaseSystemLottery = 1
	// PurchaseSystemFreeCompany はフリーカンパニーが購入可能であることを表すビット。
	PurchaseSystemFreeCompany = 2
	// PurchaseSystemIndividual は個人が購入可能であることを表すビット。
	PurchaseSystemIndividual = 4
)

// 抽選フェーズの値。PaissaDB APIのlotto_phaseに対応する。
const (
	// LottoPhaseEntry は抽選応募の受付期間。
	LottoPhaseEntry = 1
	// LottoPhaseResults は抽選結果の発表期間。
	LottoPhaseResults = 2
	// LottoPhaseUnavailable は抽選が行われていない期間。
	LottoPhaseUnavailable = 3
)

// 住宅サイズの値。PaissaDB APIのsizeに対応する。
const (
	HouseSizeSmall  = 0
	HouseSizeMedium = 1
	HouseSizeLarge  = 2
)

// IsLottery は区画が抽選方式かを返す。
// 抽選ビットが立っていない区画は先着順で販売される。
func (p *Plot) IsLottery() bool {
	return p.PurchaseSystem&PurchaseSystemLottery != 0
}

// IsOutdatedPhase は抽選区画のフェーズ情報が古くなっているかを返す。
// フェーズ境界時刻が評価時点より過去であれば古いとみなす。
// 失効は保存されたフラグではなく、評価時刻に依存する派生的な述語である。
func (p *Plot) IsOutdatedPhase(now time.Time) bool {
	if !p.IsLottery() {
		return false
	}
	var until int64
	if p.LottoPhaseUntil != nil {
		until = *p.LottoPhaseUntil
	}
	return until < now.Unix()
}

// IsEntryPhase は区画が応募受付中の抽選区画かを返す。
// フェーズ情報が古い区画は受付中とはみなさない。
func (p *Plot) IsEntryPhase(now time.Time) bool {
	return p.IsLottery() && !p.IsOutdatedPhase(now) &&
		p.LottoPhase != nil && *p.LottoPhase == LottoPhaseEntry
}

// IsUnknownOrOutdatedPhase は抽選区画のフェーズ情報が欠損または失効しているかを返す。
func (p *Plot) IsUnknownOrOutdatedPhase(now time.Time) bool {
	return p.IsLottery() && (p.LottoPhase == nil || p.IsOutdatedPhase(now))
}
