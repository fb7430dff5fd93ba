package render

import (
	"time"

	"github.com/hitoshi/plotwatch/internal/model"
)

// 抽選フェーズフィルタの擬似値。実在のフェーズ値と衝突しないよう負数を使う。
const (
	// FilterMissingOutdated はフェーズ情報が欠損・失効した抽選区画を選ぶ。
	FilterMissingOutdated = -1
	// FilterFCFS は先着順(非抽選)の区画を選ぶ。
	FilterFCFS = -2
)

// Filter は区画一覧への絞り込み条件。nilのフィールドは条件なしを意味する。
type Filter struct {
	DistrictID     *int
	Size           *int
	LottoPhase     *int // 実フェーズ値またはFilterFCFS/FilterMissingOutdated
	AllowedTenants *int
}

// Apply はフィルタを適用した新しいスライスを返す。入力は変更しない。
func (f Filter) Apply(plots []model.PlotWithDistrict, now time.Time) []model.PlotWithDistrict {
	filtered := make([]model.PlotWithDistrict, 0, len(plots))
	for _, plot := range plots {
		if f.DistrictID != nil && plot.DistrictID != *f.DistrictID {
			continue
		}
		if f.Size != nil && plot.Size != *f.Size {
			continue
		}
		if f.LottoPhase != nil && !matchesPhase(plot, *f.LottoPhase, now) {
			continue
		}
		if f.AllowedTenants != nil && !matchesTenants(plot, *f.AllowedTenants) {
			continue
		}
		filtered = append(filtered, plot)
	}
	return filtered
}

func matchesPhase(plot model.PlotWithDistrict, want int, now time.Time) bool {
	if !plot.IsLottery() {
		return want == FilterFCFS
	}
	if plot.IsUnknownOrOutdatedPhase(now) {
		return want == FilterMissingOutdated
	}
	return plot.LottoPhase != nil && *plot.LottoPhase == want
}

func matchesTenants(plot model.PlotWithDistrict, want int) bool {
	const both = model.PurchaseSystemFreeCompany | model.PurchaseSystemIndividual
	// Unrestricted指定時は両方のビットが立っていることを要求する
	if want == both {
		return plot.PurchaseSystem&both == both
	}
	return plot.PurchaseSystem&want != 0
}
