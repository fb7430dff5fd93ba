package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hitoshi/plotwatch/internal/model"
)

// FFXIVの住宅地ID。PaissaDB APIのdistrict idに対応する。
const (
	DistrictMist            = 339
	DistrictTheLavenderBeds = 340
	DistrictTheGoblet       = 341
	DistrictShirogane       = 641
	DistrictEmpyreum        = 979
)

// FieldNameText は区画の見出しを返す。
// 区画番号・区番号はAPI上0始まりなので表示時に+1する。
func FieldNameText(plot model.PlotWithDistrict) string {
	return fmt.Sprintf("Plot %d (Ward %d)", plot.PlotNumber+1, plot.WardNumber+1)
}

// FieldValueText は区画の詳細表示を1ブロックにまとめて返す。
func FieldValueText(plot model.PlotWithDistrict, showDistrict bool, now time.Time) string {
	var lines []string
	if showDistrict {
		lines = append(lines, plot.DistrictName)
	}
	lines = append(lines,
		SizeText(plot.Size),
		PriceText(plot.Price),
		EntriesText(plot, now),
		LotteryPhaseText(plot, now),
		AllowedTenantsText(plot.PurchaseSystem),
		LastUpdatedText(plot.LastUpdatedTime, now),
	)
	if link := GameToraLinkText(plot.DistrictID, plot.PlotNumber+1); link != "" {
		lines = append(lines, link)
	}
	return strings.Join(lines, "\n")
}

// SizeText は住宅サイズの表示名を返す。
func SizeText(size int) string {
	switch size {
	case model.HouseSizeSmall:
		return "Small"
	case model.HouseSizeMedium:
		return "Medium"
	case model.HouseSizeLarge:
		return "Large"
	default:
		return "Unknown"
	}
}

// PriceText は価格を3桁区切りのギル表記で返す。
func PriceText(price int64) string {
	return humanize.Comma(price) + " gil"
}

// EntriesText は抽選応募数の表示を返す。
// 先着順の区画はN/A、フェーズ情報が欠損・失効している場合はプレースホルダ。
func EntriesText(plot model.PlotWithDistrict, now time.Time) string {
	if !plot.IsLottery() {
		return "Entries: N/A"
	}
	if plot.LottoPhase == nil || plot.IsOutdatedPhase(now) {
		return "Entries: Missing Pl. Data"
	}
	entries := 0
	if plot.LottoEntries != nil {
		entries = *plot.LottoEntries
	}
	return fmt.Sprintf("Entries: %d", entries)
}

// LotteryPhaseText は抽選フェーズの表示を返す。
func LotteryPhaseText(plot model.PlotWithDistrict, now time.Time) string {
	if !plot.IsLottery() {
		return "FCFS"
	}
	if plot.LottoPhase == nil || plot.IsOutdatedPhase(now) {
		return "Missing Pl. Data"
	}
	switch *plot.LottoPhase {
	case model.LottoPhaseEntry:
		return "Accepting Entries"
	case model.LottoPhaseResults:
		return "Results"
	case model.LottoPhaseUnavailable:
		return "Unavailable"
	default:
		return fmt.Sprintf("Unknown (%d)", *plot.LottoPhase)
	}
}

// AllowedTenantsText は購入可能な名義の表示を返す。
// 観測された値は3/5/7のいずれかだが、ビット解釈は上流ドキュメントで
// 未確認のため、想定外の値はUnrestrictedにフォールバックする。
func AllowedTenantsText(purchaseSystem int) string {
	const both = model.PurchaseSystemFreeCompany | model.PurchaseSystemIndividual
	if purchaseSystem&both == both {
		return "Unrestricted"
	}
	if purchaseSystem&model.PurchaseSystemFreeCompany != 0 {
		return "Free Company"
	}
	if purchaseSystem&model.PurchaseSystemIndividual != 0 {
		return "Individual"
	}
	return "Unrestricted"
}

// LastUpdatedText は区画情報の最終更新からの経過を相対表記で返す。
func LastUpdatedText(lastUpdated float64, now time.Time) string {
	t := time.Unix(int64(lastUpdated), 0)
	return "Updated " + humanize.RelTime(t, now, "ago", "from now")
}

// GameToraLinkText はGameTora区画ビューアへのリンクを返す。
// 未知の住宅地ではリンクを生成できないため空文字を返す。
func GameToraLinkText(districtID, displayPlotNumber int) string {
	url, ok := GameToraPlotURL(districtID, displayPlotNumber)
	if !ok {
		return ""
	}
	return fmt.Sprintf("[View plot](%s)", url)
}

// GameToraPlotURL はGameTora区画ビューアのURLを組み立てる。
// 31番以降の区画は拡張区画として1-30の番号に折り返される。
func GameToraPlotURL(districtID, displayPlotNumber int) (string, bool) {
	var path string
	switch districtID {
	case DistrictMist:
		path = "mist"
	case DistrictTheLavenderBeds:
		path = "lavender-beds"
	case DistrictTheGoblet:
		path = "goblet"
	case DistrictShirogane:
		path = "shirogane"
	case DistrictEmpyreum:
		path = "empyreum"
	default:
		return "", false
	}
	n := displayPlotNumber
	if n > 30 {
		n -= 30
	}
	return fmt.Sprintf("https://gametora.com/ffxiv/housing-plot-viewer/%s?plot=%02d", path, n), true
}
