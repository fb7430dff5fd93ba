package render

import (
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/plotwatch/internal/model"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestFieldNameText_番号は1始まりで表示する(t *testing.T) {
	plot := model.PlotWithDistrict{
		Plot: model.Plot{PlotNumber: 0, WardNumber: 4},
	}
	if got := FieldNameText(plot); got != "Plot 1 (Ward 5)" {
		t.Errorf("got %q", got)
	}
}

func TestSizeText(t *testing.T) {
	cases := []struct {
		size int
		want string
	}{
		{model.HouseSizeSmall, "Small"},
		{model.HouseSizeMedium, "Medium"},
		{model.HouseSizeLarge, "Large"},
		{99, "Unknown"},
	}
	for _, tc := range cases {
		if got := SizeText(tc.size); got != tc.want {
			t.Errorf("SizeText(%d): got %q, want %q", tc.size, got, tc.want)
		}
	}
}

func TestPriceText_3桁区切りで表示する(t *testing.T) {
	if got := PriceText(3187500); got != "3,187,500 gil" {
		t.Errorf("got %q", got)
	}
}

func TestEntriesText(t *testing.T) {
	now := time.Now()
	future := int64Ptr(now.Add(time.Hour).Unix())

	cases := []struct {
		name string
		plot model.Plot
		want string
	}{
		{
			"先着順の区画",
			model.Plot{PurchaseSystem: model.PurchaseSystemFreeCompany},
			"Entries: N/A",
		},
		{
			"フェーズ情報が欠損",
			model.Plot{PurchaseSystem: model.PurchaseSystemLottery},
			"Entries: Missing Pl. Data",
		},
		{
			"フェーズ情報が失効",
			model.Plot{
				PurchaseSystem:  model.PurchaseSystemLottery,
				LottoPhase:      intPtr(model.LottoPhaseEntry),
				LottoPhaseUntil: int64Ptr(now.Add(-time.Hour).Unix()),
			},
			"Entries: Missing Pl. Data",
		},
		{
			"応募数あり",
			model.Plot{
				PurchaseSystem:  model.PurchaseSystemLottery,
				LottoPhase:      intPtr(model.LottoPhaseEntry),
				LottoPhaseUntil: future,
				LottoEntries:    intPtr(12),
			},
			"Entries: 12",
		},
		{
			"応募数が未報告なら0",
			model.Plot{
				PurchaseSystem:  model.PurchaseSystemLottery,
				LottoPhase:      intPtr(model.LottoPhaseEntry),
				LottoPhaseUntil: future,
			},
			"Entries: 0",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EntriesText(model.PlotWithDistrict{Plot: tc.plot}, now)
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLotteryPhaseText(t *testing.T) {
	now := time.Now()
	future := int64Ptr(now.Add(time.Hour).Unix())

	cases := []struct {
		name string
		plot model.Plot
		want string
	}{
		{"先着順", model.Plot{PurchaseSystem: model.PurchaseSystemFreeCompany}, "FCFS"},
		{"欠損", model.Plot{PurchaseSystem: model.PurchaseSystemLottery}, "Missing Pl. Data"},
		{
			"応募受付中",
			model.Plot{
				PurchaseSystem:  model.PurchaseSystemLottery,
				LottoPhase:      intPtr(model.LottoPhaseEntry),
				LottoPhaseUntil: future,
			},
			"Accepting Entries",
		},
		{
			"結果発表",
			model.Plot{
				PurchaseSystem:  model.PurchaseSystemLottery,
				LottoPhase:      intPtr(model.LottoPhaseResults),
				LottoPhaseUntil: future,
			},
			"Results",
		},
		{
			"購入不可",
			model.Plot{
				PurchaseSystem:  model.PurchaseSystemLottery,
				LottoPhase:      intPtr(model.LottoPhaseUnavailable),
				LottoPhaseUntil: future,
			},
			"Unavailable",
		},
		{
			"未知のフェーズ値",
			model.Plot{
				PurchaseSystem:  model.PurchaseSystemLottery,
				LottoPhase:      intPtr(8),
				LottoPhaseUntil: future,
			},
			"Unknown (8)",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LotteryPhaseText(model.PlotWithDistrict{Plot: tc.plot}, now)
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAllowedTenantsText(t *testing.T) {
	cases := []struct {
		purchaseSystem int
		want           string
	}{
		{7, "Unrestricted"}, // 抽選 + FC + 個人
		{5, "Individual"},   // 抽選 + 個人
		{3, "Free Company"}, // 抽選 + FC
		{6, "Unrestricted"},
		{1, "Unrestricted"}, // ビット解釈が未確認の値はUnrestricted扱い
	}
	for _, tc := range cases {
		if got := AllowedTenantsText(tc.purchaseSystem); got != tc.want {
			t.Errorf("AllowedTenantsText(%d): got %q, want %q", tc.purchaseSystem, got, tc.want)
		}
	}
}

func TestGameToraPlotURL(t *testing.T) {
	cases := []struct {
		name       string
		districtID int
		plotNumber int
		want       string
		ok         bool
	}{
		{"ミスト", DistrictMist, 7, "https://gametora.com/ffxiv/housing-plot-viewer/mist?plot=07", true},
		{"ラベンダーベッド", DistrictTheLavenderBeds, 30, "https://gametora.com/ffxiv/housing-plot-viewer/lavender-beds?plot=30", true},
		{"拡張区画は折り返す", DistrictShirogane, 31, "https://gametora.com/ffxiv/housing-plot-viewer/shirogane?plot=01", true},
		{"エンピレアム60番", DistrictEmpyreum, 60, "https://gametora.com/ffxiv/housing-plot-viewer/empyreum?plot=30", true},
		{"未知の住宅地", 12345, 1, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := GameToraPlotURL(tc.districtID, tc.plotNumber)
			if ok != tc.ok {
				t.Fatalf("ok: got %v, want %v", ok, tc.ok)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFieldValueText_住宅地フィルタ適用時は住宅地名を省く(t *testing.T) {
	now := time.Now()
	plot := model.PlotWithDistrict{
		Plot: model.Plot{
			Size:            model.HouseSizeMedium,
			Price:           16000000,
			PurchaseSystem:  7,
			LastUpdatedTime: float64(now.Add(-time.Hour).Unix()),
		},
		DistrictID:   DistrictMist,
		DistrictName: "Mist",
	}

	with := FieldValueText(plot, true, now)
	if !strings.HasPrefix(with, "Mist\n") {
		t.Errorf("住宅地名が先頭にありません: %q", with)
	}

	without := FieldValueText(plot, false, now)
	if strings.Contains(without, "Mist\n") {
		t.Errorf("住宅地名が含まれています: %q", without)
	}
	if !strings.Contains(without, "View plot") {
		t.Errorf("GameToraリンクがありません: %q", without)
	}
}
