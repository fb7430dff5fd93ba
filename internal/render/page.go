// Package render は区画一覧をプラットフォーム中立なページモデルに整形する。
// Discord embed等への最終変換はチャットプラットフォーム側の実装に委ねる。
package render

import (
	"fmt"
	"time"

	"github.com/hitoshi/plotwatch/internal/model"
)

// Field はページ内の1区画分の表示ブロック。
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Page は1ページ分の表示内容。
type Page struct {
	Title       string
	Description string
	Fields      []Field
	Footer      string
}

// PageRequest はページ整形の入力。Plotsはフィルタ適用済みの一覧を渡す。
type PageRequest struct {
	WorldName    string
	DistrictName string // 住宅地フィルタ適用時のみ非空
	SizeFilter   *int
	Plots        []model.PlotWithDistrict
	PageIndex    int
	PageSize     int
	Now          time.Time
}

// TotalPages は総ページ数を返す。区画が0件でも最低1ページとして扱う。
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// BuildPage は指定ページの表示内容を組み立てる。
// ページ番号は範囲内に丸められる。
func BuildPage(req PageRequest) Page {
	total := len(req.Plots)
	totalPages := TotalPages(total, req.PageSize)

	page := req.PageIndex
	if page < 0 {
		page = 0
	}
	if page > totalPages-1 {
		page = totalPages - 1
	}

	start := page * req.PageSize
	end := start + req.PageSize
	if end > total {
		end = total
	}
	if start > total {
		start = total
	}

	title := req.WorldName
	description := fmt.Sprintf("Open Plots: %d", total)
	if req.DistrictName != "" {
		title += " - " + req.DistrictName
		description = fmt.Sprintf("Open Plots in %s: %d", req.DistrictName, total)
	}
	if req.SizeFilter != nil {
		description += fmt.Sprintf(" (%s only)", SizeText(*req.SizeFilter))
	}

	p := Page{
		Title:       title,
		Description: description,
	}

	showDistrict := req.DistrictName == ""
	for _, plot := range req.Plots[start:end] {
		p.Fields = append(p.Fields, Field{
			Name:   FieldNameText(plot),
			Value:  FieldValueText(plot, showDistrict, req.Now),
			Inline: true,
		})
	}

	if total > req.PageSize {
		p.Footer = fmt.Sprintf("Page %d/%d • Showing plots %d-%d of %d total",
			page+1, totalPages, start+1, end, total)
	}
	return p
}
