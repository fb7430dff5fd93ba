package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/plotwatch/internal/middleware"
	"github.com/hitoshi/plotwatch/internal/model"
	"github.com/hitoshi/plotwatch/internal/paissa"
	"github.com/hitoshi/plotwatch/internal/render"
	"github.com/hitoshi/plotwatch/internal/session"
)

// SnapshotSourceInterface は区画ブラウズが必要とするスナップショット取得インターフェース。
type SnapshotSourceInterface interface {
	// FetchWorld は指定ワールドのスナップショットを返す。
	FetchWorld(ctx context.Context, worldID int) (*model.WorldSnapshot, error)
}

// SessionServiceInterface はページングセッション管理のインターフェース。
type SessionServiceInterface interface {
	Create(req session.CreateRequest) (*session.Session, render.Page)
	HandleControl(sessionID, userID string, control session.Control) (render.Page, bool, error)
}

// PlotsHandler は区画ブラウズのHTTPハンドラー。
type PlotsHandler struct {
	snapshots SnapshotSourceInterface
	sessions  SessionServiceInterface
	pageSize  int
}

// NewPlotsHandler はPlotsHandlerを生成する。pageSizeが0以下なら9を使用する。
func NewPlotsHandler(snapshots SnapshotSourceInterface, sessions SessionServiceInterface, pageSize int) *PlotsHandler {
	if pageSize <= 0 {
		pageSize = 9
	}
	return &PlotsHandler{
		snapshots: snapshots,
		sessions:  sessions,
		pageSize:  pageSize,
	}
}

// pageResponse はページ表示内容のAPIレスポンス。
type pageResponse struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Fields      []fieldResponse `json:"fields"`
	Footer      string          `json:"footer,omitempty"`
}

type fieldResponse struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// browseResponse は区画ブラウズのAPIレスポンス。
// 1ページに収まる場合はセッションを作らず、session_idは空になる。
type browseResponse struct {
	SessionID  string       `json:"session_id,omitempty"`
	Token      string       `json:"token,omitempty"`
	TotalPlots int          `json:"total_plots"`
	TotalPages int          `json:"total_pages"`
	Page       pageResponse `json:"page"`
}

func toPageResponse(p render.Page) pageResponse {
	resp := pageResponse{
		Title:       p.Title,
		Description: p.Description,
		Footer:      p.Footer,
		Fields:      make([]fieldResponse, 0, len(p.Fields)),
	}
	for _, f := range p.Fields {
		resp.Fields = append(resp.Fields, fieldResponse{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return resp
}

// Browse はワールドの空き区画一覧を取得し、複数ページにわたる場合は
// ページングセッションを作成する。
// GET /api/worlds/{worldID}/plots?district=&size=&lottery_phase=&allowed_tenants=
func (h *PlotsHandler) Browse(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(middleware.UserIDHeader)
	if userID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "MISSING_USER_ID",
			Message:  "呼び出し元ユーザーIDが指定されていません。",
			Category: "validation",
			Action:   "X-User-IDヘッダーを指定してください。",
		})
		return
	}

	worldIDParam := chi.URLParam(r, "worldID")
	worldID, err := strconv.Atoi(worldIDParam)
	if err != nil || worldID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidWorldError(worldIDParam))
		return
	}

	filter, district, size, apiErr := parseFilter(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	snapshot, err := h.snapshots.FetchWorld(r.Context(), worldID)
	if err != nil {
		var provErr *paissa.ProviderError
		if errors.As(err, &provErr) {
			writeAPIErrorResponse(w, http.StatusBadGateway,
				model.NewWorldFetchFailedError(provErr.Error()))
			return
		}
		writeAPIErrorResponse(w, http.StatusBadGateway,
			model.NewWorldFetchFailedError("上流サービスに接続できません"))
		return
	}

	now := time.Now()
	plots := filter.Apply(snapshot.AllPlots(), now)

	districtName := ""
	if district != nil {
		for _, d := range snapshot.Districts {
			if d.ID == *district {
				districtName = d.Name
				break
			}
		}
		if districtName == "" {
			districtName = "Unknown District"
		}
	}

	// 1ページに収まるならセッションを作らずそのまま返す
	if len(plots) <= h.pageSize {
		page := render.BuildPage(render.PageRequest{
			WorldName:    snapshot.Name,
			DistrictName: districtName,
			SizeFilter:   size,
			Plots:        plots,
			PageIndex:    0,
			PageSize:     h.pageSize,
			Now:          now,
		})
		writeJSON(w, http.StatusOK, browseResponse{
			TotalPlots: len(plots),
			TotalPages: 1,
			Page:       toPageResponse(page),
		})
		return
	}

	s, page := h.sessions.Create(session.CreateRequest{
		OwnerID:      userID,
		WorldName:    snapshot.Name,
		DistrictName: districtName,
		SizeFilter:   size,
		Plots:        plots,
	})
	writeJSON(w, http.StatusCreated, browseResponse{
		SessionID:  s.ID,
		Token:      s.Token,
		TotalPlots: len(plots),
		TotalPages: s.TotalPages,
		Page:       toPageResponse(page),
	})
}

// parseFilter はクエリパラメータから絞り込み条件を組み立てる。
func parseFilter(r *http.Request) (render.Filter, *int, *int, *model.APIError) {
	var filter render.Filter

	district, apiErr := intQuery(r, "district")
	if apiErr != nil {
		return filter, nil, nil, apiErr
	}
	filter.DistrictID = district

	size, apiErr := intQuery(r, "size")
	if apiErr != nil {
		return filter, nil, nil, apiErr
	}
	if size != nil {
		switch *size {
		case model.HouseSizeSmall, model.HouseSizeMedium, model.HouseSizeLarge:
		default:
			return filter, nil, nil, model.NewInvalidFilterError("size", r.URL.Query().Get("size"))
		}
	}
	filter.Size = size

	phase, apiErr := intQuery(r, "lottery_phase")
	if apiErr != nil {
		return filter, nil, nil, apiErr
	}
	if phase != nil {
		switch *phase {
		case model.LottoPhaseEntry, model.LottoPhaseResults, model.LottoPhaseUnavailable,
			render.FilterFCFS, render.FilterMissingOutdated:
		default:
			return filter, nil, nil, model.NewInvalidFilterError("lottery_phase", r.URL.Query().Get("lottery_phase"))
		}
	}
	filter.LottoPhase = phase

	tenants, apiErr := intQuery(r, "allowed_tenants")
	if apiErr != nil {
		return filter, nil, nil, apiErr
	}
	if tenants != nil {
		switch *tenants {
		case model.PurchaseSystemFreeCompany, model.PurchaseSystemIndividual,
			model.PurchaseSystemFreeCompany | model.PurchaseSystemIndividual:
		default:
			return filter, nil, nil, model.NewInvalidFilterError("allowed_tenants", r.URL.Query().Get("allowed_tenants"))
		}
	}
	filter.AllowedTenants = tenants

	return filter, district, size, nil
}

// intQuery は整数クエリパラメータを読む。未指定ならnil。
func intQuery(r *http.Request, name string) (*int, *model.APIError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, model.NewInvalidFilterError(name, raw)
	}
	return &v, nil
}
