package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/plotwatch/internal/middleware"
	"github.com/hitoshi/plotwatch/internal/model"
)

// TargetServiceInterface は通知先設定ハンドラーが必要とするリポジトリインターフェース。
type TargetServiceInterface interface {
	UpsertTarget(ctx context.Context, guildID, channelID string) error
	RemoveTarget(ctx context.Context, guildID string) (bool, error)
	GetTarget(ctx context.Context, guildID string) (string, error)
}

// TargetHandler はギルドの告知チャンネル設定のHTTPハンドラー。
type TargetHandler struct {
	targets TargetServiceInterface
}

// NewTargetHandler はTargetHandlerを生成する。
func NewTargetHandler(targets TargetServiceInterface) *TargetHandler {
	return &TargetHandler{targets: targets}
}

// setTargetRequest は通知先設定リクエストのボディ。
type setTargetRequest struct {
	ChannelID string `json:"channel_id"`
}

// targetResponse は通知先設定のAPIレスポンス。
type targetResponse struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
}

// Set はギルドの告知チャンネルを設定する。既存の設定は上書きされる。
// PUT /api/guilds/{guildID}/target
func (h *TargetHandler) Set(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	var req setTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}
	if req.ChannelID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidChannelError())
		return
	}

	if err := h.targets.UpsertTarget(r.Context(), guildID, req.ChannelID); err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, targetResponse{GuildID: guildID, ChannelID: req.ChannelID})
}

// Get はギルドの告知チャンネル設定を返す。
// GET /api/guilds/{guildID}/target
func (h *TargetHandler) Get(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	channelID, err := h.targets.GetTarget(r.Context(), guildID)
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}
	if channelID == "" {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTargetNotFoundError(guildID))
		return
	}

	writeJSON(w, http.StatusOK, targetResponse{GuildID: guildID, ChannelID: channelID})
}

// Remove はギルドの告知チャンネル設定を削除する。
// DELETE /api/guilds/{guildID}/target
func (h *TargetHandler) Remove(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	removed, err := h.targets.RemoveTarget(r.Context(), guildID)
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}
	if !removed {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTargetNotFoundError(guildID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
