package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/plotwatch/internal/middleware"
	"github.com/hitoshi/plotwatch/internal/model"
	"github.com/hitoshi/plotwatch/internal/session"
)

// SessionHandler はページングセッション操作のHTTPハンドラー。
type SessionHandler struct {
	sessions SessionServiceInterface
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(sessions SessionServiceInterface) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// controlRequest はページ操作リクエストのボディ。
type controlRequest struct {
	Control string `json:"control"`
}

// controlResponse はページ操作のレスポンス。
// Changedがfalseの場合、ページは移動しておらず表示の更新は不要。
type controlResponse struct {
	Changed bool         `json:"changed"`
	Page    pageResponse `json:"page"`
}

// Control はページングセッションへの操作を処理する。
// 失効済みセッションへの操作は410を返す。これは利用者にとって
// 日常的な結果であり、コマンドの再実行を促すだけでよい。
// POST /api/sessions/{sessionID}/control
func (h *SessionHandler) Control(w http.ResponseWriter, r *http.Request) {
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

	sessionID := chi.URLParam(r, "sessionID")

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	page, changed, err := h.sessions.HandleControl(sessionID, userID, session.Control(req.Control))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			writeAPIErrorResponse(w, http.StatusGone, model.NewSessionExpiredError())
		case errors.Is(err, session.ErrNotOwner):
			writeAPIErrorResponse(w, http.StatusForbidden, model.NewNotSessionOwnerError())
		case errors.Is(err, session.ErrInvalidControl):
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidControlError(req.Control))
		default:
			middleware.WriteInternalServerError(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, controlResponse{
		Changed: changed,
		Page:    toPageResponse(page),
	})
}
