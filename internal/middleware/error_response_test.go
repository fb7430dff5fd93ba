package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/plotwatch/internal/model"
)

// TestWriteErrorResponse_WritesUnifiedFormat は統一フォーマットでエラーが書き込まれることを検証する。
func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusGone, model.NewSessionExpiredError())

	if w.Code != http.StatusGone {
		t.Errorf("status = %d, want %d", w.Code, http.StatusGone)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスがJSONではありません: %v", err)
	}
	if body.Code != "SESSION_EXPIRED" {
		t.Errorf("code = %q", body.Code)
	}
	if body.Category != "session" {
		t.Errorf("category = %q", body.Category)
	}
	if body.Message == "" || body.Action == "" {
		t.Error("messageまたはactionが空です")
	}
}

// TestWriteInternalServerError_HidesDetails は内部エラーで詳細が漏れないことを検証する。
func TestWriteInternalServerError_HidesDetails(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスがJSONではありません: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q", body.Code)
	}
}
