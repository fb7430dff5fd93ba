package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestLoggingMiddleware_LogsRequest はリクエストログが構造化JSONで出力されることを検証する。
func TestLoggingMiddleware_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("ログがJSONではありません: %v", err)
	}
	if entry["method"] != "GET" {
		t.Errorf("method: got %v", entry["method"])
	}
	if entry["path"] != "/health" {
		t.Errorf("path: got %v", entry["path"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("status: got %v", entry["status"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("duration_msがありません")
	}
}

// TestLoggingMiddleware_IncludesUserIDHeader は申告されたユーザーIDがログに含まれることを検証する。
func TestLoggingMiddleware_IncludesUserIDHeader(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/plots", nil)
	req.Header.Set(UserIDHeader, "user-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !strings.Contains(buf.String(), `"user_id":"user-42"`) {
		t.Errorf("user_idがログにありません: %s", buf.String())
	}
}

// TestLoggingMiddleware_ErrorLevelFor5xx は5xxレスポンスがERRORレベルで記録されることを検証する。
func TestLoggingMiddleware_ErrorLevelFor5xx(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("ERRORレベルで記録されていません: %s", buf.String())
	}
}

// TestLoggingMiddleware_WarnLevelFor4xx は4xxレスポンスがWARNレベルで記録されることを検証する。
func TestLoggingMiddleware_WarnLevelFor4xx(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))

	req := httptest.NewRequest(http.MethodGet, "/sessions/old", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Errorf("WARNレベルで記録されていません: %s", buf.String())
	}
}
