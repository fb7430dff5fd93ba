package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, upstream, session, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeSessionExpired   = "SESSION_EXPIRED"
	ErrCodeInvalidControl   = "INVALID_CONTROL"
	ErrCodeNotSessionOwner  = "NOT_SESSION_OWNER"
	ErrCodeWorldFetchFailed = "WORLD_FETCH_FAILED"
	ErrCodeInvalidWorld     = "INVALID_WORLD"
	ErrCodeInvalidFilter    = "INVALID_FILTER"
	ErrCodeTargetNotFound   = "TARGET_NOT_FOUND"
	ErrCodeInvalidChannel   = "INVALID_CHANNEL"
)

// NewSessionExpiredError はページングセッション失効エラーを生成する。
// セッション失効は異常系ではなく、時間経過による通常の結果として扱う。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExpired,
		Message:  "ページングセッションの有効期限が切れました。",
		Category: "session",
		Action:   "コマンドを再実行して新しいセッションを開始してください。",
	}
}

// NewInvalidControlError は未知のページング操作エラーを生成する。
func NewInvalidControlError(control string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidControl,
		Message:  fmt.Sprintf("無効なページング操作です: %s", control),
		Category: "validation",
		Action:   "操作には first、previous、next、last のいずれかを指定してください。",
	}
}

// NewNotSessionOwnerError はセッション所有者以外からの操作エラーを生成する。
func NewNotSessionOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotSessionOwner,
		Message:  "このセッションを操作できるのは作成者のみです。",
		Category: "session",
		Action:   "自分でコマンドを実行して新しいセッションを開始してください。",
	}
}

// NewWorldFetchFailedError はPaissaDBからのスナップショット取得失敗エラーを生成する。
func NewWorldFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeWorldFetchFailed,
		Message:  fmt.Sprintf("ワールド情報の取得に失敗しました: %s", reason),
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidWorldError は無効なワールドIDエラーを生成する。
func NewInvalidWorldError(worldID string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidWorld,
		Message:  fmt.Sprintf("無効なワールドIDです: %s", worldID),
		Category: "validation",
		Action:   "ワールドIDには正の整数を指定してください。",
	}
}

// NewInvalidFilterError は無効なフィルタエラーを生成する。
func NewInvalidFilterError(name, value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("無効なフィルタです: %s=%s", name, value),
		Category: "validation",
		Action:   "フィルタの指定値を確認してください。",
	}
}

// NewTargetNotFoundError は通知先設定が存在しないエラーを生成する。
func NewTargetNotFoundError(guildID string) *APIError {
	return &APIError{
		Code:     ErrCodeTargetNotFound,
		Message:  fmt.Sprintf("ギルドの通知先設定が見つかりません: %s", guildID),
		Category: "validation",
		Action:   "先に通知先チャンネルを設定してください。",
	}
}

// NewInvalidChannelError は通知先に指定できないチャンネルのエラーを生成する。
func NewInvalidChannelError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidChannel,
		Message:  "指定されたチャンネルはテキストチャンネルではありません。",
		Category: "validation",
		Action:   "テキストチャンネルを指定してください。",
	}
}
