// Package session は区画一覧のページングセッションを管理する。
// セッションはプロセス内メモリにのみ存在し、再起動をまたいで永続化しない。
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/plotwatch/internal/model"
	"github.com/hitoshi/plotwatch/internal/render"
)

// Control はページ操作の種別。
type Control string

const (
	ControlFirst    Control = "first"
	ControlPrevious Control = "previous"
	ControlNext     Control = "next"
	ControlLast     Control = "last"
)

var (
	// ErrSessionNotFound はセッションが存在しない(失効済み含む)ことを示す。
	// 失効は利用者にとって日常的な状態であり、異常系ではない。
	ErrSessionNotFound = errors.New("セッションが見つかりません")
	// ErrNotOwner はセッション作成者以外からの操作を示す。
	ErrNotOwner = errors.New("セッションの作成者ではありません")
	// ErrInvalidControl は未知のページ操作を示す。
	ErrInvalidControl = errors.New("未知のページ操作です")
)

// Session は1回のコマンド実行に紐づくページング状態。
type Session struct {
	ID           string // {ownerID}_{unixミリ秒}
	Token        string // 呼び出し識別用トークン
	OwnerID      string
	WorldName    string
	DistrictName string
	SizeFilter   *int
	Plots        []model.PlotWithDistrict
	CurrentPage  int
	TotalPages   int
	CreatedAt    time.Time

	timer *time.Timer
}

// Metrics はセッション管理が記録するメトリクスのインターフェース。
type Metrics interface {
	SetActiveSessions(n int)
}

// ExpiryFunc はセッション失効時に1回だけ呼ばれるコールバック。
// 表示中のメッセージから操作ボタンを外す用途に使う。
type ExpiryFunc func(sessionID string)

// Manager はページングセッションの生成・操作・失効を管理する。
// 失効は2経路ある: セッションごとのタイマーと、参照時の遅延判定。
// どちらが先でもマップからの削除が所有権の移転点となり、
// コールバックはちょうど1回しか呼ばれない。
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	lifetime time.Duration
	pageSize int
	logger   *slog.Logger
	metrics  Metrics
	onExpire ExpiryFunc

	now func() time.Time // テスト用に差し替え可能
}

// NewManager はManagerの新しいインスタンスを生成する。
// lifetimeが0以下なら5分、pageSizeが0以下なら9を使用する。metricsはnilでもよい。
func NewManager(lifetime time.Duration, pageSize int, logger *slog.Logger, metrics Metrics) *Manager {
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	if pageSize <= 0 {
		pageSize = 9
	}
	return &Manager{
		sessions: make(map[string]*Session),
		lifetime: lifetime,
		pageSize: pageSize,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// SetExpiryCallback は失効コールバックを設定する。Create前に呼ぶこと。
func (m *Manager) SetExpiryCallback(fn ExpiryFunc) {
	m.onExpire = fn
}

// CreateRequest はセッション生成の入力。Plotsはフィルタ適用済みの一覧。
type CreateRequest struct {
	OwnerID      string
	WorldName    string
	DistrictName string
	SizeFilter   *int
	Plots        []model.PlotWithDistrict
}

// Create は新しいセッションを生成し、最初のページと共に返す。
func (m *Manager) Create(req CreateRequest) (*Session, render.Page) {
	now := m.now()
	s := &Session{
		ID:           fmt.Sprintf("%s_%d", req.OwnerID, now.UnixMilli()),
		Token:        uuid.NewString(),
		OwnerID:      req.OwnerID,
		WorldName:    req.WorldName,
		DistrictName: req.DistrictName,
		SizeFilter:   req.SizeFilter,
		Plots:        req.Plots,
		CurrentPage:  0,
		TotalPages:   render.TotalPages(len(req.Plots), m.pageSize),
		CreatedAt:    now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	s.timer = time.AfterFunc(m.lifetime, func() { m.expire(s.ID) })
	count := len(m.sessions)
	page := m.renderPage(s)
	m.mu.Unlock()

	m.setActive(count)
	m.logger.Info("ページングセッションを作成しました",
		slog.String("session_id", s.ID),
		slog.Int("plots", len(req.Plots)),
		slog.Int("total_pages", s.TotalPages),
	)
	return s, page
}

// HandleControl はページ操作を適用し、表示すべきページを返す。
// 2つ目の戻り値はページが実際に移動したかどうか。移動しなかった操作も
// エラーにはならず、呼び出し側は応答だけ返せばよい。
func (m *Manager) HandleControl(sessionID, userID string, control Control) (render.Page, bool, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok && m.now().Sub(s.CreatedAt) > m.lifetime {
		// タイマー発火前に失効を観測した場合もここで削除する
		m.removeLocked(s)
		ok = false
	}
	if !ok {
		m.mu.Unlock()
		return render.Page{}, false, ErrSessionNotFound
	}
	if userID != s.OwnerID {
		m.mu.Unlock()
		return render.Page{}, false, ErrNotOwner
	}

	newPage := s.CurrentPage
	switch control {
	case ControlFirst:
		newPage = 0
	case ControlPrevious:
		if newPage > 0 {
			newPage--
		}
	case ControlNext:
		if newPage < s.TotalPages-1 {
			newPage++
		}
	case ControlLast:
		newPage = s.TotalPages - 1
	default:
		m.mu.Unlock()
		return render.Page{}, false, ErrInvalidControl
	}

	changed := newPage != s.CurrentPage
	s.CurrentPage = newPage
	page := m.renderPage(s)
	m.mu.Unlock()

	return page, changed, nil
}

// Get はセッションを返す。失効済みならfalse。
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if ok && m.now().Sub(s.CreatedAt) > m.lifetime {
		m.removeLocked(s)
		return nil, false
	}
	return s, ok
}

// Len は現在のセッション数を返す。
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown は全セッションのタイマーを解除して破棄する。
// プロセス終了時のベストエフォート処理であり、コールバックは呼ばない。
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.timer != nil {
			s.timer.Stop()
		}
	}
	m.sessions = make(map[string]*Session)
}

// expire はタイマー発火によるセッション削除。
// 既に遅延判定で削除済みならマップに存在せず、何もしない。
func (m *Manager) expire(sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.removeLocked(s)
	m.mu.Unlock()
}

// removeLocked はセッションを削除し、失効コールバックを予約する。
// muを保持して呼ぶこと。コールバック自体はロック外で実行する。
func (m *Manager) removeLocked(s *Session) {
	if s.timer != nil {
		s.timer.Stop()
	}
	delete(m.sessions, s.ID)
	count := len(m.sessions)

	go func() {
		m.setActive(count)
		m.logger.Info("ページングセッションが失効しました",
			slog.String("session_id", s.ID),
		)
		if m.onExpire != nil {
			m.onExpire(s.ID)
		}
	}()
}

func (m *Manager) renderPage(s *Session) render.Page {
	return render.BuildPage(render.PageRequest{
		WorldName:    s.WorldName,
		DistrictName: s.DistrictName,
		SizeFilter:   s.SizeFilter,
		Plots:        s.Plots,
		PageIndex:    s.CurrentPage,
		PageSize:     m.pageSize,
		Now:          m.now(),
	})
}

func (m *Manager) setActive(n int) {
	if m.metrics != nil {
		m.metrics.SetActiveSessions(n)
	}
}
