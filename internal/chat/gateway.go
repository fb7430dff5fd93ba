package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// GatewayClient はボットゲートウェイのHTTP APIを経由してPlatformを実装する。
// Discordへの実接続はゲートウェイプロセス側が保持し、本体はギルド・
// チャンネルの存在確認とメッセージ送信のみを依頼する。
type GatewayClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	token      string
}

// NewGatewayClient はGatewayClientの新しいインスタンスを生成する。
// tokenが空の場合、Authorizationヘッダーは付与しない。
func NewGatewayClient(httpClient *http.Client, logger *slog.Logger, baseURL, token string) *GatewayClient {
	return &GatewayClient{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		token:      token,
	}
}

// GuildExists はギルドがゲートウェイから見えるかどうかを返す。
// 404は「存在しない」という正常な回答であり、エラーにはしない。
func (g *GatewayClient) GuildExists(ctx context.Context, guildID string) (bool, error) {
	return g.exists(ctx, fmt.Sprintf("%s/guilds/%s", g.baseURL, guildID))
}

// TextChannelExists はチャンネルが現存するテキストチャンネルかどうかを返す。
func (g *GatewayClient) TextChannelExists(ctx context.Context, channelID string) (bool, error) {
	return g.exists(ctx, fmt.Sprintf("%s/channels/%s", g.baseURL, channelID))
}

func (g *GatewayClient) exists(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("ゲートウェイが予期しないステータスを返しました: %d", resp.StatusCode)
	}
}

// sendMessageRequest はメッセージ送信リクエストのボディ。
type sendMessageRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SendMessage は指定チャンネルにメッセージの送信を依頼する。
func (g *GatewayClient) SendMessage(ctx context.Context, channelID string, msg Message) error {
	body, err := json.Marshal(sendMessageRequest{Title: msg.Title, Body: msg.Body})
	if err != nil {
		return fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%s/messages", g.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.setHeaders(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Error("ゲートウェイへのメッセージ送信に失敗しました",
			slog.String("channel_id", channelID),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("ゲートウェイがメッセージ送信を拒否しました: status %d", resp.StatusCode)
	}

	return nil
}

func (g *GatewayClient) setHeaders(req *http.Request) {
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
}
