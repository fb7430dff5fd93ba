// Package chat は通知配信先のチャットプラットフォームを抽象化する。
// Discord等の具体的なクライアントは本リポジトリの外側で実装され、
// ワーカー起動時に注入される。
package chat

import "context"

// Message は配信するメッセージ。装飾(embed化など)は実装側に委ねる。
type Message struct {
	Title string
	Body  string
}

// Platform はチャットプラットフォームへの最小限の接点。
type Platform interface {
	// GuildExists はギルドが現存するかどうかを返す。
	GuildExists(ctx context.Context, guildID string) (bool, error)
	// TextChannelExists はチャンネルが現存するテキストチャンネルかどうかを返す。
	TextChannelExists(ctx context.Context, channelID string) (bool, error)
	// SendMessage は指定チャンネルにメッセージを送信する。
	SendMessage(ctx context.Context, channelID string, msg Message) error
}
