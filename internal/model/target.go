package model

// NotificationTarget はギルドごとの通知先チャンネル設定を表す。
// 1ギルドにつき通知先は最大1つ（guild_idが主キー）。
type NotificationTarget struct {
	GuildID   string
	ChannelID string
}
