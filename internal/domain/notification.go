package domain

// NotificationMessage 是投递到通知队列中的消息
type NotificationMessage struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
	To      string `json:"to,omitempty"` // email 渠道的收件人
}
