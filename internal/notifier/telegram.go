package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shiftcal-dev/shift-calendar/backend/internal/config"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
)

// TelegramClient 是通知接收端的客户端，每条消息一次出站调用
type TelegramClient struct {
	cfg     *config.Config
	client  *http.Client
	baseURL string
}

func NewTelegramClient(cfg *config.Config) *TelegramClient {
	return &TelegramClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.Telegram.RequestTimeout) * time.Second,
		},
		baseURL: "https://api.telegram.org",
	}
}

// NewTelegramClientWithBaseURL 供测试时指向本地的模拟服务器
func NewTelegramClientWithBaseURL(cfg *config.Config, baseURL string) *TelegramClient {
	c := NewTelegramClient(cfg)
	c.baseURL = baseURL
	return c
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Send 发送一条文本消息到配置好的会话
func (c *TelegramClient) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID: c.cfg.Telegram.ChatID,
		Text:   text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.cfg.Telegram.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram 返回 %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Dispatch 实现 Dispatcher，直接把消息发往 telegram
func (c *TelegramClient) Dispatch(ctx context.Context, msg domain.NotificationMessage) error {
	return c.Send(ctx, msg.Text)
}
