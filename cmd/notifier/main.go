package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/config"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/notifier"
	"github.com/wneessen/go-mail"
)

var errNoMailClient = errors.New("没有配置 SMTP，邮件渠道不可用")

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 创建 telegram 客户端
	 **********************************************/
	tgClient := notifier.NewTelegramClient(cfg)

	/**********************************************
	 * 创建邮件客户端（没有配置 SMTP 时跳过，邮件渠道不可用）
	 **********************************************/
	var mailClient *mail.Client
	if cfg.Email.SMTP.Host != "" {
		mailClient, err = mail.NewClient(cfg.Email.SMTP.Host,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithSSL(),
			mail.WithPort(cfg.Email.SMTP.Port),
			mail.WithUsername(cfg.Email.SMTP.Username),
			mail.WithPassword(cfg.Email.SMTP.Password),
		)
		if err != nil {
			logger.Error("无法创建邮件客户端", slog.String("error", err.Error()))
			return
		}
		defer mailClient.Close()

		// 验证邮件客户端是否连接成功
		clientDialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
		defer cancel()
		if err := mailClient.DialWithContext(clientDialCtx); err != nil {
			logger.Error("无法连接到邮件服务器", slog.String("error", err.Error()))
			return
		}
	}

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	// 创建通道
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	// 声明队列
	q, err := notifier.DeclareNotificationQueue(ch)
	if err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	// 监听 CTRL+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 消费消息
	msgs, err := ch.Consume(
		q.Name, // 队列
		"",     // 消费者标识，设置为空字符串，表示由 RabbitMQ 自动分配
		false,  // 是否自动确认消息
		false,  // 是否独占队列
		false,  // 是否禁止消费者接受自己发送的消息，必须设置为 false，因为 RabbitMQ 不支持这个参数
		false,  // 是否不等待，等待 RabbitMQ 响应
		nil,    // 额外参数
	)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 用于关闭 goroutine 的上下文
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				logger.Info("收到消息", slog.String("message", string(msg.Body)))

				notification := domain.NotificationMessage{}
				if err := json.Unmarshal(msg.Body, &notification); err != nil {
					logger.Error("通知信息反序列化失败", slog.String("error", err.Error()))
					_ = msg.Nack(false, false)
					continue
				}

				if err := deliver(ctx, cfg, tgClient, mailClient, notification); err != nil {
					logger.Error("通知发送失败", slog.String("channel", notification.Channel), slog.String("error", err.Error()))
					// 只重新入队一次，已经投递过的消息直接丢弃，避免无限循环
					_ = msg.Nack(false, !msg.Redelivered)
					continue
				}

				// 确认消息
				_ = msg.Ack(false)
			}
		}
	}()

	// 等待 CTRL+C 信号
	logger.Info("等待消息...（按 CTRL+C 退出）")
	<-sigChan

	// 优雅退出
	slog.Info("正在关闭 notifier worker...")
	cancel()
	wg.Wait() // 等待所有 goroutine 完成
	slog.Info("notifier worker 已成功关闭")
}

// deliver 按渠道做真正的出站调用
func deliver(ctx context.Context, cfg *config.Config, tgClient *notifier.TelegramClient, mailClient *mail.Client, notification domain.NotificationMessage) error {
	switch notification.Channel {
	case domain.ChannelEmail:
		if mailClient == nil {
			return errNoMailClient
		}

		m := mail.NewMsg()
		if err := m.From(cfg.Email.SMTP.Username); err != nil {
			return err
		}
		if err := m.To(notification.To); err != nil {
			return err
		}
		m.Subject("排班提醒")
		m.SetBodyString(mail.TypeTextPlain, notification.Text)

		return mailClient.DialAndSend(m)
	default:
		// 没写渠道的旧消息也走 telegram
		return tgClient.Send(ctx, notification.Text)
	}
}
