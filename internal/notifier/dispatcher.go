package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/config"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
)

// NotificationQueue 是 tick 与 notifier worker 之间的队列名
const NotificationQueue = "notification_queue"

// Dispatcher 投递一条通知消息。tick 进程用 QueuePublisher 投到队列，
// notifier worker 再做真正的出站调用
type Dispatcher interface {
	Dispatch(ctx context.Context, msg domain.NotificationMessage) error
}

// QueuePublisher 把通知消息发布到 RabbitMQ 队列
type QueuePublisher struct {
	cfg     *config.Config
	channel *amqp.Channel
}

func NewQueuePublisher(cfg *config.Config, channel *amqp.Channel) *QueuePublisher {
	return &QueuePublisher{
		cfg:     cfg,
		channel: channel,
	}
}

// DeclareNotificationQueue 声明持久化的通知队列，发布方和消费方都要调用
func DeclareNotificationQueue(channel *amqp.Channel) (amqp.Queue, error) {
	return channel.QueueDeclare(
		NotificationQueue,
		true,  // 持久化
		false, // 不自动删除，避免没有消费者时丢队列
		false,
		false,
		nil,
	)
}

func (p *QueuePublisher) Dispatch(ctx context.Context, msg domain.NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return p.channel.PublishWithContext(
		ctx,
		"",
		NotificationQueue,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// DispatchAll 尽力投递一批消息：单条失败只记日志，不影响后面的消息。
// 返回成功投递的条数
func DispatchAll(ctx context.Context, d Dispatcher, msgs []domain.NotificationMessage) int {
	sent := 0
	for _, msg := range msgs {
		if err := d.Dispatch(ctx, msg); err != nil {
			slog.Error("通知投递失败", "channel", msg.Channel, "error", err)
			continue
		}
		sent++
	}
	return sent
}
