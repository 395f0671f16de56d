package broker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

const (
	AssignmentEventsExchange   = "assignment_events"
	ConflictNotificationsQueue = "conflict_notifications"
)

// Broker 负责跨会话广播排班变更事件，并向通知 worker 投递冲突通知。
// 变更事件走 fanout exchange，每个会话绑定一个独立的临时队列；
// 冲突通知走持久化队列，由 cmd/notifier 消费。
type Broker struct {
	cfg     *config.Config
	channel *amqp.Channel
}

func NewBroker(cfg *config.Config, ch *amqp.Channel) (*Broker, error) {
	if err := ch.ExchangeDeclare(
		AssignmentEventsExchange,
		"fanout",
		false, // 事件只对在线会话有意义，不需要持久化
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, err
	}

	if _, err := ch.QueueDeclare(
		ConflictNotificationsQueue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, err
	}

	return &Broker{
		cfg:     cfg,
		channel: ch,
	}, nil
}

func (b *Broker) PublishChange(event *domain.ChangeEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(b.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return b.channel.PublishWithContext(
		ctx,
		AssignmentEventsExchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (b *Broker) PublishConflictNotification(msg *domain.NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(b.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return b.channel.PublishWithContext(
		ctx,
		"",
		ConflictNotificationsQueue,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// SubscribeChanges 为当前会话绑定一个临时队列，返回解码后的事件通道。
// ctx 取消后通道关闭。
func (b *Broker) SubscribeChanges(ctx context.Context) (<-chan *domain.ChangeEvent, error) {
	q, err := b.channel.QueueDeclare(
		"",    // 由 RabbitMQ 生成队列名
		false, // 不持久化
		true,  // 会话断开后自动删除
		true,  // 独占
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	if err := b.channel.QueueBind(q.Name, "", AssignmentEventsExchange, false, nil); err != nil {
		return nil, err
	}

	msgs, err := b.channel.Consume(
		q.Name,
		"",
		true, // 事件允许丢失，自动确认即可
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	events := make(chan *domain.ChangeEvent)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				event := &domain.ChangeEvent{}
				if err := json.Unmarshal(msg.Body, event); err != nil {
					slog.Error("变更事件反序列化失败", "error", err)
					continue
				}

				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}
