// Package publisher 将协议事件投递到 RabbitMQ
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/blues/liftoff/internal/config"
	"github.com/blues/liftoff/internal/event"
	"github.com/blues/liftoff/internal/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel 发布所需的通道能力, *amqp.Channel 满足该接口
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher 事件发布处理器, 实现 event.Processor
type Publisher struct {
	conn    *amqp.Connection
	channel Channel
	queue   string
}

// Dial 连接 RabbitMQ, 失败时按配置重试
func Dial(cfg config.RabbitMQConfig) (*Publisher, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}
		if i < attempts-1 {
			logger.Warn("Failed to connect to RabbitMQ (attempt %d/%d): %v. Retrying in %v...", i+1, attempts, err, cfg.RetryDelay)
			time.Sleep(cfg.RetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	p, err := New(ch, cfg.Queue)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	logger.Info("Connected to RabbitMQ, publishing events to queue %s", cfg.Queue)
	return p, nil
}

// New 在已有通道上声明持久化队列
func New(ch Channel, queue string) (*Publisher, error) {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return &Publisher{channel: ch, queue: queue}, nil
}

// GetName 处理器名称
func (p *Publisher) GetName() string {
	return "publisher"
}

// Process 以 JSON 持久化消息投递事件
func (p *Publisher) Process(ctx context.Context, e *event.Event) error {
	msg, err := message(e)
	if err != nil {
		return err
	}
	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.Type, err)
	}
	logger.Debug("Published %s for raise %d to queue %s", e.Type, e.RaiseId, p.queue)
	return nil
}

func message(e *event.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event %s: %w", e.Id, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.Id,
		Type:         string(e.Type),
		Timestamp:    e.Time,
		Body:         body,
	}, nil
}

// Close 关闭通道与连接
func (p *Publisher) Close() error {
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
