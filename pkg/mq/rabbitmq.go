package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wyfcoding/transcrypt/pkg/logger"
)

// RabbitPublisher 发布到 topic exchange，topic 作为 routing key
type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewRabbitPublisher 建立连接并声明 exchange
func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info(context.Background(), "RabbitMQ connected successfully", "exchange", exchange)
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish 发布持久化消息
func (p *RabbitPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	err := p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		topic,      // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    key,
			Body:         payload,
		},
	)
	if err != nil {
		logger.Error(ctx, "Failed to publish RabbitMQ message", "routing_key", topic, "error", err)
		return err
	}
	return nil
}

// Close 关闭 channel 与连接
func (p *RabbitPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
