// Package mq 提供事件发布的统一接口，以及 Kafka、NATS、RabbitMQ 三种实现
package mq

import (
	"context"
	"fmt"

	"github.com/wyfcoding/transcrypt/pkg/config"
)

// Publisher 消息发布者
type Publisher interface {
	// Publish 发布一条消息，topic 为完整主题名
	Publish(ctx context.Context, topic, key string, payload []byte) error
	// Close 释放连接
	Close() error
}

// NoopPublisher 不发送任何消息，driver=none 时使用
type NoopPublisher struct{}

// Publish 丢弃消息
func (NoopPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error { return nil }

// Close 无操作
func (NoopPublisher) Close() error { return nil }

// NewPublisher 按配置的驱动创建发布者
func NewPublisher(cfg config.MessagingConfig) (Publisher, error) {
	switch cfg.Driver {
	case "kafka":
		return NewKafkaProducer(cfg.Kafka), nil
	case "nats":
		return NewNATSPublisher(cfg.NATS.URL)
	case "rabbitmq":
		return NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	case "none", "":
		return NoopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unsupported messaging driver: %s", cfg.Driver)
	}
}
