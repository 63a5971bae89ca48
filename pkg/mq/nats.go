package mq

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/wyfcoding/transcrypt/pkg/logger"
)

// NATSPublisher 基于 NATS core 的发布者，topic 即 subject
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher 连接 NATS
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("transcrypt-wallet"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info(context.Background(), "NATS connected successfully", "url", url)
	return &NATSPublisher{conn: nc}, nil
}

// Publish 发布消息，key 写入 header
func (p *NATSPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	msg := nats.NewMsg(topic)
	msg.Header.Set("Key", key)
	msg.Data = payload

	if err := p.conn.PublishMsg(msg); err != nil {
		logger.Error(ctx, "Failed to publish NATS message", "subject", topic, "error", err)
		return err
	}
	return nil
}

// Close 刷新缓冲并关闭连接
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
