// Package messaging 将领域事件编码后投递到消息总线
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/pkg/logger"
	"github.com/wyfcoding/transcrypt/pkg/mq"
)

// envelope 总线上的消息格式
type envelope struct {
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurred_at"`
	TraceID    string       `json:"trace_id,omitempty"`
	Data       domain.Event `json:"data"`
}

// EventPublisher domain.EventPublisher 的实现
type EventPublisher struct {
	publisher mq.Publisher
	prefix    string
}

// NewEventPublisher prefix 为主题前缀，最终主题为 prefix.事件类型
func NewEventPublisher(p mq.Publisher, prefix string) *EventPublisher {
	return &EventPublisher{publisher: p, prefix: prefix}
}

func (p *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(envelope{
		Type:       event.EventType(),
		OccurredAt: event.OccurredAt(),
		TraceID:    logger.TraceID(ctx),
		Data:       event,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.EventType(), err)
	}

	topic := event.EventType()
	if p.prefix != "" {
		topic = p.prefix + "." + topic
	}
	if err := p.publisher.Publish(ctx, topic, event.EventKey(), payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	logger.Debug(ctx, "event published", "topic", topic, "key", event.EventKey())
	return nil
}
