package publisher

import (
	"TodayInHistory/backend/go/internal/models"
	"TodayInHistory/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// messageWriter 是 kafka.Writer 中发布事件需要的部分。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// FactPublisher 把已发放的事实以 JSON 形式写入 Kafka，消息键为请求 ID。
type FactPublisher struct {
	writer messageWriter
	topic  string
	logger *logger.Logger
}

// NewFactPublisher 创建一个 FactPublisher。
func NewFactPublisher(writer *kafka.Writer, logger *logger.Logger) *FactPublisher {
	return &FactPublisher{writer: writer, topic: writer.Topic, logger: logger}
}

// Publish 发送一条 FactEvent。
func (p *FactPublisher) Publish(ctx context.Context, event models.FactEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal fact event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ID),
		Value: data,
	})
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"topic": p.topic, "event_id": event.ID}).
			Error("Failed to write fact event to Kafka")
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close 关闭底层的 writer，并等待异步发送完成。
func (p *FactPublisher) Close() error {
	return p.writer.Close()
}

// Nop 丢弃所有事件，在未配置 Kafka 时使用。
type Nop struct{}

func (Nop) Publish(context.Context, models.FactEvent) error { return nil }

func (Nop) Close() error { return nil }
