package events

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedBus "github.com/blocodev/wallethub/internal/shared/infra/bus"
)

// KafkaPublisher publica eventos en Kafka. El topic va en cada mensaje,
// así un único writer sirve a todos los tipos de evento.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(writer *kafka.Writer, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, key, payload []byte) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   key,
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("Error publishing to Kafka",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return err
	}

	p.log.Debug("Event published successfully", zap.String("topic", topic))
	return nil
}

// Verificación estática
var _ sharedBus.EventPublisher = (*KafkaPublisher)(nil)
