package events

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedBus "github.com/blocodev/wallethub/internal/shared/infra/bus"
)

// ConsumerAdapter es el "oído" que escucha en Kafka y entrega cada mensaje
// al handler de dominio.
type ConsumerAdapter struct {
	reader  *kafka.Reader
	handler sharedBus.EventHandler
	log     *zap.Logger
}

func NewConsumerAdapter(reader *kafka.Reader, handler sharedBus.EventHandler, log *zap.Logger) *ConsumerAdapter {
	return &ConsumerAdapter{
		reader:  reader,
		handler: handler,
		log:     log,
	}
}

// Start inicia el bucle de consumo de mensajes en una goroutine.
func (c *ConsumerAdapter) Start(ctx context.Context) {
	c.log.Info("🎧 Iniciando consumidor de Kafka...",
		zap.String("topic", c.reader.Config().Topic),
		zap.Strings("brokers", c.reader.Config().Brokers),
	)

	go func() {
		for {
			// ReadMessage es una llamada bloqueante.
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				// Si el contexto se cancela, el error es normal y salimos limpiamente.
				if ctx.Err() != nil {
					c.log.Info("Consumidor de Kafka detenido.", zap.String("topic", c.reader.Config().Topic))
					return
				}
				c.log.Error("Error al leer mensaje de Kafka", zap.Error(err))
				continue
			}

			if err := c.handler.Handle(ctx, sharedBus.Message{
				Topic:   msg.Topic,
				Key:     msg.Key,
				Payload: msg.Value,
			}); err != nil {
				c.log.Warn("⚠️ Handler devolvió error para mensaje de Kafka",
					zap.String("topic", msg.Topic),
					zap.Error(err),
				)
			}
		}
	}()
}
