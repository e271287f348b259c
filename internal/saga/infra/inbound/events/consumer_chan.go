package events

import (
	"context"

	"go.uber.org/zap"

	sharedBus "github.com/blocodev/wallethub/internal/shared/infra/bus"
)

// BackgroundConsumerChan consume mensajes de un canal en memoria y los pasa
// al handler. Es el equivalente local del ConsumerAdapter de Kafka.
func BackgroundConsumerChan(ctx context.Context, ch <-chan sharedBus.Message, handler sharedBus.EventHandler, log *zap.Logger) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Info("Listener en memoria detenido.")
				return
			case msg := <-ch:
				if err := handler.Handle(ctx, msg); err != nil {
					log.Warn("⚠️ Handler devolvió error para mensaje en memoria",
						zap.String("topic", msg.Topic),
						zap.Error(err),
					)
				}
			}
		}
	}()
}
