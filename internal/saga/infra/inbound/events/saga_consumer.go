package events

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	sagaDomain "github.com/blocodev/wallethub/internal/saga/domain"
	sharedEvents "github.com/blocodev/wallethub/internal/shared/events"
	sharedBus "github.com/blocodev/wallethub/internal/shared/infra/bus"
)

// SagaService es lo mínimo que el consumidor necesita del puente de sagas.
type SagaService interface {
	HandleEvent(ctx context.Context, eventType string, correlationID string) (sagaDomain.State, error)
}

// SagaConsumer alimenta la máquina de estados con los eventos de wallet que
// llegan por el broker: al reproducir el stream de eventos, cada saga retoma
// exactamente desde su último estado persistido.
type SagaConsumer struct {
	service SagaService
	log     *zap.Logger
}

func NewSagaConsumer(service SagaService, log *zap.Logger) *SagaConsumer {
	return &SagaConsumer{service: service, log: log}
}

func (c *SagaConsumer) Handle(ctx context.Context, msg sharedBus.Message) error {
	var base sharedEvents.IntegrationEvent
	if err := json.Unmarshal(msg.Payload, &base); err != nil {
		c.log.Warn("Failed to unmarshal integration event", zap.String("topic", msg.Topic), zap.Error(err))
		return err
	}

	// Todos los payloads de wallet llevan el correlation id de su saga.
	var envelope struct {
		CorrelationID string `json:"correlation_id"`
	}
	if err := json.Unmarshal(base.Data, &envelope); err != nil {
		c.log.Warn("Failed to extract correlation id", zap.String("type", base.Type), zap.Error(err))
		return err
	}

	state, err := c.service.HandleEvent(ctx, base.Type, envelope.CorrelationID)
	switch {
	case err == nil:
		c.log.Info("Saga avanzada vía evento de broker",
			zap.String("type", base.Type),
			zap.String("correlation_id", envelope.CorrelationID),
			zap.String("state", string(state)),
		)
		return nil
	case errors.Is(err, sagaDomain.ErrUnknownEventType):
		// Evento que no participa en la saga: se ignora.
		return nil
	case errors.Is(err, sagaDomain.ErrInvalidTransition):
		// Entrega duplicada (al menos una vez): la señal repetida no matchea
		// la tabla y se descarta sin mutar nada.
		c.log.Info("Señal duplicada o fuera de orden ignorada",
			zap.String("type", base.Type),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		return nil
	default:
		return err
	}
}

// Verificación estática
var _ sharedBus.EventHandler = (*SagaConsumer)(nil)
