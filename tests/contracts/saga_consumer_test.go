package contracts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	sagaApp "github.com/blocodev/wallethub/internal/saga/application"
	sagaDomain "github.com/blocodev/wallethub/internal/saga/domain"
	sagaConsumer "github.com/blocodev/wallethub/internal/saga/infra/inbound/events"
	sharedEvents "github.com/blocodev/wallethub/internal/shared/events"
	sharedBus "github.com/blocodev/wallethub/internal/shared/infra/bus"
	walletDomain "github.com/blocodev/wallethub/internal/wallet/domain"
	"github.com/blocodev/wallethub/tests/mocks"
)

func walletMessage(t *testing.T, eventType string, correlationID uuid.UUID) sharedBus.Message {
	payload, err := sharedEvents.Marshal(eventType, walletDomain.WorkflowEndedEvent{
		CorrelationID: correlationID.String(),
	})
	assert.NoError(t, err)
	return sharedBus.Message{Topic: walletDomain.WalletTopic, Key: []byte(correlationID.String()), Payload: payload}
}

func TestSagaConsumer_AdvancesSagaFromBrokerEvents(t *testing.T) {
	// ARRANGE
	repo := mocks.NewInMemorySagaRepo()
	service := sagaApp.NewService(repo, zap.NewNop())
	consumer := sagaConsumer.NewSagaConsumer(service, zap.NewNop())
	sagaID := uuid.New()

	// ACT: el stream completo de un workflow, en orden.
	for _, eventType := range []string{
		walletDomain.WalletCreated,
		walletDomain.FundsAdded,
		walletDomain.FundsWithdrawn,
		walletDomain.FundsTransferred,
		walletDomain.WorkflowCompleted,
	} {
		assert.NoError(t, consumer.Handle(context.Background(), walletMessage(t, eventType, sagaID)))
	}

	// ASSERT
	state, err := service.GetState(context.Background(), sagaID)
	assert.NoError(t, err)
	assert.Equal(t, sagaDomain.StateCompleted, state)
}

func TestSagaConsumer_DuplicateDeliveryIsIgnored(t *testing.T) {
	// ARRANGE: entrega al menos una vez ⇒ el mismo evento puede llegar dos
	// veces. El consumidor no devuelve error, solo descarta el duplicado.
	repo := mocks.NewInMemorySagaRepo()
	service := sagaApp.NewService(repo, zap.NewNop())
	consumer := sagaConsumer.NewSagaConsumer(service, zap.NewNop())
	sagaID := uuid.New()

	msg := walletMessage(t, walletDomain.WalletCreated, sagaID)
	assert.NoError(t, consumer.Handle(context.Background(), msg))

	// ACT
	err := consumer.Handle(context.Background(), msg)

	// ASSERT
	assert.NoError(t, err)
	state, _ := service.GetState(context.Background(), sagaID)
	assert.Equal(t, sagaDomain.StateWalletCreated, state)
}

func TestSagaConsumer_UnknownEventTypeIsIgnored(t *testing.T) {
	repo := mocks.NewInMemorySagaRepo()
	service := sagaApp.NewService(repo, zap.NewNop())
	consumer := sagaConsumer.NewSagaConsumer(service, zap.NewNop())

	payload, err := sharedEvents.Marshal("user.created", map[string]string{"correlation_id": uuid.New().String()})
	assert.NoError(t, err)

	err = consumer.Handle(context.Background(), sharedBus.Message{Topic: "user-events", Payload: payload})
	assert.NoError(t, err)
	assert.Equal(t, 0, repo.SaveCount)
}

func TestSagaConsumer_MalformedPayloadIsAnError(t *testing.T) {
	repo := mocks.NewInMemorySagaRepo()
	service := sagaApp.NewService(repo, zap.NewNop())
	consumer := sagaConsumer.NewSagaConsumer(service, zap.NewNop())

	err := consumer.Handle(context.Background(), sharedBus.Message{Topic: walletDomain.WalletTopic, Payload: []byte("{not json")})
	assert.Error(t, err)
}

func TestSagaConsumer_EventForUnknownSagaIsAnError(t *testing.T) {
	// Un FUNDS_ADDED sin WALLET_CREATED previo es un problema de integridad,
	// no un duplicado: el error sube para que el consumer lo loguee/reintente.
	repo := mocks.NewInMemorySagaRepo()
	service := sagaApp.NewService(repo, zap.NewNop())
	consumer := sagaConsumer.NewSagaConsumer(service, zap.NewNop())

	err := consumer.Handle(context.Background(), walletMessage(t, walletDomain.FundsAdded, uuid.New()))
	assert.ErrorIs(t, err, sagaDomain.ErrSagaNotFound)
}
