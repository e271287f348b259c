package application

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	sagaDomain "github.com/blocodev/wallethub/internal/saga/domain"
	sharedDomain "github.com/blocodev/wallethub/internal/shared/domain"
	sharedEvents "github.com/blocodev/wallethub/internal/shared/events"
	"github.com/blocodev/wallethub/internal/wallet/domain"
	"github.com/blocodev/wallethub/tests/mocks"
)

// fakeSagaBridge captura las señales que el servicio manda a la saga.
type fakeSagaBridge struct {
	events []string
	err    error
}

func (f *fakeSagaBridge) HandleEvent(ctx context.Context, eventType, correlationID string) (sagaDomain.State, error) {
	f.events = append(f.events, eventType)
	return "", f.err
}

func newService(repo domain.WalletRepository, saga SagaBridge) *WalletService {
	return NewWalletService(repo, nil, saga, zap.NewNop())
}

func decodeEnvelope(t *testing.T, evt sharedDomain.OutboxEvent) sharedEvents.IntegrationEvent {
	var base sharedEvents.IntegrationEvent
	assert.NoError(t, json.Unmarshal(evt.Payload, &base))
	return base
}

func TestCreateWallet_WritesWalletAndOutboxEvent(t *testing.T) {
	// ARRANGE
	repo := mocks.NewInMemoryWalletRepo()
	bridge := &fakeSagaBridge{}
	service := newService(repo, bridge)
	correlationID := uuid.New()

	// ACT
	wallet, err := service.CreateWallet(context.Background(), uuid.New(), "ahorros", correlationID)

	// ASSERT
	assert.NoError(t, err)
	assert.Len(t, repo.Outbox, 1)

	evt := repo.Outbox[0]
	assert.Equal(t, domain.WalletCreated, evt.EventType)
	assert.Equal(t, wallet.ID.String(), evt.AggregateID)
	assert.Equal(t, correlationID.String(), evt.CorrelationID)
	assert.Equal(t, sharedDomain.OutboxStatusPending, evt.Status)

	base := decodeEnvelope(t, evt)
	assert.Equal(t, domain.WalletCreated, base.Type)

	assert.Equal(t, []string{domain.WalletCreated}, bridge.events)
}

func TestCreateWallet_GeneratesCorrelationIDWhenMissing(t *testing.T) {
	repo := mocks.NewInMemoryWalletRepo()
	service := newService(repo, &fakeSagaBridge{})

	_, err := service.CreateWallet(context.Background(), uuid.New(), "ahorros", uuid.Nil)

	assert.NoError(t, err)
	assert.Len(t, repo.Outbox, 1)
	assert.NotEmpty(t, repo.Outbox[0].CorrelationID)
	assert.NotEqual(t, uuid.Nil.String(), repo.Outbox[0].CorrelationID)
}

func TestAddFunds_UpdatesBalanceAndAppendsEvent(t *testing.T) {
	// ARRANGE
	repo := mocks.NewInMemoryWalletRepo()
	bridge := &fakeSagaBridge{}
	service := newService(repo, bridge)
	wallet, err := service.CreateWallet(context.Background(), uuid.New(), "ahorros", uuid.New())
	assert.NoError(t, err)

	// ACT
	updated, err := service.AddFunds(context.Background(), wallet.ID, 2500, uuid.New())

	// ASSERT
	assert.NoError(t, err)
	assert.Equal(t, int64(2500), updated.Balance)
	assert.Len(t, repo.Outbox, 2)
	assert.Equal(t, domain.FundsAdded, repo.Outbox[1].EventType)
	assert.Equal(t, []string{domain.WalletCreated, domain.FundsAdded}, bridge.events)
}

func TestWithdrawFunds_InsufficientFundsLeavesNoTrace(t *testing.T) {
	// ARRANGE: wallet con 100 unidades.
	repo := mocks.NewInMemoryWalletRepo()
	bridge := &fakeSagaBridge{}
	service := newService(repo, bridge)
	wallet, err := service.CreateWallet(context.Background(), uuid.New(), "ahorros", uuid.New())
	assert.NoError(t, err)
	_, err = service.AddFunds(context.Background(), wallet.ID, 100, uuid.New())
	assert.NoError(t, err)

	outboxLen := len(repo.Outbox)
	signals := len(bridge.events)

	// ACT
	_, err = service.WithdrawFunds(context.Background(), wallet.ID, 500, uuid.New())

	// ASSERT: ni mutación, ni evento, ni señal de saga.
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Len(t, repo.Outbox, outboxLen)
	assert.Len(t, bridge.events, signals)

	got, err := service.GetWallet(context.Background(), wallet.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(100), got.Balance)
}

func TestTransferFunds_MovesBalanceAtomically(t *testing.T) {
	// ARRANGE
	repo := mocks.NewInMemoryWalletRepo()
	bridge := &fakeSagaBridge{}
	service := newService(repo, bridge)

	from, err := service.CreateWallet(context.Background(), uuid.New(), "origen", uuid.New())
	assert.NoError(t, err)
	to, err := service.CreateWallet(context.Background(), uuid.New(), "destino", uuid.New())
	assert.NoError(t, err)
	_, err = service.AddFunds(context.Background(), from.ID, 1000, uuid.New())
	assert.NoError(t, err)

	// ACT
	err = service.TransferFunds(context.Background(), from.ID, to.ID, 400, uuid.New())

	// ASSERT
	assert.NoError(t, err)

	gotFrom, _ := service.GetWallet(context.Background(), from.ID)
	gotTo, _ := service.GetWallet(context.Background(), to.ID)
	assert.Equal(t, int64(600), gotFrom.Balance)
	assert.Equal(t, int64(400), gotTo.Balance)

	last := repo.Outbox[len(repo.Outbox)-1]
	assert.Equal(t, domain.FundsTransferred, last.EventType)
}

func TestTransferFunds_SameWalletRejected(t *testing.T) {
	repo := mocks.NewInMemoryWalletRepo()
	service := newService(repo, &fakeSagaBridge{})
	id := uuid.New()

	err := service.TransferFunds(context.Background(), id, id, 100, uuid.New())

	assert.ErrorIs(t, err, domain.ErrInvalidWallet)
}

func TestTransferFunds_InsufficientFundsAbortsBothSides(t *testing.T) {
	// ARRANGE
	repo := mocks.NewInMemoryWalletRepo()
	service := newService(repo, &fakeSagaBridge{})

	from, err := service.CreateWallet(context.Background(), uuid.New(), "origen", uuid.New())
	assert.NoError(t, err)
	to, err := service.CreateWallet(context.Background(), uuid.New(), "destino", uuid.New())
	assert.NoError(t, err)

	// ACT
	err = service.TransferFunds(context.Background(), from.ID, to.ID, 100, uuid.New())

	// ASSERT
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	gotTo, _ := service.GetWallet(context.Background(), to.ID)
	assert.Equal(t, int64(0), gotTo.Balance)
}

func TestCompleteWorkflow_AppendsEventWithoutMutation(t *testing.T) {
	// ARRANGE
	repo := mocks.NewInMemoryWalletRepo()
	bridge := &fakeSagaBridge{}
	service := newService(repo, bridge)
	correlationID := uuid.New()

	// ACT
	err := service.CompleteWorkflow(context.Background(), correlationID)

	// ASSERT
	assert.NoError(t, err)
	assert.Len(t, repo.Outbox, 1)
	assert.Equal(t, domain.WorkflowCompleted, repo.Outbox[0].EventType)
	assert.Empty(t, repo.Wallets)
	assert.Equal(t, []string{domain.WorkflowCompleted}, bridge.events)
}

func TestFailWorkflow_CarriesReason(t *testing.T) {
	repo := mocks.NewInMemoryWalletRepo()
	service := newService(repo, &fakeSagaBridge{})

	err := service.FailWorkflow(context.Background(), uuid.New(), "kyc rejected")
	assert.NoError(t, err)

	base := decodeEnvelope(t, repo.Outbox[0])
	assert.Equal(t, domain.WorkflowFailed, base.Type)

	var payload domain.WorkflowEndedEvent
	assert.NoError(t, json.Unmarshal(base.Data, &payload))
	assert.Equal(t, "kyc rejected", payload.Reason)
}

func TestSagaBridgeErrorDoesNotFailBusinessOperation(t *testing.T) {
	// ARRANGE: el puente de sagas rechaza todo.
	repo := mocks.NewInMemoryWalletRepo()
	bridge := &fakeSagaBridge{err: sagaDomain.ErrInvalidTransition}
	service := newService(repo, bridge)

	// ACT
	wallet, err := service.CreateWallet(context.Background(), uuid.New(), "ahorros", uuid.New())

	// ASSERT: la transacción de negocio ya confirmó; la saga solo se loguea.
	assert.NoError(t, err)
	assert.NotNil(t, wallet)
	assert.Len(t, repo.Outbox, 1)
}

func TestGetWallet_NotFound(t *testing.T) {
	repo := mocks.NewInMemoryWalletRepo()
	service := newService(repo, nil)

	_, err := service.GetWallet(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}
