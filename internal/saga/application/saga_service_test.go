package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	sagaDomain "github.com/blocodev/wallethub/internal/saga/domain"
	walletDomain "github.com/blocodev/wallethub/internal/wallet/domain"
	"github.com/blocodev/wallethub/tests/mocks"
)

func TestSignal_CreatesSagaOnWalletCreated(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockSagaRepository)
	service := NewService(repo, zap.NewNop())
	sagaID := uuid.New()

	repo.On("GetByID", mock.Anything, sagaID).Return(nil, sagaDomain.ErrSagaNotFound).Once()
	repo.On("Save", mock.Anything, mock.MatchedBy(func(i *sagaDomain.SagaInstance) bool {
		return i.SagaID == sagaID && i.CurrentState == sagaDomain.StateWalletCreated
	})).Return(nil).Once()

	// ACT
	state, err := service.Signal(context.Background(), sagaID, sagaDomain.SignalWalletCreated)

	// ASSERT
	assert.NoError(t, err)
	assert.Equal(t, sagaDomain.StateWalletCreated, state)
	repo.AssertExpectations(t)
}

func TestSignal_UnknownSagaRejectedForNonCreatingSignal(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockSagaRepository)
	service := NewService(repo, zap.NewNop())
	sagaID := uuid.New()

	repo.On("GetByID", mock.Anything, sagaID).Return(nil, sagaDomain.ErrSagaNotFound).Once()

	// ACT
	_, err := service.Signal(context.Background(), sagaID, sagaDomain.SignalFundsAdded)

	// ASSERT: ninguna instancia implícita, ningún Save.
	assert.ErrorIs(t, err, sagaDomain.ErrSagaNotFound)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSignal_InvalidTransitionDoesNotPersist(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockSagaRepository)
	service := NewService(repo, zap.NewNop())
	sagaID := uuid.New()

	repo.On("GetByID", mock.Anything, sagaID).Return(&sagaDomain.SagaInstance{
		SagaID:       sagaID,
		CurrentState: sagaDomain.StateWalletCreated,
	}, nil).Once()

	// ACT
	state, err := service.Signal(context.Background(), sagaID, sagaDomain.SignalFundsTransferred)

	// ASSERT
	assert.ErrorIs(t, err, sagaDomain.ErrInvalidTransition)
	assert.Equal(t, sagaDomain.StateWalletCreated, state)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSignal_PersistErrorSurfacesToCaller(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockSagaRepository)
	service := NewService(repo, zap.NewNop())
	sagaID := uuid.New()
	dbErr := errors.New("disk full")

	repo.On("GetByID", mock.Anything, sagaID).Return(nil, sagaDomain.ErrSagaNotFound).Once()
	repo.On("Save", mock.Anything, mock.Anything).Return(dbErr).Once()

	// ACT
	_, err := service.Signal(context.Background(), sagaID, sagaDomain.SignalWalletCreated)

	// ASSERT: si el estado no quedó durable, el caller debe enterarse.
	assert.ErrorIs(t, err, dbErr)
}

func TestSignal_NilCorrelationRejected(t *testing.T) {
	repo := new(mocks.MockSagaRepository)
	service := NewService(repo, zap.NewNop())

	_, err := service.Signal(context.Background(), uuid.Nil, sagaDomain.SignalWalletCreated)

	assert.ErrorIs(t, err, sagaDomain.ErrInvalidCorrelation)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestSignal_ConcurrentSignalsSameSagaSerialized(t *testing.T) {
	// ARRANGE: repo en memoria real, sin guion de mock, para dejar que las
	// goroutines compitan de verdad por la misma saga.
	repo := mocks.NewInMemorySagaRepo()
	service := NewService(repo, zap.NewNop())
	sagaID := uuid.New()

	_, err := service.Signal(context.Background(), sagaID, sagaDomain.SignalWalletCreated)
	assert.NoError(t, err)

	// ACT: N señales FUNDS_ADDED concurrentes sobre la misma saga.
	const n = 16
	var wg sync.WaitGroup
	okCount := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.Signal(context.Background(), sagaID, sagaDomain.SignalFundsAdded); err == nil {
				okCount <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(okCount)

	// ASSERT: exactamente una gana, el resto rebota en la tabla de
	// transiciones. El estado final es consistente.
	wins := 0
	for range okCount {
		wins++
	}
	assert.Equal(t, 1, wins)

	state, err := service.GetState(context.Background(), sagaID)
	assert.NoError(t, err)
	assert.Equal(t, sagaDomain.StateFundsAdded, state)
}

func TestHandleEvent_MapsDomainEventsToSignals(t *testing.T) {
	// ARRANGE
	repo := mocks.NewInMemorySagaRepo()
	service := NewService(repo, zap.NewNop())
	sagaID := uuid.New()

	events := []string{
		walletDomain.WalletCreated,
		walletDomain.FundsAdded,
		walletDomain.FundsWithdrawn,
		walletDomain.FundsTransferred,
		walletDomain.WorkflowCompleted,
	}

	// ACT
	var last sagaDomain.State
	for _, evt := range events {
		state, err := service.HandleEvent(context.Background(), evt, sagaID.String())
		assert.NoError(t, err, evt)
		last = state
	}

	// ASSERT
	assert.Equal(t, sagaDomain.StateCompleted, last)
}

func TestHandleEvent_UnknownEventType(t *testing.T) {
	repo := new(mocks.MockSagaRepository)
	service := NewService(repo, zap.NewNop())

	_, err := service.HandleEvent(context.Background(), "user.created", uuid.New().String())

	assert.ErrorIs(t, err, sagaDomain.ErrUnknownEventType)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestHandleEvent_MalformedCorrelationID(t *testing.T) {
	repo := new(mocks.MockSagaRepository)
	service := NewService(repo, zap.NewNop())

	_, err := service.HandleEvent(context.Background(), walletDomain.WalletCreated, "not-a-uuid")

	assert.ErrorIs(t, err, sagaDomain.ErrInvalidCorrelation)
}

func TestHandleEvent_WorkflowFailedConverges(t *testing.T) {
	// ARRANGE: saga a mitad de camino.
	repo := mocks.NewInMemorySagaRepo()
	service := NewService(repo, zap.NewNop())
	sagaID := uuid.New()

	_, err := service.HandleEvent(context.Background(), walletDomain.WalletCreated, sagaID.String())
	assert.NoError(t, err)
	_, err = service.HandleEvent(context.Background(), walletDomain.FundsAdded, sagaID.String())
	assert.NoError(t, err)

	// ACT
	state, err := service.HandleEvent(context.Background(), walletDomain.WorkflowFailed, sagaID.String())

	// ASSERT
	assert.NoError(t, err)
	assert.Equal(t, sagaDomain.StateFailed, state)

	// Una saga FAILED ya no acepta nada.
	_, err = service.HandleEvent(context.Background(), walletDomain.FundsWithdrawn, sagaID.String())
	assert.ErrorIs(t, err, sagaDomain.ErrInvalidTransition)
}
