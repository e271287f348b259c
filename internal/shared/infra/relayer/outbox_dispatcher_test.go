package relayer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	sharedDomain "github.com/blocodev/wallethub/internal/shared/domain"
	walletDomain "github.com/blocodev/wallethub/internal/wallet/domain"
	"github.com/blocodev/wallethub/tests/mocks"
)

func newTestEvent(eventType string) sharedDomain.OutboxEvent {
	return sharedDomain.NewOutboxEvent("wallet", uuid.New().String(), eventType, []byte(`{}`), uuid.New().String())
}

func TestDispatcher_ProcessBatch_Success(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	evt := newTestEvent(walletDomain.WalletCreated)

	repo.On("FetchUnsent", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil).Once()
	publisher.On("Publish", mock.Anything, walletDomain.WalletTopic, []byte(evt.AggregateID), evt.Payload).Return(nil).Once()
	repo.On("MarkSent", mock.Anything, evt.ID).Return(nil).Once()

	d := NewDispatcher(repo, publisher, walletDomain.TopicRegistry(), time.Second, 10, time.Second, zap.NewNop())

	// ACT
	d.ProcessBatch(context.Background())

	// ASSERT
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestDispatcher_ProcessBatch_PublisherFails(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	evt := newTestEvent(walletDomain.FundsAdded)

	repo.On("FetchUnsent", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("kafka is down")).Once()

	d := NewDispatcher(repo, publisher, walletDomain.TopicRegistry(), time.Second, 10, time.Second, zap.NewNop())

	// ACT
	d.ProcessBatch(context.Background())

	// ASSERT: el evento queda PENDING, sin MarkSent.
	repo.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything)
}

func TestDispatcher_ProcessBatch_OneFailureDoesNotAbortBatch(t *testing.T) {
	// ARRANGE: dos eventos, falla la publicación del primero.
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	bad := newTestEvent(walletDomain.FundsAdded)
	good := newTestEvent(walletDomain.FundsWithdrawn)

	repo.On("FetchUnsent", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{bad, good}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything, []byte(bad.AggregateID), mock.Anything).Return(errors.New("boom")).Once()
	publisher.On("Publish", mock.Anything, mock.Anything, []byte(good.AggregateID), mock.Anything).Return(nil).Once()
	repo.On("MarkSent", mock.Anything, good.ID).Return(nil).Once()

	d := NewDispatcher(repo, publisher, walletDomain.TopicRegistry(), time.Second, 10, time.Second, zap.NewNop())

	// ACT
	d.ProcessBatch(context.Background())

	// ASSERT
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkSent", mock.Anything, bad.ID)
}

func TestDispatcher_ProcessBatch_MarkSentFails(t *testing.T) {
	// ARRANGE: el evento se publica pero no se puede marcar. No explota;
	// el siguiente ciclo lo republica (entrega al menos una vez).
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	evt := newTestEvent(walletDomain.FundsTransferred)

	repo.On("FetchUnsent", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("MarkSent", mock.Anything, evt.ID).Return(errors.New("db gone")).Once()

	d := NewDispatcher(repo, publisher, walletDomain.TopicRegistry(), time.Second, 10, time.Second, zap.NewNop())

	// ACT
	d.ProcessBatch(context.Background())

	// ASSERT
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestDispatcher_TopicFallbackToEventType(t *testing.T) {
	// ARRANGE: tipo de evento sin entrada en el registro.
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	evt := newTestEvent("audit.trail")

	repo.On("FetchUnsent", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil).Once()
	publisher.On("Publish", mock.Anything, "audit.trail", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("MarkSent", mock.Anything, evt.ID).Return(nil).Once()

	d := NewDispatcher(repo, publisher, walletDomain.TopicRegistry(), time.Second, 10, time.Second, zap.NewNop())

	// ACT
	d.ProcessBatch(context.Background())

	// ASSERT
	publisher.AssertExpectations(t)
}

// blockingPublisher se queda parado en Publish hasta que lo liberen.
type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *blockingPublisher) Publish(ctx context.Context, topic string, key, payload []byte) error {
	p.once.Do(func() { close(p.entered) })
	<-p.release
	return nil
}

func TestDispatcher_ProcessBatch_SingleFlight(t *testing.T) {
	// ARRANGE: un ciclo colgado en Publish y un segundo tick encima.
	repo := new(mocks.MockOutboxRepository)
	publisher := &blockingPublisher{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	evt := newTestEvent(walletDomain.WalletCreated)

	repo.On("FetchUnsent", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil).Once()
	repo.On("MarkSent", mock.Anything, evt.ID).Return(nil).Once()

	d := NewDispatcher(repo, publisher, walletDomain.TopicRegistry(), time.Second, 10, time.Second, zap.NewNop())

	done := make(chan struct{})
	go func() {
		d.ProcessBatch(context.Background())
		close(done)
	}()
	<-publisher.entered

	// ACT: segundo ciclo mientras el primero sigue en vuelo.
	d.ProcessBatch(context.Background())

	// ASSERT: el segundo ciclo no tocó el repo; FetchUnsent solo se llamó
	// para el primero.
	repo.AssertNumberOfCalls(t, "FetchUnsent", 1)

	close(publisher.release)
	<-done
	repo.AssertExpectations(t)
}

func TestDispatcher_ProcessBatch_RecorderReceivesDispatched(t *testing.T) {
	// ARRANGE: dos eventos, uno falla; el recorder solo ve el publicado.
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)
	recorder := new(mocks.MockDispatchRecorder)

	ok := newTestEvent(walletDomain.WalletCreated)
	bad := newTestEvent(walletDomain.FundsAdded)

	repo.On("FetchUnsent", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{ok, bad}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything, []byte(ok.AggregateID), mock.Anything).Return(nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything, []byte(bad.AggregateID), mock.Anything).Return(errors.New("boom")).Once()
	repo.On("MarkSent", mock.Anything, ok.ID).Return(nil).Once()
	recorder.On("RecordBatch", mock.Anything, mock.MatchedBy(func(events []sharedDomain.OutboxEvent) bool {
		return len(events) == 1 && events[0].ID == ok.ID
	})).Return(nil).Once()

	d := NewDispatcher(repo, publisher, walletDomain.TopicRegistry(), time.Second, 10, time.Second, zap.NewNop()).
		WithRecorder(recorder)

	// ACT
	d.ProcessBatch(context.Background())

	// ASSERT
	recorder.AssertExpectations(t)
}

func TestDispatcher_StartStop(t *testing.T) {
	// ARRANGE: intervalo corto para ver al menos un tick.
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	fetched := make(chan struct{}, 1)
	repo.On("FetchUnsent", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{}, nil).Run(func(args mock.Arguments) {
		select {
		case fetched <- struct{}{}:
		default:
		}
	})

	d := NewDispatcher(repo, publisher, walletDomain.TopicRegistry(), 10*time.Millisecond, 10, time.Second, zap.NewNop())

	// ACT
	d.Start(context.Background())

	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("el dispatcher nunca hizo polling")
	}

	d.Stop()

	// ASSERT: tras Stop no hay más ciclos.
	calls := len(repo.Calls)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, len(repo.Calls))
}
