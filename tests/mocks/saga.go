package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	sagaDomain "github.com/blocodev/wallethub/internal/saga/domain"
)

// MockSagaRepository simula la persistencia de sagas con testify.
type MockSagaRepository struct {
	mock.Mock
}

func (m *MockSagaRepository) GetByID(ctx context.Context, sagaID uuid.UUID) (*sagaDomain.SagaInstance, error) {
	args := m.Called(ctx, sagaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sagaDomain.SagaInstance), args.Error(1)
}

func (m *MockSagaRepository) Save(ctx context.Context, instance *sagaDomain.SagaInstance) error {
	args := m.Called(ctx, instance)
	return args.Error(0)
}

// InMemorySagaRepo simula SagaRepository con un mapa protegido por mutex.
// Útil para tests de concurrencia donde el guion de un mock se queda corto.
type InMemorySagaRepo struct {
	mu    sync.Mutex
	sagas map[uuid.UUID]sagaDomain.SagaInstance

	// SaveCount cuenta los Save realizados, para aserciones de persistencia.
	SaveCount int
}

func NewInMemorySagaRepo() *InMemorySagaRepo {
	return &InMemorySagaRepo{sagas: make(map[uuid.UUID]sagaDomain.SagaInstance)}
}

func (r *InMemorySagaRepo) GetByID(ctx context.Context, sagaID uuid.UUID) (*sagaDomain.SagaInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	instance, ok := r.sagas[sagaID]
	if !ok {
		return nil, sagaDomain.ErrSagaNotFound
	}
	copied := instance
	return &copied, nil
}

func (r *InMemorySagaRepo) Save(ctx context.Context, instance *sagaDomain.SagaInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sagas[instance.SagaID] = *instance
	r.SaveCount++
	return nil
}
