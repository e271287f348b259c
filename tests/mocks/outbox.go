package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	sharedDomain "github.com/blocodev/wallethub/internal/shared/domain"
)

// MockOutboxRepository simula el repo de outbox que usa el dispatcher.
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) FetchUnsent(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]sharedDomain.OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPublisher simula un publisher de broker.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, key, payload []byte) error {
	args := m.Called(ctx, topic, key, payload)
	return args.Error(0)
}

// MockDispatchRecorder simula el sink analítico de eventos despachados.
type MockDispatchRecorder struct {
	mock.Mock
}

func (m *MockDispatchRecorder) RecordBatch(ctx context.Context, events []sharedDomain.OutboxEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}
