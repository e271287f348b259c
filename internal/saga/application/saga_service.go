package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sagaDomain "github.com/blocodev/wallethub/internal/saga/domain"
	walletDomain "github.com/blocodev/wallethub/internal/wallet/domain"
)

// Service es el puente entre los eventos de dominio y la máquina de estados:
// carga la instancia por correlation id, aplica la transición y persiste el
// resultado antes de devolver.
type Service struct {
	repo  sagaDomain.SagaRepository
	log   *zap.Logger
	locks sync.Map // sagaID → *sync.Mutex
}

// NewService constructor
func NewService(repo sagaDomain.SagaRepository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// lockFor serializa señales concurrentes del mismo sagaID. Señales de
// sagas distintas avanzan en paralelo.
func (s *Service) lockFor(sagaID uuid.UUID) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(sagaID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Signal avanza la saga identificada por correlationID.
//
// La instancia se crea implícitamente en INITIAL solo cuando la señal es
// WALLET_CREATED; cualquier otra señal sobre una saga inexistente es un
// error de integridad (ErrSagaNotFound). El nuevo estado queda persistido
// antes de devolver, así una saga a medio vuelo retoma exactamente donde
// estaba tras un reinicio.
func (s *Service) Signal(ctx context.Context, correlationID uuid.UUID, signal sagaDomain.Signal) (sagaDomain.State, error) {
	if correlationID == uuid.Nil {
		return "", sagaDomain.ErrInvalidCorrelation
	}

	mu := s.lockFor(correlationID)
	mu.Lock()
	defer mu.Unlock()

	instance, err := s.repo.GetByID(ctx, correlationID)
	if err != nil {
		if err != sagaDomain.ErrSagaNotFound {
			return "", fmt.Errorf("loading saga %s: %w", correlationID, err)
		}
		if signal != sagaDomain.SignalWalletCreated {
			return "", fmt.Errorf("%w: signal %s for unknown saga %s", sagaDomain.ErrSagaNotFound, signal, correlationID)
		}
		instance = sagaDomain.NewSagaInstance(correlationID)
	}

	next, err := sagaDomain.Transition(instance.CurrentState, signal)
	if err != nil {
		s.log.Warn("⚠️ Transición de saga rechazada",
			zap.String("saga_id", correlationID.String()),
			zap.String("state", string(instance.CurrentState)),
			zap.String("signal", string(signal)),
		)
		return instance.CurrentState, err
	}

	instance.CurrentState = next
	instance.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, instance); err != nil {
		return "", fmt.Errorf("persisting saga %s: %w", correlationID, err)
	}

	s.log.Info("✅ Saga avanzada",
		zap.String("saga_id", correlationID.String()),
		zap.String("state", string(next)),
		zap.String("signal", string(signal)),
	)
	return next, nil
}

// GetState devuelve el estado actual de la saga.
func (s *Service) GetState(ctx context.Context, correlationID uuid.UUID) (sagaDomain.State, error) {
	instance, err := s.repo.GetByID(ctx, correlationID)
	if err != nil {
		return "", err
	}
	return instance.CurrentState, nil
}

// signalForEvent traduce un tipo de evento de dominio a su señal de saga.
func signalForEvent(eventType string) (sagaDomain.Signal, bool) {
	switch eventType {
	case walletDomain.WalletCreated:
		return sagaDomain.SignalWalletCreated, true
	case walletDomain.FundsAdded:
		return sagaDomain.SignalFundsAdded, true
	case walletDomain.FundsWithdrawn:
		return sagaDomain.SignalFundsWithdrawn, true
	case walletDomain.FundsTransferred:
		return sagaDomain.SignalFundsTransferred, true
	case walletDomain.WorkflowCompleted:
		return sagaDomain.SignalSagaCompleted, true
	case walletDomain.WorkflowFailed:
		return sagaDomain.SignalSagaFailed, true
	}
	return "", false
}

// HandleEvent alimenta la saga con un evento de dominio: mapea el tipo de
// evento a una señal y la aplica sobre la saga del correlation id.
func (s *Service) HandleEvent(ctx context.Context, eventType string, correlationID string) (sagaDomain.State, error) {
	signal, ok := signalForEvent(eventType)
	if !ok {
		return "", fmt.Errorf("%w: %s", sagaDomain.ErrUnknownEventType, eventType)
	}

	id, err := uuid.Parse(correlationID)
	if err != nil {
		return "", fmt.Errorf("%w: %q", sagaDomain.ErrInvalidCorrelation, correlationID)
	}

	return s.Signal(ctx, id, signal)
}
