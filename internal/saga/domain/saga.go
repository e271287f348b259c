package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ---------- Errores de dominio ----------
var (
	ErrSagaNotFound       = errors.New("saga not found")
	ErrInvalidTransition  = errors.New("invalid saga transition")
	ErrUnknownEventType   = errors.New("unknown event type for saga")
	ErrInvalidCorrelation = errors.New("invalid correlation id")
)

// State es el estado actual de una saga de wallet.
type State string

const (
	StateInitial          State = "INITIAL"
	StateWalletCreated    State = "WALLET_CREATED"
	StateFundsAdded       State = "FUNDS_ADDED"
	StateFundsWithdrawn   State = "FUNDS_WITHDRAWN"
	StateFundsTransferred State = "FUNDS_TRANSFERRED"
	StateCompleted        State = "COMPLETED"
	StateFailed           State = "FAILED"
)

// Signal es un evento que hace avanzar la saga.
type Signal string

const (
	SignalWalletCreated    Signal = "WALLET_CREATED"
	SignalFundsAdded       Signal = "FUNDS_ADDED"
	SignalFundsWithdrawn   Signal = "FUNDS_WITHDRAWN"
	SignalFundsTransferred Signal = "FUNDS_TRANSFERRED"
	SignalSagaCompleted    Signal = "SAGA_COMPLETED"
	SignalSagaFailed       Signal = "SAGA_FAILED"
)

// IsTerminal indica si el estado no acepta más señales.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Transition aplica la tabla de transiciones de la saga de wallet.
//
// Camino feliz:
//
//	INITIAL → WALLET_CREATED → FUNDS_ADDED → FUNDS_WITHDRAWN →
//	FUNDS_TRANSFERRED → COMPLETED
//
// Desde cualquier estado no terminal, SAGA_FAILED lleva a FAILED.
// Cualquier otra combinación devuelve ErrInvalidTransition y el estado
// original sin modificar. La tabla es un switch explícito a propósito:
// añadir o quitar un estado/señal debe ser un cambio visible en compilación,
// no una entrada de configuración.
func Transition(current State, signal Signal) (State, error) {
	if current.IsTerminal() {
		return current, fmt.Errorf("%w: state %s is terminal, rejected signal %s", ErrInvalidTransition, current, signal)
	}

	if signal == SignalSagaFailed {
		// Falla incondicional: se descarta el progreso parcial.
		return StateFailed, nil
	}

	switch current {
	case StateInitial:
		if signal == SignalWalletCreated {
			return StateWalletCreated, nil
		}
	case StateWalletCreated:
		if signal == SignalFundsAdded {
			return StateFundsAdded, nil
		}
	case StateFundsAdded:
		if signal == SignalFundsWithdrawn {
			return StateFundsWithdrawn, nil
		}
	case StateFundsWithdrawn:
		if signal == SignalFundsTransferred {
			return StateFundsTransferred, nil
		}
	case StateFundsTransferred:
		if signal == SignalSagaCompleted {
			return StateCompleted, nil
		}
	}

	return current, fmt.Errorf("%w: state %s does not accept signal %s", ErrInvalidTransition, current, signal)
}

// SagaInstance es el estado persistido de una saga, identificada por el
// correlation id que enhebra todos sus eventos.
type SagaInstance struct {
	SagaID       uuid.UUID `json:"saga_id"`
	CurrentState State     `json:"current_state"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSagaInstance crea una instancia en estado INITIAL.
func NewSagaInstance(sagaID uuid.UUID) *SagaInstance {
	return &SagaInstance{
		SagaID:       sagaID,
		CurrentState: StateInitial,
		UpdatedAt:    time.Now().UTC(),
	}
}

// ---------- Interfaces (Ports) ----------

// SagaRepository define la persistencia del estado de sagas.
type SagaRepository interface {
	// Debe devolver ErrSagaNotFound si no existe.
	GetByID(ctx context.Context, sagaID uuid.UUID) (*SagaInstance, error)

	// Save hace upsert de la instancia.
	Save(ctx context.Context, instance *SagaInstance) error
}
