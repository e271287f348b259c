package domain

import (
	"time"

	"github.com/google/uuid"
)

// Las constantes de los tipos de evento se definen aquí, como valores string.
const (
	WalletCreated     = "wallet.created"
	FundsAdded        = "wallet.funds_added"
	FundsWithdrawn    = "wallet.funds_withdrawn"
	FundsTransferred  = "wallet.funds_transferred"
	WorkflowCompleted = "wallet.workflow_completed"
	WorkflowFailed    = "wallet.workflow_failed"
)

const WalletTopic = "wallet-events"

// TopicRegistry mapea cada tipo de evento a su topic fijo en el broker.
// El dispatcher usa el tipo de evento como topic si no hay entrada.
func TopicRegistry() map[string]string {
	return map[string]string{
		WalletCreated:     WalletTopic,
		FundsAdded:        WalletTopic,
		FundsWithdrawn:    WalletTopic,
		FundsTransferred:  WalletTopic,
		WorkflowCompleted: WalletTopic,
		WorkflowFailed:    WalletTopic,
	}
}

// ---------- Payloads de eventos de integración ----------

// WalletCreatedEvent es el payload de "wallet.created".
type WalletCreatedEvent struct {
	WalletID      uuid.UUID `json:"wallet_id"`
	UserID        uuid.UUID `json:"user_id"`
	Name          string    `json:"name"`
	CorrelationID string    `json:"correlation_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// FundsMovedEvent es el payload común de depósitos y retiros.
type FundsMovedEvent struct {
	WalletID      uuid.UUID `json:"wallet_id"`
	Amount        int64     `json:"amount"`
	Balance       int64     `json:"balance"`
	CorrelationID string    `json:"correlation_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// FundsTransferredEvent es el payload de "wallet.funds_transferred".
type FundsTransferredEvent struct {
	FromWalletID  uuid.UUID `json:"from_wallet_id"`
	ToWalletID    uuid.UUID `json:"to_wallet_id"`
	Amount        int64     `json:"amount"`
	CorrelationID string    `json:"correlation_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// WorkflowEndedEvent es el payload de los eventos de fin de workflow.
type WorkflowEndedEvent struct {
	CorrelationID string    `json:"correlation_id"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
