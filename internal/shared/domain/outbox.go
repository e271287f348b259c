package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Estados posibles de un evento en la tabla outbox.
// Un evento nace PENDING y pasa a SENT exactamente una vez; nunca vuelve atrás.
const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
)

// OutboxEvent representa un evento pendiente de publicar en el broker.
type OutboxEvent struct {
	ID            uuid.UUID  `json:"id"`
	AggregateType string     `json:"aggregate_type"` // ej. "wallet"
	AggregateID   string     `json:"aggregate_id"`
	EventType     string     `json:"event_type"` // ej. "wallet.created"
	Payload       []byte     `json:"payload"`    // JSON serializado
	CorrelationID string     `json:"correlation_id"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
}

// NewOutboxEvent construye un evento PENDING listo para insertar.
func NewOutboxEvent(aggregateType, aggregateID, eventType string, payload []byte, correlationID string) OutboxEvent {
	return OutboxEvent{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CorrelationID: correlationID,
		Status:        OutboxStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}

// OutboxRepository define el contrato que necesita el dispatcher.
// Es una interfaz más pequeña que la de un repositorio completo,
// conteniendo solo los métodos del ciclo de publicación.
type OutboxRepository interface {
	// FetchUnsent devuelve eventos PENDING ordenados por created_at ascendente.
	FetchUnsent(ctx context.Context, limit int) ([]OutboxEvent, error)

	// MarkSent marca el evento como SENT. Idempotente: repetir la llamada
	// sobre un evento ya SENT no es un error. Un id desconocido sí lo es.
	MarkSent(ctx context.Context, id uuid.UUID) error
}

// OutboxAppender es el puerto para la capa de negocio: inserta el evento
// dentro de la transacción SQL del caller. Si la transacción hace rollback,
// el evento nunca existe.
type OutboxAppender interface {
	AppendTx(ctx context.Context, tx *sql.Tx, evt OutboxEvent) error
}
