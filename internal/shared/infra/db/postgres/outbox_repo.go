package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // Driver de PostgreSQL

	sharedDomain "github.com/blocodev/wallethub/internal/shared/domain"
)

// OutboxRepoPostgres implementa los puertos de outbox sobre PostgreSQL.
type OutboxRepoPostgres struct {
	db *sql.DB
}

func NewOutboxRepoPostgres(db *sql.DB) *OutboxRepoPostgres {
	return &OutboxRepoPostgres{db: db}
}

// InitSchema crea la tabla outbox si no existe.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS outbox (
            seq BIGSERIAL PRIMARY KEY,
            id UUID UNIQUE NOT NULL,
            aggregate_type TEXT NOT NULL,
            aggregate_id TEXT NOT NULL,
            event_type TEXT NOT NULL,
            payload JSONB NOT NULL,
            correlation_id TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'PENDING',
            created_at TIMESTAMPTZ NOT NULL,
            sent_at TIMESTAMPTZ
        );
        CREATE INDEX IF NOT EXISTS idx_outbox_created_at ON outbox(created_at);
    `)
	return err
}

// AppendTx inserta el evento dentro de la transacción del caller.
func (r *OutboxRepoPostgres) AppendTx(ctx context.Context, tx *sql.Tx, evt sharedDomain.OutboxEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO outbox (id,aggregate_type,aggregate_id,event_type,payload,correlation_id,status,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		evt.ID, evt.AggregateType, evt.AggregateID, evt.EventType,
		evt.Payload, evt.CorrelationID, sharedDomain.OutboxStatusPending, evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// FetchUnsent obtiene los eventos PENDING ordenados por created_at.
func (r *OutboxRepoPostgres) FetchUnsent(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_type, aggregate_id, event_type, payload, correlation_id, status, created_at, sent_at
		 FROM outbox WHERE status=$1 ORDER BY created_at, seq LIMIT $2`,
		sharedDomain.OutboxStatusPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []sharedDomain.OutboxEvent
	for rows.Next() {
		var evt sharedDomain.OutboxEvent
		var payloadBytes []byte // El payload se lee como JSONB
		var sentAt sql.NullTime

		if err := rows.Scan(&evt.ID, &evt.AggregateType, &evt.AggregateID, &evt.EventType,
			&payloadBytes, &evt.CorrelationID, &evt.Status, &evt.CreatedAt, &sentAt); err != nil {
			return nil, err
		}
		evt.Payload = payloadBytes
		if sentAt.Valid {
			t := sentAt.Time
			evt.SentAt = &t
		}

		events = append(events, evt)
	}

	return events, rows.Err()
}

// MarkSent marca un evento como SENT de forma idempotente.
func (r *OutboxRepoPostgres) MarkSent(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET status=$1, sent_at=$2 WHERE id=$3 AND status=$4`,
		sharedDomain.OutboxStatusSent, time.Now().UTC(), id, sharedDomain.OutboxStatusPending,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows == 0 {
		var status string
		err := r.db.QueryRowContext(ctx, `SELECT status FROM outbox WHERE id=$1`, id).Scan(&status)
		if err == sql.ErrNoRows {
			return fmt.Errorf("outbox event not found: %s", id)
		}
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

// Verificación en tiempo de compilación.
var _ sharedDomain.OutboxRepository = (*OutboxRepoPostgres)(nil)
var _ sharedDomain.OutboxAppender = (*OutboxRepoPostgres)(nil)
