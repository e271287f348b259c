package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"

	sharedDomain "github.com/blocodev/wallethub/internal/shared/domain"
)

// OutboxRepoSQLite implementa los puertos de outbox sobre SQLite.
type OutboxRepoSQLite struct {
	db *sql.DB
}

func NewOutboxRepoSQLite(db *sql.DB) *OutboxRepoSQLite {
	return &OutboxRepoSQLite{db: db}
}

// InitSchema crea la tabla outbox si no existe. La columna seq desempata
// eventos insertados en la misma transacción con el mismo created_at,
// preservando el orden FIFO por agregado.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS outbox (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT UNIQUE NOT NULL,
            aggregate_type TEXT NOT NULL,
            aggregate_id TEXT NOT NULL,
            event_type TEXT NOT NULL,
            payload TEXT NOT NULL,
            correlation_id TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'PENDING',
            created_at DATETIME NOT NULL,
            sent_at DATETIME
        );
        CREATE INDEX IF NOT EXISTS idx_outbox_created_at ON outbox(created_at);
    `)
	return err
}

// AppendTx inserta el evento dentro de la transacción del caller.
func (r *OutboxRepoSQLite) AppendTx(ctx context.Context, tx *sql.Tx, evt sharedDomain.OutboxEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO outbox (id,aggregate_type,aggregate_id,event_type,payload,correlation_id,status,created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		evt.ID.String(), evt.AggregateType, evt.AggregateID, evt.EventType,
		string(evt.Payload), evt.CorrelationID, sharedDomain.OutboxStatusPending, evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// FetchUnsent obtiene los eventos PENDING ordenados por created_at.
func (r *OutboxRepoSQLite) FetchUnsent(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_type, aggregate_id, event_type, payload, correlation_id, status, created_at, sent_at
         FROM outbox
         WHERE status = ?
         ORDER BY created_at, seq
         LIMIT ?`, sharedDomain.OutboxStatusPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []sharedDomain.OutboxEvent
	for rows.Next() {
		var evt sharedDomain.OutboxEvent
		var idStr, payloadStr string
		var sentAt sql.NullTime

		if err := rows.Scan(&idStr, &evt.AggregateType, &evt.AggregateID, &evt.EventType,
			&payloadStr, &evt.CorrelationID, &evt.Status, &evt.CreatedAt, &sentAt); err != nil {
			return nil, err
		}

		// El ID se guarda como TEXT, lo parseamos de nuevo.
		parsedID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID in outbox row: %w", err)
		}
		evt.ID = parsedID
		evt.Payload = []byte(payloadStr)
		if sentAt.Valid {
			t := sentAt.Time
			evt.SentAt = &t
		}

		events = append(events, evt)
	}

	return events, rows.Err()
}

// MarkSent marca un evento como SENT. Idempotente: si el evento ya estaba
// SENT la llamada es un no-op exitoso; solo un id inexistente es error.
func (r *OutboxRepoSQLite) MarkSent(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET status = ?, sent_at = ? WHERE id = ? AND status = ?`,
		sharedDomain.OutboxStatusSent, time.Now().UTC(), id.String(), sharedDomain.OutboxStatusPending,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows == 0 {
		// Cero filas: o el evento ya estaba SENT (ok) o el id no existe (error).
		var status string
		err := r.db.QueryRowContext(ctx, `SELECT status FROM outbox WHERE id = ?`, id.String()).Scan(&status)
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
var _ sharedDomain.OutboxRepository = (*OutboxRepoSQLite)(nil)
var _ sharedDomain.OutboxAppender = (*OutboxRepoSQLite)(nil)
