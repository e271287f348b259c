package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	sharedDomain "github.com/blocodev/wallethub/internal/shared/domain"
	"github.com/blocodev/wallethub/internal/shared/infra/relayer"
)

// DispatchLogRepo registra en ClickHouse cada evento despachado al broker,
// para análisis de latencias y volumen por tipo de evento.
type DispatchLogRepo struct {
	db *sql.DB
}

// NewDispatchLogRepo es el constructor.
func NewDispatchLogRepo(addr string, dbName string) (*DispatchLogRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &DispatchLogRepo{db: conn}, nil
}

// RecordBatch inserta un lote de eventos despachados. ClickHouse funciona
// mejor con inserciones en lotes, así que el dispatcher entrega el ciclo
// completo de una vez.
func (r *DispatchLogRepo) RecordBatch(ctx context.Context, events []sharedDomain.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO dispatch_log (event_id, event_type, aggregate_type, aggregate_id, correlation_id, created_at, dispatched_at)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, evt := range events {
		if _, err := stmt.ExecContext(ctx,
			evt.ID.String(), evt.EventType, evt.AggregateType, evt.AggregateID,
			evt.CorrelationID, evt.CreatedAt, now,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Verificación estática
var _ relayer.DispatchRecorder = (*DispatchLogRepo)(nil)
