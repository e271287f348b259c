package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/blocodev/wallethub/internal/saga/domain"
)

// SagaRepoSQLite persiste instancias de saga en SQLite.
type SagaRepoSQLite struct {
	db *sql.DB
}

func NewSagaRepoSQLite(db *sql.DB) *SagaRepoSQLite {
	return &SagaRepoSQLite{db: db}
}

// InitSchema crea la tabla saga si no existe.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS saga (
            saga_id TEXT PRIMARY KEY,
            current_state TEXT NOT NULL,
            updated_at DATETIME NOT NULL
        )
    `)
	return err
}

// GetByID devuelve la instancia o ErrSagaNotFound.
func (r *SagaRepoSQLite) GetByID(ctx context.Context, sagaID uuid.UUID) (*domain.SagaInstance, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT saga_id, current_state, updated_at FROM saga WHERE saga_id = ?`,
		sagaID.String(),
	)

	var instance domain.SagaInstance
	var idStr, stateStr string
	if err := row.Scan(&idStr, &stateStr, &instance.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrSagaNotFound
		}
		return nil, err
	}

	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in saga row: %w", err)
	}
	instance.SagaID = parsedID
	instance.CurrentState = domain.State(stateStr)

	return &instance, nil
}

// Save hace upsert del estado actual. El estado queda durable antes de
// devolver: una saga a medio vuelo sobrevive al reinicio del proceso.
func (r *SagaRepoSQLite) Save(ctx context.Context, instance *domain.SagaInstance) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO saga (saga_id, current_state, updated_at) VALUES (?,?,?)
		 ON CONFLICT(saga_id) DO UPDATE SET current_state=excluded.current_state, updated_at=excluded.updated_at`,
		instance.SagaID.String(), string(instance.CurrentState), instance.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save saga instance: %w", err)
	}
	return nil
}

// Verificación en tiempo de compilación.
var _ domain.SagaRepository = (*SagaRepoSQLite)(nil)
