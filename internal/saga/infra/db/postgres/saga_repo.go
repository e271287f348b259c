package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // Driver de PostgreSQL

	"github.com/blocodev/wallethub/internal/saga/domain"
)

// SagaRepoPostgres persiste instancias de saga en PostgreSQL.
type SagaRepoPostgres struct {
	db *sql.DB
}

func NewSagaRepoPostgres(db *sql.DB) *SagaRepoPostgres {
	return &SagaRepoPostgres{db: db}
}

// InitSchema crea la tabla saga si no existe.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS saga (
            saga_id UUID PRIMARY KEY,
            current_state TEXT NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )
    `)
	return err
}

// GetByID devuelve la instancia o ErrSagaNotFound.
func (r *SagaRepoPostgres) GetByID(ctx context.Context, sagaID uuid.UUID) (*domain.SagaInstance, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT saga_id, current_state, updated_at FROM saga WHERE saga_id=$1`, sagaID,
	)

	var instance domain.SagaInstance
	var stateStr string
	if err := row.Scan(&instance.SagaID, &stateStr, &instance.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrSagaNotFound
		}
		return nil, err
	}
	instance.CurrentState = domain.State(stateStr)

	return &instance, nil
}

// Save hace upsert del estado actual.
func (r *SagaRepoPostgres) Save(ctx context.Context, instance *domain.SagaInstance) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO saga (saga_id, current_state, updated_at) VALUES ($1,$2,$3)
		 ON CONFLICT (saga_id) DO UPDATE SET current_state=EXCLUDED.current_state, updated_at=EXCLUDED.updated_at`,
		instance.SagaID, string(instance.CurrentState), instance.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save saga instance: %w", err)
	}
	return nil
}

// Verificación en tiempo de compilación.
var _ domain.SagaRepository = (*SagaRepoPostgres)(nil)
