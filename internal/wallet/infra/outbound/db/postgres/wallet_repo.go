package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // Driver de PostgreSQL

	sharedDomain "github.com/blocodev/wallethub/internal/shared/domain"
	"github.com/blocodev/wallethub/internal/wallet/domain"
)

// WalletRepoPostgres persiste wallets en PostgreSQL con el mismo contrato
// transaccional que la variante SQLite.
type WalletRepoPostgres struct {
	db     *sql.DB
	outbox sharedDomain.OutboxAppender
}

func NewWalletRepoPostgres(db *sql.DB, outbox sharedDomain.OutboxAppender) *WalletRepoPostgres {
	return &WalletRepoPostgres{db: db, outbox: outbox}
}

// InitSchema crea la tabla wallets si no existe.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS wallets (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL,
            name TEXT NOT NULL,
            balance BIGINT NOT NULL DEFAULT 0,
            status TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )
    `)
	return err
}

// Create inserta wallet y evento en transacción.
func (r *WalletRepoPostgres) Create(ctx context.Context, w *domain.Wallet, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (id,user_id,name,balance,status,created_at,updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		w.ID, w.UserID, w.Name, w.Balance, string(w.Status), w.CreatedAt, w.UpdatedAt,
	); err != nil {
		return err
	}

	if err := r.outbox.AppendTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// Update actualiza la wallet y crea el evento outbox en transacción.
func (r *WalletRepoPostgres) Update(ctx context.Context, w *domain.Wallet, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateWalletTx(ctx, tx, w); err != nil {
		return err
	}

	if err := r.outbox.AppendTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdatePair actualiza dos wallets y sus eventos en una única transacción.
func (r *WalletRepoPostgres) UpdatePair(ctx context.Context, from, to *domain.Wallet, evts []sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateWalletTx(ctx, tx, from); err != nil {
		return err
	}
	if err := updateWalletTx(ctx, tx, to); err != nil {
		return err
	}

	for _, evt := range evts {
		if err := r.outbox.AppendTx(ctx, tx, evt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AppendEvent inserta solo el evento, en su propia transacción.
func (r *WalletRepoPostgres) AppendEvent(ctx context.Context, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := r.outbox.AppendTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

func updateWalletTx(ctx context.Context, tx *sql.Tx, w *domain.Wallet) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET name=$1, balance=$2, status=$3, updated_at=$4 WHERE id=$5`,
		w.Name, w.Balance, string(w.Status), w.UpdatedAt, w.ID,
	)
	if err != nil {
		return err
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}

// GetByID devuelve la wallet o ErrWalletNotFound.
func (r *WalletRepoPostgres) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, balance, status, created_at, updated_at FROM wallets WHERE id=$1`, id,
	)

	var w domain.Wallet
	var statusStr string
	if err := row.Scan(&w.ID, &w.UserID, &w.Name, &w.Balance, &statusStr, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	w.Status = domain.WalletStatus(statusStr)

	return &w, nil
}

// List devuelve wallets según el filtro.
func (r *WalletRepoPostgres) List(ctx context.Context, f domain.WalletFilter) ([]*domain.Wallet, error) {
	var args []interface{}
	var conditions []string
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.UserID != nil {
		conditions = append(conditions, "user_id = "+arg(*f.UserID))
	}
	if f.Status != nil {
		conditions = append(conditions, "status = "+arg(string(*f.Status)))
	}

	query := `SELECT id, user_id, name, balance, status, created_at, updated_at FROM wallets`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at"
	if f.Pagination.Limit > 0 {
		query += " LIMIT " + arg(f.Pagination.Limit) + " OFFSET " + arg(f.Pagination.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []*domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		var statusStr string
		if err := rows.Scan(&w.ID, &w.UserID, &w.Name, &w.Balance, &statusStr, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		w.Status = domain.WalletStatus(statusStr)
		wallets = append(wallets, &w)
	}

	return wallets, rows.Err()
}

// Verificación en tiempo de compilación.
var _ domain.WalletRepository = (*WalletRepoPostgres)(nil)
