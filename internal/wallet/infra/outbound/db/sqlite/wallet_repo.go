package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"

	sharedDomain "github.com/blocodev/wallethub/internal/shared/domain"
	"github.com/blocodev/wallethub/internal/wallet/domain"
)

// WalletRepoSQLite persiste wallets en SQLite. El appender de outbox se
// inyecta para que cada mutación escriba su evento en la misma transacción.
type WalletRepoSQLite struct {
	db     *sql.DB
	outbox sharedDomain.OutboxAppender
}

func NewWalletRepoSQLite(db *sql.DB, outbox sharedDomain.OutboxAppender) *WalletRepoSQLite {
	return &WalletRepoSQLite{db: db, outbox: outbox}
}

// InitSchema crea la tabla wallets si no existe.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS wallets (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            name TEXT NOT NULL,
            balance INTEGER NOT NULL DEFAULT 0,
            status TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )
    `)
	return err
}

// ------------------ Métodos ------------------

// Create inserta wallet y evento en transacción.
func (r *WalletRepoSQLite) Create(ctx context.Context, w *domain.Wallet, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Se ignora si el Commit() es exitoso

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (id,user_id,name,balance,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		w.ID.String(), w.UserID.String(), w.Name, w.Balance, string(w.Status), w.CreatedAt, w.UpdatedAt,
	); err != nil {
		return err
	}

	if err := r.outbox.AppendTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// Update actualiza la wallet y crea el evento outbox en transacción.
func (r *WalletRepoSQLite) Update(ctx context.Context, w *domain.Wallet, evt sharedDomain.OutboxEvent) error {
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
func (r *WalletRepoSQLite) UpdatePair(ctx context.Context, from, to *domain.Wallet, evts []sharedDomain.OutboxEvent) error {
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
func (r *WalletRepoSQLite) AppendEvent(ctx context.Context, evt sharedDomain.OutboxEvent) error {
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
		`UPDATE wallets SET name=?, balance=?, status=?, updated_at=? WHERE id=?`,
		w.Name, w.Balance, string(w.Status), w.UpdatedAt, w.ID.String(),
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

// GetByID con manejo de errores en uuid.Parse.
func (r *WalletRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, user_id, name, balance, status, created_at, updated_at FROM wallets WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id.String())

	return scanWallet(row)
}

func scanWallet(row *sql.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	var idStr, userIDStr, statusStr string
	if err := row.Scan(&idStr, &userIDStr, &w.Name, &w.Balance, &statusStr, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}

	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	parsedUserID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	w.ID = parsedID
	w.UserID = parsedUserID
	w.Status = domain.WalletStatus(statusStr)

	return &w, nil
}

// List devuelve wallets según el filtro.
func (r *WalletRepoSQLite) List(ctx context.Context, f domain.WalletFilter) ([]*domain.Wallet, error) {
	var args []interface{}
	var conditions []string

	if f.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, f.UserID.String())
	}
	if f.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*f.Status))
	}

	query := `SELECT id, user_id, name, balance, status, created_at, updated_at FROM wallets`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at"
	if f.Pagination.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Pagination.Limit, f.Pagination.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []*domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		var idStr, userIDStr, statusStr string
		if err := rows.Scan(&idStr, &userIDStr, &w.Name, &w.Balance, &statusStr, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}

		parsedID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID in DB: %w", err)
		}
		parsedUserID, err := uuid.Parse(userIDStr)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID in DB: %w", err)
		}
		w.ID = parsedID
		w.UserID = parsedUserID
		w.Status = domain.WalletStatus(statusStr)

		wallets = append(wallets, &w)
	}

	return wallets, rows.Err()
}

// Verificación en tiempo de compilación.
var _ domain.WalletRepository = (*WalletRepoSQLite)(nil)
