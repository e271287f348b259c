package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	sharedDomain "github.com/blocodev/wallethub/internal/shared/domain"
)

// ---------- Errores de dominio ----------
var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInvalidWallet     = errors.New("invalid wallet")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// ---------- Interfaces (Ports) ----------

// WalletRepository define las operaciones persistentes para Wallet.
// Los métodos que mutan estado reciben el evento outbox y deben escribir
// la mutación y el evento en la misma transacción: si una parte falla,
// falla todo.
type WalletRepository interface {
	Create(ctx context.Context, w *Wallet, evt sharedDomain.OutboxEvent) error

	// Debe devolver ErrWalletNotFound si no existe.
	GetByID(ctx context.Context, id uuid.UUID) (*Wallet, error)

	// Update persiste el balance/estado actual de la wallet junto al evento.
	Update(ctx context.Context, w *Wallet, evt sharedDomain.OutboxEvent) error

	// UpdatePair persiste dos wallets y sus eventos en una única transacción
	// (transferencias entre carteras).
	UpdatePair(ctx context.Context, from, to *Wallet, evts []sharedDomain.OutboxEvent) error

	// AppendEvent inserta un evento outbox sin mutación de wallet asociada
	// (señales de fin de workflow).
	AppendEvent(ctx context.Context, evt sharedDomain.OutboxEvent) error

	List(ctx context.Context, f WalletFilter) ([]*Wallet, error)
}

// WalletCache es el puerto de cache-aside para lecturas.
type WalletCache interface {
	// Get intenta poblar dest (puntero) con el valor asociado a la key.
	// Devuelve (true, nil) si hay hit y dest fue rellenado.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set serializa y guarda el valor con TTL en segundos.
	Set(ctx context.Context, key string, val interface{}, ttlSecs int) error

	Delete(ctx context.Context, key string) error
}

// ---------- Tipos de filtrado / paginación ----------

type Pagination struct {
	Limit  int
	Offset int
}

// WalletFilter agrupa criterios de búsqueda que puede usar WalletRepository.List.
type WalletFilter struct {
	UserID *uuid.UUID
	Status *WalletStatus

	Pagination Pagination
}

// ---------- Helpers comunes (cache keys, etc.) ----------

// CacheKeyByID forma una key consistente para cache usando ID.
func CacheKeyByID(id uuid.UUID) string {
	return fmt.Sprintf("wallet:id:%s", id.String())
}
