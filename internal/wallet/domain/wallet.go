package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// WalletStatus refleja el ciclo de vida administrativo de una wallet.
type WalletStatus string

const (
	WalletActive   WalletStatus = "ACTIVE"
	WalletInactive WalletStatus = "INACTIVE"
)

// Wallet es el agregado principal: una cartera con balance en unidades
// menores (centavos) para evitar aritmética en coma flotante.
type Wallet struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"user_id"`
	Name      string       `json:"name"`
	Balance   int64        `json:"balance"`
	Status    WalletStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewWallet crea una wallet activa con balance cero.
func NewWallet(userID uuid.UUID, name string) (*Wallet, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidWallet
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidWallet
	}

	now := time.Now().UTC()
	return &Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		Balance:   0,
		Status:    WalletActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Deposit incrementa el balance. La cantidad debe ser positiva.
func (w *Wallet) Deposit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	w.Balance += amount
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// Withdraw descuenta del balance si hay fondos suficientes.
func (w *Wallet) Withdraw(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.Balance < amount {
		return ErrInsufficientFunds
	}
	w.Balance -= amount
	w.UpdatedAt = time.Now().UTC()
	return nil
}
