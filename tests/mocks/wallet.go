package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	sharedDomain "github.com/blocodev/wallethub/internal/shared/domain"
	walletDomain "github.com/blocodev/wallethub/internal/wallet/domain"
)

// InMemoryWalletRepo simula WalletRepository con outbox incluido: cada
// mutación guarda la wallet y acumula el evento, igual que haría la
// transacción SQL real.
type InMemoryWalletRepo struct {
	Wallets map[uuid.UUID]walletDomain.Wallet
	Outbox  []sharedDomain.OutboxEvent
	mu      sync.Mutex
}

func NewInMemoryWalletRepo() *InMemoryWalletRepo {
	return &InMemoryWalletRepo{Wallets: make(map[uuid.UUID]walletDomain.Wallet)}
}

func (r *InMemoryWalletRepo) Create(ctx context.Context, w *walletDomain.Wallet, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Wallets[w.ID]; ok {
		return walletDomain.ErrInvalidWallet
	}
	r.Wallets[w.ID] = *w
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*walletDomain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.Wallets[id]
	if !ok {
		return nil, walletDomain.ErrWalletNotFound
	}
	copied := w
	return &copied, nil
}

func (r *InMemoryWalletRepo) Update(ctx context.Context, w *walletDomain.Wallet, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Wallets[w.ID]; !ok {
		return walletDomain.ErrWalletNotFound
	}
	r.Wallets[w.ID] = *w
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryWalletRepo) UpdatePair(ctx context.Context, from, to *walletDomain.Wallet, evts []sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Wallets[from.ID]; !ok {
		return walletDomain.ErrWalletNotFound
	}
	if _, ok := r.Wallets[to.ID]; !ok {
		return walletDomain.ErrWalletNotFound
	}
	r.Wallets[from.ID] = *from
	r.Wallets[to.ID] = *to
	r.Outbox = append(r.Outbox, evts...)
	return nil
}

func (r *InMemoryWalletRepo) AppendEvent(ctx context.Context, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryWalletRepo) List(ctx context.Context, f walletDomain.WalletFilter) ([]*walletDomain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*walletDomain.Wallet
	for _, w := range r.Wallets {
		if f.UserID != nil && w.UserID != *f.UserID {
			continue
		}
		if f.Status != nil && w.Status != *f.Status {
			continue
		}
		copied := w
		out = append(out, &copied)
	}
	return out, nil
}

// DummyCache es una cache que nunca acierta. Para tests donde la cache no
// es el objeto bajo prueba.
type DummyCache struct{}

func (c *DummyCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}

func (c *DummyCache) Set(ctx context.Context, key string, val interface{}, ttlSecs int) error {
	return nil
}

func (c *DummyCache) Delete(ctx context.Context, key string) error { return nil }

// Verificación en tiempo de compilación.
var _ walletDomain.WalletRepository = (*InMemoryWalletRepo)(nil)
var _ walletDomain.WalletCache = (*DummyCache)(nil)
