package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sagaDomain "github.com/blocodev/wallethub/internal/saga/domain"
	sharedDomain "github.com/blocodev/wallethub/internal/shared/domain"
	sharedEvents "github.com/blocodev/wallethub/internal/shared/events"
	"github.com/blocodev/wallethub/internal/wallet/domain"
)

// SagaBridge es lo que el servicio necesita para avanzar la saga del workflow
// tras confirmar cada paso. Se inyecta explícitamente; puede ser nil si el
// avance de saga llega solo vía consumer del broker.
type SagaBridge interface {
	HandleEvent(ctx context.Context, eventType string, correlationID string) (sagaDomain.State, error)
}

// WalletService define los casos de uso del workflow de wallets. Cada paso
// muta el agregado y escribe su evento outbox en la misma transacción: o se
// confirma todo, o no queda ni la mutación ni el evento.
type WalletService struct {
	repo  domain.WalletRepository
	cache domain.WalletCache
	saga  SagaBridge
	log   *zap.Logger
}

// NewWalletService constructor
func NewWalletService(repo domain.WalletRepository, cache domain.WalletCache, saga SagaBridge, log *zap.Logger) *WalletService {
	return &WalletService{
		repo:  repo,
		cache: cache,
		saga:  saga,
		log:   log,
	}
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}

		select {
		case <-time.After(delay):
			// espera antes del siguiente intento
		case <-ctx.Done():
			return ctx.Err() // contexto cancelado
		}
	}
	return err
}

// signalSaga alimenta el puente de sagas tras un commit exitoso. Los fallos
// de transición se registran, no tumban la operación de negocio que ya
// confirmó su transacción.
func (s *WalletService) signalSaga(ctx context.Context, eventType string, correlationID uuid.UUID) {
	if s.saga == nil {
		return
	}
	if _, err := s.saga.HandleEvent(ctx, eventType, correlationID.String()); err != nil {
		s.log.Warn("⚠️ La saga no aceptó el evento",
			zap.String("event_type", eventType),
			zap.String("correlation_id", correlationID.String()),
			zap.Error(err),
		)
	}
}

// newOutboxEvent arma el evento con el sobre de integración ya serializado.
func newOutboxEvent(aggregateID uuid.UUID, eventType string, payload interface{}, correlationID uuid.UUID) (sharedDomain.OutboxEvent, error) {
	body, err := sharedEvents.Marshal(eventType, payload)
	if err != nil {
		return sharedDomain.OutboxEvent{}, err
	}
	return sharedDomain.NewOutboxEvent("wallet", aggregateID.String(), eventType, body, correlationID.String()), nil
}

// CreateWallet inicia el workflow: crea la wallet y arranca la saga del
// correlation id recibido (uno nuevo si viene Nil).
func (s *WalletService) CreateWallet(ctx context.Context, userID uuid.UUID, name string, correlationID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := domain.NewWallet(userID, name)
	if err != nil {
		return nil, err
	}
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}

	evt, err := newOutboxEvent(wallet.ID, domain.WalletCreated, domain.WalletCreatedEvent{
		WalletID:      wallet.ID,
		UserID:        wallet.UserID,
		Name:          wallet.Name,
		CorrelationID: correlationID.String(),
		OccurredAt:    wallet.CreatedAt,
	}, correlationID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, wallet, evt); err != nil {
		return nil, err
	}

	s.cacheSet(wallet)
	s.signalSaga(ctx, domain.WalletCreated, correlationID)
	return wallet, nil
}

// AddFunds deposita en la wallet y registra "wallet.funds_added".
func (s *WalletService) AddFunds(ctx context.Context, walletID uuid.UUID, amount int64, correlationID uuid.UUID) (*domain.Wallet, error) {
	return s.moveFunds(ctx, walletID, amount, correlationID, domain.FundsAdded, (*domain.Wallet).Deposit)
}

// WithdrawFunds retira de la wallet y registra "wallet.funds_withdrawn".
func (s *WalletService) WithdrawFunds(ctx context.Context, walletID uuid.UUID, amount int64, correlationID uuid.UUID) (*domain.Wallet, error) {
	return s.moveFunds(ctx, walletID, amount, correlationID, domain.FundsWithdrawn, (*domain.Wallet).Withdraw)
}

func (s *WalletService) moveFunds(
	ctx context.Context,
	walletID uuid.UUID,
	amount int64,
	correlationID uuid.UUID,
	eventType string,
	apply func(*domain.Wallet, int64) error,
) (*domain.Wallet, error) {
	wallet, err := s.repo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}

	if err := apply(wallet, amount); err != nil {
		return nil, err
	}

	evt, err := newOutboxEvent(wallet.ID, eventType, domain.FundsMovedEvent{
		WalletID:      wallet.ID,
		Amount:        amount,
		Balance:       wallet.Balance,
		CorrelationID: correlationID.String(),
		OccurredAt:    wallet.UpdatedAt,
	}, correlationID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, wallet, evt); err != nil {
		return nil, err
	}

	s.cacheSet(wallet)
	s.signalSaga(ctx, eventType, correlationID)
	return wallet, nil
}

// TransferFunds mueve fondos entre dos wallets en una única transacción y
// registra "wallet.funds_transferred".
func (s *WalletService) TransferFunds(ctx context.Context, fromID, toID uuid.UUID, amount int64, correlationID uuid.UUID) error {
	if fromID == toID {
		return domain.ErrInvalidWallet
	}

	from, err := s.repo.GetByID(ctx, fromID)
	if err != nil {
		return err
	}
	to, err := s.repo.GetByID(ctx, toID)
	if err != nil {
		return err
	}

	if err := from.Withdraw(amount); err != nil {
		return err
	}
	if err := to.Deposit(amount); err != nil {
		return err
	}

	evt, err := newOutboxEvent(from.ID, domain.FundsTransferred, domain.FundsTransferredEvent{
		FromWalletID:  from.ID,
		ToWalletID:    to.ID,
		Amount:        amount,
		CorrelationID: correlationID.String(),
		OccurredAt:    from.UpdatedAt,
	}, correlationID)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePair(ctx, from, to, []sharedDomain.OutboxEvent{evt}); err != nil {
		return err
	}

	s.cacheSet(from)
	s.cacheSet(to)
	s.signalSaga(ctx, domain.FundsTransferred, correlationID)
	return nil
}

// CompleteWorkflow cierra el workflow con éxito: solo evento, sin mutación.
func (s *WalletService) CompleteWorkflow(ctx context.Context, correlationID uuid.UUID) error {
	return s.endWorkflow(ctx, correlationID, domain.WorkflowCompleted, "")
}

// FailWorkflow aborta el workflow. Los callers reaccionan a FAILED; aquí no
// hay transacciones de compensación.
func (s *WalletService) FailWorkflow(ctx context.Context, correlationID uuid.UUID, reason string) error {
	return s.endWorkflow(ctx, correlationID, domain.WorkflowFailed, reason)
}

func (s *WalletService) endWorkflow(ctx context.Context, correlationID uuid.UUID, eventType, reason string) error {
	evt, err := newOutboxEvent(correlationID, eventType, domain.WorkflowEndedEvent{
		CorrelationID: correlationID.String(),
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	}, correlationID)
	if err != nil {
		return err
	}

	if err := s.repo.AppendEvent(ctx, evt); err != nil {
		return err
	}

	s.signalSaga(ctx, eventType, correlationID)
	return nil
}

// GetWallet obtiene una wallet (primero intenta desde cache).
func (s *WalletService) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	if s.cache != nil {
		var w domain.Wallet
		if ok, _ := s.cache.Get(ctx, domain.CacheKeyByID(id), &w); ok {
			return &w, nil
		}
	}

	var wallet *domain.Wallet
	err := retry(ctx, 3, 100*time.Millisecond, func() error {
		var err error
		wallet, err = s.repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cacheSet(wallet)
	return wallet, nil
}

// ListWallets lista wallets según el filtro.
func (s *WalletService) ListWallets(ctx context.Context, f domain.WalletFilter) ([]*domain.Wallet, error) {
	return s.repo.List(ctx, f)
}

// cacheSet actualiza la cache en background sin bloquear la respuesta.
func (s *WalletService) cacheSet(w *domain.Wallet) {
	if s.cache == nil {
		return
	}
	go func(w *domain.Wallet) {
		ctxCache, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		if err := s.cache.Set(ctxCache, domain.CacheKeyByID(w.ID), w, 60); err != nil {
			s.log.Debug("Cache update failed", zap.String("wallet_id", w.ID.String()), zap.Error(err))
		}
	}(w)
}
