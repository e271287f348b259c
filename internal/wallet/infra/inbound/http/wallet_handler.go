package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/blocodev/wallethub/internal/wallet/application"
	"github.com/blocodev/wallethub/internal/wallet/domain"
)

// WalletHandler encapsula los endpoints HTTP relacionados con Wallet
type WalletHandler struct {
	service *application.WalletService
}

// NewWalletHandler crea un nuevo WalletHandler
func NewWalletHandler(service *application.WalletService) *WalletHandler {
	return &WalletHandler{service: service}
}

// ---------------- Handlers ----------------

// CreateWallet endpoint POST /wallets
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req struct {
		UserID        string `json:"user_id" binding:"required,uuid"`
		Name          string `json:"name" binding:"required"`
		CorrelationID string `json:"correlation_id"` // opcional: se genera si falta
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	correlationID := uuid.Nil
	if req.CorrelationID != "" {
		correlationID, err = uuid.Parse(req.CorrelationID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid correlation_id"})
			return
		}
	}

	wallet, err := h.service.CreateWallet(c.Request.Context(), userID, req.Name, correlationID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidWallet) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, wallet)
}

// GetWallet endpoint GET /wallets/:id
func (h *WalletHandler) GetWallet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet id"})
		return
	}

	wallet, err := h.service.GetWallet(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// ListWallets endpoint GET /wallets
func (h *WalletHandler) ListWallets(c *gin.Context) {
	var filter domain.WalletFilter

	if userIDStr := c.Query("user_id"); userIDStr != "" {
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		filter.UserID = &userID
	}

	wallets, err := h.service.ListWallets(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, wallets)
}

type fundsRequest struct {
	Amount        int64  `json:"amount" binding:"required"`
	CorrelationID string `json:"correlation_id" binding:"required,uuid"`
}

// AddFunds endpoint POST /wallets/:id/deposits
func (h *WalletHandler) AddFunds(c *gin.Context) {
	h.moveFunds(c, h.service.AddFunds)
}

// WithdrawFunds endpoint POST /wallets/:id/withdrawals
func (h *WalletHandler) WithdrawFunds(c *gin.Context) {
	h.moveFunds(c, h.service.WithdrawFunds)
}

func (h *WalletHandler) moveFunds(
	c *gin.Context,
	op func(ctx context.Context, walletID uuid.UUID, amount int64, correlationID uuid.UUID) (*domain.Wallet, error),
) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet id"})
		return
	}

	var req fundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	correlationID, err := uuid.Parse(req.CorrelationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid correlation_id"})
		return
	}

	wallet, err := op(c.Request.Context(), id, req.Amount, correlationID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrWalletNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
		case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInsufficientFunds):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// TransferFunds endpoint POST /transfers
func (h *WalletHandler) TransferFunds(c *gin.Context) {
	var req struct {
		FromWalletID  string `json:"from_wallet_id" binding:"required,uuid"`
		ToWalletID    string `json:"to_wallet_id" binding:"required,uuid"`
		Amount        int64  `json:"amount" binding:"required"`
		CorrelationID string `json:"correlation_id" binding:"required,uuid"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fromID, err1 := uuid.Parse(req.FromWalletID)
	toID, err2 := uuid.Parse(req.ToWalletID)
	correlationID, err3 := uuid.Parse(req.CorrelationID)
	if err1 != nil || err2 != nil || err3 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid in request"})
		return
	}

	if err := h.service.TransferFunds(c.Request.Context(), fromID, toID, req.Amount, correlationID); err != nil {
		switch {
		case errors.Is(err, domain.ErrWalletNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
		case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrInvalidWallet):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "transferred"})
}

// CompleteWorkflow endpoint POST /workflows/:id/complete
func (h *WalletHandler) CompleteWorkflow(c *gin.Context) {
	correlationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid correlation id"})
		return
	}

	if err := h.service.CompleteWorkflow(c.Request.Context(), correlationID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

// FailWorkflow endpoint POST /workflows/:id/fail
func (h *WalletHandler) FailWorkflow(c *gin.Context) {
	correlationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid correlation id"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req) // reason es opcional

	if err := h.service.FailWorkflow(c.Request.Context(), correlationID, req.Reason); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "failed"})
}
