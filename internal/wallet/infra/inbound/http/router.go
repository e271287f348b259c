package http

import "github.com/gin-gonic/gin"

func RegisterWalletRoutes(r *gin.Engine, handler *WalletHandler) {
	wallets := r.Group("/wallets")
	{
		wallets.POST("/", handler.CreateWallet)
		wallets.GET("/:id", handler.GetWallet)
		wallets.GET("/", handler.ListWallets)
		wallets.POST("/:id/deposits", handler.AddFunds)
		wallets.POST("/:id/withdrawals", handler.WithdrawFunds)
	}

	r.POST("/transfers", handler.TransferFunds)

	workflows := r.Group("/workflows")
	{
		workflows.POST("/:id/complete", handler.CompleteWorkflow)
		workflows.POST("/:id/fail", handler.FailWorkflow)
	}
}
