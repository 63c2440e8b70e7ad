package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/harvestline/escrow-ledger/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")

	// Reads and verification are public
	v1.GET("/batches", handler.ListBatches)
	v1.GET("/batches/:id", handler.GetBatch)
	v1.GET("/batches/:id/escrow", handler.GetEscrowMovements)
	v1.GET("/verify/:serial", handler.Verify)
	v1.POST("/verify", handler.VerifyMany)
	v1.GET("/shipments", handler.ListShipments)
	v1.GET("/shipments/count", handler.CountShipments)

	// Mutations act on behalf of the token subject
	authed := v1.Group("", middleware.Auth(authCfg))
	{
		authed.POST("/batches", handler.CreateBatch)
		authed.POST("/batches/:id/fund", handler.FundBatch)
		authed.POST("/batches/:id/pickup", handler.ConfirmPickup)
		authed.POST("/batches/:id/deliver", handler.ConfirmDelivery)
		authed.POST("/batches/:id/deny", handler.DenyDelivery)
		authed.POST("/batches/:id/refund", handler.ApproveRefund)
		authed.POST("/batches/:id/items/activate", handler.ActivateItems)
		authed.POST("/items/consume", handler.ConsumeItems)

		authed.POST("/shipments", handler.CreateShipment)
		authed.POST("/shipments/:index/start", handler.StartShipment)
		authed.POST("/shipments/:index/complete", handler.CompleteShipment)
	}
}
