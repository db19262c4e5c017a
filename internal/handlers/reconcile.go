// internal/handlers/reconcile.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chainmart/chainmart-backend/internal/services"
	"github.com/chainmart/chainmart-backend/internal/utils"
)

type ReconcileHandler struct {
	reconcileService *services.ReconcileService
}

func NewReconcileHandler(reconcileService *services.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{
		reconcileService: reconcileService,
	}
}

// POST /protected/blockchain/seller-marketplaces/:marketplace_id
func (h *ReconcileHandler) ReconcileSellerMarketplace(c *gin.Context) {
	marketplaceID, err := uuid.Parse(c.Param("marketplace_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid marketplace ID", nil)
		return
	}

	if err := h.reconcileService.ReconcileSellerMarketplace(c.Request.Context(), marketplaceID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": true})
}

// POST /protected/blockchain/:network_chain_id/user-product-orders
func (h *ReconcileHandler) ReconcileProductOrders(c *gin.Context) {
	chainID, err := strconv.ParseInt(c.Param("network_chain_id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid network chain ID", nil)
		return
	}

	if err := h.reconcileService.ReconcileProductOrders(c.Request.Context(), chainID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": true})
}

// POST /protected/blockchain/:network_chain_id/user-payouts
func (h *ReconcileHandler) ReconcileSellerPayouts(c *gin.Context) {
	chainID, err := strconv.ParseInt(c.Param("network_chain_id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid network chain ID", nil)
		return
	}

	if err := h.reconcileService.ReconcileSellerPayouts(c.Request.Context(), chainID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": true})
}
