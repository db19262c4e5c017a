// internal/handlers/marketplace.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chainmart/chainmart-backend/internal/services"
	"github.com/chainmart/chainmart-backend/internal/utils"
)

type MarketplaceHandler struct {
	marketplaceService *services.MarketplaceService
}

func NewMarketplaceHandler(marketplaceService *services.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{
		marketplaceService: marketplaceService,
	}
}

// POST /marketplaces
func (h *MarketplaceHandler) Create(c *gin.Context) {
	sellerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.CreateMarketplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	marketplace, err := h.marketplaceService.CreateSellerMarketplace(sellerID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, marketplace)
}

// POST /marketplaces/:marketplace_id/transactions
func (h *MarketplaceHandler) SubmitTransaction(c *gin.Context) {
	sellerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	marketplaceID, err := uuid.Parse(c.Param("marketplace_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid marketplace ID", nil)
		return
	}

	var req services.SubmitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	marketplace, err := h.marketplaceService.SubmitTransaction(sellerID, marketplaceID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, marketplace)
}

// GET /marketplaces/:marketplace_id
func (h *MarketplaceHandler) Get(c *gin.Context) {
	sellerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	marketplaceID, err := uuid.Parse(c.Param("marketplace_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid marketplace ID", nil)
		return
	}

	marketplace, err := h.marketplaceService.GetSellerMarketplace(sellerID, marketplaceID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, marketplace)
}

// GET /marketplaces
func (h *MarketplaceHandler) List(c *gin.Context) {
	sellerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	params := utils.GetPaginationParams(c)
	marketplaces, total, err := h.marketplaceService.ListSellerMarketplaces(sellerID, params)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(marketplaces, total, params))
}
