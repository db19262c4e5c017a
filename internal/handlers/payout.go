// internal/handlers/payout.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chainmart/chainmart-backend/internal/services"
	"github.com/chainmart/chainmart-backend/internal/utils"
)

type PayoutHandler struct {
	payoutService *services.PayoutService
}

func NewPayoutHandler(payoutService *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{
		payoutService: payoutService,
	}
}

// GET /payouts/balance?marketplace_id=...&token_id=...
func (h *PayoutHandler) GetBalance(c *gin.Context) {
	sellerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	marketplaceID, err := uuid.Parse(c.Query("marketplace_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid marketplace ID", nil)
		return
	}

	tokenID, err := uuid.Parse(c.Query("token_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid token ID", nil)
		return
	}

	balance, err := h.payoutService.GetBalance(sellerID, marketplaceID, tokenID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, balance)
}

// POST /payouts
func (h *PayoutHandler) Create(c *gin.Context) {
	sellerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.CreatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	payout, err := h.payoutService.CreatePayout(sellerID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, payout)
}

// POST /payouts/:payout_id/transactions
func (h *PayoutHandler) SubmitTransaction(c *gin.Context) {
	sellerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	payoutID, err := uuid.Parse(c.Param("payout_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid payout ID", nil)
		return
	}

	var req services.SubmitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	payout, err := h.payoutService.SubmitTransaction(sellerID, payoutID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, payout)
}

// POST /payouts/:payout_id/cancel
func (h *PayoutHandler) Cancel(c *gin.Context) {
	sellerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	payoutID, err := uuid.Parse(c.Param("payout_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid payout ID", nil)
		return
	}

	payout, err := h.payoutService.CancelPayout(sellerID, payoutID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, payout)
}

// GET /payouts/:payout_id
func (h *PayoutHandler) Get(c *gin.Context) {
	sellerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	payoutID, err := uuid.Parse(c.Param("payout_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid payout ID", nil)
		return
	}

	payout, err := h.payoutService.GetPayout(sellerID, payoutID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, payout)
}

// GET /payouts
func (h *PayoutHandler) List(c *gin.Context) {
	sellerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	params := utils.GetPaginationParams(c)
	payouts, total, err := h.payoutService.ListPayouts(sellerID, params)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(payouts, total, params))
}
