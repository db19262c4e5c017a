// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chainmart/chainmart-backend/internal/services"
	"github.com/chainmart/chainmart-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	buyerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	order, err := h.orderService.CreateOrder(buyerID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, order)
}

// POST /orders/:order_id/transactions
func (h *OrderHandler) SubmitTransaction(c *gin.Context) {
	buyerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	var req services.SubmitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	order, err := h.orderService.SubmitTransaction(buyerID, orderID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// POST /orders/:order_id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	buyerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	order, err := h.orderService.CancelOrder(buyerID, orderID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// GET /orders/:order_id
func (h *OrderHandler) Get(c *gin.Context) {
	buyerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	order, err := h.orderService.GetOrder(buyerID, orderID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	buyerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	params := utils.GetPaginationParams(c)
	orders, total, err := h.orderService.ListOrders(buyerID, params)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params))
}
