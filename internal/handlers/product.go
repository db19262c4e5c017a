// internal/handlers/product.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chainmart/chainmart-backend/internal/services"
	"github.com/chainmart/chainmart-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	sellerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	product, err := h.productService.CreateProduct(sellerID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, product)
}

// PUT /products/:product_id
func (h *ProductHandler) Update(c *gin.Context) {
	sellerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	var req services.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	product, err := h.productService.UpdateProduct(sellerID, productID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// DELETE /products/:product_id
func (h *ProductHandler) Delete(c *gin.Context) {
	sellerID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	if err := h.productService.DeleteProduct(sellerID, productID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"deleted": true})
}

// GET /products/:product_id
func (h *ProductHandler) Get(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	product, err := h.productService.GetProduct(productID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// GET /marketplaces/:marketplace_id/products
func (h *ProductHandler) ListByMarketplace(c *gin.Context) {
	marketplaceID, err := uuid.Parse(c.Param("marketplace_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid marketplace ID", nil)
		return
	}

	params := utils.GetPaginationParams(c)
	products, total, err := h.productService.ListProducts(marketplaceID, params)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(products, total, params))
}
