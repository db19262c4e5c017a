// internal/services/product_service.go
package services

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/chainmart/chainmart-backend/internal/apperrors"
	"github.com/chainmart/chainmart-backend/internal/models"
	"github.com/chainmart/chainmart-backend/internal/utils"
)

type ProductService struct {
	db *gorm.DB
}

type CreateProductRequest struct {
	SellerMarketplaceID uuid.UUID `json:"seller_marketplace_id" validate:"required"`
	TokenID             uuid.UUID `json:"token_id" validate:"required"`
	Name                string    `json:"name" validate:"required,max=255"`
	Description         string    `json:"description,omitempty"`
	Price               string    `json:"price" validate:"required"`
}

type UpdateProductRequest struct {
	Name        string `json:"name,omitempty" validate:"omitempty,max=255"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

func (s *ProductService) CreateProduct(sellerID uuid.UUID, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("invalid product input", utils.FieldErrors(err))
	}

	var marketplace models.SellerMarketplace
	err := s.db.First(&marketplace, "id = ? AND seller_id = ?", req.SellerMarketplaceID, sellerID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewClient("seller marketplace does not exist")
		}
		return nil, apperrors.WrapInternal("failed to load seller marketplace", err)
	}
	if marketplace.ConfirmedAt == nil {
		return nil, apperrors.NewConflict("seller marketplace is not confirmed yet")
	}

	var token models.Token
	if err := s.db.First(&token, "id = ?", req.TokenID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewClient("token does not exist")
		}
		return nil, apperrors.WrapInternal("failed to load token", err)
	}
	if token.NetworkID != marketplace.NetworkID {
		return nil, apperrors.NewClient("token is not available on the marketplace's network")
	}

	price, err := parsePrice(req.Price, token.Decimals)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		SellerMarketplaceID: marketplace.ID,
		TokenID:             token.ID,
		Name:                req.Name,
		Description:         req.Description,
		Price:               price,
		PriceDecimals:       token.Decimals,
		PriceFormatted:      FormatAmount(price, token.Symbol),
	}
	if err := s.db.Create(product).Error; err != nil {
		return nil, apperrors.WrapInternal("failed to create product", err)
	}

	return product, nil
}

func (s *ProductService) UpdateProduct(sellerID, productID uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("invalid product input", utils.FieldErrors(err))
	}

	product, err := s.sellerProduct(sellerID, productID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Price != "" {
		price, err := parsePrice(req.Price, product.Token.Decimals)
		if err != nil {
			return nil, err
		}
		updates["price"] = price
		updates["price_formatted"] = FormatAmount(price, product.Token.Symbol)
	}

	if len(updates) > 0 {
		if err := s.db.Model(product).Updates(updates).Error; err != nil {
			return nil, apperrors.WrapInternal("failed to update product", err)
		}
	}

	return product, nil
}

func (s *ProductService) DeleteProduct(sellerID, productID uuid.UUID) error {
	product, err := s.sellerProduct(sellerID, productID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(product).Error; err != nil {
		return apperrors.WrapInternal("failed to delete product", err)
	}
	return nil
}

func (s *ProductService) GetProduct(productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.
		Preload("Token").
		Preload("SellerMarketplace").
		First(&product, "id = ?", productID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewClient("product does not exist")
		}
		return nil, apperrors.WrapInternal("failed to load product", err)
	}
	return &product, nil
}

func (s *ProductService) ListProducts(marketplaceID uuid.UUID, params utils.PaginationParams) ([]models.Product, int64, error) {
	query := s.db.Model(&models.Product{}).Where("seller_marketplace_id = ?", marketplaceID)
	if params.Search != "" {
		query = query.Where("name ILIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapInternal("failed to count products", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "name", "price"})
	query = utils.ApplyPagination(query, params)

	var products []models.Product
	if err := query.Preload("Token").Find(&products).Error; err != nil {
		return nil, 0, apperrors.WrapInternal("failed to fetch products", err)
	}

	return products, total, nil
}

func (s *ProductService) sellerProduct(sellerID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.
		Preload("Token").
		Joins("JOIN seller_marketplaces ON seller_marketplaces.id = products.seller_marketplace_id").
		Where("products.id = ? AND seller_marketplaces.seller_id = ?", productID, sellerID).
		First(&product).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewClient("product does not exist")
		}
		return nil, apperrors.WrapInternal("failed to load product", err)
	}
	return &product, nil
}

func parsePrice(raw string, decimals int32) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, apperrors.NewValidation("invalid price", []apperrors.FieldError{
			{Field: "price", Message: "must be a decimal number"},
		})
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, apperrors.NewValidation("invalid price", []apperrors.FieldError{
			{Field: "price", Message: "must be greater than zero"},
		})
	}
	units := price.Shift(decimals)
	if !units.Equal(units.Truncate(0)) {
		return decimal.Decimal{}, apperrors.NewValidation("invalid price", []apperrors.FieldError{
			{Field: "price", Message: "has more decimal places than the token supports"},
		})
	}
	return price, nil
}
