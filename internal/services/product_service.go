package services

import (
	"fmt"
	"strings"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

// CreateProductRequest defines the payload for creating a catalog entry.
type CreateProductRequest struct {
	Name                 string          `json:"name" binding:"required"`
	GenericName          *string         `json:"generic_name"`
	Category             *string         `json:"category"`
	Manufacturer         *string         `json:"manufacturer"`
	SKU                  string          `json:"sku" binding:"required"`
	Price                decimal.Decimal `json:"price"`
	CostPrice            decimal.Decimal `json:"cost_price"`
	RequiresPrescription bool            `json:"requires_prescription"`
	Description          *string         `json:"description"`
}

// UpdateProductRequest defines the payload for updating a catalog entry.
// SKU is not part of the payload: it is immutable after creation.
type UpdateProductRequest struct {
	Name                 string          `json:"name" binding:"required"`
	GenericName          *string         `json:"generic_name"`
	Category             *string         `json:"category"`
	Manufacturer         *string         `json:"manufacturer"`
	Price                decimal.Decimal `json:"price"`
	CostPrice            decimal.Decimal `json:"cost_price"`
	RequiresPrescription bool            `json:"requires_prescription"`
	Description          *string         `json:"description"`
}

// ProductService defines the interface for catalog business logic.
type ProductService interface {
	CreateProduct(req CreateProductRequest) (*models.Product, error)
	GetProductByID(id int64) (*models.Product, error)
	GetProducts(filters models.ProductFilters) ([]models.Product, int, error)
	UpdateProduct(id int64, req UpdateProductRequest) (*models.Product, error)
	DeleteProduct(id int64) error
}

type productService struct {
	productRepo repositories.ProductRepository
	txBeginner  repositories.TxBeginner
}

// NewProductService creates a new instance of ProductService.
func NewProductService(productRepo repositories.ProductRepository, txBeginner repositories.TxBeginner) ProductService {
	return &productService{productRepo: productRepo, txBeginner: txBeginner}
}

func (s *productService) CreateProduct(req CreateProductRequest) (*models.Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: product name cannot be empty", ErrValidation)
	}
	if strings.TrimSpace(req.SKU) == "" {
		return nil, fmt.Errorf("%w: SKU cannot be empty", ErrValidation)
	}
	if req.Price.IsNegative() || req.CostPrice.IsNegative() {
		return nil, fmt.Errorf("%w: prices cannot be negative", ErrValidation)
	}

	product := &models.Product{
		Name:                 strings.TrimSpace(req.Name),
		GenericName:          req.GenericName,
		Category:             req.Category,
		Manufacturer:         req.Manufacturer,
		SKU:                  strings.TrimSpace(req.SKU),
		Price:                req.Price,
		CostPrice:            req.CostPrice,
		RequiresPrescription: req.RequiresPrescription,
		Description:          req.Description,
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for creating product: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.productRepo.CreateProduct(tx, product); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for creating product: %w", err)
	}
	return s.productRepo.GetProductByID(product.ID)
}

func (s *productService) GetProductByID(id int64) (*models.Product, error) {
	return s.productRepo.GetProductByID(id)
}

func (s *productService) GetProducts(filters models.ProductFilters) ([]models.Product, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 20
	}
	return s.productRepo.GetProducts(filters)
}

func (s *productService) UpdateProduct(id int64, req UpdateProductRequest) (*models.Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: product name cannot be empty", ErrValidation)
	}
	if req.Price.IsNegative() || req.CostPrice.IsNegative() {
		return nil, fmt.Errorf("%w: prices cannot be negative", ErrValidation)
	}

	existing, err := s.productRepo.GetProductByID(id)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(req.Name)
	existing.GenericName = req.GenericName
	existing.Category = req.Category
	existing.Manufacturer = req.Manufacturer
	existing.Price = req.Price
	existing.CostPrice = req.CostPrice
	existing.RequiresPrescription = req.RequiresPrescription
	existing.Description = req.Description

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for updating product: %w", err)
	}
	defer tx.Rollback()

	if err := s.productRepo.UpdateProduct(tx, existing); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for updating product: %w", err)
	}
	return s.productRepo.GetProductByID(id)
}

// DeleteProduct removes a catalog entry, but only when nothing references it.
// Sale items and inventory lots both block the deletion; the error message
// carries the counts so the caller can show what is in the way.
func (s *productService) DeleteProduct(id int64) error {
	if _, err := s.productRepo.GetProductByID(id); err != nil {
		return err
	}

	refs, err := s.productRepo.CountReferences(id)
	if err != nil {
		return err
	}
	if refs.SaleItemCount > 0 || refs.InventoryLotCount > 0 {
		return fmt.Errorf("%w: product is referenced by %d sale item(s) and %d inventory lot(s)",
			ErrConflict, refs.SaleItemCount, refs.InventoryLotCount)
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for deleting product: %w", err)
	}
	defer tx.Rollback()

	if err := s.productRepo.DeleteProduct(tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction for deleting product: %w", err)
	}
	return nil
}
