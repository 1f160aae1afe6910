package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog entry for a medicine or other sellable item.
// SKU is immutable after creation.
type Product struct {
	ID                   int64           `json:"id" db:"id"`
	Name                 string          `json:"name" db:"name" binding:"required"`
	GenericName          *string         `json:"generic_name,omitempty" db:"generic_name"`
	Category             *string         `json:"category,omitempty" db:"category"`
	Manufacturer         *string         `json:"manufacturer,omitempty" db:"manufacturer"`
	SKU                  string          `json:"sku" db:"sku" binding:"required"`
	Price                decimal.Decimal `json:"price" db:"price"`
	CostPrice            decimal.Decimal `json:"cost_price" db:"cost_price"`
	RequiresPrescription bool            `json:"requires_prescription" db:"requires_prescription"`
	Description          *string         `json:"description,omitempty" db:"description"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// ProductFilters defines the available filters for querying the catalog.
type ProductFilters struct {
	Category *string `form:"category"`
	Search   *string `form:"search"`
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}

// ProductReferences reports what still points at a product, for deletion guards.
type ProductReferences struct {
	SaleItemCount     int `json:"sale_item_count"`
	InventoryLotCount int `json:"inventory_lot_count"`
}
