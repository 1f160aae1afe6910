package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductBatch lifecycle statuses.
const (
	BatchStatusActive   = "active"
	BatchStatusExpired  = "expired"
	BatchStatusDepleted = "depleted"
)

// ProductBatch carries manufacturing, expiry and pricing detail for one
// production batch of a product. Unique per (product_id, batch_number).
type ProductBatch struct {
	ID                int64           `json:"id" db:"id"`
	ProductID         int64           `json:"product_id" db:"product_id" binding:"required"`
	BatchNumber       string          `json:"batch_number" db:"batch_number" binding:"required"`
	ManufacturingDate *time.Time      `json:"manufacturing_date,omitempty" db:"manufacturing_date"`
	ExpiryDate        time.Time       `json:"expiry_date" db:"expiry_date"`
	Quantity          int             `json:"quantity" db:"quantity"`
	PurchasePrice     decimal.Decimal `json:"purchase_price" db:"purchase_price"`
	SellingPrice      decimal.Decimal `json:"selling_price" db:"selling_price"`
	Supplier          *string         `json:"supplier,omitempty" db:"supplier"`
	Status            string          `json:"status" db:"status"`
	Notes             *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
	Product           *Product        `json:"product,omitempty"`
}

// Batch option flags produced by FEFO annotation.
const (
	BatchFlagOK           = "ok"
	BatchFlagNearExpiry   = "near_expiry"
	BatchFlagExpired      = "expired"
	BatchFlagInsufficient = "insufficient"
)

// BatchOption is one row of the FEFO selection list shown to the cashier:
// a batch in first-expiry-first-out order, annotated with whether it can
// satisfy the requested quantity.
type BatchOption struct {
	Batch      ProductBatch `json:"batch"`
	Flag       string       `json:"flag"`
	Selectable bool         `json:"selectable"`
}

// BatchFilters defines the available filters for querying product batches.
type BatchFilters struct {
	ProductID *int64  `form:"product_id"`
	Status    *string `form:"status"`
	Page      int     `form:"page"`
	PageSize  int     `form:"page_size"`
}
