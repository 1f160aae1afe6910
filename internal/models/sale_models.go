package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is one completed (or reversed) point-of-sale transaction.
// TotalAmount is computed server-side at creation and never recalculated.
type Sale struct {
	ID                  int64           `json:"id" db:"id"`
	CustomerID          *int64          `json:"customer_id,omitempty" db:"customer_id"`
	ProcessedBy         int64           `json:"processed_by" db:"processed_by"`
	Status              string          `json:"status" db:"status"`
	TotalAmount         decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaymentMethod       string          `json:"payment_method" db:"payment_method"`
	PrescriptionFlag    bool            `json:"prescription_flag" db:"prescription_flag"`
	PrescriptionDetails *string         `json:"prescription_details,omitempty" db:"prescription_details"`
	SaleTime            time.Time       `json:"sale_time" db:"sale_time"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
	Customer            *Customer       `json:"customer,omitempty"`
	ProcessedByUser     *User           `json:"processed_by_user,omitempty"`
	Items               []SaleItem      `json:"items,omitempty"`
}

// SaleItem records what one sale line took: the product, the specific
// inventory lot it consumed, and the price/discount frozen at sale time.
// BatchNumber and BatchExpiry are denormalized snapshots of the batch chosen
// at the counter, kept even if the batch record later changes.
type SaleItem struct {
	ID             int64           `json:"id" db:"id"`
	SaleID         int64           `json:"sale_id" db:"sale_id"`
	ProductID      int64           `json:"product_id" db:"product_id"`
	InventoryLotID int64           `json:"inventory_lot_id" db:"inventory_lot_id"`
	BatchID        *int64          `json:"batch_id,omitempty" db:"batch_id"`
	Quantity       int             `json:"quantity" db:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price" db:"unit_price"`
	Discount       decimal.Decimal `json:"discount" db:"discount"`
	LineTotal      decimal.Decimal `json:"line_total" db:"line_total"`
	BatchNumber    *string         `json:"batch_number,omitempty" db:"batch_number"`
	BatchExpiry    *time.Time      `json:"batch_expiry,omitempty" db:"batch_expiry"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	Product        *Product        `json:"product,omitempty"`
}

// SaleFilters defines the available filters for querying the sale ledger.
type SaleFilters struct {
	CustomerID  *int64  `form:"customer_id"`
	ProcessedBy *int64  `form:"processed_by"`
	Status      *string `form:"status"`
	Date        *string `form:"date"` // Expected format YYYY-MM-DD
	Page        int     `form:"page"`
	PageSize    int     `form:"page_size"`
}
