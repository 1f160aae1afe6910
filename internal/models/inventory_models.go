package models

import "time"

// InventoryLot is a physical stock record: one quantity of a product held
// under a single batch label at one storage location.
// Unique per (product_id, batch_label). Quantity never goes below zero.
type InventoryLot struct {
	ID              int64      `json:"id" db:"id"`
	ProductID       int64      `json:"product_id" db:"product_id" binding:"required"`
	BatchLabel      string     `json:"batch_label" db:"batch_label" binding:"required"`
	Quantity        int        `json:"quantity" db:"quantity"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	StorageLocation *string    `json:"storage_location,omitempty" db:"storage_location"`
	ReorderLevel    int        `json:"reorder_level" db:"reorder_level"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	Product         *Product   `json:"product,omitempty"`
}

// LotFilters defines the available filters for querying inventory lots.
type LotFilters struct {
	ProductID *int64 `form:"product_id"`
	LowStock  bool   `form:"low_stock"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

// StockMovement is an audit record for every change to a lot's quantity.
type StockMovement struct {
	ID              int64         `json:"id" db:"id"`
	InventoryLotID  int64         `json:"inventory_lot_id" db:"inventory_lot_id"`
	UserID          *int64        `json:"user_id,omitempty" db:"user_id"`
	MovementType    string        `json:"movement_type" db:"movement_type"` // sale, reversal, adjustment, import
	QuantityChanged int           `json:"quantity_changed" db:"quantity_changed"`
	Reason          *string       `json:"reason,omitempty" db:"reason"`
	MovementDate    time.Time     `json:"movement_date" db:"movement_date"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	Lot             *InventoryLot `json:"lot,omitempty"`
}
