package models

import "github.com/shopspring/decimal"

// DashboardSummary aggregates the headline numbers for the dashboard page.
type DashboardSummary struct {
	SalesToday         decimal.Decimal `json:"sales_today"`
	SalesThisWeek      decimal.Decimal `json:"sales_this_week"`
	SalesThisMonth     decimal.Decimal `json:"sales_this_month"`
	SalesCountToday    int             `json:"sales_count_today"`
	LowStockLotCount   int             `json:"low_stock_lot_count"`
	ExpiringBatchCount int             `json:"expiring_batch_count"`
	ExpiredBatchCount  int             `json:"expired_batch_count"`
	CustomerCount      int             `json:"customer_count"`
	ActiveProductCount int             `json:"active_product_count"`
}

// SalesByDayRow is one bucket of the sales-over-time report.
type SalesByDayRow struct {
	Day       string          `json:"day"` // YYYY-MM-DD
	SaleCount int             `json:"sale_count"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// TopProductRow is one entry of the best-sellers report.
type TopProductRow struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	QuantitySold int             `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// ReportRequestParams captures the common report query parameters.
type ReportRequestParams struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Limit     int    `form:"limit"`
}
