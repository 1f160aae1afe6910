package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

const csvDateLayout = "2006-01-02"

// lotImportRow is one line of a lot import CSV. Dates and prices come in as
// strings so a malformed cell is reported against its row, not as a file-level
// parse failure.
type lotImportRow struct {
	ProductSKU      string `csv:"product_sku"`
	BatchLabel      string `csv:"batch_label"`
	Quantity        int    `csv:"quantity"`
	ExpiryDate      string `csv:"expiry_date"`
	StorageLocation string `csv:"storage_location"`
	ReorderLevel    int    `csv:"reorder_level"`
}

// batchImportRow is one line of a batch import CSV.
type batchImportRow struct {
	ProductSKU        string `csv:"product_sku"`
	BatchNumber       string `csv:"batch_number"`
	ManufacturingDate string `csv:"manufacturing_date"`
	ExpiryDate        string `csv:"expiry_date"`
	Quantity          int    `csv:"quantity"`
	PurchasePrice     string `csv:"purchase_price"`
	SellingPrice      string `csv:"selling_price"`
	Supplier          string `csv:"supplier"`
}

// ImportRowError reports why one CSV row was rejected. Row numbers are
// 1-based and count data rows, not the header.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarizes a bulk import. The import is all-or-nothing: if any
// row is rejected, nothing is written and Errors lists every bad row.
type ImportResult struct {
	Imported int              `json:"imported"`
	Errors   []ImportRowError `json:"errors"`
}

// ImportService defines the interface for CSV bulk imports.
type ImportService interface {
	ImportLots(reader io.Reader, userID int64) (*ImportResult, error)
	ImportBatches(reader io.Reader) (*ImportResult, error)
}

type importService struct {
	productRepo   repositories.ProductRepository
	inventoryRepo repositories.InventoryRepository
	batchRepo     repositories.BatchRepository
	txBeginner    repositories.TxBeginner
}

// NewImportService creates a new instance of ImportService.
func NewImportService(
	productRepo repositories.ProductRepository,
	inventoryRepo repositories.InventoryRepository,
	batchRepo repositories.BatchRepository,
	txBeginner repositories.TxBeginner,
) ImportService {
	return &importService{
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		batchRepo:     batchRepo,
		txBeginner:    txBeginner,
	}
}

func (s *importService) ImportLots(reader io.Reader, userID int64) (*ImportResult, error) {
	var rows []lotImportRow
	if err := gocsv.Unmarshal(reader, &rows); err != nil {
		return nil, fmt.Errorf("%w: could not parse CSV: %v", ErrValidation, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: CSV contains no data rows", ErrValidation)
	}

	result := &ImportResult{Errors: []ImportRowError{}}

	// Resolve and validate every row before touching the database: a single
	// bad row rejects the whole file with the full error list.
	lots := make([]*models.InventoryLot, 0, len(rows))
	for i, row := range rows {
		rowNum := i + 1

		if strings.TrimSpace(row.BatchLabel) == "" {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "batch_label is required"})
			continue
		}
		if row.Quantity < 0 {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "quantity cannot be negative"})
			continue
		}
		if row.ReorderLevel < 0 {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "reorder_level cannot be negative"})
			continue
		}

		product, err := s.productRepo.GetProductBySKU(strings.TrimSpace(row.ProductSKU))
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: fmt.Sprintf("unknown product SKU '%s'", row.ProductSKU)})
			continue
		}

		var expiry *time.Time
		if strings.TrimSpace(row.ExpiryDate) != "" {
			parsed, err := time.Parse(csvDateLayout, strings.TrimSpace(row.ExpiryDate))
			if err != nil {
				result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: fmt.Sprintf("invalid expiry_date '%s'", row.ExpiryDate)})
				continue
			}
			expiry = &parsed
		}

		lot := &models.InventoryLot{
			ProductID:    product.ID,
			BatchLabel:   strings.TrimSpace(row.BatchLabel),
			Quantity:     row.Quantity,
			ExpiryDate:   expiry,
			ReorderLevel: row.ReorderLevel,
		}
		if strings.TrimSpace(row.StorageLocation) != "" {
			location := strings.TrimSpace(row.StorageLocation)
			lot.StorageLocation = &location
		}
		lots = append(lots, lot)
	}

	if len(result.Errors) > 0 {
		return result, nil
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for lot import: %w", err)
	}
	defer tx.Rollback()

	for i, lot := range lots {
		if _, err := s.inventoryRepo.CreateLot(tx, lot); err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: i + 1, Message: err.Error()})
			result.Imported = 0
			return result, nil
		}
		if lot.Quantity > 0 {
			reason := "bulk import"
			movement := &models.StockMovement{
				InventoryLotID:  lot.ID,
				UserID:          &userID,
				MovementType:    "import",
				QuantityChanged: lot.Quantity,
				Reason:          &reason,
				MovementDate:    time.Now(),
			}
			if _, err := s.inventoryRepo.CreateMovement(tx, movement); err != nil {
				return nil, err
			}
		}
		result.Imported++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit lot import: %w", err)
	}
	return result, nil
}

func (s *importService) ImportBatches(reader io.Reader) (*ImportResult, error) {
	var rows []batchImportRow
	if err := gocsv.Unmarshal(reader, &rows); err != nil {
		return nil, fmt.Errorf("%w: could not parse CSV: %v", ErrValidation, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: CSV contains no data rows", ErrValidation)
	}

	result := &ImportResult{Errors: []ImportRowError{}}
	today := startOfDay(time.Now())

	batches := make([]*models.ProductBatch, 0, len(rows))
	for i, row := range rows {
		rowNum := i + 1

		if strings.TrimSpace(row.BatchNumber) == "" {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "batch_number is required"})
			continue
		}
		if row.Quantity < 0 {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "quantity cannot be negative"})
			continue
		}

		product, err := s.productRepo.GetProductBySKU(strings.TrimSpace(row.ProductSKU))
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: fmt.Sprintf("unknown product SKU '%s'", row.ProductSKU)})
			continue
		}

		expiry, err := time.Parse(csvDateLayout, strings.TrimSpace(row.ExpiryDate))
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: fmt.Sprintf("invalid expiry_date '%s'", row.ExpiryDate)})
			continue
		}
		if !startOfDay(expiry).After(today) {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "expiry_date must be in the future"})
			continue
		}

		var manufacturing *time.Time
		if strings.TrimSpace(row.ManufacturingDate) != "" {
			parsed, err := time.Parse(csvDateLayout, strings.TrimSpace(row.ManufacturingDate))
			if err != nil {
				result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: fmt.Sprintf("invalid manufacturing_date '%s'", row.ManufacturingDate)})
				continue
			}
			manufacturing = &parsed
		}

		purchasePrice, err := decimal.NewFromString(strings.TrimSpace(row.PurchasePrice))
		if err != nil || purchasePrice.IsNegative() {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: fmt.Sprintf("invalid purchase_price '%s'", row.PurchasePrice)})
			continue
		}
		sellingPrice, err := decimal.NewFromString(strings.TrimSpace(row.SellingPrice))
		if err != nil || sellingPrice.IsNegative() {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: fmt.Sprintf("invalid selling_price '%s'", row.SellingPrice)})
			continue
		}

		batch := &models.ProductBatch{
			ProductID:         product.ID,
			BatchNumber:       strings.TrimSpace(row.BatchNumber),
			ManufacturingDate: manufacturing,
			ExpiryDate:        expiry,
			Quantity:          row.Quantity,
			PurchasePrice:     purchasePrice,
			SellingPrice:      sellingPrice,
			Status:            models.BatchStatusActive,
		}
		if strings.TrimSpace(row.Supplier) != "" {
			supplier := strings.TrimSpace(row.Supplier)
			batch.Supplier = &supplier
		}
		batches = append(batches, batch)
	}

	if len(result.Errors) > 0 {
		return result, nil
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for batch import: %w", err)
	}
	defer tx.Rollback()

	for i, batch := range batches {
		if _, err := s.batchRepo.CreateBatch(tx, batch); err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: i + 1, Message: err.Error()})
			result.Imported = 0
			return result, nil
		}
		result.Imported++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch import: %w", err)
	}
	return result, nil
}
