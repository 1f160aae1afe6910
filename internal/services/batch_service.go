package services

import (
	"fmt"
	"strings"
	"time"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

// Batches within this window of their expiry date are flagged near-expiry.
const nearExpiryMonths = 3

// CreateBatchRequest defines the payload for registering a product batch.
type CreateBatchRequest struct {
	ProductID         int64           `json:"product_id" binding:"required"`
	BatchNumber       string          `json:"batch_number" binding:"required"`
	ManufacturingDate *time.Time      `json:"manufacturing_date"`
	ExpiryDate        time.Time       `json:"expiry_date" binding:"required"`
	Quantity          int             `json:"quantity"`
	PurchasePrice     decimal.Decimal `json:"purchase_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	Supplier          *string         `json:"supplier"`
	Notes             *string         `json:"notes"`
}

// UpdateBatchRequest defines the payload for updating batch metadata.
// Quantity and status are deliberately absent: quantity changes only through
// settlements and reversals, status only through those and the expiry sweep.
type UpdateBatchRequest struct {
	ManufacturingDate *time.Time      `json:"manufacturing_date"`
	ExpiryDate        time.Time       `json:"expiry_date" binding:"required"`
	PurchasePrice     decimal.Decimal `json:"purchase_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	Supplier          *string         `json:"supplier"`
	Notes             *string         `json:"notes"`
}

// BatchService defines the interface for product batch business logic.
type BatchService interface {
	CreateBatch(req CreateBatchRequest) (*models.ProductBatch, error)
	GetBatchByID(id int64) (*models.ProductBatch, error)
	GetBatches(filters models.BatchFilters) ([]models.ProductBatch, int, error)
	UpdateBatch(id int64, req UpdateBatchRequest) (*models.ProductBatch, error)
	DeleteBatch(id int64) error
	// GetBatchOptions returns the product's active batches in first-expiry-
	// first-out order, each annotated against the requested quantity.
	GetBatchOptions(productID int64, quantity int) ([]models.BatchOption, error)
	// ExpireBatches transitions active batches whose expiry date has passed.
	// Returns the number of batches transitioned.
	ExpireBatches(asOf time.Time) (int64, error)
}

type batchService struct {
	batchRepo   repositories.BatchRepository
	productRepo repositories.ProductRepository
	txBeginner  repositories.TxBeginner
}

// NewBatchService creates a new instance of BatchService.
func NewBatchService(
	batchRepo repositories.BatchRepository,
	productRepo repositories.ProductRepository,
	txBeginner repositories.TxBeginner,
) BatchService {
	return &batchService{batchRepo: batchRepo, productRepo: productRepo, txBeginner: txBeginner}
}

// startOfDay truncates a timestamp to its calendar day. All expiry comparisons
// are calendar-day comparisons, not instant comparisons.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (s *batchService) CreateBatch(req CreateBatchRequest) (*models.ProductBatch, error) {
	if strings.TrimSpace(req.BatchNumber) == "" {
		return nil, fmt.Errorf("%w: batch number cannot be empty", ErrValidation)
	}
	if req.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", ErrValidation)
	}
	if req.PurchasePrice.IsNegative() || req.SellingPrice.IsNegative() {
		return nil, fmt.Errorf("%w: prices cannot be negative", ErrValidation)
	}
	// A batch must arrive with shelf life left: the expiry date has to fall
	// strictly after today.
	if !startOfDay(req.ExpiryDate).After(startOfDay(time.Now())) {
		return nil, fmt.Errorf("%w: expiry date must be in the future", ErrValidation)
	}
	if req.ManufacturingDate != nil && !req.ManufacturingDate.Before(req.ExpiryDate) {
		return nil, fmt.Errorf("%w: manufacturing date must precede expiry date", ErrValidation)
	}
	if _, err := s.productRepo.GetProductByID(req.ProductID); err != nil {
		return nil, err
	}

	batch := &models.ProductBatch{
		ProductID:         req.ProductID,
		BatchNumber:       strings.TrimSpace(req.BatchNumber),
		ManufacturingDate: req.ManufacturingDate,
		ExpiryDate:        req.ExpiryDate,
		Quantity:          req.Quantity,
		PurchasePrice:     req.PurchasePrice,
		SellingPrice:      req.SellingPrice,
		Supplier:          req.Supplier,
		Status:            models.BatchStatusActive,
		Notes:             req.Notes,
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for creating batch: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.batchRepo.CreateBatch(tx, batch); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for creating batch: %w", err)
	}
	return s.batchRepo.GetBatchByID(batch.ID)
}

func (s *batchService) GetBatchByID(id int64) (*models.ProductBatch, error) {
	return s.batchRepo.GetBatchByID(id)
}

func (s *batchService) GetBatches(filters models.BatchFilters) ([]models.ProductBatch, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 20
	}
	return s.batchRepo.GetBatches(filters)
}

func (s *batchService) UpdateBatch(id int64, req UpdateBatchRequest) (*models.ProductBatch, error) {
	if req.PurchasePrice.IsNegative() || req.SellingPrice.IsNegative() {
		return nil, fmt.Errorf("%w: prices cannot be negative", ErrValidation)
	}
	if req.ManufacturingDate != nil && !req.ManufacturingDate.Before(req.ExpiryDate) {
		return nil, fmt.Errorf("%w: manufacturing date must precede expiry date", ErrValidation)
	}

	existing, err := s.batchRepo.GetBatchByID(id)
	if err != nil {
		return nil, err
	}

	existing.ManufacturingDate = req.ManufacturingDate
	existing.ExpiryDate = req.ExpiryDate
	existing.PurchasePrice = req.PurchasePrice
	existing.SellingPrice = req.SellingPrice
	existing.Supplier = req.Supplier
	existing.Notes = req.Notes

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for updating batch: %w", err)
	}
	defer tx.Rollback()

	if err := s.batchRepo.UpdateBatch(tx, existing); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for updating batch: %w", err)
	}
	return s.batchRepo.GetBatchByID(id)
}

func (s *batchService) DeleteBatch(id int64) error {
	if _, err := s.batchRepo.GetBatchByID(id); err != nil {
		return err
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for deleting batch: %w", err)
	}
	defer tx.Rollback()

	if err := s.batchRepo.DeleteBatch(tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction for deleting batch: %w", err)
	}
	return nil
}

func (s *batchService) GetBatchOptions(productID int64, quantity int) ([]models.BatchOption, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: requested quantity must be positive", ErrValidation)
	}
	if _, err := s.productRepo.GetProductByID(productID); err != nil {
		return nil, err
	}

	batches, err := s.batchRepo.GetActiveBatchesByProduct(productID)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("%w: product %d has no active batches", ErrConflict, productID)
	}
	return AnnotateBatchOptions(batches, quantity, time.Now()), nil
}

// AnnotateBatchOptions flags each batch against the requested quantity as of
// the given time. The input order is preserved; callers pass batches already in
// first-expiry-first-out order. A batch is selectable only when it has not
// expired and can cover the full requested quantity on its own.
func AnnotateBatchOptions(batches []models.ProductBatch, quantity int, now time.Time) []models.BatchOption {
	today := startOfDay(now)
	nearExpiryCutoff := today.AddDate(0, nearExpiryMonths, 0)

	options := make([]models.BatchOption, 0, len(batches))
	for _, batch := range batches {
		expiry := startOfDay(batch.ExpiryDate)

		flag := models.BatchFlagOK
		switch {
		case expiry.Before(today):
			// The sweep has not run yet; never offer an expired batch.
			flag = models.BatchFlagExpired
		case batch.Quantity < quantity:
			flag = models.BatchFlagInsufficient
		case expiry.Before(nearExpiryCutoff):
			flag = models.BatchFlagNearExpiry
		}

		options = append(options, models.BatchOption{
			Batch:      batch,
			Flag:       flag,
			Selectable: flag == models.BatchFlagOK || flag == models.BatchFlagNearExpiry,
		})
	}
	return options
}

func (s *batchService) ExpireBatches(asOf time.Time) (int64, error) {
	tx, err := s.txBeginner.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for expiry sweep: %w", err)
	}
	defer tx.Rollback()

	count, err := s.batchRepo.MarkExpired(tx, startOfDay(asOf))
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction for expiry sweep: %w", err)
	}
	return count, nil
}
