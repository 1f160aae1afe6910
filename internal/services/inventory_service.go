package services

import (
	"fmt"
	"strings"
	"time"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"
)

// CreateLotRequest defines the payload for registering a new inventory lot.
type CreateLotRequest struct {
	ProductID       int64      `json:"product_id" binding:"required"`
	BatchLabel      string     `json:"batch_label" binding:"required"`
	Quantity        int        `json:"quantity"`
	ExpiryDate      *time.Time `json:"expiry_date"`
	StorageLocation *string    `json:"storage_location"`
	ReorderLevel    int        `json:"reorder_level"`
}

// UpdateLotRequest defines the payload for updating lot metadata.
// Quantity is not part of the payload: quantity changes only happen through
// AdjustLotQuantity so the audit trail stays complete.
type UpdateLotRequest struct {
	BatchLabel      string     `json:"batch_label" binding:"required"`
	ExpiryDate      *time.Time `json:"expiry_date"`
	StorageLocation *string    `json:"storage_location"`
	ReorderLevel    int        `json:"reorder_level"`
}

// AdjustLotRequest defines the payload for a manual stock correction.
type AdjustLotRequest struct {
	QuantityChange int     `json:"quantity_change" binding:"required"`
	Reason         *string `json:"reason"`
}

// InventoryService defines the interface for inventory lot business logic.
type InventoryService interface {
	CreateLot(req CreateLotRequest) (*models.InventoryLot, error)
	GetLotByID(id int64) (*models.InventoryLot, error)
	GetLots(filters models.LotFilters) ([]models.InventoryLot, int, error)
	UpdateLot(id int64, req UpdateLotRequest) (*models.InventoryLot, error)
	DeleteLot(id int64) error
	AdjustLotQuantity(id int64, userID int64, req AdjustLotRequest) (*models.InventoryLot, error)
	GetMovements(lotID *int64, movementType *string, page, pageSize int) ([]models.StockMovement, int, error)
}

type inventoryService struct {
	inventoryRepo repositories.InventoryRepository
	productRepo   repositories.ProductRepository
	txBeginner    repositories.TxBeginner
}

// NewInventoryService creates a new instance of InventoryService.
func NewInventoryService(
	inventoryRepo repositories.InventoryRepository,
	productRepo repositories.ProductRepository,
	txBeginner repositories.TxBeginner,
) InventoryService {
	return &inventoryService{inventoryRepo: inventoryRepo, productRepo: productRepo, txBeginner: txBeginner}
}

func (s *inventoryService) CreateLot(req CreateLotRequest) (*models.InventoryLot, error) {
	if strings.TrimSpace(req.BatchLabel) == "" {
		return nil, fmt.Errorf("%w: batch label cannot be empty", ErrValidation)
	}
	if req.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", ErrValidation)
	}
	if req.ReorderLevel < 0 {
		return nil, fmt.Errorf("%w: reorder level cannot be negative", ErrValidation)
	}
	if _, err := s.productRepo.GetProductByID(req.ProductID); err != nil {
		return nil, err
	}

	lot := &models.InventoryLot{
		ProductID:       req.ProductID,
		BatchLabel:      strings.TrimSpace(req.BatchLabel),
		Quantity:        req.Quantity,
		ExpiryDate:      req.ExpiryDate,
		StorageLocation: req.StorageLocation,
		ReorderLevel:    req.ReorderLevel,
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for creating lot: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.inventoryRepo.CreateLot(tx, lot); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for creating lot: %w", err)
	}
	return s.inventoryRepo.GetLotByID(lot.ID)
}

func (s *inventoryService) GetLotByID(id int64) (*models.InventoryLot, error) {
	return s.inventoryRepo.GetLotByID(id)
}

func (s *inventoryService) GetLots(filters models.LotFilters) ([]models.InventoryLot, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 20
	}
	return s.inventoryRepo.GetLots(filters)
}

func (s *inventoryService) UpdateLot(id int64, req UpdateLotRequest) (*models.InventoryLot, error) {
	if strings.TrimSpace(req.BatchLabel) == "" {
		return nil, fmt.Errorf("%w: batch label cannot be empty", ErrValidation)
	}
	if req.ReorderLevel < 0 {
		return nil, fmt.Errorf("%w: reorder level cannot be negative", ErrValidation)
	}

	existing, err := s.inventoryRepo.GetLotByID(id)
	if err != nil {
		return nil, err
	}

	existing.BatchLabel = strings.TrimSpace(req.BatchLabel)
	existing.ExpiryDate = req.ExpiryDate
	existing.StorageLocation = req.StorageLocation
	existing.ReorderLevel = req.ReorderLevel

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for updating lot: %w", err)
	}
	defer tx.Rollback()

	if err := s.inventoryRepo.UpdateLot(tx, existing); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for updating lot: %w", err)
	}
	return s.inventoryRepo.GetLotByID(id)
}

func (s *inventoryService) DeleteLot(id int64) error {
	if _, err := s.inventoryRepo.GetLotByID(id); err != nil {
		return err
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for deleting lot: %w", err)
	}
	defer tx.Rollback()

	if err := s.inventoryRepo.DeleteLot(tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction for deleting lot: %w", err)
	}
	return nil
}

// AdjustLotQuantity applies a manual stock correction and records the matching
// audit movement in the same transaction. The guarded update rejects any change
// that would take the quantity below zero.
func (s *inventoryService) AdjustLotQuantity(id int64, userID int64, req AdjustLotRequest) (*models.InventoryLot, error) {
	if req.QuantityChange == 0 {
		return nil, fmt.Errorf("%w: quantity change cannot be zero", ErrValidation)
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for adjusting lot: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.inventoryRepo.GetLotForUpdate(tx, id); err != nil {
		return nil, err
	}
	if _, err := s.inventoryRepo.AdjustQuantity(tx, id, req.QuantityChange); err != nil {
		return nil, err
	}

	movement := &models.StockMovement{
		InventoryLotID:  id,
		UserID:          &userID,
		MovementType:    "adjustment",
		QuantityChanged: req.QuantityChange,
		Reason:          req.Reason,
		MovementDate:    time.Now(),
	}
	if _, err := s.inventoryRepo.CreateMovement(tx, movement); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for adjusting lot: %w", err)
	}
	return s.inventoryRepo.GetLotByID(id)
}

func (s *inventoryService) GetMovements(lotID *int64, movementType *string, page, pageSize int) ([]models.StockMovement, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return s.inventoryRepo.GetMovements(lotID, movementType, page, pageSize)
}
