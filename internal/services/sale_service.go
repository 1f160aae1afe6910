package services

import (
	"errors"
	"fmt"
	"time"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Sale statuses.
const (
	SaleStatusCompleted = "completed"
)

var validPaymentMethods = map[string]bool{
	"cash":   true,
	"card":   true,
	"mobile": true,
}

// SaleItemRequest is one line of a settlement request. The cashier picks the
// lot (and optionally the batch); pricing is resolved server-side.
type SaleItemRequest struct {
	ProductID      int64           `json:"product_id" binding:"required"`
	InventoryLotID int64           `json:"inventory_lot_id" binding:"required"`
	BatchID        *int64          `json:"batch_id"`
	Quantity       int             `json:"quantity" binding:"required"`
	Discount       decimal.Decimal `json:"discount"`
}

// CreateSaleRequest defines the payload for settling a sale.
type CreateSaleRequest struct {
	CustomerID          *int64            `json:"customer_id"`
	PaymentMethod       string            `json:"payment_method" binding:"required"`
	PrescriptionFlag    bool              `json:"prescription_flag"`
	PrescriptionDetails *string           `json:"prescription_details"`
	Items               []SaleItemRequest `json:"items" binding:"required,min=1"`
}

// SaleService defines the interface for point-of-sale business logic.
type SaleService interface {
	// CreateSale settles a sale: it decrements the chosen lots and batches,
	// records the audit movements and writes the ledger rows, all in one
	// transaction. processedBy is the authenticated user performing the sale.
	CreateSale(processedBy int64, req CreateSaleRequest) (*models.Sale, error)
	GetSaleByID(id int64) (*models.Sale, error)
	GetSales(filters models.SaleFilters) ([]models.Sale, int, error)
	// ReverseSale undoes a settlement: stock is restored first, then the
	// ledger rows are removed, in one transaction.
	ReverseSale(id int64, reversedBy int64) error
}

type saleService struct {
	saleRepo      repositories.SaleRepository
	inventoryRepo repositories.InventoryRepository
	batchRepo     repositories.BatchRepository
	productRepo   repositories.ProductRepository
	customerRepo  repositories.CustomerRepository
	txBeginner    repositories.TxBeginner
}

// NewSaleService creates a new instance of SaleService.
func NewSaleService(
	saleRepo repositories.SaleRepository,
	inventoryRepo repositories.InventoryRepository,
	batchRepo repositories.BatchRepository,
	productRepo repositories.ProductRepository,
	customerRepo repositories.CustomerRepository,
	txBeginner repositories.TxBeginner,
) SaleService {
	return &saleService{
		saleRepo:      saleRepo,
		inventoryRepo: inventoryRepo,
		batchRepo:     batchRepo,
		productRepo:   productRepo,
		customerRepo:  customerRepo,
		txBeginner:    txBeginner,
	}
}

// isRetryableTxError reports whether the transaction failed on a serialization
// conflict or deadlock, which a single retry usually resolves.
func isRetryableTxError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func (s *saleService) CreateSale(processedBy int64, req CreateSaleRequest) (*models.Sale, error) {
	if err := s.validateSaleRequest(req); err != nil {
		return nil, err
	}

	sale, err := s.settle(processedBy, req)
	if err != nil && isRetryableTxError(err) {
		sale, err = s.settle(processedBy, req)
	}
	if err != nil {
		return nil, err
	}
	return s.GetSaleByID(sale.ID)
}

func (s *saleService) validateSaleRequest(req CreateSaleRequest) error {
	if !validPaymentMethods[req.PaymentMethod] {
		return fmt.Errorf("%w: invalid payment method '%s'", ErrValidation, req.PaymentMethod)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: sale must contain at least one item", ErrValidation)
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be positive", ErrValidation, i+1)
		}
		if item.Discount.IsNegative() {
			return fmt.Errorf("%w: item %d discount cannot be negative", ErrValidation, i+1)
		}
	}
	if req.CustomerID != nil {
		if _, err := s.customerRepo.GetCustomerByID(*req.CustomerID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: customer %d not found", ErrValidation, *req.CustomerID)
			}
			return err
		}
	}
	return nil
}

// settle runs one settlement attempt inside a single transaction.
func (s *saleService) settle(processedBy int64, req CreateSaleRequest) (*models.Sale, error) {
	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for sale: %w", err)
	}
	defer tx.Rollback()

	today := startOfDay(time.Now())

	type resolvedItem struct {
		req       SaleItemRequest
		unitPrice decimal.Decimal
		lineTotal decimal.Decimal
		batch     *models.ProductBatch
	}

	resolved := make([]resolvedItem, 0, len(req.Items))
	total := decimal.Zero
	prescriptionNeeded := false

	for _, item := range req.Items {
		product, err := s.productRepo.GetProductByID(item.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: product %d not found", ErrValidation, item.ProductID)
			}
			return nil, err
		}
		if product.RequiresPrescription {
			prescriptionNeeded = true
		}

		// Lock the lot row before re-checking its balance so two concurrent
		// settlements against the same lot serialize here.
		lot, err := s.inventoryRepo.GetLotForUpdate(tx, item.InventoryLotID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: inventory lot %d not found", ErrValidation, item.InventoryLotID)
			}
			return nil, err
		}
		if lot.ProductID != item.ProductID {
			return nil, fmt.Errorf("%w: inventory lot %d does not belong to product %d", ErrValidation, lot.ID, item.ProductID)
		}
		if lot.Quantity < item.Quantity {
			return nil, fmt.Errorf("%w: lot %d has %d unit(s), %d requested",
				repositories.ErrInsufficientQuantity, lot.ID, lot.Quantity, item.Quantity)
		}

		unitPrice := product.Price
		var batch *models.ProductBatch
		if item.BatchID != nil {
			batch, err = s.batchRepo.GetBatchForUpdate(tx, *item.BatchID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return nil, fmt.Errorf("%w: batch %d not found", ErrValidation, *item.BatchID)
				}
				return nil, err
			}
			if batch.ProductID != item.ProductID {
				return nil, fmt.Errorf("%w: batch %d does not belong to product %d", ErrValidation, batch.ID, item.ProductID)
			}
			if batch.Status != models.BatchStatusActive {
				return nil, fmt.Errorf("%w: batch %d is %s", ErrConflict, batch.ID, batch.Status)
			}
			if startOfDay(batch.ExpiryDate).Before(today) {
				return nil, fmt.Errorf("%w: batch %d expired on %s", ErrConflict, batch.ID, batch.ExpiryDate.Format("2006-01-02"))
			}
			if batch.Quantity < item.Quantity {
				return nil, fmt.Errorf("%w: batch %d has %d unit(s), %d requested",
					repositories.ErrInsufficientQuantity, batch.ID, batch.Quantity, item.Quantity)
			}
			unitPrice = batch.SellingPrice
		}

		if item.Discount.GreaterThan(unitPrice) {
			return nil, fmt.Errorf("%w: discount exceeds unit price", ErrValidation)
		}

		lineTotal := unitPrice.Sub(item.Discount).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(lineTotal)
		resolved = append(resolved, resolvedItem{req: item, unitPrice: unitPrice, lineTotal: lineTotal, batch: batch})
	}

	if prescriptionNeeded && !req.PrescriptionFlag {
		return nil, fmt.Errorf("%w: sale contains prescription-only products but no prescription was recorded", ErrValidation)
	}

	sale := &models.Sale{
		CustomerID:          req.CustomerID,
		ProcessedBy:         processedBy,
		Status:              SaleStatusCompleted,
		TotalAmount:         total,
		PaymentMethod:       req.PaymentMethod,
		PrescriptionFlag:    req.PrescriptionFlag,
		PrescriptionDetails: req.PrescriptionDetails,
		SaleTime:            time.Now(),
	}
	if _, err := s.saleRepo.CreateSale(tx, sale); err != nil {
		return nil, err
	}

	for _, ri := range resolved {
		saleItem := &models.SaleItem{
			SaleID:         sale.ID,
			ProductID:      ri.req.ProductID,
			InventoryLotID: ri.req.InventoryLotID,
			BatchID:        ri.req.BatchID,
			Quantity:       ri.req.Quantity,
			UnitPrice:      ri.unitPrice,
			Discount:       ri.req.Discount,
			LineTotal:      ri.lineTotal,
		}
		if ri.batch != nil {
			batchNumber := ri.batch.BatchNumber
			batchExpiry := ri.batch.ExpiryDate
			saleItem.BatchNumber = &batchNumber
			saleItem.BatchExpiry = &batchExpiry
		}
		if _, err := s.saleRepo.CreateSaleItem(tx, saleItem); err != nil {
			return nil, err
		}

		if _, err := s.inventoryRepo.AdjustQuantity(tx, ri.req.InventoryLotID, -ri.req.Quantity); err != nil {
			return nil, err
		}
		if ri.batch != nil {
			newQuantity, err := s.batchRepo.AdjustQuantity(tx, ri.batch.ID, -ri.req.Quantity)
			if err != nil {
				return nil, err
			}
			if newQuantity == 0 {
				if err := s.batchRepo.UpdateStatus(tx, ri.batch.ID, models.BatchStatusDepleted); err != nil {
					return nil, err
				}
			}
		}

		reason := fmt.Sprintf("sale #%d", sale.ID)
		movement := &models.StockMovement{
			InventoryLotID:  ri.req.InventoryLotID,
			UserID:          &processedBy,
			MovementType:    "sale",
			QuantityChanged: -ri.req.Quantity,
			Reason:          &reason,
			MovementDate:    sale.SaleTime,
		}
		if _, err := s.inventoryRepo.CreateMovement(tx, movement); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sale transaction: %w", err)
	}
	return sale, nil
}

func (s *saleService) GetSaleByID(id int64) (*models.Sale, error) {
	sale, err := s.saleRepo.GetSaleByID(id)
	if err != nil {
		return nil, err
	}

	items, err := s.saleRepo.GetSaleItemsBySaleID(id)
	if err != nil {
		return nil, err
	}
	sale.Items = items

	if sale.CustomerID != nil {
		customer, err := s.customerRepo.GetCustomerByID(*sale.CustomerID)
		if err == nil {
			sale.Customer = customer
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}
	return sale, nil
}

func (s *saleService) GetSales(filters models.SaleFilters) ([]models.Sale, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 20
	}
	return s.saleRepo.GetSales(filters)
}

func (s *saleService) ReverseSale(id int64, reversedBy int64) error {
	if _, err := s.saleRepo.GetSaleByID(id); err != nil {
		return err
	}
	items, err := s.saleRepo.GetSaleItemsBySaleID(id)
	if err != nil {
		return err
	}

	err = s.reverse(id, reversedBy, items)
	if err != nil && isRetryableTxError(err) {
		err = s.reverse(id, reversedBy, items)
	}
	return err
}

// reverse runs one reversal attempt inside a single transaction. Stock is
// restored before the ledger rows are removed, so a failure part-way leaves
// the sale intact rather than the stock short.
func (s *saleService) reverse(saleID int64, reversedBy int64, items []models.SaleItem) error {
	tx, err := s.txBeginner.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for reversal: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		if _, err := s.inventoryRepo.GetLotForUpdate(tx, item.InventoryLotID); err != nil {
			return err
		}
		if _, err := s.inventoryRepo.AdjustQuantity(tx, item.InventoryLotID, item.Quantity); err != nil {
			return err
		}

		if item.BatchID != nil {
			batch, err := s.batchRepo.GetBatchForUpdate(tx, *item.BatchID)
			if err != nil {
				return err
			}
			if _, err := s.batchRepo.AdjustQuantity(tx, batch.ID, item.Quantity); err != nil {
				return err
			}
			// A batch the sale depleted comes back to life with its stock.
			// Expired stays expired: the sweep's verdict outlives the sale.
			if batch.Status == models.BatchStatusDepleted {
				if err := s.batchRepo.UpdateStatus(tx, batch.ID, models.BatchStatusActive); err != nil {
					return err
				}
			}
		}

		reason := fmt.Sprintf("reversal of sale #%d", saleID)
		movement := &models.StockMovement{
			InventoryLotID:  item.InventoryLotID,
			UserID:          &reversedBy,
			MovementType:    "reversal",
			QuantityChanged: item.Quantity,
			Reason:          &reason,
			MovementDate:    time.Now(),
		}
		if _, err := s.inventoryRepo.CreateMovement(tx, movement); err != nil {
			return err
		}
	}

	if _, err := s.saleRepo.DeleteSaleItemsBySaleID(tx, saleID); err != nil {
		return err
	}
	if _, err := s.saleRepo.DeleteSale(tx, saleID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reversal transaction: %w", err)
	}
	return nil
}
