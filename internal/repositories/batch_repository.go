package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pharmacare_backend/internal/models"

	"github.com/lib/pq"
)

// BatchRepository defines the interface for product batch database operations.
type BatchRepository interface {
	CreateBatch(executor SQLExecutor, batch *models.ProductBatch) (int64, error)
	GetBatchByID(id int64) (*models.ProductBatch, error)
	GetBatchForUpdate(executor SQLExecutor, id int64) (*models.ProductBatch, error)
	GetBatches(filters models.BatchFilters) ([]models.ProductBatch, int, error)
	// GetActiveBatchesByProduct returns active batches ordered by expiry date
	// ascending, ties broken by batch number. This is the FEFO source order.
	GetActiveBatchesByProduct(productID int64) ([]models.ProductBatch, error)
	UpdateBatch(executor SQLExecutor, batch *models.ProductBatch) error
	DeleteBatch(executor SQLExecutor, id int64) error
	AdjustQuantity(executor SQLExecutor, batchID int64, quantityChange int) (int, error) // Returns new quantity
	UpdateStatus(executor SQLExecutor, batchID int64, status string) error
	MarkExpired(executor SQLExecutor, asOf time.Time) (int64, error) // Returns number of batches transitioned
}

type batchRepository struct {
	db *sql.DB
}

// NewBatchRepository creates a new instance of BatchRepository.
func NewBatchRepository(db *sql.DB) BatchRepository {
	return &batchRepository{db: db}
}

const batchColumns = `id, product_id, batch_number, manufacturing_date, expiry_date, quantity,
	purchase_price, selling_price, supplier, status, notes, created_at, updated_at`

func scanBatchRow(s interface{ Scan(...interface{}) error }) (*models.ProductBatch, error) {
	batch := &models.ProductBatch{}
	var mfg sql.NullTime
	err := s.Scan(
		&batch.ID, &batch.ProductID, &batch.BatchNumber, &mfg, &batch.ExpiryDate, &batch.Quantity,
		&batch.PurchasePrice, &batch.SellingPrice, &batch.Supplier, &batch.Status, &batch.Notes,
		&batch.CreatedAt, &batch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if mfg.Valid {
		batch.ManufacturingDate = &mfg.Time
	}
	return batch, nil
}

func (r *batchRepository) CreateBatch(executor SQLExecutor, batch *models.ProductBatch) (int64, error) {
	query := `INSERT INTO product_batches
	            (product_id, batch_number, manufacturing_date, expiry_date, quantity,
	             purchase_price, selling_price, supplier, status, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          RETURNING id`
	currentTime := time.Now()

	var mfg sql.NullTime
	if batch.ManufacturingDate != nil && !batch.ManufacturingDate.IsZero() {
		mfg = sql.NullTime{Time: *batch.ManufacturingDate, Valid: true}
	}
	if batch.Status == "" {
		batch.Status = models.BatchStatusActive
	}

	err := executor.QueryRow(query,
		batch.ProductID, batch.BatchNumber, mfg, batch.ExpiryDate, batch.Quantity,
		batch.PurchasePrice, batch.SellingPrice, batch.Supplier, batch.Status, batch.Notes,
		currentTime, currentTime,
	).Scan(&batch.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			if pqErr.Code.Name() == "unique_violation" {
				return 0, fmt.Errorf("%w: batch number '%s' already exists for product %d (constraint: %s)",
					ErrDuplicateKey, batch.BatchNumber, batch.ProductID, pqErr.Constraint)
			}
			if pqErr.Code.Name() == "foreign_key_violation" {
				return 0, fmt.Errorf("%w: invalid product_id %d (constraint: %s)", ErrDatabaseError, batch.ProductID, pqErr.Constraint)
			}
		}
		return 0, fmt.Errorf("%w: creating product batch: %v", ErrDatabaseError, err)
	}
	return batch.ID, nil
}

func (r *batchRepository) GetBatchByID(id int64) (*models.ProductBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM product_batches WHERE id = $1`
	batch, err := scanBatchRow(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting product batch by ID %d: %v", ErrDatabaseError, id, err)
	}
	return batch, nil
}

// GetBatchForUpdate reads a batch under a row lock; must run inside a transaction.
func (r *batchRepository) GetBatchForUpdate(executor SQLExecutor, id int64) (*models.ProductBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM product_batches WHERE id = $1 FOR UPDATE`
	batch, err := scanBatchRow(executor.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking product batch ID %d: %v", ErrDatabaseError, id, err)
	}
	return batch, nil
}

func (r *batchRepository) GetBatches(filters models.BatchFilters) ([]models.ProductBatch, int, error) {
	batches := []models.ProductBatch{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT
	    pb.id, pb.product_id, pb.batch_number, pb.manufacturing_date, pb.expiry_date, pb.quantity,
	    pb.purchase_price, pb.selling_price, pb.supplier, pb.status, pb.notes, pb.created_at, pb.updated_at,
	    p.name AS product_name, p.sku AS product_sku,
	    COUNT(*) OVER() AS total_count
	  FROM product_batches pb
	  JOIN products p ON pb.product_id = p.id`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.ProductID != nil {
		conditions = append(conditions, fmt.Sprintf("pb.product_id = $%d", argCount))
		args = append(args, *filters.ProductID)
		argCount++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("pb.status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY pb.expiry_date, pb.batch_number")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting product batches: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var batch models.ProductBatch
		var product models.Product
		var mfg sql.NullTime
		var productName, productSKU sql.NullString

		if err := rows.Scan(
			&batch.ID, &batch.ProductID, &batch.BatchNumber, &mfg, &batch.ExpiryDate, &batch.Quantity,
			&batch.PurchasePrice, &batch.SellingPrice, &batch.Supplier, &batch.Status, &batch.Notes,
			&batch.CreatedAt, &batch.UpdatedAt,
			&productName, &productSKU, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning product batch: %v", ErrDatabaseError, err)
		}
		if mfg.Valid {
			batch.ManufacturingDate = &mfg.Time
		}
		product.ID = batch.ProductID
		if productName.Valid {
			product.Name = productName.String
		}
		if productSKU.Valid {
			product.SKU = productSKU.String
		}
		batch.Product = &product
		batches = append(batches, batch)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating product batches: %v", ErrDatabaseError, err)
	}
	return batches, totalCount, nil
}

func (r *batchRepository) GetActiveBatchesByProduct(productID int64) ([]models.ProductBatch, error) {
	batches := []models.ProductBatch{}
	query := `SELECT ` + batchColumns + `
	          FROM product_batches
	          WHERE product_id = $1 AND status = $2
	          ORDER BY expiry_date, batch_number`
	rows, err := r.db.Query(query, productID, models.BatchStatusActive)
	if err != nil {
		return nil, fmt.Errorf("%w: getting active batches for product %d: %v", ErrDatabaseError, productID, err)
	}
	defer rows.Close()

	for rows.Next() {
		batch, err := scanBatchRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning active batch: %v", ErrDatabaseError, err)
		}
		batches = append(batches, *batch)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating active batches: %v", ErrDatabaseError, err)
	}
	return batches, nil
}

func (r *batchRepository) UpdateBatch(executor SQLExecutor, batch *models.ProductBatch) error {
	// Quantity and status are excluded: they change only through
	// AdjustQuantity/UpdateStatus inside settlement and sweep transactions.
	query := `UPDATE product_batches SET
	            manufacturing_date = $1, expiry_date = $2, purchase_price = $3, selling_price = $4,
	            supplier = $5, notes = $6, updated_at = $7
	          WHERE id = $8`

	var mfg sql.NullTime
	if batch.ManufacturingDate != nil && !batch.ManufacturingDate.IsZero() {
		mfg = sql.NullTime{Time: *batch.ManufacturingDate, Valid: true}
	}

	result, err := executor.Exec(query,
		mfg, batch.ExpiryDate, batch.PurchasePrice, batch.SellingPrice,
		batch.Supplier, batch.Notes, time.Now(), batch.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating product batch ID %d: %v", ErrDatabaseError, batch.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *batchRepository) DeleteBatch(executor SQLExecutor, id int64) error {
	query := `DELETE FROM product_batches WHERE id = $1`
	result, err := executor.Exec(query, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return fmt.Errorf("%w: product batch ID %d is referenced by sale items (constraint: %s)", ErrDatabaseError, id, pqErr.Constraint)
		}
		return fmt.Errorf("%w: deleting product batch ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustQuantity applies a signed quantity change with the same non-negative
// guard as inventory lots.
func (r *batchRepository) AdjustQuantity(executor SQLExecutor, batchID int64, quantityChange int) (int, error) {
	var newQuantity int
	query := `UPDATE product_batches
	          SET quantity = quantity + $1, updated_at = $2
	          WHERE id = $3 AND quantity + $1 >= 0
	          RETURNING quantity`
	err := executor.QueryRow(query, quantityChange, time.Now(), batchID).Scan(&newQuantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			checkErr := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM product_batches WHERE id = $1)`, batchID).Scan(&exists)
			if checkErr == nil && !exists {
				return 0, ErrNotFound
			}
			return 0, fmt.Errorf("%w: batch ID %d", ErrInsufficientQuantity, batchID)
		}
		return 0, fmt.Errorf("%w: adjusting quantity for batch ID %d: %v", ErrDatabaseError, batchID, err)
	}
	return newQuantity, nil
}

func (r *batchRepository) UpdateStatus(executor SQLExecutor, batchID int64, status string) error {
	query := `UPDATE product_batches SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := executor.Exec(query, status, time.Now(), batchID)
	if err != nil {
		return fmt.Errorf("%w: updating status for batch ID %d: %v", ErrDatabaseError, batchID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkExpired transitions active batches whose expiry date has passed.
// Called by the scheduled sweep; the data layer itself never auto-expires.
func (r *batchRepository) MarkExpired(executor SQLExecutor, asOf time.Time) (int64, error) {
	query := `UPDATE product_batches
	          SET status = $1, updated_at = $2
	          WHERE status = $3 AND expiry_date < $4`
	result, err := executor.Exec(query, models.BatchStatusExpired, time.Now(), models.BatchStatusActive, asOf)
	if err != nil {
		return 0, fmt.Errorf("%w: marking expired batches: %v", ErrDatabaseError, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for expiry sweep: %v", ErrDatabaseError, err)
	}
	return rowsAffected, nil
}
