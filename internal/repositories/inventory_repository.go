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

// InventoryRepository defines the interface for inventory lot database operations.
type InventoryRepository interface {
	CreateLot(executor SQLExecutor, lot *models.InventoryLot) (int64, error)
	GetLotByID(id int64) (*models.InventoryLot, error)
	GetLotForUpdate(executor SQLExecutor, id int64) (*models.InventoryLot, error)
	GetLots(filters models.LotFilters) ([]models.InventoryLot, int, error)
	UpdateLot(executor SQLExecutor, lot *models.InventoryLot) error
	DeleteLot(executor SQLExecutor, id int64) error
	AdjustQuantity(executor SQLExecutor, lotID int64, quantityChange int) (int, error) // Returns new quantity

	CreateMovement(executor SQLExecutor, movement *models.StockMovement) (int64, error)
	GetMovements(lotID *int64, movementType *string, page, pageSize int) ([]models.StockMovement, int, error)
}

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new instance of InventoryRepository.
func NewInventoryRepository(db *sql.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) CreateLot(executor SQLExecutor, lot *models.InventoryLot) (int64, error) {
	query := `INSERT INTO inventory_lots
	            (product_id, batch_label, quantity, expiry_date, storage_location, reorder_level, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`
	currentTime := time.Now()

	var expiry sql.NullTime
	if lot.ExpiryDate != nil && !lot.ExpiryDate.IsZero() {
		expiry = sql.NullTime{Time: *lot.ExpiryDate, Valid: true}
	}

	err := executor.QueryRow(query,
		lot.ProductID, lot.BatchLabel, lot.Quantity, expiry,
		lot.StorageLocation, lot.ReorderLevel, currentTime, currentTime,
	).Scan(&lot.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			if pqErr.Code.Name() == "unique_violation" {
				return 0, fmt.Errorf("%w: inventory lot for product %d batch '%s' already exists (constraint: %s)",
					ErrDuplicateKey, lot.ProductID, lot.BatchLabel, pqErr.Constraint)
			}
			if pqErr.Code.Name() == "foreign_key_violation" {
				return 0, fmt.Errorf("%w: invalid product_id %d (constraint: %s)", ErrDatabaseError, lot.ProductID, pqErr.Constraint)
			}
		}
		return 0, fmt.Errorf("%w: creating inventory lot: %v", ErrDatabaseError, err)
	}
	return lot.ID, nil
}

const lotColumns = `id, product_id, batch_label, quantity, expiry_date, storage_location, reorder_level, created_at, updated_at`

func scanLot(row *sql.Row) (*models.InventoryLot, error) {
	lot := &models.InventoryLot{}
	var expiry sql.NullTime
	err := row.Scan(
		&lot.ID, &lot.ProductID, &lot.BatchLabel, &lot.Quantity, &expiry,
		&lot.StorageLocation, &lot.ReorderLevel, &lot.CreatedAt, &lot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		lot.ExpiryDate = &expiry.Time
	}
	return lot, nil
}

func (r *inventoryRepository) GetLotByID(id int64) (*models.InventoryLot, error) {
	query := `SELECT ` + lotColumns + ` FROM inventory_lots WHERE id = $1`
	lot, err := scanLot(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting inventory lot by ID %d: %v", ErrDatabaseError, id, err)
	}
	return lot, nil
}

// GetLotForUpdate reads a lot under a row lock. Must run inside a transaction:
// this is what serializes two concurrent settlements against the same lot.
func (r *inventoryRepository) GetLotForUpdate(executor SQLExecutor, id int64) (*models.InventoryLot, error) {
	query := `SELECT ` + lotColumns + ` FROM inventory_lots WHERE id = $1 FOR UPDATE`
	lot, err := scanLot(executor.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking inventory lot ID %d: %v", ErrDatabaseError, id, err)
	}
	return lot, nil
}

func (r *inventoryRepository) GetLots(filters models.LotFilters) ([]models.InventoryLot, int, error) {
	lots := []models.InventoryLot{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT
	    il.id, il.product_id, il.batch_label, il.quantity, il.expiry_date,
	    il.storage_location, il.reorder_level, il.created_at, il.updated_at,
	    p.name AS product_name, p.sku AS product_sku,
	    COUNT(*) OVER() AS total_count
	  FROM inventory_lots il
	  JOIN products p ON il.product_id = p.id`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.ProductID != nil {
		conditions = append(conditions, fmt.Sprintf("il.product_id = $%d", argCount))
		args = append(args, *filters.ProductID)
		argCount++
	}
	if filters.LowStock {
		conditions = append(conditions, "il.quantity <= il.reorder_level")
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY p.name, il.batch_label")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting inventory lots: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var lot models.InventoryLot
		var product models.Product
		var expiry sql.NullTime
		var productName, productSKU sql.NullString

		if err := rows.Scan(
			&lot.ID, &lot.ProductID, &lot.BatchLabel, &lot.Quantity, &expiry,
			&lot.StorageLocation, &lot.ReorderLevel, &lot.CreatedAt, &lot.UpdatedAt,
			&productName, &productSKU, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning inventory lot: %v", ErrDatabaseError, err)
		}
		if expiry.Valid {
			lot.ExpiryDate = &expiry.Time
		}
		product.ID = lot.ProductID
		if productName.Valid {
			product.Name = productName.String
		}
		if productSKU.Valid {
			product.SKU = productSKU.String
		}
		lot.Product = &product
		lots = append(lots, lot)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating inventory lots: %v", ErrDatabaseError, err)
	}
	return lots, totalCount, nil
}

func (r *inventoryRepository) UpdateLot(executor SQLExecutor, lot *models.InventoryLot) error {
	// Quantity is excluded on purpose: all quantity changes go through
	// AdjustQuantity so the non-negative guard and movement audit hold.
	query := `UPDATE inventory_lots SET
	            batch_label = $1, expiry_date = $2, storage_location = $3, reorder_level = $4, updated_at = $5
	          WHERE id = $6`

	var expiry sql.NullTime
	if lot.ExpiryDate != nil && !lot.ExpiryDate.IsZero() {
		expiry = sql.NullTime{Time: *lot.ExpiryDate, Valid: true}
	}

	result, err := executor.Exec(query,
		lot.BatchLabel, expiry, lot.StorageLocation, lot.ReorderLevel, time.Now(), lot.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: updating inventory lot (constraint: %s)", ErrDuplicateKey, pqErr.Constraint)
		}
		return fmt.Errorf("%w: updating inventory lot ID %d: %v", ErrDatabaseError, lot.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *inventoryRepository) DeleteLot(executor SQLExecutor, id int64) error {
	query := `DELETE FROM inventory_lots WHERE id = $1`
	result, err := executor.Exec(query, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return fmt.Errorf("%w: inventory lot ID %d is referenced by sale items (constraint: %s)", ErrDatabaseError, id, pqErr.Constraint)
		}
		return fmt.Errorf("%w: deleting inventory lot ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustQuantity applies a signed quantity change with a non-negative guard.
// The WHERE clause re-checks the balance so a concurrent decrement can never
// drive the quantity below zero.
func (r *inventoryRepository) AdjustQuantity(executor SQLExecutor, lotID int64, quantityChange int) (int, error) {
	var newQuantity int
	query := `UPDATE inventory_lots
	          SET quantity = quantity + $1, updated_at = $2
	          WHERE id = $3 AND quantity + $1 >= 0
	          RETURNING quantity`
	err := executor.QueryRow(query, quantityChange, time.Now(), lotID).Scan(&newQuantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			checkErr := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM inventory_lots WHERE id = $1)`, lotID).Scan(&exists)
			if checkErr == nil && !exists {
				return 0, ErrNotFound
			}
			return 0, fmt.Errorf("%w: lot ID %d", ErrInsufficientQuantity, lotID)
		}
		return 0, fmt.Errorf("%w: adjusting quantity for lot ID %d: %v", ErrDatabaseError, lotID, err)
	}
	return newQuantity, nil
}

func (r *inventoryRepository) CreateMovement(executor SQLExecutor, movement *models.StockMovement) (int64, error) {
	query := `INSERT INTO stock_movements
	          (inventory_lot_id, user_id, movement_type, quantity_changed, reason, movement_date, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	currentTime := time.Now()
	if movement.MovementDate.IsZero() {
		movement.MovementDate = currentTime
	}

	var userID sql.NullInt64
	if movement.UserID != nil {
		userID = sql.NullInt64{Int64: *movement.UserID, Valid: true}
	}

	err := executor.QueryRow(query,
		movement.InventoryLotID, userID, movement.MovementType, movement.QuantityChanged,
		movement.Reason, movement.MovementDate, currentTime,
	).Scan(&movement.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating stock movement: %v", ErrDatabaseError, err)
	}
	return movement.ID, nil
}

func (r *inventoryRepository) GetMovements(lotID *int64, movementType *string, page, pageSize int) ([]models.StockMovement, int, error) {
	movements := []models.StockMovement{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT
	    sm.id, sm.inventory_lot_id, sm.user_id, sm.movement_type, sm.quantity_changed,
	    sm.reason, sm.movement_date, sm.created_at,
	    il.batch_label,
	    COUNT(*) OVER() AS total_count
	  FROM stock_movements sm
	  JOIN inventory_lots il ON sm.inventory_lot_id = il.id`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if lotID != nil {
		conditions = append(conditions, fmt.Sprintf("sm.inventory_lot_id = $%d", argCount))
		args = append(args, *lotID)
		argCount++
	}
	if movementType != nil && *movementType != "" {
		conditions = append(conditions, fmt.Sprintf("sm.movement_type = $%d", argCount))
		args = append(args, *movementType)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY sm.movement_date DESC, sm.created_at DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting stock movements: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var movement models.StockMovement
		var lot models.InventoryLot
		var userID sql.NullInt64
		var batchLabel sql.NullString

		if err := rows.Scan(
			&movement.ID, &movement.InventoryLotID, &userID, &movement.MovementType, &movement.QuantityChanged,
			&movement.Reason, &movement.MovementDate, &movement.CreatedAt,
			&batchLabel, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning stock movement: %v", ErrDatabaseError, err)
		}
		if userID.Valid {
			movement.UserID = &userID.Int64
		}
		lot.ID = movement.InventoryLotID
		if batchLabel.Valid {
			lot.BatchLabel = batchLabel.String
		}
		movement.Lot = &lot
		movements = append(movements, movement)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating stock movements: %v", ErrDatabaseError, err)
	}
	return movements, totalCount, nil
}
