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

// SaleRepository defines the interface for sale ledger database operations.
type SaleRepository interface {
	CreateSale(executor SQLExecutor, sale *models.Sale) (int64, error)
	GetSaleByID(saleID int64) (*models.Sale, error)
	GetSales(filters models.SaleFilters) ([]models.Sale, int, error) // sales, total count, error
	DeleteSale(executor SQLExecutor, saleID int64) (int64, error)

	CreateSaleItem(executor SQLExecutor, item *models.SaleItem) (int64, error)
	GetSaleItemsBySaleID(saleID int64) ([]models.SaleItem, error)
	DeleteSaleItemsBySaleID(executor SQLExecutor, saleID int64) (int64, error)

	CountSalesByCustomer(customerID int64) (int, error) // Used by the customer deletion guard
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository.
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) CreateSale(executor SQLExecutor, sale *models.Sale) (int64, error) {
	query := `INSERT INTO sales
	            (customer_id, processed_by, status, total_amount, payment_method,
	             prescription_flag, prescription_details, sale_time, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`

	if sale.SaleTime.IsZero() {
		sale.SaleTime = time.Now()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}
	if sale.UpdatedAt.IsZero() {
		sale.UpdatedAt = time.Now()
	}

	err := executor.QueryRow(query,
		sale.CustomerID, sale.ProcessedBy, sale.Status, sale.TotalAmount, sale.PaymentMethod,
		sale.PrescriptionFlag, sale.PrescriptionDetails, sale.SaleTime, sale.CreatedAt, sale.UpdatedAt,
	).Scan(&sale.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return 0, fmt.Errorf("%w: creating sale (constraint: %s): %v", ErrDatabaseError, pqErr.Constraint, err)
		}
		return 0, fmt.Errorf("%w: creating sale: %v", ErrDatabaseError, err)
	}
	return sale.ID, nil
}

func (r *saleRepository) GetSaleByID(saleID int64) (*models.Sale, error) {
	sale := &models.Sale{}
	query := `SELECT id, customer_id, processed_by, status, total_amount, payment_method,
	                 prescription_flag, prescription_details, sale_time, created_at, updated_at
	          FROM sales
	          WHERE id = $1`
	err := r.db.QueryRow(query, saleID).Scan(
		&sale.ID, &sale.CustomerID, &sale.ProcessedBy, &sale.Status, &sale.TotalAmount, &sale.PaymentMethod,
		&sale.PrescriptionFlag, &sale.PrescriptionDetails, &sale.SaleTime, &sale.CreatedAt, &sale.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting sale by ID %d: %v", ErrDatabaseError, saleID, err)
	}
	return sale, nil
}

func (r *saleRepository) GetSales(filters models.SaleFilters) ([]models.Sale, int, error) {
	sales := []models.Sale{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
        SELECT
            s.id, s.customer_id, s.processed_by, s.status, s.total_amount, s.payment_method,
            s.prescription_flag, s.prescription_details, s.sale_time, s.created_at, s.updated_at,
            c.full_name AS customer_name, c.phone_number AS customer_phone,
            u.full_name AS processed_by_name,
            COUNT(*) OVER() AS total_count
        FROM sales s
        LEFT JOIN customers c ON s.customer_id = c.id
        LEFT JOIN users u ON s.processed_by = u.id
    `)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("s.customer_id = $%d", argCounter))
		args = append(args, *filters.CustomerID)
		argCounter++
	}
	if filters.ProcessedBy != nil {
		conditions = append(conditions, fmt.Sprintf("s.processed_by = $%d", argCounter))
		args = append(args, *filters.ProcessedBy)
		argCounter++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", argCounter))
		args = append(args, *filters.Status)
		argCounter++
	}
	if filters.Date != nil && *filters.Date != "" {
		parsedDate, err := time.Parse("2006-01-02", *filters.Date)
		if err == nil {
			startOfDay := time.Date(parsedDate.Year(), parsedDate.Month(), parsedDate.Day(), 0, 0, 0, 0, parsedDate.Location())
			endOfDay := startOfDay.AddDate(0, 0, 1).Add(-time.Nanosecond)
			conditions = append(conditions, fmt.Sprintf("s.sale_time BETWEEN $%d AND $%d", argCounter, argCounter+1))
			args = append(args, startOfDay, endOfDay)
			argCounter += 2
		}
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY s.sale_time DESC")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCounter))
		args = append(args, filters.PageSize)
		argCounter++
		if filters.Page > 0 {
			offset := (filters.Page - 1) * filters.PageSize
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCounter))
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying sales: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Sale
		var customerName, customerPhone, processedByName sql.NullString

		err := rows.Scan(
			&s.ID, &s.CustomerID, &s.ProcessedBy, &s.Status, &s.TotalAmount, &s.PaymentMethod,
			&s.PrescriptionFlag, &s.PrescriptionDetails, &s.SaleTime, &s.CreatedAt, &s.UpdatedAt,
			&customerName, &customerPhone, &processedByName,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning sale: %v", ErrDatabaseError, err)
		}

		if s.CustomerID != nil {
			customer := models.Customer{ID: *s.CustomerID}
			if customerName.Valid {
				customer.FullName = customerName.String
			}
			if customerPhone.Valid {
				phone := customerPhone.String
				customer.PhoneNumber = &phone
			}
			s.Customer = &customer
		}
		if processedByName.Valid {
			name := processedByName.String
			s.ProcessedByUser = &models.User{ID: s.ProcessedBy, FullName: &name}
		}
		sales = append(sales, s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating sale rows: %v", ErrDatabaseError, err)
	}
	return sales, totalCount, nil
}

func (r *saleRepository) DeleteSale(executor SQLExecutor, saleID int64) (int64, error) {
	query := `DELETE FROM sales WHERE id = $1`
	result, err := executor.Exec(query, saleID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting sale ID %d: %v", ErrDatabaseError, saleID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for deleting sale ID %d: %v", ErrDatabaseError, saleID, err)
	}
	if rowsAffected == 0 {
		return 0, ErrNotFound
	}
	return rowsAffected, nil
}

func (r *saleRepository) CreateSaleItem(executor SQLExecutor, item *models.SaleItem) (int64, error) {
	query := `INSERT INTO sale_items
	            (sale_id, product_id, inventory_lot_id, batch_id, quantity, unit_price, discount,
	             line_total, batch_number, batch_expiry, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING id`
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	var batchID sql.NullInt64
	if item.BatchID != nil {
		batchID = sql.NullInt64{Int64: *item.BatchID, Valid: true}
	}
	var batchExpiry sql.NullTime
	if item.BatchExpiry != nil && !item.BatchExpiry.IsZero() {
		batchExpiry = sql.NullTime{Time: *item.BatchExpiry, Valid: true}
	}

	err := executor.QueryRow(query,
		item.SaleID, item.ProductID, item.InventoryLotID, batchID, item.Quantity,
		item.UnitPrice, item.Discount, item.LineTotal, item.BatchNumber, batchExpiry,
		item.CreatedAt,
	).Scan(&item.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return 0, fmt.Errorf("%w: creating sale item (constraint: %s): %v", ErrDatabaseError, pqErr.Constraint, err)
		}
		return 0, fmt.Errorf("%w: creating sale item: %v", ErrDatabaseError, err)
	}
	return item.ID, nil
}

func (r *saleRepository) GetSaleItemsBySaleID(saleID int64) ([]models.SaleItem, error) {
	items := []models.SaleItem{}
	query := `
		SELECT
		    si.id, si.sale_id, si.product_id, si.inventory_lot_id, si.batch_id, si.quantity,
		    si.unit_price, si.discount, si.line_total, si.batch_number, si.batch_expiry, si.created_at,
		    p.name AS product_name, p.sku AS product_sku
		FROM sale_items si
		JOIN products p ON si.product_id = p.id
		WHERE si.sale_id = $1
		ORDER BY si.id`

	rows, err := r.db.Query(query, saleID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying sale items for sale ID %d: %v", ErrDatabaseError, saleID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.SaleItem
		var batchID sql.NullInt64
		var batchExpiry sql.NullTime
		var productName, productSKU sql.NullString

		err := rows.Scan(
			&item.ID, &item.SaleID, &item.ProductID, &item.InventoryLotID, &batchID, &item.Quantity,
			&item.UnitPrice, &item.Discount, &item.LineTotal, &item.BatchNumber, &batchExpiry, &item.CreatedAt,
			&productName, &productSKU,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning sale item for sale ID %d: %v", ErrDatabaseError, saleID, err)
		}

		if batchID.Valid {
			item.BatchID = &batchID.Int64
		}
		if batchExpiry.Valid {
			item.BatchExpiry = &batchExpiry.Time
		}
		product := models.Product{ID: item.ProductID}
		if productName.Valid {
			product.Name = productName.String
		}
		if productSKU.Valid {
			product.SKU = productSKU.String
		}
		item.Product = &product

		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating sale item rows for sale ID %d: %v", ErrDatabaseError, saleID, err)
	}
	return items, nil
}

func (r *saleRepository) DeleteSaleItemsBySaleID(executor SQLExecutor, saleID int64) (int64, error) {
	query := `DELETE FROM sale_items WHERE sale_id = $1`
	result, err := executor.Exec(query, saleID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting sale items for sale ID %d: %v", ErrDatabaseError, saleID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for deleting sale items for sale ID %d: %v", ErrDatabaseError, saleID, err)
	}
	return rowsAffected, nil
}

func (r *saleRepository) CountSalesByCustomer(customerID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sales WHERE customer_id = $1`, customerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting sales for customer %d: %v", ErrDatabaseError, customerID, err)
	}
	return count, nil
}
