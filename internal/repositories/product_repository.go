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

// ProductRepository defines the interface for catalog-related database operations.
type ProductRepository interface {
	CreateProduct(executor SQLExecutor, product *models.Product) (int64, error)
	GetProductByID(id int64) (*models.Product, error)
	GetProductBySKU(sku string) (*models.Product, error)
	GetProducts(filters models.ProductFilters) ([]models.Product, int, error) // products, total count, error
	UpdateProduct(executor SQLExecutor, product *models.Product) error
	DeleteProduct(executor SQLExecutor, id int64) error
	CountReferences(id int64) (*models.ProductReferences, error) // Used by the deletion guard
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository.
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) CreateProduct(executor SQLExecutor, product *models.Product) (int64, error) {
	query := `INSERT INTO products
	            (name, generic_name, category, manufacturer, sku, price, cost_price,
	             requires_prescription, description, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING id`
	currentTime := time.Now()
	err := executor.QueryRow(query,
		product.Name, product.GenericName, product.Category, product.Manufacturer,
		product.SKU, product.Price, product.CostPrice, product.RequiresPrescription,
		product.Description, currentTime, currentTime,
	).Scan(&product.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: product SKU '%s' already exists (constraint: %s)", ErrDuplicateKey, product.SKU, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating product: %v", ErrDatabaseError, err)
	}
	return product.ID, nil
}

func (r *productRepository) GetProductByID(id int64) (*models.Product, error) {
	product := &models.Product{}
	query := `SELECT id, name, generic_name, category, manufacturer, sku, price, cost_price,
	                 requires_prescription, description, created_at, updated_at
	          FROM products WHERE id = $1`
	err := r.db.QueryRow(query, id).Scan(
		&product.ID, &product.Name, &product.GenericName, &product.Category, &product.Manufacturer,
		&product.SKU, &product.Price, &product.CostPrice, &product.RequiresPrescription,
		&product.Description, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting product by ID %d: %v", ErrDatabaseError, id, err)
	}
	return product, nil
}

func (r *productRepository) GetProductBySKU(sku string) (*models.Product, error) {
	product := &models.Product{}
	query := `SELECT id, name, generic_name, category, manufacturer, sku, price, cost_price,
	                 requires_prescription, description, created_at, updated_at
	          FROM products WHERE sku = $1`
	err := r.db.QueryRow(query, sku).Scan(
		&product.ID, &product.Name, &product.GenericName, &product.Category, &product.Manufacturer,
		&product.SKU, &product.Price, &product.CostPrice, &product.RequiresPrescription,
		&product.Description, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting product by SKU %s: %v", ErrDatabaseError, sku, err)
	}
	return product, nil
}

func (r *productRepository) GetProducts(filters models.ProductFilters) ([]models.Product, int, error) {
	products := []models.Product{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, name, generic_name, category, manufacturer, sku, price, cost_price,
	    requires_prescription, description, created_at, updated_at,
	    COUNT(*) OVER() AS total_count
	  FROM products`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Category != nil && *filters.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argCount))
		args = append(args, *filters.Category)
		argCount++
	}
	if filters.Search != nil && *filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR generic_name ILIKE $%d OR sku ILIKE $%d)", argCount, argCount, argCount))
		args = append(args, "%"+*filters.Search+"%")
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY name")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting products: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var product models.Product
		if err := rows.Scan(
			&product.ID, &product.Name, &product.GenericName, &product.Category, &product.Manufacturer,
			&product.SKU, &product.Price, &product.CostPrice, &product.RequiresPrescription,
			&product.Description, &product.CreatedAt, &product.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning product: %v", ErrDatabaseError, err)
		}
		products = append(products, product)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating products: %v", ErrDatabaseError, err)
	}
	return products, totalCount, nil
}

func (r *productRepository) UpdateProduct(executor SQLExecutor, product *models.Product) error {
	// SKU is deliberately absent: it is immutable after creation.
	query := `UPDATE products SET
	            name = $1, generic_name = $2, category = $3, manufacturer = $4,
	            price = $5, cost_price = $6, requires_prescription = $7, description = $8,
	            updated_at = $9
	          WHERE id = $10`
	result, err := executor.Exec(query,
		product.Name, product.GenericName, product.Category, product.Manufacturer,
		product.Price, product.CostPrice, product.RequiresPrescription, product.Description,
		time.Now(), product.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating product ID %d: %v", ErrDatabaseError, product.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) DeleteProduct(executor SQLExecutor, id int64) error {
	query := `DELETE FROM products WHERE id = $1`
	result, err := executor.Exec(query, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return fmt.Errorf("%w: product ID %d is referenced by other records (constraint: %s)", ErrDatabaseError, id, pqErr.Constraint)
		}
		return fmt.Errorf("%w: deleting product ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) CountReferences(id int64) (*models.ProductReferences, error) {
	refs := &models.ProductReferences{}
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sale_items WHERE product_id = $1`, id).Scan(&refs.SaleItemCount)
	if err != nil {
		return nil, fmt.Errorf("%w: counting sale item references for product %d: %v", ErrDatabaseError, id, err)
	}
	err = r.db.QueryRow(`SELECT COUNT(*) FROM inventory_lots WHERE product_id = $1`, id).Scan(&refs.InventoryLotCount)
	if err != nil {
		return nil, fmt.Errorf("%w: counting inventory lot references for product %d: %v", ErrDatabaseError, id, err)
	}
	return refs, nil
}
