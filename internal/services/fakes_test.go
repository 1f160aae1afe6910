package services

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"
)

// storeState holds all records of the in-memory store. Transactions snapshot
// it on Begin and restore the snapshot on Rollback.
type storeState struct {
	products  map[int64]models.Product
	lots      map[int64]models.InventoryLot
	batches   map[int64]models.ProductBatch
	sales     map[int64]models.Sale
	saleItems map[int64]models.SaleItem
	customers map[int64]models.Customer
	movements map[int64]models.StockMovement
	nextID    int64
}

func newStoreState() *storeState {
	return &storeState{
		products:  map[int64]models.Product{},
		lots:      map[int64]models.InventoryLot{},
		batches:   map[int64]models.ProductBatch{},
		sales:     map[int64]models.Sale{},
		saleItems: map[int64]models.SaleItem{},
		customers: map[int64]models.Customer{},
		movements: map[int64]models.StockMovement{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *storeState) clone() *storeState {
	return &storeState{
		products:  cloneMap(s.products),
		lots:      cloneMap(s.lots),
		batches:   cloneMap(s.batches),
		sales:     cloneMap(s.sales),
		saleItems: cloneMap(s.saleItems),
		customers: cloneMap(s.customers),
		movements: cloneMap(s.movements),
		nextID:    s.nextID,
	}
}

func (s *storeState) id() int64 {
	s.nextID++
	return s.nextID
}

// fakeStore is the shared handle; rollback swaps the state pointer back.
type fakeStore struct {
	state *storeState

	// Error injection hooks.
	failCreateMovement error
	failCreateSaleItem error
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: newStoreState()}
}

type fakeTx struct {
	store    *fakeStore
	snapshot *storeState
	done     bool
}

func (t *fakeTx) Exec(string, ...interface{}) (sql.Result, error) { return nil, nil }
func (t *fakeTx) QueryRow(string, ...interface{}) *sql.Row        { return nil }
func (t *fakeTx) Query(string, ...interface{}) (*sql.Rows, error) { return nil, nil }

func (t *fakeTx) Commit() error {
	t.done = true
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.state = t.snapshot
	return nil
}

type fakeTxBeginner struct {
	store *fakeStore
}

func (b *fakeTxBeginner) Begin() (repositories.Tx, error) {
	return &fakeTx{store: b.store, snapshot: b.store.state.clone()}, nil
}

// --- product repository ---

type fakeProductRepo struct {
	store *fakeStore
}

func (r *fakeProductRepo) CreateProduct(_ repositories.SQLExecutor, product *models.Product) (int64, error) {
	for _, p := range r.store.state.products {
		if p.SKU == product.SKU {
			return 0, fmt.Errorf("%w: product SKU '%s' already exists", repositories.ErrDuplicateKey, product.SKU)
		}
	}
	product.ID = r.store.state.id()
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	r.store.state.products[product.ID] = *product
	return product.ID, nil
}

func (r *fakeProductRepo) GetProductByID(id int64) (*models.Product, error) {
	p, ok := r.store.state.products[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (r *fakeProductRepo) GetProductBySKU(sku string) (*models.Product, error) {
	for _, p := range r.store.state.products {
		if p.SKU == sku {
			out := p
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeProductRepo) GetProducts(filters models.ProductFilters) ([]models.Product, int, error) {
	out := []models.Product{}
	for _, p := range r.store.state.products {
		if filters.Search != nil && *filters.Search != "" &&
			!strings.Contains(strings.ToLower(p.Name), strings.ToLower(*filters.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (r *fakeProductRepo) UpdateProduct(_ repositories.SQLExecutor, product *models.Product) error {
	existing, ok := r.store.state.products[product.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	// SKU column is not part of the UPDATE statement.
	product.SKU = existing.SKU
	r.store.state.products[product.ID] = *product
	return nil
}

func (r *fakeProductRepo) DeleteProduct(_ repositories.SQLExecutor, id int64) error {
	if _, ok := r.store.state.products[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.store.state.products, id)
	return nil
}

func (r *fakeProductRepo) CountReferences(id int64) (*models.ProductReferences, error) {
	refs := &models.ProductReferences{}
	for _, item := range r.store.state.saleItems {
		if item.ProductID == id {
			refs.SaleItemCount++
		}
	}
	for _, lot := range r.store.state.lots {
		if lot.ProductID == id {
			refs.InventoryLotCount++
		}
	}
	return refs, nil
}

// --- inventory repository ---

type fakeInventoryRepo struct {
	store *fakeStore
}

func (r *fakeInventoryRepo) CreateLot(_ repositories.SQLExecutor, lot *models.InventoryLot) (int64, error) {
	for _, l := range r.store.state.lots {
		if l.ProductID == lot.ProductID && l.BatchLabel == lot.BatchLabel {
			return 0, fmt.Errorf("%w: lot for product %d batch '%s' already exists",
				repositories.ErrDuplicateKey, lot.ProductID, lot.BatchLabel)
		}
	}
	lot.ID = r.store.state.id()
	r.store.state.lots[lot.ID] = *lot
	return lot.ID, nil
}

func (r *fakeInventoryRepo) GetLotByID(id int64) (*models.InventoryLot, error) {
	l, ok := r.store.state.lots[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &l, nil
}

func (r *fakeInventoryRepo) GetLotForUpdate(_ repositories.SQLExecutor, id int64) (*models.InventoryLot, error) {
	return r.GetLotByID(id)
}

func (r *fakeInventoryRepo) GetLots(filters models.LotFilters) ([]models.InventoryLot, int, error) {
	out := []models.InventoryLot{}
	for _, l := range r.store.state.lots {
		if filters.ProductID != nil && l.ProductID != *filters.ProductID {
			continue
		}
		if filters.LowStock && l.Quantity > l.ReorderLevel {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeInventoryRepo) UpdateLot(_ repositories.SQLExecutor, lot *models.InventoryLot) error {
	existing, ok := r.store.state.lots[lot.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	// Quantity column is not part of the UPDATE statement.
	lot.Quantity = existing.Quantity
	r.store.state.lots[lot.ID] = *lot
	return nil
}

func (r *fakeInventoryRepo) DeleteLot(_ repositories.SQLExecutor, id int64) error {
	if _, ok := r.store.state.lots[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.store.state.lots, id)
	return nil
}

func (r *fakeInventoryRepo) AdjustQuantity(_ repositories.SQLExecutor, lotID int64, quantityChange int) (int, error) {
	lot, ok := r.store.state.lots[lotID]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	if lot.Quantity+quantityChange < 0 {
		return 0, fmt.Errorf("%w: lot ID %d", repositories.ErrInsufficientQuantity, lotID)
	}
	lot.Quantity += quantityChange
	r.store.state.lots[lotID] = lot
	return lot.Quantity, nil
}

func (r *fakeInventoryRepo) CreateMovement(_ repositories.SQLExecutor, movement *models.StockMovement) (int64, error) {
	if r.store.failCreateMovement != nil {
		return 0, r.store.failCreateMovement
	}
	movement.ID = r.store.state.id()
	r.store.state.movements[movement.ID] = *movement
	return movement.ID, nil
}

func (r *fakeInventoryRepo) GetMovements(lotID *int64, movementType *string, _, _ int) ([]models.StockMovement, int, error) {
	out := []models.StockMovement{}
	for _, m := range r.store.state.movements {
		if lotID != nil && m.InventoryLotID != *lotID {
			continue
		}
		if movementType != nil && m.MovementType != *movementType {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

// --- batch repository ---

type fakeBatchRepo struct {
	store *fakeStore
}

func (r *fakeBatchRepo) CreateBatch(_ repositories.SQLExecutor, batch *models.ProductBatch) (int64, error) {
	for _, b := range r.store.state.batches {
		if b.ProductID == batch.ProductID && b.BatchNumber == batch.BatchNumber {
			return 0, fmt.Errorf("%w: batch number '%s' already exists for product %d",
				repositories.ErrDuplicateKey, batch.BatchNumber, batch.ProductID)
		}
	}
	if batch.Status == "" {
		batch.Status = models.BatchStatusActive
	}
	batch.ID = r.store.state.id()
	r.store.state.batches[batch.ID] = *batch
	return batch.ID, nil
}

func (r *fakeBatchRepo) GetBatchByID(id int64) (*models.ProductBatch, error) {
	b, ok := r.store.state.batches[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &b, nil
}

func (r *fakeBatchRepo) GetBatchForUpdate(_ repositories.SQLExecutor, id int64) (*models.ProductBatch, error) {
	return r.GetBatchByID(id)
}

func (r *fakeBatchRepo) GetBatches(filters models.BatchFilters) ([]models.ProductBatch, int, error) {
	out := []models.ProductBatch{}
	for _, b := range r.store.state.batches {
		if filters.ProductID != nil && b.ProductID != *filters.ProductID {
			continue
		}
		if filters.Status != nil && *filters.Status != "" && b.Status != *filters.Status {
			continue
		}
		out = append(out, b)
	}
	sortBatchesFEFO(out)
	return out, len(out), nil
}

func sortBatchesFEFO(batches []models.ProductBatch) {
	sort.Slice(batches, func(i, j int) bool {
		if !batches[i].ExpiryDate.Equal(batches[j].ExpiryDate) {
			return batches[i].ExpiryDate.Before(batches[j].ExpiryDate)
		}
		return batches[i].BatchNumber < batches[j].BatchNumber
	})
}

func (r *fakeBatchRepo) GetActiveBatchesByProduct(productID int64) ([]models.ProductBatch, error) {
	out := []models.ProductBatch{}
	for _, b := range r.store.state.batches {
		if b.ProductID == productID && b.Status == models.BatchStatusActive {
			out = append(out, b)
		}
	}
	sortBatchesFEFO(out)
	return out, nil
}

func (r *fakeBatchRepo) UpdateBatch(_ repositories.SQLExecutor, batch *models.ProductBatch) error {
	existing, ok := r.store.state.batches[batch.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	// Quantity and status columns are not part of the UPDATE statement.
	batch.Quantity = existing.Quantity
	batch.Status = existing.Status
	r.store.state.batches[batch.ID] = *batch
	return nil
}

func (r *fakeBatchRepo) DeleteBatch(_ repositories.SQLExecutor, id int64) error {
	if _, ok := r.store.state.batches[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.store.state.batches, id)
	return nil
}

func (r *fakeBatchRepo) AdjustQuantity(_ repositories.SQLExecutor, batchID int64, quantityChange int) (int, error) {
	batch, ok := r.store.state.batches[batchID]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	if batch.Quantity+quantityChange < 0 {
		return 0, fmt.Errorf("%w: batch ID %d", repositories.ErrInsufficientQuantity, batchID)
	}
	batch.Quantity += quantityChange
	r.store.state.batches[batchID] = batch
	return batch.Quantity, nil
}

func (r *fakeBatchRepo) UpdateStatus(_ repositories.SQLExecutor, batchID int64, status string) error {
	batch, ok := r.store.state.batches[batchID]
	if !ok {
		return repositories.ErrNotFound
	}
	batch.Status = status
	r.store.state.batches[batchID] = batch
	return nil
}

func (r *fakeBatchRepo) MarkExpired(_ repositories.SQLExecutor, asOf time.Time) (int64, error) {
	var count int64
	for id, b := range r.store.state.batches {
		if b.Status == models.BatchStatusActive && b.ExpiryDate.Before(asOf) {
			b.Status = models.BatchStatusExpired
			r.store.state.batches[id] = b
			count++
		}
	}
	return count, nil
}

// --- sale repository ---

type fakeSaleRepo struct {
	store *fakeStore
}

func (r *fakeSaleRepo) CreateSale(_ repositories.SQLExecutor, sale *models.Sale) (int64, error) {
	sale.ID = r.store.state.id()
	r.store.state.sales[sale.ID] = *sale
	return sale.ID, nil
}

func (r *fakeSaleRepo) GetSaleByID(saleID int64) (*models.Sale, error) {
	s, ok := r.store.state.sales[saleID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (r *fakeSaleRepo) GetSales(filters models.SaleFilters) ([]models.Sale, int, error) {
	out := []models.Sale{}
	for _, s := range r.store.state.sales {
		if filters.CustomerID != nil && (s.CustomerID == nil || *s.CustomerID != *filters.CustomerID) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeSaleRepo) DeleteSale(_ repositories.SQLExecutor, saleID int64) (int64, error) {
	if _, ok := r.store.state.sales[saleID]; !ok {
		return 0, repositories.ErrNotFound
	}
	delete(r.store.state.sales, saleID)
	return 1, nil
}

func (r *fakeSaleRepo) CreateSaleItem(_ repositories.SQLExecutor, item *models.SaleItem) (int64, error) {
	if r.store.failCreateSaleItem != nil {
		return 0, r.store.failCreateSaleItem
	}
	item.ID = r.store.state.id()
	r.store.state.saleItems[item.ID] = *item
	return item.ID, nil
}

func (r *fakeSaleRepo) GetSaleItemsBySaleID(saleID int64) ([]models.SaleItem, error) {
	out := []models.SaleItem{}
	for _, item := range r.store.state.saleItems {
		if item.SaleID == saleID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSaleRepo) DeleteSaleItemsBySaleID(_ repositories.SQLExecutor, saleID int64) (int64, error) {
	var count int64
	for id, item := range r.store.state.saleItems {
		if item.SaleID == saleID {
			delete(r.store.state.saleItems, id)
			count++
		}
	}
	return count, nil
}

func (r *fakeSaleRepo) CountSalesByCustomer(customerID int64) (int, error) {
	count := 0
	for _, s := range r.store.state.sales {
		if s.CustomerID != nil && *s.CustomerID == customerID {
			count++
		}
	}
	return count, nil
}

// --- customer repository ---

type fakeCustomerRepo struct {
	store *fakeStore
}

func (r *fakeCustomerRepo) CreateCustomer(_ repositories.SQLExecutor, customer *models.Customer) (int64, error) {
	if customer.PhoneNumber != nil {
		for _, c := range r.store.state.customers {
			if c.PhoneNumber != nil && *c.PhoneNumber == *customer.PhoneNumber {
				return 0, fmt.Errorf("%w: phone number '%s'", repositories.ErrDuplicateKey, *customer.PhoneNumber)
			}
		}
	}
	customer.ID = r.store.state.id()
	r.store.state.customers[customer.ID] = *customer
	return customer.ID, nil
}

func (r *fakeCustomerRepo) GetCustomerByID(id int64) (*models.Customer, error) {
	c, ok := r.store.state.customers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (r *fakeCustomerRepo) GetCustomerByPhoneNumber(phoneNumber string) (*models.Customer, error) {
	for _, c := range r.store.state.customers {
		if c.PhoneNumber != nil && *c.PhoneNumber == phoneNumber {
			out := c
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeCustomerRepo) GetCustomers(_, _ int, _ *string) ([]models.Customer, int, error) {
	out := []models.Customer{}
	for _, c := range r.store.state.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeCustomerRepo) UpdateCustomer(_ repositories.SQLExecutor, customer *models.Customer) error {
	if _, ok := r.store.state.customers[customer.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.store.state.customers[customer.ID] = *customer
	return nil
}

func (r *fakeCustomerRepo) DeleteCustomer(_ repositories.SQLExecutor, id int64) error {
	if _, ok := r.store.state.customers[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.store.state.customers, id)
	return nil
}
