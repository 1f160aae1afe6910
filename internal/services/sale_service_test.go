package services

import (
	"errors"
	"testing"
	"time"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

type saleFixture struct {
	store         *fakeStore
	saleService   SaleService
	productRepo   *fakeProductRepo
	inventoryRepo *fakeInventoryRepo
	batchRepo     *fakeBatchRepo
	saleRepo      *fakeSaleRepo
	customerRepo  *fakeCustomerRepo
}

func newSaleFixture() *saleFixture {
	store := newFakeStore()
	productRepo := &fakeProductRepo{store: store}
	inventoryRepo := &fakeInventoryRepo{store: store}
	batchRepo := &fakeBatchRepo{store: store}
	saleRepo := &fakeSaleRepo{store: store}
	customerRepo := &fakeCustomerRepo{store: store}

	return &saleFixture{
		store:         store,
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		batchRepo:     batchRepo,
		saleRepo:      saleRepo,
		customerRepo:  customerRepo,
		saleService: NewSaleService(saleRepo, inventoryRepo, batchRepo, productRepo, customerRepo,
			&fakeTxBeginner{store: store}),
	}
}

func (f *saleFixture) addProduct(t *testing.T, name, sku string, price string, requiresPrescription bool) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:                 name,
		SKU:                  sku,
		Price:                decimal.RequireFromString(price),
		RequiresPrescription: requiresPrescription,
	}
	if _, err := f.productRepo.CreateProduct(nil, product); err != nil {
		t.Fatalf("addProduct: %v", err)
	}
	return product
}

func (f *saleFixture) addLot(t *testing.T, productID int64, label string, quantity int) *models.InventoryLot {
	t.Helper()
	lot := &models.InventoryLot{ProductID: productID, BatchLabel: label, Quantity: quantity}
	if _, err := f.inventoryRepo.CreateLot(nil, lot); err != nil {
		t.Fatalf("addLot: %v", err)
	}
	return lot
}

func (f *saleFixture) addBatch(t *testing.T, productID int64, number string, quantity int, sellingPrice string, expiry time.Time) *models.ProductBatch {
	t.Helper()
	batch := &models.ProductBatch{
		ProductID:    productID,
		BatchNumber:  number,
		Quantity:     quantity,
		SellingPrice: decimal.RequireFromString(sellingPrice),
		ExpiryDate:   expiry,
		Status:       models.BatchStatusActive,
	}
	if _, err := f.batchRepo.CreateBatch(nil, batch); err != nil {
		t.Fatalf("addBatch: %v", err)
	}
	return batch
}

func TestCreateSaleComputesTotalFromSnapshots(t *testing.T) {
	f := newSaleFixture()
	expiry := time.Now().AddDate(1, 0, 0)

	paracetamol := f.addProduct(t, "Paracetamol 500mg", "PARA-500", "2.00", false)
	amoxicillin := f.addProduct(t, "Amoxicillin 250mg", "AMOX-250", "8.00", false)
	paraLot := f.addLot(t, paracetamol.ID, "L-001", 50)
	amoxLot := f.addLot(t, amoxicillin.ID, "L-002", 50)
	amoxBatch := f.addBatch(t, amoxicillin.ID, "B-100", 40, "10.00", expiry)

	sale, err := f.saleService.CreateSale(1, CreateSaleRequest{
		PaymentMethod: "cash",
		Items: []SaleItemRequest{
			// Batch price 10.00 minus 1.00 discount, times 3 = 27.00.
			{ProductID: amoxicillin.ID, InventoryLotID: amoxLot.ID, BatchID: &amoxBatch.ID,
				Quantity: 3, Discount: decimal.RequireFromString("1.00")},
			// Catalog price 2.00, times 1 = 2.00.
			{ProductID: paracetamol.ID, InventoryLotID: paraLot.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	want := decimal.RequireFromString("29.00")
	if !sale.TotalAmount.Equal(want) {
		t.Errorf("total = %s, want %s", sale.TotalAmount, want)
	}
	if len(sale.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(sale.Items))
	}
	for _, item := range sale.Items {
		if item.BatchID != nil {
			if item.BatchNumber == nil || *item.BatchNumber != "B-100" {
				t.Errorf("batch number snapshot missing on batch-backed item")
			}
			if !item.UnitPrice.Equal(decimal.RequireFromString("10.00")) {
				t.Errorf("unit price = %s, want batch selling price 10.00", item.UnitPrice)
			}
		}
	}
}

func TestCreateSaleDecrementsStockAndRecordsMovements(t *testing.T) {
	f := newSaleFixture()
	expiry := time.Now().AddDate(0, 6, 0)

	product := f.addProduct(t, "Ibuprofen 200mg", "IBU-200", "3.50", false)
	lot := f.addLot(t, product.ID, "L-010", 20)
	batch := f.addBatch(t, product.ID, "B-200", 15, "4.00", expiry)

	_, err := f.saleService.CreateSale(7, CreateSaleRequest{
		PaymentMethod: "card",
		Items: []SaleItemRequest{
			{ProductID: product.ID, InventoryLotID: lot.ID, BatchID: &batch.ID, Quantity: 5},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	gotLot := f.store.state.lots[lot.ID]
	if gotLot.Quantity != 15 {
		t.Errorf("lot quantity = %d, want 15", gotLot.Quantity)
	}
	gotBatch := f.store.state.batches[batch.ID]
	if gotBatch.Quantity != 10 {
		t.Errorf("batch quantity = %d, want 10", gotBatch.Quantity)
	}

	movementType := "sale"
	movements, _, err := f.inventoryRepo.GetMovements(&lot.ID, &movementType, 1, 20)
	if err != nil {
		t.Fatalf("GetMovements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("sale movements = %d, want 1", len(movements))
	}
	if movements[0].QuantityChanged != -5 {
		t.Errorf("movement quantity = %d, want -5", movements[0].QuantityChanged)
	}
	if movements[0].UserID == nil || *movements[0].UserID != 7 {
		t.Errorf("movement user = %v, want 7", movements[0].UserID)
	}
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	f := newSaleFixture()

	product := f.addProduct(t, "Cetirizine 10mg", "CET-10", "1.50", false)
	lot := f.addLot(t, product.ID, "L-020", 2)

	_, err := f.saleService.CreateSale(1, CreateSaleRequest{
		PaymentMethod: "cash",
		Items: []SaleItemRequest{
			{ProductID: product.ID, InventoryLotID: lot.ID, Quantity: 5},
		},
	})
	if !errors.Is(err, repositories.ErrInsufficientQuantity) {
		t.Fatalf("err = %v, want ErrInsufficientQuantity", err)
	}

	if got := f.store.state.lots[lot.ID].Quantity; got != 2 {
		t.Errorf("lot quantity = %d, want 2 (unchanged)", got)
	}
	if len(f.store.state.sales) != 0 {
		t.Errorf("sales = %d, want 0", len(f.store.state.sales))
	}
}

func TestCreateSaleRollsBackOnPartialFailure(t *testing.T) {
	f := newSaleFixture()
	expiry := time.Now().AddDate(1, 0, 0)

	product := f.addProduct(t, "Metformin 500mg", "MET-500", "5.00", false)
	lot := f.addLot(t, product.ID, "L-030", 30)
	batch := f.addBatch(t, product.ID, "B-300", 30, "6.00", expiry)

	f.store.failCreateMovement = errors.New("disk full")
	_, err := f.saleService.CreateSale(1, CreateSaleRequest{
		PaymentMethod: "cash",
		Items: []SaleItemRequest{
			{ProductID: product.ID, InventoryLotID: lot.ID, BatchID: &batch.ID, Quantity: 4},
		},
	})
	if err == nil {
		t.Fatal("CreateSale succeeded, want error")
	}

	if got := f.store.state.lots[lot.ID].Quantity; got != 30 {
		t.Errorf("lot quantity = %d, want 30 (rolled back)", got)
	}
	if got := f.store.state.batches[batch.ID].Quantity; got != 30 {
		t.Errorf("batch quantity = %d, want 30 (rolled back)", got)
	}
	if len(f.store.state.sales) != 0 {
		t.Errorf("sales = %d, want 0 (rolled back)", len(f.store.state.sales))
	}
	if len(f.store.state.saleItems) != 0 {
		t.Errorf("sale items = %d, want 0 (rolled back)", len(f.store.state.saleItems))
	}
}

func TestCreateSaleDepletesBatchAtZero(t *testing.T) {
	f := newSaleFixture()
	expiry := time.Now().AddDate(0, 4, 0)

	product := f.addProduct(t, "Omeprazole 20mg", "OME-20", "7.00", false)
	lot := f.addLot(t, product.ID, "L-040", 10)
	batch := f.addBatch(t, product.ID, "B-400", 10, "8.00", expiry)

	_, err := f.saleService.CreateSale(1, CreateSaleRequest{
		PaymentMethod: "cash",
		Items: []SaleItemRequest{
			{ProductID: product.ID, InventoryLotID: lot.ID, BatchID: &batch.ID, Quantity: 10},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	got := f.store.state.batches[batch.ID]
	if got.Status != models.BatchStatusDepleted {
		t.Errorf("batch status = %s, want depleted", got.Status)
	}
	if got.Quantity != 0 {
		t.Errorf("batch quantity = %d, want 0", got.Quantity)
	}
}

func TestCreateSaleRequiresPrescriptionFlag(t *testing.T) {
	f := newSaleFixture()

	product := f.addProduct(t, "Tramadol 50mg", "TRA-50", "12.00", true)
	lot := f.addLot(t, product.ID, "L-050", 10)

	_, err := f.saleService.CreateSale(1, CreateSaleRequest{
		PaymentMethod: "cash",
		Items: []SaleItemRequest{
			{ProductID: product.ID, InventoryLotID: lot.ID, Quantity: 1},
		},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	details := "Rx #4455, Dr. Osei"
	_, err = f.saleService.CreateSale(1, CreateSaleRequest{
		PaymentMethod:       "cash",
		PrescriptionFlag:    true,
		PrescriptionDetails: &details,
		Items: []SaleItemRequest{
			{ProductID: product.ID, InventoryLotID: lot.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale with prescription: %v", err)
	}
}

func TestCreateSaleRejectsExpiredBatch(t *testing.T) {
	f := newSaleFixture()

	product := f.addProduct(t, "Aspirin 100mg", "ASP-100", "1.00", false)
	lot := f.addLot(t, product.ID, "L-060", 10)
	// Active in the store but past its expiry date: the sweep has not run yet.
	batch := f.addBatch(t, product.ID, "B-600", 10, "1.20", time.Now().AddDate(0, 0, -2))

	_, err := f.saleService.CreateSale(1, CreateSaleRequest{
		PaymentMethod: "cash",
		Items: []SaleItemRequest{
			{ProductID: product.ID, InventoryLotID: lot.ID, BatchID: &batch.ID, Quantity: 1},
		},
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestReverseSaleRestoresStockAndReactivatesBatch(t *testing.T) {
	f := newSaleFixture()
	expiry := time.Now().AddDate(0, 8, 0)

	product := f.addProduct(t, "Loratadine 10mg", "LOR-10", "2.50", false)
	lot := f.addLot(t, product.ID, "L-070", 6)
	batch := f.addBatch(t, product.ID, "B-700", 6, "3.00", expiry)

	sale, err := f.saleService.CreateSale(2, CreateSaleRequest{
		PaymentMethod: "cash",
		Items: []SaleItemRequest{
			{ProductID: product.ID, InventoryLotID: lot.ID, BatchID: &batch.ID, Quantity: 6},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if f.store.state.batches[batch.ID].Status != models.BatchStatusDepleted {
		t.Fatal("batch should be depleted after the sale")
	}

	if err := f.saleService.ReverseSale(sale.ID, 2); err != nil {
		t.Fatalf("ReverseSale: %v", err)
	}

	if got := f.store.state.lots[lot.ID].Quantity; got != 6 {
		t.Errorf("lot quantity = %d, want 6 (restored)", got)
	}
	gotBatch := f.store.state.batches[batch.ID]
	if gotBatch.Quantity != 6 {
		t.Errorf("batch quantity = %d, want 6 (restored)", gotBatch.Quantity)
	}
	if gotBatch.Status != models.BatchStatusActive {
		t.Errorf("batch status = %s, want active (reactivated)", gotBatch.Status)
	}

	if _, err := f.saleRepo.GetSaleByID(sale.ID); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("sale still present after reversal")
	}
	if len(f.store.state.saleItems) != 0 {
		t.Errorf("sale items = %d, want 0 after reversal", len(f.store.state.saleItems))
	}

	movementType := "reversal"
	movements, _, err := f.inventoryRepo.GetMovements(&lot.ID, &movementType, 1, 20)
	if err != nil {
		t.Fatalf("GetMovements: %v", err)
	}
	if len(movements) != 1 || movements[0].QuantityChanged != 6 {
		t.Errorf("reversal movements = %+v, want one +6 entry", movements)
	}
}

func TestReverseSaleUnknownID(t *testing.T) {
	f := newSaleFixture()
	if err := f.saleService.ReverseSale(999, 1); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateSaleRejectsLotProductMismatch(t *testing.T) {
	f := newSaleFixture()

	productA := f.addProduct(t, "Vitamin C", "VIT-C", "1.00", false)
	productB := f.addProduct(t, "Vitamin D", "VIT-D", "1.00", false)
	lotB := f.addLot(t, productB.ID, "L-080", 10)

	_, err := f.saleService.CreateSale(1, CreateSaleRequest{
		PaymentMethod: "cash",
		Items: []SaleItemRequest{
			{ProductID: productA.ID, InventoryLotID: lotB.ID, Quantity: 1},
		},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCreateSaleInvalidPaymentMethod(t *testing.T) {
	f := newSaleFixture()
	product := f.addProduct(t, "Zinc", "ZINC-1", "1.00", false)
	lot := f.addLot(t, product.ID, "L-090", 10)

	_, err := f.saleService.CreateSale(1, CreateSaleRequest{
		PaymentMethod: "barter",
		Items: []SaleItemRequest{
			{ProductID: product.ID, InventoryLotID: lot.ID, Quantity: 1},
		},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
