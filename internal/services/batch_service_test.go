package services

import (
	"errors"
	"testing"
	"time"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

type batchFixture struct {
	store        *fakeStore
	batchService BatchService
	productRepo  *fakeProductRepo
	batchRepo    *fakeBatchRepo
}

func newBatchFixture() *batchFixture {
	store := newFakeStore()
	productRepo := &fakeProductRepo{store: store}
	batchRepo := &fakeBatchRepo{store: store}
	return &batchFixture{
		store:        store,
		productRepo:  productRepo,
		batchRepo:    batchRepo,
		batchService: NewBatchService(batchRepo, productRepo, &fakeTxBeginner{store: store}),
	}
}

func (f *batchFixture) addProduct(t *testing.T, name, sku string) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, SKU: sku, Price: decimal.RequireFromString("1.00")}
	if _, err := f.productRepo.CreateProduct(nil, product); err != nil {
		t.Fatalf("addProduct: %v", err)
	}
	return product
}

func makeBatch(productID int64, number string, quantity int, expiry time.Time) models.ProductBatch {
	return models.ProductBatch{
		ProductID:   productID,
		BatchNumber: number,
		Quantity:    quantity,
		ExpiryDate:  expiry,
		Status:      models.BatchStatusActive,
	}
}

func TestAnnotateBatchOptionsFlags(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	batches := []models.ProductBatch{
		makeBatch(1, "B-1", 10, now.AddDate(0, 0, -1)), // already past expiry
		makeBatch(1, "B-2", 10, now.AddDate(0, 1, 0)),  // inside the 3-month window
		makeBatch(1, "B-3", 2, now.AddDate(1, 0, 0)),   // plenty of shelf life, short on stock
		makeBatch(1, "B-4", 10, now.AddDate(1, 0, 0)),  // fine on both counts
	}

	options := AnnotateBatchOptions(batches, 5, now)
	if len(options) != 4 {
		t.Fatalf("options = %d, want 4", len(options))
	}

	cases := []struct {
		flag       string
		selectable bool
	}{
		{models.BatchFlagExpired, false},
		{models.BatchFlagNearExpiry, true},
		{models.BatchFlagInsufficient, false},
		{models.BatchFlagOK, true},
	}
	for i, want := range cases {
		if options[i].Flag != want.flag {
			t.Errorf("option %d (%s): flag = %s, want %s", i, options[i].Batch.BatchNumber, options[i].Flag, want.flag)
		}
		if options[i].Selectable != want.selectable {
			t.Errorf("option %d (%s): selectable = %v, want %v", i, options[i].Batch.BatchNumber, options[i].Selectable, want.selectable)
		}
	}
}

func TestGetBatchOptionsOrderedByExpiry(t *testing.T) {
	f := newBatchFixture()
	product := f.addProduct(t, "Amoxicillin", "AMOX-1")
	now := time.Now()

	// Inserted out of order on purpose.
	for _, b := range []models.ProductBatch{
		makeBatch(product.ID, "B-LATE", 20, now.AddDate(2, 0, 0)),
		makeBatch(product.ID, "B-EARLY", 20, now.AddDate(0, 4, 0)),
		makeBatch(product.ID, "B-MID", 20, now.AddDate(1, 0, 0)),
	} {
		batch := b
		if _, err := f.batchRepo.CreateBatch(nil, &batch); err != nil {
			t.Fatalf("CreateBatch: %v", err)
		}
	}

	options, err := f.batchService.GetBatchOptions(product.ID, 5)
	if err != nil {
		t.Fatalf("GetBatchOptions: %v", err)
	}

	want := []string{"B-EARLY", "B-MID", "B-LATE"}
	for i, number := range want {
		if options[i].Batch.BatchNumber != number {
			t.Errorf("option %d = %s, want %s", i, options[i].Batch.BatchNumber, number)
		}
	}
}

func TestGetBatchOptionsNoActiveBatches(t *testing.T) {
	f := newBatchFixture()
	product := f.addProduct(t, "Diazepam", "DIA-1")

	expired := makeBatch(product.ID, "B-X", 10, time.Now().AddDate(1, 0, 0))
	expired.Status = models.BatchStatusExpired
	if _, err := f.batchRepo.CreateBatch(nil, &expired); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	_, err := f.batchService.GetBatchOptions(product.ID, 1)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestCreateBatchRejectsPastExpiry(t *testing.T) {
	f := newBatchFixture()
	product := f.addProduct(t, "Insulin", "INS-1")

	for _, expiry := range []time.Time{
		time.Now().AddDate(0, 0, -1), // yesterday
		time.Now(),                   // today is not strictly in the future
	} {
		_, err := f.batchService.CreateBatch(CreateBatchRequest{
			ProductID:   product.ID,
			BatchNumber: "B-1",
			ExpiryDate:  expiry,
			Quantity:    10,
		})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("expiry %s: err = %v, want ErrValidation", expiry.Format("2006-01-02"), err)
		}
	}
}

func TestCreateBatchDuplicateNumber(t *testing.T) {
	f := newBatchFixture()
	product := f.addProduct(t, "Warfarin", "WAR-1")

	req := CreateBatchRequest{
		ProductID:   product.ID,
		BatchNumber: "B-1",
		ExpiryDate:  time.Now().AddDate(1, 0, 0),
		Quantity:    10,
	}
	if _, err := f.batchService.CreateBatch(req); err != nil {
		t.Fatalf("first CreateBatch: %v", err)
	}
	if _, err := f.batchService.CreateBatch(req); !errors.Is(err, repositories.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestUpdateBatchPreservesQuantityAndStatus(t *testing.T) {
	f := newBatchFixture()
	product := f.addProduct(t, "Salbutamol", "SAL-1")

	batch := makeBatch(product.ID, "B-1", 25, time.Now().AddDate(1, 0, 0))
	if _, err := f.batchRepo.CreateBatch(nil, &batch); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	updated, err := f.batchService.UpdateBatch(batch.ID, UpdateBatchRequest{
		ExpiryDate:   time.Now().AddDate(2, 0, 0),
		SellingPrice: decimal.RequireFromString("9.99"),
	})
	if err != nil {
		t.Fatalf("UpdateBatch: %v", err)
	}

	if updated.Quantity != 25 {
		t.Errorf("quantity = %d, want 25 (not updatable)", updated.Quantity)
	}
	if updated.Status != models.BatchStatusActive {
		t.Errorf("status = %s, want active (not updatable)", updated.Status)
	}
}

func TestExpireBatchesSweep(t *testing.T) {
	f := newBatchFixture()
	product := f.addProduct(t, "Ranitidine", "RAN-1")
	now := time.Now()

	stale := makeBatch(product.ID, "B-OLD", 5, now.AddDate(0, 0, -10))
	fresh := makeBatch(product.ID, "B-NEW", 5, now.AddDate(1, 0, 0))
	depleted := makeBatch(product.ID, "B-GONE", 0, now.AddDate(0, 0, -10))
	depleted.Status = models.BatchStatusDepleted
	for _, b := range []*models.ProductBatch{&stale, &fresh, &depleted} {
		if _, err := f.batchRepo.CreateBatch(nil, b); err != nil {
			t.Fatalf("CreateBatch: %v", err)
		}
	}

	count, err := f.batchService.ExpireBatches(now)
	if err != nil {
		t.Fatalf("ExpireBatches: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	if got := f.store.state.batches[stale.ID].Status; got != models.BatchStatusExpired {
		t.Errorf("stale batch status = %s, want expired", got)
	}
	if got := f.store.state.batches[fresh.ID].Status; got != models.BatchStatusActive {
		t.Errorf("fresh batch status = %s, want active", got)
	}
	// Depleted batches keep their status even past expiry.
	if got := f.store.state.batches[depleted.ID].Status; got != models.BatchStatusDepleted {
		t.Errorf("depleted batch status = %s, want depleted", got)
	}
}
