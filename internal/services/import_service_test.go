package services

import (
	"strings"
	"testing"
	"time"

	"pharmacare_backend/internal/models"

	"github.com/shopspring/decimal"
)

type importFixture struct {
	store         *fakeStore
	importService ImportService
	productRepo   *fakeProductRepo
}

func newImportFixture() *importFixture {
	store := newFakeStore()
	productRepo := &fakeProductRepo{store: store}
	return &importFixture{
		store:       store,
		productRepo: productRepo,
		importService: NewImportService(
			productRepo,
			&fakeInventoryRepo{store: store},
			&fakeBatchRepo{store: store},
			&fakeTxBeginner{store: store},
		),
	}
}

func (f *importFixture) addProduct(t *testing.T, name, sku string) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, SKU: sku, Price: decimal.RequireFromString("1.00")}
	if _, err := f.productRepo.CreateProduct(nil, product); err != nil {
		t.Fatalf("addProduct: %v", err)
	}
	return product
}

func TestImportLotsSuccess(t *testing.T) {
	f := newImportFixture()
	f.addProduct(t, "Paracetamol", "PARA-500")
	f.addProduct(t, "Ibuprofen", "IBU-200")

	csv := strings.Join([]string{
		"product_sku,batch_label,quantity,expiry_date,storage_location,reorder_level",
		"PARA-500,L-1,40,2027-06-30,Shelf A,10",
		"IBU-200,L-2,0,,,5",
	}, "\n")

	result, err := f.importService.ImportLots(strings.NewReader(csv), 7)
	if err != nil {
		t.Fatalf("ImportLots: %v", err)
	}
	if result.Imported != 2 {
		t.Errorf("imported = %d, want 2", result.Imported)
	}
	if len(result.Errors) != 0 {
		t.Errorf("errors = %v, want none", result.Errors)
	}
	if len(f.store.state.lots) != 2 {
		t.Errorf("lots = %d, want 2", len(f.store.state.lots))
	}

	// Only the row with stock gets an import movement.
	if len(f.store.state.movements) != 1 {
		t.Fatalf("movements = %d, want 1", len(f.store.state.movements))
	}
	for _, m := range f.store.state.movements {
		if m.MovementType != "import" || m.QuantityChanged != 40 {
			t.Errorf("movement = %s/%d, want import/40", m.MovementType, m.QuantityChanged)
		}
	}
}

func TestImportLotsRejectsWholeFileOnBadRow(t *testing.T) {
	f := newImportFixture()
	f.addProduct(t, "Paracetamol", "PARA-500")

	csv := strings.Join([]string{
		"product_sku,batch_label,quantity,expiry_date,storage_location,reorder_level",
		"PARA-500,L-1,40,2027-06-30,,0",
		"NO-SUCH-SKU,L-2,10,,,0",
		"PARA-500,L-3,5,31/12/2027,,0",
	}, "\n")

	result, err := f.importService.ImportLots(strings.NewReader(csv), 7)
	if err != nil {
		t.Fatalf("ImportLots: %v", err)
	}
	if result.Imported != 0 {
		t.Errorf("imported = %d, want 0", result.Imported)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("errors = %d, want 2: %v", len(result.Errors), result.Errors)
	}
	if result.Errors[0].Row != 2 || result.Errors[1].Row != 3 {
		t.Errorf("error rows = %d, %d, want 2, 3", result.Errors[0].Row, result.Errors[1].Row)
	}
	if len(f.store.state.lots) != 0 {
		t.Errorf("lots = %d, want 0 (valid rows must not land either)", len(f.store.state.lots))
	}
}

func TestImportBatchesRejectsPastExpiry(t *testing.T) {
	f := newImportFixture()
	f.addProduct(t, "Amoxicillin", "AMOX-250")

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	csv := strings.Join([]string{
		"product_sku,batch_number,manufacturing_date,expiry_date,quantity,purchase_price,selling_price,supplier",
		"AMOX-250,B-1,2024-01-15," + yesterday + ",30,4.00,8.00,MedSupply",
	}, "\n")

	result, err := f.importService.ImportBatches(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportBatches: %v", err)
	}
	if result.Imported != 0 || len(result.Errors) != 1 {
		t.Fatalf("result = %+v, want one rejected row", result)
	}
	if !strings.Contains(result.Errors[0].Message, "expiry_date") {
		t.Errorf("message = %q, want expiry complaint", result.Errors[0].Message)
	}
}

func TestImportBatchesSuccess(t *testing.T) {
	f := newImportFixture()
	product := f.addProduct(t, "Amoxicillin", "AMOX-250")

	expiry := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	csv := strings.Join([]string{
		"product_sku,batch_number,manufacturing_date,expiry_date,quantity,purchase_price,selling_price,supplier",
		"AMOX-250,B-1,2025-01-15," + expiry + ",30,4.00,8.00,MedSupply",
	}, "\n")

	result, err := f.importService.ImportBatches(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportBatches: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("imported = %d, want 1", result.Imported)
	}

	for _, b := range f.store.state.batches {
		if b.ProductID != product.ID || b.BatchNumber != "B-1" {
			t.Errorf("batch = %+v, want B-1 for product %d", b, product.ID)
		}
		if b.Status != models.BatchStatusActive {
			t.Errorf("status = %s, want active", b.Status)
		}
		if !b.SellingPrice.Equal(decimal.RequireFromString("8.00")) {
			t.Errorf("selling price = %s, want 8.00", b.SellingPrice)
		}
	}
}

func TestImportLotsEmptyFile(t *testing.T) {
	f := newImportFixture()
	csv := "product_sku,batch_label,quantity,expiry_date,storage_location,reorder_level\n"
	if _, err := f.importService.ImportLots(strings.NewReader(csv), 1); err == nil {
		t.Fatal("expected error for empty file")
	}
}
