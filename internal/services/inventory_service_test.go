package services

import (
	"errors"
	"testing"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

type inventoryFixture struct {
	store            *fakeStore
	inventoryService InventoryService
	productRepo      *fakeProductRepo
	inventoryRepo    *fakeInventoryRepo
}

func newInventoryFixture() *inventoryFixture {
	store := newFakeStore()
	productRepo := &fakeProductRepo{store: store}
	inventoryRepo := &fakeInventoryRepo{store: store}
	return &inventoryFixture{
		store:            store,
		productRepo:      productRepo,
		inventoryRepo:    inventoryRepo,
		inventoryService: NewInventoryService(inventoryRepo, productRepo, &fakeTxBeginner{store: store}),
	}
}

func (f *inventoryFixture) addProduct(t *testing.T, name, sku string) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, SKU: sku, Price: decimal.RequireFromString("1.00")}
	if _, err := f.productRepo.CreateProduct(nil, product); err != nil {
		t.Fatalf("addProduct: %v", err)
	}
	return product
}

func TestCreateLotUnknownProduct(t *testing.T) {
	f := newInventoryFixture()
	_, err := f.inventoryService.CreateLot(CreateLotRequest{ProductID: 404, BatchLabel: "L-1", Quantity: 10})
	if !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateLotDuplicateLabel(t *testing.T) {
	f := newInventoryFixture()
	product := f.addProduct(t, "Paracetamol", "PARA-500")

	req := CreateLotRequest{ProductID: product.ID, BatchLabel: "L-1", Quantity: 10}
	if _, err := f.inventoryService.CreateLot(req); err != nil {
		t.Fatalf("first CreateLot: %v", err)
	}
	if _, err := f.inventoryService.CreateLot(req); !errors.Is(err, repositories.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestAdjustLotQuantityRecordsMovement(t *testing.T) {
	f := newInventoryFixture()
	product := f.addProduct(t, "Ibuprofen", "IBU-200")

	lot, err := f.inventoryService.CreateLot(CreateLotRequest{ProductID: product.ID, BatchLabel: "L-1", Quantity: 10})
	if err != nil {
		t.Fatalf("CreateLot: %v", err)
	}

	reason := "damaged stock written off"
	adjusted, err := f.inventoryService.AdjustLotQuantity(lot.ID, 3, AdjustLotRequest{QuantityChange: -4, Reason: &reason})
	if err != nil {
		t.Fatalf("AdjustLotQuantity: %v", err)
	}
	if adjusted.Quantity != 6 {
		t.Errorf("quantity = %d, want 6", adjusted.Quantity)
	}

	movementType := "adjustment"
	movements, _, err := f.inventoryRepo.GetMovements(&lot.ID, &movementType, 1, 20)
	if err != nil {
		t.Fatalf("GetMovements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("movements = %d, want 1", len(movements))
	}
	if movements[0].QuantityChanged != -4 {
		t.Errorf("movement quantity = %d, want -4", movements[0].QuantityChanged)
	}
	if movements[0].Reason == nil || *movements[0].Reason != reason {
		t.Errorf("movement reason = %v, want %q", movements[0].Reason, reason)
	}
}

func TestAdjustLotQuantityBelowZero(t *testing.T) {
	f := newInventoryFixture()
	product := f.addProduct(t, "Cetirizine", "CET-10")

	lot, err := f.inventoryService.CreateLot(CreateLotRequest{ProductID: product.ID, BatchLabel: "L-1", Quantity: 3})
	if err != nil {
		t.Fatalf("CreateLot: %v", err)
	}

	_, err = f.inventoryService.AdjustLotQuantity(lot.ID, 1, AdjustLotRequest{QuantityChange: -5})
	if !errors.Is(err, repositories.ErrInsufficientQuantity) {
		t.Fatalf("err = %v, want ErrInsufficientQuantity", err)
	}

	if got := f.store.state.lots[lot.ID].Quantity; got != 3 {
		t.Errorf("quantity = %d, want 3 (unchanged)", got)
	}
	if len(f.store.state.movements) != 0 {
		t.Errorf("movements = %d, want 0 (rolled back)", len(f.store.state.movements))
	}
}

func TestAdjustLotQuantityZeroChange(t *testing.T) {
	f := newInventoryFixture()
	if _, err := f.inventoryService.AdjustLotQuantity(1, 1, AdjustLotRequest{QuantityChange: 0}); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestUpdateLotKeepsQuantity(t *testing.T) {
	f := newInventoryFixture()
	product := f.addProduct(t, "Omeprazole", "OME-20")

	lot, err := f.inventoryService.CreateLot(CreateLotRequest{ProductID: product.ID, BatchLabel: "L-1", Quantity: 12})
	if err != nil {
		t.Fatalf("CreateLot: %v", err)
	}

	updated, err := f.inventoryService.UpdateLot(lot.ID, UpdateLotRequest{BatchLabel: "L-1B", ReorderLevel: 4})
	if err != nil {
		t.Fatalf("UpdateLot: %v", err)
	}
	if updated.Quantity != 12 {
		t.Errorf("quantity = %d, want 12 (not updatable)", updated.Quantity)
	}
	if updated.BatchLabel != "L-1B" {
		t.Errorf("batch label = %s, want L-1B", updated.BatchLabel)
	}
}
