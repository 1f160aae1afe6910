package services

import (
	"errors"
	"testing"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

func newProductService(store *fakeStore) (ProductService, *fakeProductRepo) {
	productRepo := &fakeProductRepo{store: store}
	return NewProductService(productRepo, &fakeTxBeginner{store: store}), productRepo
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	store := newFakeStore()
	svc, _ := newProductService(store)

	req := CreateProductRequest{Name: "Paracetamol", SKU: "PARA-500", Price: decimal.RequireFromString("2.00")}
	if _, err := svc.CreateProduct(req); err != nil {
		t.Fatalf("first CreateProduct: %v", err)
	}

	req.Name = "Paracetamol (generic)"
	if _, err := svc.CreateProduct(req); !errors.Is(err, repositories.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestCreateProductValidation(t *testing.T) {
	store := newFakeStore()
	svc, _ := newProductService(store)

	cases := []CreateProductRequest{
		{Name: "", SKU: "SKU-1"},
		{Name: "  ", SKU: "SKU-1"},
		{Name: "Aspirin", SKU: ""},
		{Name: "Aspirin", SKU: "SKU-1", Price: decimal.RequireFromString("-1")},
	}
	for i, req := range cases {
		if _, err := svc.CreateProduct(req); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: err = %v, want ErrValidation", i, err)
		}
	}
}

func TestUpdateProductKeepsSKU(t *testing.T) {
	store := newFakeStore()
	svc, _ := newProductService(store)

	created, err := svc.CreateProduct(CreateProductRequest{
		Name: "Amoxicillin", SKU: "AMOX-250", Price: decimal.RequireFromString("8.00"),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	updated, err := svc.UpdateProduct(created.ID, UpdateProductRequest{
		Name: "Amoxicillin 250mg", Price: decimal.RequireFromString("8.50"),
	})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}

	if updated.SKU != "AMOX-250" {
		t.Errorf("SKU = %s, want AMOX-250 (immutable)", updated.SKU)
	}
	if updated.Name != "Amoxicillin 250mg" {
		t.Errorf("name = %s, want updated name", updated.Name)
	}
}

func TestDeleteProductBlockedByReferences(t *testing.T) {
	store := newFakeStore()
	svc, productRepo := newProductService(store)

	created, err := svc.CreateProduct(CreateProductRequest{
		Name: "Ibuprofen", SKU: "IBU-200", Price: decimal.RequireFromString("3.50"),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	inventoryRepo := &fakeInventoryRepo{store: store}
	lot := &models.InventoryLot{ProductID: created.ID, BatchLabel: "L-1", Quantity: 5}
	if _, err := inventoryRepo.CreateLot(nil, lot); err != nil {
		t.Fatalf("CreateLot: %v", err)
	}

	err = svc.DeleteProduct(created.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if _, err := productRepo.GetProductByID(created.ID); err != nil {
		t.Errorf("product should still exist after blocked delete")
	}

	// With the lot gone the delete goes through.
	if err := inventoryRepo.DeleteLot(nil, lot.ID); err != nil {
		t.Fatalf("DeleteLot: %v", err)
	}
	if err := svc.DeleteProduct(created.ID); err != nil {
		t.Fatalf("DeleteProduct after clearing references: %v", err)
	}
	if _, err := productRepo.GetProductByID(created.ID); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("product should be gone after delete")
	}
}

func TestDeleteProductNotFound(t *testing.T) {
	store := newFakeStore()
	svc, _ := newProductService(store)
	if err := svc.DeleteProduct(404); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
