package services

import (
	"errors"
	"testing"
	"time"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"
)

func newCustomerFixture() (CustomerService, *fakeStore) {
	store := newFakeStore()
	customerRepo := &fakeCustomerRepo{store: store}
	saleRepo := &fakeSaleRepo{store: store}
	return NewCustomerService(customerRepo, saleRepo, &fakeTxBeginner{store: store}), store
}

func strPtr(s string) *string { return &s }

func TestCreateCustomerDuplicatePhone(t *testing.T) {
	svc, _ := newCustomerFixture()

	if _, err := svc.CreateCustomer(CreateCustomerRequest{
		FullName: "Ama Mensah", PhoneNumber: strPtr("+233201234567"),
	}); err != nil {
		t.Fatalf("first CreateCustomer: %v", err)
	}

	_, err := svc.CreateCustomer(CreateCustomerRequest{
		FullName: "Kofi Mensah", PhoneNumber: strPtr("+233201234567"),
	})
	if !errors.Is(err, repositories.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestUpdateCustomerAllowsOwnPhone(t *testing.T) {
	svc, _ := newCustomerFixture()

	created, err := svc.CreateCustomer(CreateCustomerRequest{
		FullName: "Ama Mensah", PhoneNumber: strPtr("+233201234567"),
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	// Re-submitting the customer's own phone number is not a conflict.
	updated, err := svc.UpdateCustomer(created.ID, UpdateCustomerRequest{
		FullName: "Ama Serwaa Mensah", PhoneNumber: strPtr("+233201234567"),
	})
	if err != nil {
		t.Fatalf("UpdateCustomer: %v", err)
	}
	if updated.FullName != "Ama Serwaa Mensah" {
		t.Errorf("full name = %s, want updated name", updated.FullName)
	}
}

func TestCreateCustomerInvalidEmail(t *testing.T) {
	svc, _ := newCustomerFixture()
	_, err := svc.CreateCustomer(CreateCustomerRequest{
		FullName: "Ama Mensah", Email: strPtr("not-an-email"),
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestDeleteCustomerBlockedBySales(t *testing.T) {
	svc, store := newCustomerFixture()

	created, err := svc.CreateCustomer(CreateCustomerRequest{FullName: "Ama Mensah"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	saleRepo := &fakeSaleRepo{store: store}
	sale := &models.Sale{CustomerID: &created.ID, ProcessedBy: 1, Status: SaleStatusCompleted, SaleTime: time.Now()}
	if _, err := saleRepo.CreateSale(nil, sale); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	if err := svc.DeleteCustomer(created.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	if _, err := saleRepo.DeleteSale(nil, sale.ID); err != nil {
		t.Fatalf("DeleteSale: %v", err)
	}
	if err := svc.DeleteCustomer(created.ID); err != nil {
		t.Fatalf("DeleteCustomer after clearing sales: %v", err)
	}
}
