package services

import (
	"errors"
	"fmt"
	"strings"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"

	"pharmacare_backend/pkg/utils"
)

// CreateCustomerRequest defines the payload for registering a customer.
type CreateCustomerRequest struct {
	FullName    string  `json:"full_name" binding:"required"`
	PhoneNumber *string `json:"phone_number"`
	Email       *string `json:"email"`
	Address     *string `json:"address"`
	DateOfBirth *string `json:"date_of_birth"`
	Allergies   *string `json:"allergies"`
	Notes       *string `json:"notes"`
}

// UpdateCustomerRequest defines the payload for updating a customer.
type UpdateCustomerRequest struct {
	FullName    string  `json:"full_name" binding:"required"`
	PhoneNumber *string `json:"phone_number"`
	Email       *string `json:"email"`
	Address     *string `json:"address"`
	DateOfBirth *string `json:"date_of_birth"`
	Allergies   *string `json:"allergies"`
	Notes       *string `json:"notes"`
}

// CustomerService defines the interface for customer business logic.
type CustomerService interface {
	CreateCustomer(req CreateCustomerRequest) (*models.Customer, error)
	GetCustomerByID(id int64) (*models.Customer, error)
	GetCustomers(page, pageSize int, searchTerm *string) ([]models.Customer, int, error)
	UpdateCustomer(id int64, req UpdateCustomerRequest) (*models.Customer, error)
	DeleteCustomer(id int64) error
}

type customerService struct {
	customerRepo repositories.CustomerRepository
	saleRepo     repositories.SaleRepository
	txBeginner   repositories.TxBeginner
}

// NewCustomerService creates a new instance of CustomerService.
func NewCustomerService(
	customerRepo repositories.CustomerRepository,
	saleRepo repositories.SaleRepository,
	txBeginner repositories.TxBeginner,
) CustomerService {
	return &customerService{customerRepo: customerRepo, saleRepo: saleRepo, txBeginner: txBeginner}
}

func (s *customerService) validate(fullName string, phoneNumber, email *string) error {
	if strings.TrimSpace(fullName) == "" {
		return fmt.Errorf("%w: full name cannot be empty", ErrValidation)
	}
	if email != nil && *email != "" && !utils.IsValidEmail(*email) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if phoneNumber != nil && strings.TrimSpace(*phoneNumber) == "" {
		return fmt.Errorf("%w: phone number cannot be blank", ErrValidation)
	}
	return nil
}

func (s *customerService) CreateCustomer(req CreateCustomerRequest) (*models.Customer, error) {
	if err := s.validate(req.FullName, req.PhoneNumber, req.Email); err != nil {
		return nil, err
	}
	if req.PhoneNumber != nil {
		existing, err := s.customerRepo.GetCustomerByPhoneNumber(*req.PhoneNumber)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: phone number '%s' is already registered", repositories.ErrDuplicateKey, *req.PhoneNumber)
		}
	}

	customer := &models.Customer{
		FullName:    strings.TrimSpace(req.FullName),
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Address:     req.Address,
		DateOfBirth: req.DateOfBirth,
		Allergies:   req.Allergies,
		Notes:       req.Notes,
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for creating customer: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.customerRepo.CreateCustomer(tx, customer); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for creating customer: %w", err)
	}
	return s.customerRepo.GetCustomerByID(customer.ID)
}

func (s *customerService) GetCustomerByID(id int64) (*models.Customer, error) {
	return s.customerRepo.GetCustomerByID(id)
}

func (s *customerService) GetCustomers(page, pageSize int, searchTerm *string) ([]models.Customer, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return s.customerRepo.GetCustomers(page, pageSize, searchTerm)
}

func (s *customerService) UpdateCustomer(id int64, req UpdateCustomerRequest) (*models.Customer, error) {
	if err := s.validate(req.FullName, req.PhoneNumber, req.Email); err != nil {
		return nil, err
	}

	existing, err := s.customerRepo.GetCustomerByID(id)
	if err != nil {
		return nil, err
	}

	if req.PhoneNumber != nil {
		other, err := s.customerRepo.GetCustomerByPhoneNumber(*req.PhoneNumber)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		if other != nil && other.ID != id {
			return nil, fmt.Errorf("%w: phone number '%s' is already registered", repositories.ErrDuplicateKey, *req.PhoneNumber)
		}
	}

	existing.FullName = strings.TrimSpace(req.FullName)
	existing.PhoneNumber = req.PhoneNumber
	existing.Email = req.Email
	existing.Address = req.Address
	existing.DateOfBirth = req.DateOfBirth
	existing.Allergies = req.Allergies
	existing.Notes = req.Notes

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for updating customer: %w", err)
	}
	defer tx.Rollback()

	if err := s.customerRepo.UpdateCustomer(tx, existing); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for updating customer: %w", err)
	}
	return s.customerRepo.GetCustomerByID(id)
}

// DeleteCustomer removes a customer record unless the sale ledger still
// references it.
func (s *customerService) DeleteCustomer(id int64) error {
	if _, err := s.customerRepo.GetCustomerByID(id); err != nil {
		return err
	}

	saleCount, err := s.saleRepo.CountSalesByCustomer(id)
	if err != nil {
		return err
	}
	if saleCount > 0 {
		return fmt.Errorf("%w: customer is referenced by %d sale(s)", ErrConflict, saleCount)
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for deleting customer: %w", err)
	}
	defer tx.Rollback()

	if err := s.customerRepo.DeleteCustomer(tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction for deleting customer: %w", err)
	}
	return nil
}
