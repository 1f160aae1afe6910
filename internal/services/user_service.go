package services

import (
	"errors"
	"fmt"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"
)

// UpdateUserRequest defines the payload for an administrative user update.
type UpdateUserRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	RoleName *string `json:"role_name"`
	IsActive *bool   `json:"is_active"`
}

// UserService defines the interface for administrative user management.
type UserService interface {
	GetUsers(page, pageSize int, searchTerm *string) ([]models.User, int, error)
	GetUserByID(id int64) (*models.User, error)
	UpdateUser(id int64, req UpdateUserRequest) (*models.User, error)
	SetUserActive(id int64, isActive bool) (*models.User, error)
	GetRoles() ([]models.Role, error)
}

type userService struct {
	authRepo   repositories.AuthRepository
	txBeginner repositories.TxBeginner
}

// NewUserService creates a new instance of UserService.
func NewUserService(authRepo repositories.AuthRepository, txBeginner repositories.TxBeginner) UserService {
	return &userService{authRepo: authRepo, txBeginner: txBeginner}
}

func (s *userService) GetUsers(page, pageSize int, searchTerm *string) ([]models.User, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return s.authRepo.GetUsers(page, pageSize, searchTerm)
}

func (s *userService) GetUserByID(id int64) (*models.User, error) {
	return s.authRepo.GetUserByID(id)
}

func (s *userService) UpdateUser(id int64, req UpdateUserRequest) (*models.User, error) {
	user, err := s.authRepo.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = req.Email
	}
	if req.FullName != nil {
		user.FullName = req.FullName
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.RoleName != nil {
		role, err := s.authRepo.GetRoleByName(*req.RoleName)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown role '%s'", ErrValidation, *req.RoleName)
			}
			return nil, err
		}
		user.RoleID = &role.ID
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for updating user: %w", err)
	}
	defer tx.Rollback()

	if err := s.authRepo.UpdateUser(tx, user); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for updating user: %w", err)
	}
	return s.authRepo.GetUserByID(id)
}

// SetUserActive toggles an account. Deactivating also revokes the user's
// refresh sessions, so only the current access token outlives the toggle.
func (s *userService) SetUserActive(id int64, isActive bool) (*models.User, error) {
	if _, err := s.authRepo.GetUserByID(id); err != nil {
		return nil, err
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for toggling user: %w", err)
	}
	defer tx.Rollback()

	if err := s.authRepo.SetUserActive(tx, id, isActive); err != nil {
		return nil, err
	}
	if !isActive {
		if err := s.authRepo.DeleteRefreshSessionsByUser(tx, id); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for toggling user: %w", err)
	}
	return s.authRepo.GetUserByID(id)
}

func (s *userService) GetRoles() ([]models.Role, error) {
	return s.authRepo.GetRoles()
}
