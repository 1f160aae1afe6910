package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"
	"pharmacare_backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// Role names seeded in the roles table.
const (
	RoleAdmin      = "Admin"
	RolePharmacist = "Pharmacist"
	RoleCashier    = "Cashier"
)

// RegisterRequest defines the payload for creating a user account.
type RegisterRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required,min=8"`
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	RoleName string  `json:"role_name" binding:"required"`
}

// LoginRequest defines the payload for authenticating.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user,omitempty"`
}

// AuthService defines the interface for authentication business logic.
type AuthService interface {
	Register(req RegisterRequest) (*models.User, error)
	Login(req LoginRequest) (*TokenPair, error)
	// Refresh exchanges a valid refresh token for a new token pair. The old
	// session is revoked: each refresh token is single-use.
	Refresh(refreshToken string) (*TokenPair, error)
	Logout(refreshToken string) error
	GetUserByID(id int64) (*models.User, error)
}

type authService struct {
	authRepo   repositories.AuthRepository
	txBeginner repositories.TxBeginner
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(authRepo repositories.AuthRepository, txBeginner repositories.TxBeginner) AuthService {
	return &authService{authRepo: authRepo, txBeginner: txBeginner}
}

func (s *authService) Register(req RegisterRequest) (*models.User, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", ErrValidation)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	if req.Email != nil && *req.Email != "" && !utils.IsValidEmail(*req.Email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrValidation)
	}

	role, err := s.authRepo.GetRoleByName(req.RoleName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown role '%s'", ErrValidation, req.RoleName)
		}
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: string(hashedPassword),
		Email:        req.Email,
		FullName:     req.FullName,
		RoleID:       &role.ID,
		IsActive:     true,
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for registering user: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.authRepo.CreateUser(tx, user); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for registering user: %w", err)
	}
	return s.authRepo.GetUserByID(user.ID)
}

func (s *authService) Login(req LoginRequest) (*TokenPair, error) {
	user, err := s.authRepo.GetUserByUsername(req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	}
	return s.issueTokens(user)
}

func (s *authService) issueTokens(user *models.User) (*TokenPair, error) {
	roleName := ""
	if user.Role != nil {
		roleName = user.Role.Name
	}

	accessToken, err := utils.GenerateAccessToken(user.ID, user.Username, roleName)
	if err != nil {
		return nil, err
	}
	refreshToken, sessionID, err := utils.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	session := &models.RefreshSession{
		ID:        sessionID,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(utils.RefreshTokenTTL),
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for refresh session: %w", err)
	}
	defer tx.Rollback()

	if err := s.authRepo.CreateRefreshSession(tx, session); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for refresh session: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}

func (s *authService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := utils.ValidateToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: refresh token carries no session", ErrUnauthorized)
	}

	session, err := s.authRepo.GetRefreshSession(claims.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: refresh session revoked", ErrUnauthorized)
		}
		return nil, err
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("%w: refresh session expired", ErrUnauthorized)
	}

	user, err := s.authRepo.GetUserByID(session.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", ErrUnauthorized)
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for refresh rotation: %w", err)
	}
	defer tx.Rollback()

	if err := s.authRepo.DeleteRefreshSession(tx, session.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for refresh rotation: %w", err)
	}

	return s.issueTokens(user)
}

func (s *authService) Logout(refreshToken string) error {
	claims, err := utils.ValidateToken(refreshToken)
	if err != nil {
		return fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}
	if claims.ID == "" {
		return fmt.Errorf("%w: refresh token carries no session", ErrUnauthorized)
	}

	tx, err := s.txBeginner.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for logout: %w", err)
	}
	defer tx.Rollback()

	if err := s.authRepo.DeleteRefreshSession(tx, claims.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Already revoked; logout is idempotent.
			return nil
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction for logout: %w", err)
	}
	return nil
}

func (s *authService) GetUserByID(id int64) (*models.User, error) {
	return s.authRepo.GetUserByID(id)
}
