package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pharmacare_backend/internal/models"

	"github.com/lib/pq"
)

// AuthRepository defines the interface for user and session database operations.
type AuthRepository interface {
	CreateUser(executor SQLExecutor, user *models.User) (int64, error)
	GetUserByID(id int64) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetUsers(page, pageSize int, searchTerm *string) ([]models.User, int, error) // users, total count, error
	UpdateUser(executor SQLExecutor, user *models.User) error
	SetUserActive(executor SQLExecutor, id int64, isActive bool) error
	GetRoleByID(id int64) (*models.Role, error)
	GetRoleByName(name string) (*models.Role, error)
	GetRoles() ([]models.Role, error)
	CreateRefreshSession(executor SQLExecutor, session *models.RefreshSession) error
	GetRefreshSession(id string) (*models.RefreshSession, error)
	DeleteRefreshSession(executor SQLExecutor, id string) error
	DeleteRefreshSessionsByUser(executor SQLExecutor, userID int64) error
}

type authRepository struct {
	db *sql.DB
}

// NewAuthRepository creates a new instance of AuthRepository.
func NewAuthRepository(db *sql.DB) AuthRepository {
	return &authRepository{db: db}
}

func (r *authRepository) CreateUser(executor SQLExecutor, user *models.User) (int64, error) {
	query := `INSERT INTO users (username, password_hash, email, full_name, role_id, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`
	currentTime := time.Now()
	err := executor.QueryRow(query,
		user.Username, user.PasswordHash, user.Email, user.FullName,
		user.RoleID, user.IsActive, currentTime, currentTime,
	).Scan(&user.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return 0, fmt.Errorf("%w: username '%s' already exists (constraint: %s)", ErrDuplicateKey, user.Username, pqErr.Constraint)
			case "foreign_key_violation":
				return 0, fmt.Errorf("%w: invalid role reference (constraint: %s)", ErrDatabaseError, pqErr.Constraint)
			}
		}
		return 0, fmt.Errorf("%w: creating user: %v", ErrDatabaseError, err)
	}
	return user.ID, nil
}

const userSelect = `SELECT u.id, u.username, u.password_hash, u.email, u.full_name, u.role_id, u.is_active,
	       u.created_at, u.updated_at,
	       r.id, r.name, r.description, r.created_at, r.updated_at
	FROM users u
	LEFT JOIN roles r ON u.role_id = r.id`

func scanUserWithRole(scanner interface{ Scan(dest ...interface{}) error }, user *models.User) error {
	var roleID sql.NullInt64
	var roleName, roleDescription sql.NullString
	var roleCreatedAt, roleUpdatedAt sql.NullTime

	err := scanner.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Email, &user.FullName,
		&user.RoleID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
		&roleID, &roleName, &roleDescription, &roleCreatedAt, &roleUpdatedAt,
	)
	if err != nil {
		return err
	}
	if roleID.Valid {
		role := &models.Role{ID: roleID.Int64, Name: roleName.String}
		if roleDescription.Valid {
			role.Description = &roleDescription.String
		}
		role.CreatedAt = roleCreatedAt.Time
		role.UpdatedAt = roleUpdatedAt.Time
		user.Role = role
	}
	return nil
}

func (r *authRepository) GetUserByID(id int64) (*models.User, error) {
	user := &models.User{}
	err := scanUserWithRole(r.db.QueryRow(userSelect+` WHERE u.id = $1`, id), user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting user by ID %d: %v", ErrDatabaseError, id, err)
	}
	return user, nil
}

func (r *authRepository) GetUserByUsername(username string) (*models.User, error) {
	user := &models.User{}
	err := scanUserWithRole(r.db.QueryRow(userSelect+` WHERE u.username = $1`, username), user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting user by username %s: %v", ErrDatabaseError, username, err)
	}
	return user, nil
}

func (r *authRepository) GetUsers(page, pageSize int, searchTerm *string) ([]models.User, int, error) {
	users := []models.User{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT u.id, u.username, u.password_hash, u.email, u.full_name, u.role_id, u.is_active,
	       u.created_at, u.updated_at,
	       r.id, r.name, r.description, r.created_at, r.updated_at,
	       COUNT(*) OVER() AS total_count
	FROM users u
	LEFT JOIN roles r ON u.role_id = r.id`)

	var args []interface{}
	argCount := 1

	if searchTerm != nil && *searchTerm != "" {
		queryBuilder.WriteString(fmt.Sprintf(" WHERE u.username ILIKE $%d OR u.full_name ILIKE $%d", argCount, argCount))
		args = append(args, "%"+*searchTerm+"%")
		argCount++
	}

	queryBuilder.WriteString(" ORDER BY u.username")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting users: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var user models.User
		var roleID sql.NullInt64
		var roleName, roleDescription sql.NullString
		var roleCreatedAt, roleUpdatedAt sql.NullTime
		if err := rows.Scan(
			&user.ID, &user.Username, &user.PasswordHash, &user.Email, &user.FullName,
			&user.RoleID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
			&roleID, &roleName, &roleDescription, &roleCreatedAt, &roleUpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning user: %v", ErrDatabaseError, err)
		}
		if roleID.Valid {
			role := &models.Role{ID: roleID.Int64, Name: roleName.String, CreatedAt: roleCreatedAt.Time, UpdatedAt: roleUpdatedAt.Time}
			if roleDescription.Valid {
				role.Description = &roleDescription.String
			}
			user.Role = role
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating users: %v", ErrDatabaseError, err)
	}
	return users, totalCount, nil
}

func (r *authRepository) UpdateUser(executor SQLExecutor, user *models.User) error {
	query := `UPDATE users SET
	            email = $1, full_name = $2, role_id = $3, is_active = $4, updated_at = $5
	          WHERE id = $6`
	result, err := executor.Exec(query,
		user.Email, user.FullName, user.RoleID, user.IsActive, time.Now(), user.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return fmt.Errorf("%w: invalid role reference (constraint: %s)", ErrDatabaseError, pqErr.Constraint)
		}
		return fmt.Errorf("%w: updating user ID %d: %v", ErrDatabaseError, user.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *authRepository) SetUserActive(executor SQLExecutor, id int64, isActive bool) error {
	result, err := executor.Exec(`UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`, isActive, time.Now(), id)
	if err != nil {
		return fmt.Errorf("%w: setting active flag for user ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *authRepository) GetRoleByID(id int64) (*models.Role, error) {
	role := &models.Role{}
	query := `SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`
	err := r.db.QueryRow(query, id).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting role by ID %d: %v", ErrDatabaseError, id, err)
	}
	return role, nil
}

func (r *authRepository) GetRoleByName(name string) (*models.Role, error) {
	role := &models.Role{}
	query := `SELECT id, name, description, created_at, updated_at FROM roles WHERE name = $1`
	err := r.db.QueryRow(query, name).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting role by name %s: %v", ErrDatabaseError, name, err)
	}
	return role, nil
}

func (r *authRepository) GetRoles() ([]models.Role, error) {
	roles := []models.Role{}
	rows, err := r.db.Query(`SELECT id, name, description, created_at, updated_at FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: getting roles: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning role: %v", ErrDatabaseError, err)
		}
		roles = append(roles, role)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating roles: %v", ErrDatabaseError, err)
	}
	return roles, nil
}

func (r *authRepository) CreateRefreshSession(executor SQLExecutor, session *models.RefreshSession) error {
	query := `INSERT INTO refresh_sessions (id, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`
	_, err := executor.Exec(query, session.ID, session.UserID, session.ExpiresAt, time.Now())
	if err != nil {
		return fmt.Errorf("%w: creating refresh session: %v", ErrDatabaseError, err)
	}
	return nil
}

func (r *authRepository) GetRefreshSession(id string) (*models.RefreshSession, error) {
	session := &models.RefreshSession{}
	query := `SELECT id, user_id, expires_at, created_at FROM refresh_sessions WHERE id = $1`
	err := r.db.QueryRow(query, id).Scan(&session.ID, &session.UserID, &session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting refresh session: %v", ErrDatabaseError, err)
	}
	return session, nil
}

func (r *authRepository) DeleteRefreshSession(executor SQLExecutor, id string) error {
	result, err := executor.Exec(`DELETE FROM refresh_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting refresh session: %v", ErrDatabaseError, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *authRepository) DeleteRefreshSessionsByUser(executor SQLExecutor, userID int64) error {
	_, err := executor.Exec(`DELETE FROM refresh_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("%w: deleting refresh sessions for user %d: %v", ErrDatabaseError, userID, err)
	}
	return nil
}
