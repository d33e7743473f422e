// Package users provides database operations for user accounts.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByAccessKey(key)
package users

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"gorm.io/gorm"

	"github.com/readledger/readledger/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user with a generated access key. The key is
// fixed for the lifetime of the account and accepted in the Authorization
// header.
func (r *Repository) CreateUser(name, email, passwordHash string) (*entities.User, error) {
	key, err := generateAccessKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate access key: %w", err)
	}

	user := &entities.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		AccessKey:    key,
	}

	if err := r.db.Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByAccessKey retrieves a user by their access key.
func (r *Repository) GetUserByAccessKey(key string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("access_key = ?", key).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email (case-insensitive, mirroring
// the login-by-email behaviour).
func (r *Repository) GetUserByEmail(email string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateGoals sets the user's monthly and annual page goals. A nil value
// clears the corresponding goal.
func (r *Repository) UpdateGoals(id uint, monthly, annual *int) (*entities.User, error) {
	user, err := r.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	err = r.db.Model(user).Updates(map[string]any{
		"monthly_goal": monthly,
		"annual_goal":  annual,
	}).Error
	if err != nil {
		return nil, err
	}
	user.MonthlyGoal = monthly
	user.AnnualGoal = annual
	return user, nil
}

func generateAccessKey() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
