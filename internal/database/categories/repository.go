// Package categories provides database operations for book categories.
//
// # Usage
//
//	repo := categories.NewRepository(db)
//	category, _, err := repo.GetOrCreateCategory("Ficção")
package categories

import (
	"errors"

	"gorm.io/gorm"

	"github.com/readledger/readledger/internal/entities"
)

// ErrCategoryInUse is returned when deleting a category still referenced
// by books. Deletion is protected, never cascaded.
var ErrCategoryInUse = errors.New("category is referenced by books")

// ErrCategoryExists is returned when renaming a category to a name
// another category already holds.
var ErrCategoryExists = errors.New("a category with that name already exists")

// Repository handles all category database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new categories repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateCategory creates a new category.
func (r *Repository) CreateCategory(name string) (*entities.Category, error) {
	category := &entities.Category{Name: name}
	if err := r.db.Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// GetOrCreateCategory retrieves or creates a category (case-insensitive).
// The second return value reports whether a new row was created.
func (r *Repository) GetOrCreateCategory(name string) (*entities.Category, bool, error) {
	var category entities.Category
	err := r.db.Where("LOWER(name) = LOWER(?)", name).First(&category).Error
	if err == gorm.ErrRecordNotFound {
		created, err := r.CreateCategory(name)
		return created, err == nil, err
	}
	if err != nil {
		return nil, false, err
	}
	return &category, false, nil
}

// GetCategoryByID retrieves a category by ID.
func (r *Repository) GetCategoryByID(id uint) (*entities.Category, error) {
	var category entities.Category
	err := r.db.First(&category, id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetAllCategories retrieves all categories ordered by name.
func (r *Repository) GetAllCategories() ([]entities.Category, error) {
	var categories []entities.Category
	err := r.db.Order("name ASC").Find(&categories).Error
	return categories, err
}

// RenameCategory changes a category's name. The name check is
// case-insensitive, matching GetOrCreateCategory, but renaming a
// category to its own name in a different case is allowed.
func (r *Repository) RenameCategory(id uint, name string) (*entities.Category, error) {
	var category entities.Category
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, id).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&entities.Category{}).
			Where("LOWER(name) = LOWER(?) AND id <> ?", name, id).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrCategoryExists
		}

		category.Name = name
		return tx.Save(&category).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory deletes a category. Fails with ErrCategoryInUse while any
// book still references it.
func (r *Repository) DeleteCategory(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var category entities.Category
		if err := tx.First(&category, id).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&entities.Book{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrCategoryInUse
		}

		return tx.Delete(&category).Error
	})
}
