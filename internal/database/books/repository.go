// Package books provides database operations for the global book catalog.
//
// Books are shared across users; the upsert is idempotent and keyed by
// external ID, then ISBN, then the (title, author, total_pages) triple,
// with the first match winning in that order.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, created, err := repo.UpsertBook(input)
package books

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/readledger/readledger/internal/entities"
)

// ErrInvalidTotalPages is returned when creating a book with a
// non-positive page count.
var ErrInvalidTotalPages = errors.New("total_pages must be at least 1")

// UpsertInput carries the identity and attribute fields for an upsert.
type UpsertInput struct {
	Title      string
	Author     string
	TotalPages int
	CategoryID uint
	ISBN       string
	ExternalID string
	CoverURL   string
}

// Filter narrows GetAllBooks results.
type Filter struct {
	Query      string // matches title or author, case-insensitive
	Author     string
	CategoryID uint
	MinPages   int
	MaxPages   int
}

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetBookByID retrieves a book by its ID with its category.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Category").First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetAllBooks retrieves books matching the filter, most recently updated
// first.
func (r *Repository) GetAllBooks(filter Filter) ([]entities.Book, error) {
	q := r.db.Preload("Category")
	if filter.Query != "" {
		pattern := "%" + strings.TrimSpace(filter.Query) + "%"
		q = q.Where("LOWER(title) LIKE LOWER(?) OR LOWER(author) LIKE LOWER(?)", pattern, pattern)
	}
	if filter.Author != "" {
		q = q.Where("LOWER(author) LIKE LOWER(?)", "%"+filter.Author+"%")
	}
	if filter.CategoryID != 0 {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.MinPages > 0 {
		q = q.Where("total_pages >= ?", filter.MinPages)
	}
	if filter.MaxPages > 0 {
		q = q.Where("total_pages <= ?", filter.MaxPages)
	}

	var books []entities.Book
	err := q.Order("updated_at DESC").Find(&books).Error
	return books, err
}

// UpsertBook finds an existing book by external ID, then ISBN, then the
// (title, author, total_pages) triple, creating one when no identity
// matches. A unique-constraint collision from a concurrent insert is
// recovered by re-running the lookup instead of surfacing the error.
func (r *Repository) UpsertBook(input UpsertInput) (*entities.Book, bool, error) {
	if input.TotalPages < 1 {
		return nil, false, ErrInvalidTotalPages
	}

	if book, err := r.lookup(input); err == nil {
		return book, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	book := &entities.Book{
		Title:      input.Title,
		Author:     input.Author,
		TotalPages: input.TotalPages,
		CategoryID: input.CategoryID,
		CoverURL:   input.CoverURL,
	}
	if input.ISBN != "" {
		isbn := input.ISBN
		book.ISBN = &isbn
	}
	if input.ExternalID != "" {
		externalID := input.ExternalID
		book.ExternalID = &externalID
	}

	err := r.db.Create(book).Error
	if err == nil {
		return book, true, nil
	}

	// Lost a race on one of the unique identity indexes: the row exists
	// now, so fetch it and report "existing".
	if isUniqueViolation(err) {
		book, lookupErr := r.lookup(input)
		if lookupErr != nil {
			return nil, false, fmt.Errorf("failed to re-fetch book after identity collision: %w", lookupErr)
		}
		return book, false, nil
	}

	return nil, false, err
}

// lookup resolves a book by identity priority: external ID, ISBN, then
// the (title, author, total_pages) triple.
func (r *Repository) lookup(input UpsertInput) (*entities.Book, error) {
	var book entities.Book
	if input.ExternalID != "" {
		err := r.db.Where("external_id = ?", input.ExternalID).First(&book).Error
		if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
			return &book, err
		}
	}
	if input.ISBN != "" {
		err := r.db.Where("isbn = ?", input.ISBN).First(&book).Error
		if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
			return &book, err
		}
	}
	err := r.db.
		Where("title = ? AND author = ? AND total_pages = ?", input.Title, input.Author, input.TotalPages).
		First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// EditInput carries the mutable catalog fields for EditBook. Nil fields
// are left untouched. Identity fields (title, author, total_pages) are
// never editable: the upsert and the progress clamp both key off them.
type EditInput struct {
	CategoryID *uint
	CoverURL   *string
}

// EditBook updates a book's category and cover and returns the updated
// row with its category preloaded.
func (r *Repository) EditBook(id uint, input EditInput) (*entities.Book, error) {
	updates := map[string]any{}
	if input.CategoryID != nil {
		updates["category_id"] = *input.CategoryID
	}
	if input.CoverURL != nil {
		updates["cover_url"] = *input.CoverURL
	}
	if len(updates) > 0 {
		result := r.db.Model(&entities.Book{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.GetBookByID(id)
}

// UpdateCover sets the cover URL for a book, typically from the metadata
// enricher.
func (r *Repository) UpdateCover(id uint, coverURL string) error {
	return r.db.Model(&entities.Book{}).Where("id = ?", id).Update("cover_url", coverURL).Error
}

// UpdateMetadata writes the non-nil enrichment fields. Page counts are
// never rewritten here.
func (r *Repository) UpdateMetadata(id uint, fields entities.BookMetadataFields) error {
	updates := map[string]any{}
	if fields.ISBN != nil {
		updates["isbn"] = *fields.ISBN
	}
	if fields.CoverURL != nil {
		updates["cover_url"] = *fields.CoverURL
	}
	if fields.ExternalID != nil {
		updates["external_id"] = *fields.ExternalID
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&entities.Book{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteBook removes a book along with its per-user links and reading
// logs.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, id).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.ReadingLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.UserBook{}).Error; err != nil {
			return err
		}
		return tx.Delete(&book).Error
	})
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// The sqlite driver reports constraint failures as plain errors.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
