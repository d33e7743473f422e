// Package userbooks provides database operations for the per-user book
// links that carry cached progress.
//
// current_page and completed_at are derived from the reading ledger and
// written only by the reconciler; nothing else mutates them.
package userbooks

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/readledger/readledger/internal/entities"
)

// Repository handles all user-book link database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new user-books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// GetLink retrieves the link for (user, book), if any.
func (r *Repository) GetLink(userID, bookID uint) (*entities.UserBook, error) {
	var link entities.UserBook
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ResolveLink returns the existing link for (user, book) or initializes a
// new one with current_page 0 and started_at now. The second return value
// reports whether a new link was created, so callers can map the result
// to 201 vs 200.
func (r *Repository) ResolveLink(userID, bookID uint) (*entities.UserBook, bool, error) {
	link, err := r.GetLink(userID, bookID)
	if err == nil {
		return link, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	link = &entities.UserBook{
		UserID:    userID,
		BookID:    bookID,
		StartedAt: time.Now(),
	}
	if err := r.db.Create(link).Error; err != nil {
		return nil, false, err
	}
	return link, true, nil
}

// UpdateProgress writes the reconciled cache fields. Only the changed
// columns are written.
func (r *Repository) UpdateProgress(id uint, currentPage int, completedAt *time.Time, completedChanged bool) error {
	updates := map[string]any{"current_page": currentPage}
	if completedChanged {
		updates["completed_at"] = completedAt
	}
	return r.db.Model(&entities.UserBook{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateRating sets or clears a user's rating for a book. The link must
// already exist; a book is rated through the same link that tracks its
// progress.
func (r *Repository) UpdateRating(userID, bookID uint, rating *int) (*entities.UserBook, error) {
	link, err := r.GetLink(userID, bookID)
	if err != nil {
		return nil, err
	}
	if err := r.db.Model(link).Update("rating", rating).Error; err != nil {
		return nil, err
	}
	link.Rating = rating
	return link, nil
}

// GetCompleted lists a user's finished books, most recently completed
// first.
func (r *Repository) GetCompleted(userID uint) ([]entities.UserBook, error) {
	var links []entities.UserBook
	err := r.db.Preload("Book").Preload("Book.Category").
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Order("completed_at DESC").
		Find(&links).Error
	return links, err
}

// CountInProgress counts a user's started but unfinished books.
func (r *Repository) CountInProgress(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.UserBook{}).
		Where("user_id = ? AND completed_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

// GetAllLinks lists every link with its book, for the reconciliation
// sweep.
func (r *Repository) GetAllLinks() ([]entities.UserBook, error) {
	var links []entities.UserBook
	err := r.db.Preload("Book").Find(&links).Error
	return links, err
}
