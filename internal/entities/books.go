package entities

import (
	"time"
)

// Category groups books by genre or shelf. Deleting a category that is
// still referenced by books must fail rather than cascade.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Book is a globally owned catalog entry. Per-user state (current page,
// completion) lives on UserBook, never here.
type Book struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"index;size:512;not null" json:"title"`
	Author     string    `gorm:"index;size:256;not null" json:"author"`
	TotalPages int       `gorm:"not null" json:"total_pages"`
	CategoryID uint      `gorm:"index" json:"category_id"`
	Category   Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	ISBN       *string   `gorm:"uniqueIndex;size:20" json:"isbn,omitempty"`
	ExternalID *string   `gorm:"uniqueIndex;size:256" json:"external_id,omitempty"`
	CoverURL   string    `gorm:"size:2048" json:"cover_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BookMetadataFields carries the catalog fields the metadata enricher may
// fill in. Nil fields are left untouched. TotalPages is deliberately
// absent: it is part of a book's identity.
type BookMetadataFields struct {
	ISBN       *string
	CoverURL   *string
	ExternalID *string
}

// UserBook links one user to one book. CurrentPage and CompletedAt are a
// derived cache over the reading log, recomputed by the reconciler; request
// handlers never write them directly.
type UserBook struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"uniqueIndex:idx_user_book;not null" json:"user_id"`
	BookID      uint       `gorm:"uniqueIndex:idx_user_book;not null" json:"book_id"`
	Book        Book       `gorm:"foreignKey:BookID" json:"book,omitempty"`
	CurrentPage int        `gorm:"not null;default:0" json:"current_page"`
	Rating      *int       `json:"rating,omitempty"` // 1 to 5, nil until rated
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ReadingLog is one day bucket of pages read by a user for a book. It is
// the source of truth for progress. PagesRead is always positive: a bucket
// whose total would drop to zero is deleted, not zeroed.
type ReadingLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_book_day;not null" json:"user_id"`
	BookID    uint      `gorm:"uniqueIndex:idx_user_book_day;not null" json:"book_id"`
	Day       time.Time `gorm:"uniqueIndex:idx_user_book_day;index;not null" json:"day"`
	PagesRead int       `gorm:"not null" json:"pages_read"`
	Note      string    `gorm:"size:200" json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
