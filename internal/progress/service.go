// Package progress implements the progress-ledger reconciliation engine:
// translating page instructions into ledger mutations, recomputing the
// cached current page from the ledger, and deriving streak, monthly and
// goal statistics.
package progress

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/readledger/readledger/internal/database/readinglogs"
	"github.com/readledger/readledger/internal/database/userbooks"
	"github.com/readledger/readledger/internal/entities"
)

// Service is the engine's entry point. All ledger mutations and cache
// updates go through it; HTTP handlers never touch UserBook or ReadingLog
// rows directly.
type Service struct {
	db    *gorm.DB
	locks *keyedMutex

	// now is swappable in tests for streak and completion timestamps.
	now func() time.Time
}

// NewService creates a progress service over the shared gorm connection.
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:    db,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
}

func (s *Service) getBook(tx *gorm.DB, bookID uint) (*entities.Book, error) {
	var book entities.Book
	if err := tx.First(&book, bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &book, nil
}

func (s *Service) getUser(tx *gorm.DB, userID uint) (*entities.User, error) {
	var user entities.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) logs(tx *gorm.DB) *readinglogs.Repository {
	return readinglogs.NewRepository(tx)
}

func (s *Service) links(tx *gorm.DB) *userbooks.Repository {
	return userbooks.NewRepository(tx)
}
