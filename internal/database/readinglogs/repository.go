// Package readinglogs provides database operations for the daily reading
// ledger: one row per user, book and calendar day.
//
// The ledger is the source of truth for progress. The cached current_page
// on UserBook is always recomputed from these rows.
package readinglogs

import (
	"time"

	"gorm.io/gorm"

	"github.com/readledger/readledger/internal/entities"
)

// DayTotal is the number of pages a user read on one day, across all
// books.
type DayTotal struct {
	Day   time.Time
	Pages int
}

// Repository handles all reading-log database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reading-logs repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction so ledger
// mutations can share the caller's transaction boundary.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Day truncates a timestamp to its calendar day in UTC. All ledger rows
// store days in this form so the unique (user, book, day) index behaves.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GetEntry retrieves the ledger row for (user, book, day), if any.
func (r *Repository) GetEntry(userID, bookID uint, day time.Time) (*entities.ReadingLog, error) {
	var entry entities.ReadingLog
	err := r.db.
		Where("user_id = ? AND book_id = ? AND day = ?", userID, bookID, Day(day)).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CreateEntry inserts a new day bucket.
func (r *Repository) CreateEntry(entry *entities.ReadingLog) error {
	entry.Day = Day(entry.Day)
	return r.db.Create(entry).Error
}

// UpdatePages sets the accumulated page count on an existing bucket.
func (r *Repository) UpdatePages(id uint, pages int) error {
	return r.db.Model(&entities.ReadingLog{}).Where("id = ?", id).Update("pages_read", pages).Error
}

// DeleteEntry removes a day bucket. Buckets that would reach zero pages
// are deleted rather than kept at zero.
func (r *Repository) DeleteEntry(id uint) error {
	return r.db.Delete(&entities.ReadingLog{}, id).Error
}

// SumPages returns the total pages logged for (user, book) across all
// days.
func (r *Repository) SumPages(userID, bookID uint) (int, error) {
	var total int64
	err := r.db.Model(&entities.ReadingLog{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Select("COALESCE(SUM(pages_read), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

// DailyTotals returns per-day page totals for a user across all books in
// [from, to), ordered by day. Days with no entries are absent; callers
// fill zeros as needed.
func (r *Repository) DailyTotals(userID uint, from, to time.Time) ([]DayTotal, error) {
	var rows []struct {
		Day   time.Time
		Pages int
	}
	err := r.db.Model(&entities.ReadingLog{}).
		Where("user_id = ? AND day >= ? AND day < ?", userID, Day(from), Day(to)).
		Select("day, SUM(pages_read) AS pages").
		Group("day").
		Order("day ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make([]DayTotal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, DayTotal{Day: Day(row.Day), Pages: row.Pages})
	}
	return totals, nil
}

// ReadingDays returns the distinct days on or before asOf with at least
// one entry for the user, newest first. Used for streak walks.
func (r *Repository) ReadingDays(userID uint, asOf time.Time) ([]time.Time, error) {
	var days []time.Time
	err := r.db.Model(&entities.ReadingLog{}).
		Where("user_id = ? AND day <= ?", userID, Day(asOf)).
		Distinct("day").
		Order("day DESC").
		Pluck("day", &days).Error
	if err != nil {
		return nil, err
	}
	for i := range days {
		days[i] = Day(days[i])
	}
	return days, nil
}

// EntriesForBook lists a user's ledger rows for one book, newest day
// first.
func (r *Repository) EntriesForBook(userID, bookID uint) ([]entities.ReadingLog, error) {
	var entries []entities.ReadingLog
	err := r.db.
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Order("day DESC").
		Find(&entries).Error
	return entries, err
}
