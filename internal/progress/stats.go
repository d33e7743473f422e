package progress

import (
	"time"

	"github.com/readledger/readledger/internal/database/readinglogs"
)

// Streak counts consecutive calendar days with at least one ledger entry
// for the user (any book), walking backward from asOf. A gap on asOf
// itself means 0.
func (s *Service) Streak(userID uint, asOf time.Time) (int, error) {
	days, err := s.logs(s.db).ReadingDays(userID, asOf)
	if err != nil {
		return 0, err
	}

	streak := 0
	expected := readinglogs.Day(asOf)
	for _, day := range days {
		if !day.Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak, nil
}

// LiveStreak anchors the streak at today when today already has an entry,
// else at yesterday, so a streak does not read as zero before the user
// has logged anything on the current day.
func (s *Service) LiveStreak(userID uint) (int, error) {
	today := readinglogs.Day(s.now())

	streak, err := s.Streak(userID, today)
	if err != nil {
		return 0, err
	}
	if streak > 0 {
		return streak, nil
	}
	return s.Streak(userID, today.AddDate(0, 0, -1))
}

// MonthlyTotal sums the pages a user read across all books in the
// calendar month containing month, and returns a per-day breakdown keyed
// by ISO date that includes explicit zeros for days without entries.
func (s *Service) MonthlyTotal(userID uint, month time.Time) (int, map[string]int, error) {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	totals, err := s.logs(s.db).DailyTotals(userID, first, next)
	if err != nil {
		return 0, nil, err
	}

	daily := make(map[string]int)
	for day := first; day.Before(next); day = day.AddDate(0, 0, 1) {
		daily[day.Format("2006-01-02")] = 0
	}

	total := 0
	for _, dt := range totals {
		daily[dt.Day.Format("2006-01-02")] = dt.Pages
		total += dt.Pages
	}
	return total, daily, nil
}

// Summary holds the dashboard card numbers: pages read this month, the
// live streak, and books currently in progress.
type Summary struct {
	PagesThisMonth  int   `json:"pages_this_month"`
	StreakDays      int   `json:"streak_days"`
	BooksInProgress int64 `json:"books_in_progress"`
}

// Summarize computes the dashboard summary for a user.
func (s *Service) Summarize(userID uint) (*Summary, error) {
	pages, _, err := s.MonthlyTotal(userID, s.now())
	if err != nil {
		return nil, err
	}
	streak, err := s.LiveStreak(userID)
	if err != nil {
		return nil, err
	}
	inProgress, err := s.links(s.db).CountInProgress(userID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		PagesThisMonth:  pages,
		StreakDays:      streak,
		BooksInProgress: inProgress,
	}, nil
}
