package progress

import (
	"math"
	"time"
)

// GoalProgress reports how a month's reading measures against the
// effective page goal.
type GoalProgress struct {
	Month     string         `json:"month"` // "2026-08"
	Goal      int            `json:"goal"`
	PagesRead int            `json:"pages_read"`
	Remaining int            `json:"remaining"`
	Percent   int            `json:"percent"`
	Daily     map[string]int `json:"daily"`
}

// MonthlyProgress evaluates a user's goal for the month containing month.
// The effective goal is overrideGoal when given, else the user's monthly
// goal, else their annual goal divided by twelve, else zero.
func (s *Service) MonthlyProgress(userID uint, month time.Time, overrideGoal *int) (*GoalProgress, error) {
	user, err := s.getUser(s.db, userID)
	if err != nil {
		return nil, err
	}

	goal := 0
	switch {
	case overrideGoal != nil:
		goal = *overrideGoal
	case user.MonthlyGoal != nil:
		goal = *user.MonthlyGoal
	case user.AnnualGoal != nil:
		goal = *user.AnnualGoal / 12
	}

	pages, daily, err := s.MonthlyTotal(userID, month)
	if err != nil {
		return nil, err
	}

	remaining := goal - pages
	if remaining < 0 {
		remaining = 0
	}
	percent := 0
	if goal > 0 {
		percent = int(math.Round(float64(pages) / float64(goal) * 100))
	}

	return &GoalProgress{
		Month:     time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
		Goal:      goal,
		PagesRead: pages,
		Remaining: remaining,
		Percent:   percent,
		Daily:     daily,
	}, nil
}
