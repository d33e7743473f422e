package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyProgress_GoalPriority(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 1000)

	month := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	logPages(t, svc, user.ID, book.ID, month.AddDate(0, 0, 4), 150)

	// No goals configured: goal 0, percent 0.
	gp, err := svc.MonthlyProgress(user.ID, month, nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-08", gp.Month)
	assert.Equal(t, 0, gp.Goal)
	assert.Equal(t, 150, gp.PagesRead)
	assert.Equal(t, 0, gp.Remaining)
	assert.Equal(t, 0, gp.Percent)

	// Annual goal falls back to annual/12.
	require.NoError(t, db.Model(user).Update("annual_goal", 2400).Error)
	gp, err = svc.MonthlyProgress(user.ID, month, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, gp.Goal)
	assert.Equal(t, 50, gp.Remaining)
	assert.Equal(t, 75, gp.Percent)

	// Explicit monthly goal wins over annual.
	require.NoError(t, db.Model(user).Update("monthly_goal", 300).Error)
	gp, err = svc.MonthlyProgress(user.ID, month, nil)
	require.NoError(t, err)
	assert.Equal(t, 300, gp.Goal)
	assert.Equal(t, 50, gp.Percent)

	// Override wins over everything.
	gp, err = svc.MonthlyProgress(user.ID, month, intPtr(100))
	require.NoError(t, err)
	assert.Equal(t, 100, gp.Goal)
	assert.Equal(t, 0, gp.Remaining)
	assert.Equal(t, 150, gp.Percent)
}

func TestMonthlyProgress_PercentRounds(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 1000)

	month := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	logPages(t, svc, user.ID, book.ID, month, 1)

	gp, err := svc.MonthlyProgress(user.ID, month, intPtr(3))
	require.NoError(t, err)
	assert.Equal(t, 33, gp.Percent) // 1/3 rounds to 33

	logPages(t, svc, user.ID, book.ID, month.AddDate(0, 0, 1), 1)
	gp, err = svc.MonthlyProgress(user.ID, month, intPtr(3))
	require.NoError(t, err)
	assert.Equal(t, 67, gp.Percent) // 2/3 rounds to 67
}

func TestMonthlyProgress_IncludesDailyBreakdown(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 1000)

	month := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	logPages(t, svc, user.ID, book.ID, month.AddDate(0, 0, 9), 42)

	gp, err := svc.MonthlyProgress(user.ID, month, nil)
	require.NoError(t, err)
	assert.Len(t, gp.Daily, 31)
	assert.Equal(t, 42, gp.Daily["2026-08-10"])
	assert.Equal(t, 0, gp.Daily["2026-08-11"])
}

func TestMonthlyProgress_UnknownUser(t *testing.T) {
	_, svc, cleanup := setupTestService(t)
	defer cleanup()

	_, err := svc.MonthlyProgress(9999, time.Now(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
