package progress

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/readledger/readledger/internal/database/readinglogs"
	"github.com/readledger/readledger/internal/entities"
)

func setupTestService(t *testing.T) (*gorm.DB, *Service, func()) {
	dbPath := "./test_progress_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.Category{},
		&entities.User{},
		&entities.Book{},
		&entities.UserBook{},
		&entities.ReadingLog{},
	)
	require.NoError(t, err)

	svc := NewService(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return db, svc, cleanup
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *entities.User {
	user := &entities.User{
		Name:         "Test Reader",
		Email:        email,
		PasswordHash: "x",
		AccessKey:    "key-" + email,
	}
	err := db.Create(user).Error
	require.NoError(t, err)
	return user
}

func createTestBook(t *testing.T, db *gorm.DB, title string, totalPages int) *entities.Book {
	book := &entities.Book{
		Title:      title,
		Author:     "Test Author",
		TotalPages: totalPages,
	}
	err := db.Create(book).Error
	require.NoError(t, err)
	return book
}

func intPtr(v int) *int { return &v }

func dayPtr(t time.Time) *time.Time {
	d := readinglogs.Day(t)
	return &d
}

func sumLedger(t *testing.T, db *gorm.DB, userID, bookID uint) int {
	var total int64
	err := db.Model(&entities.ReadingLog{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Select("COALESCE(SUM(pages_read), 0)").
		Scan(&total).Error
	require.NoError(t, err)
	return int(total)
}

func TestApplyPageDelta_CreatesEntry(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	result, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{
		DeltaPages: intPtr(50),
	})
	require.NoError(t, err)

	assert.True(t, result.Created)
	require.NotNil(t, result.Entry)
	assert.Equal(t, 50, result.Entry.PagesRead)
	assert.Equal(t, 50, result.Link.CurrentPage)
	assert.Nil(t, result.Link.CompletedAt)
	assert.False(t, result.Link.StartedAt.IsZero())
}

func TestApplyPageDelta_AccumulatesSameDay(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	_, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{DeltaPages: intPtr(50)})
	require.NoError(t, err)

	result, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{DeltaPages: intPtr(30)})
	require.NoError(t, err)

	assert.False(t, result.Created)
	require.NotNil(t, result.Entry)
	assert.Equal(t, 80, result.Entry.PagesRead)
	assert.Equal(t, 80, result.Link.CurrentPage)

	// Still a single day bucket
	var count int64
	db.Model(&entities.ReadingLog{}).Where("user_id = ? AND book_id = ?", user.ID, book.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestApplyPageDelta_ClampsAtTotalAndCompletes(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	result, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{
		AbsolutePage: intPtr(310),
	})
	require.NoError(t, err)

	assert.Equal(t, 300, result.Link.CurrentPage)
	require.NotNil(t, result.Link.CompletedAt)
	require.NotNil(t, result.Entry)
	assert.Equal(t, 300, result.Entry.PagesRead)
}

func TestApplyPageDelta_AbsoluteReduces(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	_, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{DeltaPages: intPtr(80)})
	require.NoError(t, err)

	result, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{AbsolutePage: intPtr(70)})
	require.NoError(t, err)

	require.NotNil(t, result.Entry)
	assert.Equal(t, 70, result.Entry.PagesRead)
	assert.Equal(t, 70, result.Link.CurrentPage)
}

func TestApplyPageDelta_DeletesZeroedEntry(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	_, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{DeltaPages: intPtr(10)})
	require.NoError(t, err)

	result, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{AbsolutePage: intPtr(0)})
	require.NoError(t, err)

	assert.Nil(t, result.Entry)
	assert.Equal(t, 0, result.Link.CurrentPage)

	var count int64
	db.Model(&entities.ReadingLog{}).Where("user_id = ? AND book_id = ?", user.ID, book.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestApplyPageDelta_NegativeAbsoluteOnFreshDayIsNoOp(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	result, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{
		AbsolutePage: intPtr(-5),
	})
	require.NoError(t, err)

	assert.False(t, result.Created)
	assert.Nil(t, result.Entry)
	assert.Equal(t, 0, result.Link.CurrentPage)

	var count int64
	db.Model(&entities.ReadingLog{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestApplyPageDelta_InsufficientLoggedPages(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	dayOne := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	dayTwo := dayOne.AddDate(0, 0, 1)

	_, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{
		Day:        &dayOne,
		DeltaPages: intPtr(50),
	})
	require.NoError(t, err)

	// Reducing on a day with nothing logged cannot work.
	_, err = svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{
		Day:          &dayTwo,
		AbsolutePage: intPtr(20),
	})
	assert.ErrorIs(t, err, ErrInsufficientLoggedPages)

	// Full rollback: ledger and cache untouched.
	assert.Equal(t, 50, sumLedger(t, db, user.ID, book.ID))
	var link entities.UserBook
	require.NoError(t, db.Where("user_id = ? AND book_id = ?", user.ID, book.ID).First(&link).Error)
	assert.Equal(t, 50, link.CurrentPage)
}

func TestApplyPageDelta_OverReduction(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	dayOne := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	dayTwo := dayOne.AddDate(0, 0, 1)

	_, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{
		Day:        &dayOne,
		DeltaPages: intPtr(10),
	})
	require.NoError(t, err)
	_, err = svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{
		Day:        &dayTwo,
		DeltaPages: intPtr(40),
	})
	require.NoError(t, err)

	// current_page is 50; absolute 5 means -45 against day one's bucket
	// of 10 pages.
	_, err = svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{
		Day:          &dayOne,
		AbsolutePage: intPtr(5),
	})
	assert.ErrorIs(t, err, ErrOverReduction)

	assert.Equal(t, 50, sumLedger(t, db, user.ID, book.ID))
}

func TestApplyPageDelta_InvalidInstruction(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	cases := []Instruction{
		{},
		{AbsolutePage: intPtr(10), DeltaPages: intPtr(10)},
		{DeltaPages: intPtr(0)},
		{DeltaPages: intPtr(-3)},
	}
	for _, instruction := range cases {
		_, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, instruction)
		assert.ErrorIs(t, err, ErrInvalidInstruction)
	}
}

func TestApplyPageDelta_UnknownBookAndUser(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	_, err := svc.ApplyPageDelta(context.Background(), user.ID, 9999, Instruction{DeltaPages: intPtr(5)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ApplyPageDelta(context.Background(), 9999, book.ID, Instruction{DeltaPages: intPtr(5)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyPageDelta_CompletionCycle(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Short Book", 100)

	firstCompletion := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return firstCompletion }

	dayOne := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	result, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{
		Day:        &dayOne,
		DeltaPages: intPtr(100),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Link.CompletedAt)
	assert.Equal(t, firstCompletion, result.Link.CompletedAt.UTC())

	// Logging again while already complete clamps to a zero delta and
	// must not move the original completion timestamp.
	later := firstCompletion.Add(time.Hour)
	svc.now = func() time.Time { return later }
	result, err = svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{
		Day:        &dayOne,
		DeltaPages: intPtr(10),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Link.CompletedAt)
	assert.Equal(t, firstCompletion, result.Link.CompletedAt.UTC())

	// Dropping below the total clears completion.
	result, err = svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{
		Day:          &dayOne,
		AbsolutePage: intPtr(50),
	})
	require.NoError(t, err)
	assert.Nil(t, result.Link.CompletedAt)
	assert.Equal(t, 50, result.Link.CurrentPage)

	// Re-completing sets a fresh timestamp.
	recompletion := later.Add(time.Hour)
	svc.now = func() time.Time { return recompletion }
	result, err = svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{
		Day:        &dayOne,
		DeltaPages: intPtr(50),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Link.CompletedAt)
	assert.Equal(t, recompletion, result.Link.CompletedAt.UTC())
}

func TestApplyPageDelta_CurrentPageMatchesLedgerSum(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	dayOne := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		day := dayOne.AddDate(0, 0, i)
		_, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{
			Day:        &day,
			DeltaPages: intPtr(20 + i),
		})
		require.NoError(t, err)
	}

	var link entities.UserBook
	require.NoError(t, db.Where("user_id = ? AND book_id = ?", user.ID, book.ID).First(&link).Error)
	assert.Equal(t, sumLedger(t, db, user.ID, book.ID), link.CurrentPage)
}

func TestReconcile_SecondCallIsNoOp(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	_, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{DeltaPages: intPtr(40)})
	require.NoError(t, err)

	require.NoError(t, svc.Reconcile(context.Background(), user.ID, book.ID))

	var before entities.UserBook
	require.NoError(t, db.Where("user_id = ? AND book_id = ?", user.ID, book.ID).First(&before).Error)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, svc.Reconcile(context.Background(), user.ID, book.ID))

	var after entities.UserBook
	require.NoError(t, db.Where("user_id = ? AND book_id = ?", user.ID, book.ID).First(&after).Error)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, before.CurrentPage, after.CurrentPage)
}

func TestReconcile_HealsOutOfBandLedgerEdit(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	_, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{DeltaPages: intPtr(40)})
	require.NoError(t, err)

	// Tamper with the ledger behind the engine's back.
	require.NoError(t, db.Model(&entities.ReadingLog{}).
		Where("user_id = ? AND book_id = ?", user.ID, book.ID).
		Update("pages_read", 120).Error)

	require.NoError(t, svc.Reconcile(context.Background(), user.ID, book.ID))

	var link entities.UserBook
	require.NoError(t, db.Where("user_id = ? AND book_id = ?", user.ID, book.ID).First(&link).Error)
	assert.Equal(t, 120, link.CurrentPage)
}

func TestApplyPageDelta_ConcurrentSameBook(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyPageDelta(context.Background(), user.ID, book.ID, Instruction{
				Day:        &day,
				DeltaPages: intPtr(10),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// No lost updates: every increment landed in the single day bucket.
	var entry entities.ReadingLog
	require.NoError(t, db.Where("user_id = ? AND book_id = ?", user.ID, book.ID).First(&entry).Error)
	assert.Equal(t, 100, entry.PagesRead)

	var link entities.UserBook
	require.NoError(t, db.Where("user_id = ? AND book_id = ?", user.ID, book.ID).First(&link).Error)
	assert.Equal(t, 100, link.CurrentPage)
}

func TestApplyPageDelta_BusyWhenLockHeld(t *testing.T) {
	db, svc, cleanup := setupTestService(t)
	defer cleanup()

	user := createTestUser(t, db, "a@example.com")
	book := createTestBook(t, db, "Clean Book", 300)

	release, err := svc.locks.acquire(context.Background(), lockKey(user.ID, book.ID))
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = svc.ApplyPageDelta(ctx, user.ID, book.ID, Instruction{DeltaPages: intPtr(10)})
	assert.ErrorIs(t, err, ErrBusy)

	// Zero partial effect.
	var count int64
	db.Model(&entities.ReadingLog{}).Count(&count)
	assert.Equal(t, int64(0), count)
}
