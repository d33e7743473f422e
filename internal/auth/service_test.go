package auth

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/readledger/readledger/internal/config"
	"github.com/readledger/readledger/internal/database/users"
	"github.com/readledger/readledger/internal/entities"
)

func setupTestService(t *testing.T) (*Service, func()) {
	dbPath := "./test_auth_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{})
	require.NoError(t, err)

	svc := NewService(users.NewRepository(db), config.Auth{BcryptCost: 4})

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return svc, cleanup
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	user, err := svc.Register("Ana", "ana@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Len(t, user.AccessKey, 32)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)

	loggedIn, err := svc.Login("ana@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	_, err = svc.Login("ana@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login("nobody@example.com", "correct horse battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Register_Validation(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	_, err := svc.Register("", "ana@example.com", "correct horse battery")
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.Register("Ana", "", "correct horse battery")
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, err = svc.Register("Ana", "not-an-email", "correct horse battery")
	assert.ErrorIs(t, err, ErrEmailInvalid)

	_, err = svc.Register("Ana", "ana@example.com", "")
	assert.ErrorIs(t, err, ErrPasswordRequired)

	_, err = svc.Register("Ana", "ana@example.com", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	_, err := svc.Register("Ana", "ana@example.com", "correct horse battery")
	require.NoError(t, err)

	_, err = svc.Register("Other", "ana@example.com", "another password")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestService_ResolveAccessKey(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	user, err := svc.Register("Ana", "ana@example.com", "correct horse battery")
	require.NoError(t, err)

	found, err := svc.ResolveAccessKey(user.AccessKey)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = svc.ResolveAccessKey("")
	assert.ErrorIs(t, err, ErrInvalidAccessKey)

	_, err = svc.ResolveAccessKey("deadbeefdeadbeefdeadbeefdeadbeef")
	assert.ErrorIs(t, err, ErrInvalidAccessKey)
}

func TestHashPassword_Limits(t *testing.T) {
	_, err := HashPassword("short", 4)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	long := make([]byte, 80)
	for i := range long {
		long[i] = 'a'
	}
	_, err = HashPassword(string(long), 4)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}
