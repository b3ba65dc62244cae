package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/croswell/taskmaster-api/internal/models"
)

func newMockRepo(t *testing.T) (UserRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewUserRepository(db), mock
}

func userRows(id uint64, email, username string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "email", "username", "full_name", "password_hash", "is_active", "is_superuser", "created_at", "updated_at", "deleted_at"}).
		AddRow(id, email, username, "Test User", "$2a$10$hash", true, false, now, now, nil)
}

func TestGormUserRepository_FindByEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WithArgs("a@x.com", 1).
		WillReturnRows(userRows(1, "a@x.com", "alice"))

	user, err := repo.FindByEmail("a@x.com")
	require.NoError(t, err)
	require.Equal(t, uint64(1), user.ID)
	require.Equal(t, "alice", user.Username)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_FindByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(42)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	user := &models.User{
		Email:        "a@x.com",
		Username:     "alice",
		PasswordHash: "$2a$10$hash",
		IsActive:     true,
	}
	require.NoError(t, repo.Create(user))
	require.Equal(t, uint64(7), user.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_DeleteCascadesTasks(t *testing.T) {
	repo, mock := newMockRepo(t)

	// Soft deletes run as UPDATEs inside one transaction, tasks first.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "tasks" SET "deleted_at"`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE "users" SET "deleted_at"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(5))
	require.NoError(t, mock.ExpectationsWereMet())
}
