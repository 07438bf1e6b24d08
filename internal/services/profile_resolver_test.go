package services

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/logger"
	"github.com/gcforum/portal/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// mockPostgres returns a gorm handle on the postgres dialect whose
// statements are answered by sqlmock.
func mockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })
	return &buf
}

func expectScopedProfileRead(mock sqlmock.Sqlmock, identity uuid.UUID) *sqlmock.ExpectedQuery {
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config\('request.jwt.claim.sub'`).
		WithArgs(identity.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET LOCAL ROLE authenticated`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	return mock.ExpectQuery(`SELECT \* FROM "profiles"`)
}

func TestResolve_DeniedFallsBackToServiceCredential(t *testing.T) {
	anon, mock := mockPostgres(t)
	service := openTestDB(t)
	identity := uuid.New()
	require.NoError(t, service.Create(&models.Profile{
		ID: identity, FullName: "Claire Dubois", Role: models.RoleMember, Status: models.ProfileStatusPending,
	}).Error)

	expectScopedProfileRead(mock, identity).WillReturnError(&pgconn.PgError{Code: "42501", Message: "permission denied for table profiles"})
	mock.ExpectRollback()

	logs := captureLog(t)
	resolver := NewProfileResolver(database.New(anon, service))
	profile := resolver.Resolve(context.Background(), identity)

	require.NotNil(t, profile)
	assert.Equal(t, "Claire Dubois", profile.FullName)
	assert.Contains(t, logs.String(), "level=warning")
	assert.Contains(t, logs.String(), "using service credential")
	assert.Contains(t, logs.String(), identity.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_DeniedWithoutServiceCredential(t *testing.T) {
	anon, mock := mockPostgres(t)
	identity := uuid.New()

	expectScopedProfileRead(mock, identity).WillReturnError(&pgconn.PgError{Code: "42501"})
	mock.ExpectRollback()

	logs := captureLog(t)
	resolver := NewProfileResolver(database.New(anon, nil))

	assert.Nil(t, resolver.Resolve(context.Background(), identity))
	assert.Contains(t, logs.String(), "no service credential")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_NotFoundDoesNotEscalate(t *testing.T) {
	anon, mock := mockPostgres(t)
	service := openTestDB(t)
	identity := uuid.New()
	// Present for the service credential only; a plain miss must not reach it.
	require.NoError(t, service.Create(&models.Profile{ID: identity, FullName: "Hidden", Role: models.RoleMember}).Error)

	expectScopedProfileRead(mock, identity).WillReturnRows(sqlmock.NewRows([]string{"id", "full_name"}))
	mock.ExpectRollback()

	logs := captureLog(t)
	resolver := NewProfileResolver(database.New(anon, service))

	assert.Nil(t, resolver.Resolve(context.Background(), identity))
	assert.NotContains(t, logs.String(), "service credential")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_ScopedReadSucceeds(t *testing.T) {
	anon, mock := mockPostgres(t)
	identity := uuid.New()

	expectScopedProfileRead(mock, identity).WillReturnRows(
		sqlmock.NewRows([]string{"id", "full_name", "role", "status"}).
			AddRow(identity.String(), "Tom Okafor", "member", "approved"),
	)
	mock.ExpectCommit()

	resolver := NewProfileResolver(database.New(anon, nil))
	profile := resolver.Resolve(context.Background(), identity)

	require.NotNil(t, profile)
	assert.Equal(t, "Tom Okafor", profile.FullName)
	assert.Equal(t, models.ProfileStatusApproved, profile.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_NoIdentityOrStore(t *testing.T) {
	resolver := NewProfileResolver(database.New(nil, nil))

	assert.Nil(t, resolver.Resolve(context.Background(), uuid.Nil))
	assert.Nil(t, resolver.Resolve(context.Background(), uuid.New()))
}

func TestResolve_SQLite(t *testing.T) {
	backend, db := privilegedBackend(t)
	identity := uuid.New()
	require.NoError(t, db.Create(&models.Profile{ID: identity, FullName: "Priya Natarajan", Role: models.RoleMember}).Error)

	profile := NewProfileResolver(backend).Resolve(context.Background(), identity)
	require.NotNil(t, profile)
	assert.Equal(t, "Priya Natarajan", profile.FullName)
}
