package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslabs/academia-api/internal/models"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func enrollmentRows(id, studentID, offeringID string, status models.EnrollmentStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "student_id", "course_offering_id", "status", "enrolled_at", "final_grade", "final_marks", "updated_at"}).
		AddRow(id, studentID, offeringID, status, now, nil, nil, now)
}

func TestEnrollmentRepositoryAllocateSeat(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT co\.id, co\.max_enrollment, co\.is_active`).
		WithArgs("off-1", "inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "max_enrollment", "is_active"}).AddRow("off-1", 30, true))
	mock.ExpectQuery(`FROM enrollments WHERE student_id = \$1 AND course_offering_id = \$2`).
		WithArgs("stu-1", "off-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments`).
		WithArgs("off-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`INSERT INTO enrollments`).
		WillReturnRows(enrollmentRows("enr-1", "stu-1", "off-1", models.EnrollmentStatusEnrolled))
	mock.ExpectCommit()

	enrollment, created, err := repo.AllocateSeat(context.Background(), "inst-1", "stu-1", "off-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAllocateSeatFull(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT co\.id, co\.max_enrollment, co\.is_active`).
		WithArgs("off-1", "inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "max_enrollment", "is_active"}).AddRow("off-1", 30, true))
	mock.ExpectQuery(`FROM enrollments WHERE student_id = \$1 AND course_offering_id = \$2`).
		WithArgs("stu-1", "off-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments`).
		WithArgs("off-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))
	mock.ExpectRollback()

	_, _, err := repo.AllocateSeat(context.Background(), "inst-1", "stu-1", "off-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAllocateSeatRepeat(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT co\.id, co\.max_enrollment, co\.is_active`).
		WithArgs("off-1", "inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "max_enrollment", "is_active"}).AddRow("off-1", 30, true))
	mock.ExpectQuery(`FROM enrollments WHERE student_id = \$1 AND course_offering_id = \$2`).
		WithArgs("stu-1", "off-1").
		WillReturnRows(enrollmentRows("enr-1", "stu-1", "off-1", models.EnrollmentStatusEnrolled))
	mock.ExpectCommit()

	enrollment, created, err := repo.AllocateSeat(context.Background(), "inst-1", "stu-1", "off-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "enr-1", enrollment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAllocateSeatReactivatesDropped(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT co\.id, co\.max_enrollment, co\.is_active`).
		WithArgs("off-1", "inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "max_enrollment", "is_active"}).AddRow("off-1", 30, true))
	mock.ExpectQuery(`FROM enrollments WHERE student_id = \$1 AND course_offering_id = \$2`).
		WithArgs("stu-1", "off-1").
		WillReturnRows(enrollmentRows("enr-1", "stu-1", "off-1", models.EnrollmentStatusDropped))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments`).
		WithArgs("off-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(`UPDATE enrollments SET status = \$2, enrolled_at = \$3`).
		WillReturnRows(enrollmentRows("enr-1", "stu-1", "off-1", models.EnrollmentStatusEnrolled))
	mock.ExpectCommit()

	enrollment, created, err := repo.AllocateSeat(context.Background(), "inst-1", "stu-1", "off-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "enr-1", enrollment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAllocateSeatFinalized(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT co\.id, co\.max_enrollment, co\.is_active`).
		WithArgs("off-1", "inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "max_enrollment", "is_active"}).AddRow("off-1", 30, true))
	mock.ExpectQuery(`FROM enrollments WHERE student_id = \$1 AND course_offering_id = \$2`).
		WithArgs("stu-1", "off-1").
		WillReturnRows(enrollmentRows("enr-1", "stu-1", "off-1", models.EnrollmentStatusCompleted))
	mock.ExpectRollback()

	_, _, err := repo.AllocateSeat(context.Background(), "inst-1", "stu-1", "off-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAllocateSeatUnknownOffering(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT co\.id, co\.max_enrollment, co\.is_active`).
		WithArgs("off-1", "other-institute").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := repo.AllocateSeat(context.Background(), "other-institute", "stu-1", "off-1")
	require.Error(t, err)
	// A tenant mismatch is indistinguishable from a missing offering.
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDrop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(`UPDATE enrollments e SET status = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	dropped, err := repo.Drop(context.Background(), "inst-1", "stu-1", "off-1")
	require.NoError(t, err)
	assert.True(t, dropped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFinalizeNotActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(`UPDATE enrollments SET status = \$2, final_grade = \$3`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Finalize(context.Background(), "enr-1", models.EnrollmentStatusCompleted, "A", 92)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
