package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslabs/academia-api/internal/models"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
)

func submissionRows(id string, status models.SubmissionStatus, marks *float64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "assignment_id", "student_id", "content", "submitted_at", "is_late",
		"marks_obtained", "feedback", "graded_at", "graded_by", "status", "updated_at"}).
		AddRow(id, "a1", "stu-1", "answers", now, false, marks, nil, nil, nil, status, now)
}

func TestSubmissionRepositoryGradeOverwritesPreviousGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	marks := 85.0
	mock.ExpectQuery(`UPDATE assignment_submissions SET marks_obtained = \$2`).
		WithArgs("sub-1", 85.0, nil, sqlmock.AnyArg(), "fac-1",
			string(models.SubmissionStatusGraded), string(models.SubmissionStatusReturned)).
		WillReturnRows(submissionRows("sub-1", models.SubmissionStatusGraded, &marks))

	graded, err := repo.Grade(context.Background(), "sub-1", "fac-1", 85, nil)
	require.NoError(t, err)
	require.NotNil(t, graded.MarksObtained)
	assert.Equal(t, 85.0, *graded.MarksObtained)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryGradeReturnedRejected(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(`UPDATE assignment_submissions SET marks_obtained = \$2`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Grade(context.Background(), "sub-1", "fac-1", 90, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
