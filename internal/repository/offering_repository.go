package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campuslabs/academia-api/internal/models"
)

// tenantJoin threads the institute scope through the hierarchy. Every query
// touching an offering must filter on this chain; a mismatching institute
// simply yields no rows.
const tenantJoin = `
JOIN subjects sub ON sub.id = co.subject_id
JOIN semesters sem ON sem.id = co.semester_id
JOIN academic_years ay ON ay.id = sem.academic_year_id
JOIN programs p ON p.id = ay.program_id`

const offeringColumns = `co.id, co.subject_id, co.semester_id, co.faculty_id, co.section,
        co.max_enrollment, co.room_number, co.is_active, co.min_attendance_percent, co.created_at, co.updated_at`

// OfferingRepository provides read-only access to course offerings owned by
// the curriculum catalog.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository constructs the repository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

// FindByID returns an offering scoped to the caller's institute.
func (r *OfferingRepository) FindByID(ctx context.Context, instituteID, id string) (*models.CourseOffering, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_offerings co %s WHERE co.id = $1 AND p.institute_id = $2`,
		offeringColumns, tenantJoin)
	var offering models.CourseOffering
	if err := r.db.GetContext(ctx, &offering, query, id, instituteID); err != nil {
		return nil, err
	}
	return &offering, nil
}

// FindDetailByID returns an offering with catalog names.
func (r *OfferingRepository) FindDetailByID(ctx context.Context, instituteID, id string) (*models.CourseOfferingDetail, error) {
	query := fmt.Sprintf(`SELECT %s, sub.code AS subject_code, sub.name AS subject_name, sem.name AS semester_name
        FROM course_offerings co %s WHERE co.id = $1 AND p.institute_id = $2`, offeringColumns, tenantJoin)
	var detail models.CourseOfferingDetail
	if err := r.db.GetContext(ctx, &detail, query, id, instituteID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns offerings for the institute matching the filter.
func (r *OfferingRepository) List(ctx context.Context, instituteID string, filter models.CourseOfferingFilter) ([]models.CourseOfferingDetail, int, error) {
	base := fmt.Sprintf("FROM course_offerings co %s", tenantJoin)
	conditions := []string{"p.institute_id = $1"}
	args := []interface{}{instituteID}

	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("co.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("co.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("co.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "co.is_active = TRUE")
	}
	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, sub.code AS subject_code, sub.name AS subject_name, sem.name AS semester_name
        %s ORDER BY sub.code, co.section LIMIT %d OFFSET %d`, offeringColumns, base+clause, size, offset)

	var offerings []models.CourseOfferingDetail
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list offerings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count offerings: %w", err)
	}
	return offerings, total, nil
}
