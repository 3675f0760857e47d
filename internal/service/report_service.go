package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/campuslabs/academia-api/internal/models"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
	"github.com/campuslabs/academia-api/pkg/export"
)

// ExportFormat selects the rendering backend for report downloads.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered report ready to be written to the response.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

type registerSource interface {
	RegisterRows(ctx context.Context, offeringID string, from, to *time.Time) ([]models.AttendanceRegisterRow, error)
}

type gradeSheetSource interface {
	GradeSheetRows(ctx context.Context, instituteID, offeringID string) ([]models.EnrollmentDetail, error)
}

// ReportService renders offering-level exports: the attendance register and
// the final grade sheet.
type ReportService struct {
	offerings offeringReader
	register  registerSource
	grades    gradeSheetSource
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewReportService constructs ReportService.
func NewReportService(offerings offeringReader, register registerSource, grades gradeSheetSource, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		offerings: offerings,
		register:  register,
		grades:    grades,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// AttendanceRegister exports the per-student session matrix for an offering.
// Columns are the session dates in order; cells carry the mark, defaulting to
// absent for students never marked.
func (s *ReportService) AttendanceRegister(ctx context.Context, instituteID, offeringID string, from, to *time.Time, format ExportFormat) (*ExportFile, error) {
	if _, err := s.loadOffering(ctx, instituteID, offeringID); err != nil {
		return nil, err
	}
	rows, err := s.register.RegisterRows(ctx, offeringID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build attendance register")
	}

	dataset := buildRegisterDataset(rows)
	name := fmt.Sprintf("attendance-register-%s", offeringID)
	return s.render(dataset, name, "Attendance Register", format)
}

// GradeSheet exports the finalized results for an offering. Rows without a
// final grade show the enrollment status instead.
func (s *ReportService) GradeSheet(ctx context.Context, instituteID, offeringID string, format ExportFormat) (*ExportFile, error) {
	if _, err := s.loadOffering(ctx, instituteID, offeringID); err != nil {
		return nil, err
	}
	enrollments, err := s.grades.GradeSheetRows(ctx, instituteID, offeringID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build grade sheet")
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Status", "Grade", "Marks"},
	}
	for _, e := range enrollments {
		grade, marks := "-", "-"
		if e.FinalGrade != nil {
			grade = *e.FinalGrade
		}
		if e.FinalMarks != nil {
			marks = fmt.Sprintf("%.2f", *e.FinalMarks)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student": e.StudentName,
			"Status":  string(e.Status),
			"Grade":   grade,
			"Marks":   marks,
		})
	}

	name := fmt.Sprintf("grade-sheet-%s", offeringID)
	return s.render(dataset, name, "Grade Sheet", format)
}

// buildRegisterDataset pivots register rows into one row per student with one
// column per session.
func buildRegisterDataset(rows []models.AttendanceRegisterRow) export.Dataset {
	type sessionKey struct {
		date string
		time string
	}
	sessionSet := map[sessionKey]struct{}{}
	students := map[string]string{}
	marks := map[string]map[sessionKey]string{}

	for _, row := range rows {
		key := sessionKey{date: row.SessionDate.Format("2006-01-02"), time: row.SessionTime}
		sessionSet[key] = struct{}{}
		students[row.StudentID] = row.StudentName
		if marks[row.StudentID] == nil {
			marks[row.StudentID] = map[sessionKey]string{}
		}
		marks[row.StudentID][key] = string(row.Status)
	}

	sessions := make([]sessionKey, 0, len(sessionSet))
	for key := range sessionSet {
		sessions = append(sessions, key)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].date != sessions[j].date {
			return sessions[i].date < sessions[j].date
		}
		return sessions[i].time < sessions[j].time
	})

	headers := []string{"Student"}
	for _, key := range sessions {
		headers = append(headers, fmt.Sprintf("%s %s", key.date, key.time))
	}

	studentIDs := make([]string, 0, len(students))
	for id := range students {
		studentIDs = append(studentIDs, id)
	}
	sort.Slice(studentIDs, func(i, j int) bool { return students[studentIDs[i]] < students[studentIDs[j]] })

	dataset := export.Dataset{Headers: headers}
	for _, id := range studentIDs {
		row := map[string]string{"Student": students[id]}
		for i, key := range sessions {
			status := marks[id][key]
			if status == "" {
				status = string(models.AttendanceStatusAbsent)
			}
			row[headers[i+1]] = status
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	return dataset
}

func (s *ReportService) render(dataset export.Dataset, name, title string, format ExportFormat) (*ExportFile, error) {
	switch format {
	case ExportFormatCSV, "":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{FileName: name + ".csv", ContentType: "text/csv", Content: content}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{FileName: name + ".pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *ReportService) loadOffering(ctx context.Context, instituteID, offeringID string) (*models.CourseOffering, error) {
	offering, err := s.offerings.FindByID(ctx, instituteID, offeringID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	return offering, nil
}
