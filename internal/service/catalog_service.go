package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/campuslabs/academia-api/internal/models"
	appErrors "github.com/campuslabs/academia-api/pkg/errors"
)

type offeringCatalog interface {
	FindDetailByID(ctx context.Context, instituteID, id string) (*models.CourseOfferingDetail, error)
	List(ctx context.Context, instituteID string, filter models.CourseOfferingFilter) ([]models.CourseOfferingDetail, int, error)
}

type seatCounter interface {
	CountEnrolled(ctx context.Context, offeringID string) (int, error)
}

// OfferingView is an offering with its derived seat usage.
type OfferingView struct {
	models.CourseOfferingDetail
	SeatsTaken int `json:"seats_taken"`
}

// CatalogService serves read-only offering views. The catalog itself is owned
// by a collaborator; only lookups needed by enrollment live here.
type CatalogService struct {
	offerings offeringCatalog
	seats     seatCounter
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(offerings offeringCatalog, seats seatCounter, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{offerings: offerings, seats: seats, logger: logger}
}

// GetOffering returns one offering with its current seat count.
func (s *CatalogService) GetOffering(ctx context.Context, instituteID, id string) (*OfferingView, error) {
	detail, err := s.offerings.FindDetailByID(ctx, instituteID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	taken, err := s.seats.CountEnrolled(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count seats")
	}
	return &OfferingView{CourseOfferingDetail: *detail, SeatsTaken: taken}, nil
}

// ListOfferings returns offerings matching the filter with pagination.
func (s *CatalogService) ListOfferings(ctx context.Context, instituteID string, filter models.CourseOfferingFilter) ([]models.CourseOfferingDetail, *models.Pagination, error) {
	offerings, total, err := s.offerings.List(ctx, instituteID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return offerings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
