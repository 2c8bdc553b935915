package report

import (
	"context"
	"errors"

	"github.com/trustnet/core/internal/models"
	"github.com/trustnet/core/internal/modules/threat"
	"github.com/trustnet/core/internal/pkg/listing"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	threats *threat.Service
}

func NewService(db *gorm.DB, threats *threat.Service) *Service {
	return &Service{db: db, threats: threats}
}

// Create files a report and attaches it to the threat row for the
// artifact, creating the threat when this is its first sighting.
func (s *Service) Create(ctx context.Context, reporterID string, dto *CreateReportDTO) (*models.ReportModel, error) {
	t, err := s.threats.EnsureForArtifact(ctx, dto.Type, dto.Value, dto.Narrative)
	if err != nil {
		return nil, err
	}

	r := models.ReportModel{
		ThreatID:    t.ID,
		ReporterID:  reporterID,
		Narrative:   dto.Narrative,
		EvidenceKey: dto.EvidenceKey,
		ContactOK:   dto.ContactOK,
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, err
	}
	r.Threat = t
	return &r, nil
}

// ListByReporter returns the caller's own reports, newest first.
func (s *Service) ListByReporter(ctx context.Context, reporterID string, q listing.Query) ([]models.ReportModel, error) {
	tx := s.db.WithContext(ctx).
		Model(&models.ReportModel{}).
		Where("reporter_id = ?", reporterID).
		Preload("Threat")
	var items []models.ReportModel
	err := listing.Apply(tx, q, "created_at").Find(&items).Error
	return items, err
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.ReportModel, error) {
	var r models.ReportModel
	if err := s.db.WithContext(ctx).Preload("Threat").First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// Delete removes a report; only its reporter may delete it, enforced in
// the same statement as the delete itself.
func (s *Service) Delete(ctx context.Context, id, reporterID string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND reporter_id = ?", id, reporterID).
		Delete(&models.ReportModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
