package threat

import (
	"context"
	"errors"
	"time"

	"github.com/trustnet/core/internal/models"
	"github.com/trustnet/core/internal/pkg/listing"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errDuplicateThreat = errors.New("threat already reported")
	errAlreadyResolved = errors.New("threat is no longer pending")
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) List(ctx context.Context, q listing.Query, status *models.ThreatStatus) ([]models.ThreatModel, error) {
	tx := s.db.WithContext(ctx).Model(&models.ThreatModel{})
	if status != nil {
		tx = tx.Where("status = ?", *status)
	}
	var items []models.ThreatModel
	err := listing.Apply(tx, q, "created_at").Find(&items).Error
	return items, err
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.ThreatModel, error) {
	var t models.ThreatModel
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Lookup finds a threat by the suspect artifact itself, so anyone can
// check a link or number before trusting it.
func (s *Service) Lookup(ctx context.Context, value string) (*models.ThreatModel, error) {
	var t models.ThreatModel
	if err := s.db.WithContext(ctx).First(&t, "value = ?", value).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (s *Service) Create(ctx context.Context, dto *CreateThreatDTO) (*models.ThreatModel, error) {
	t := models.ThreatModel{
		Type:        dto.Type,
		Value:       dto.Value,
		Description: dto.Description,
		Status:      models.ThreatPending,
		Severity:    dto.Severity,
		ReportCount: 1,
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}, {Name: "value"}},
		DoNothing: true,
	}).Create(&t)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, errDuplicateThreat
	}
	return &t, nil
}

// EnsureForArtifact returns the threat row for (type, value), creating
// a pending one when absent and bumping its report counter. Used by the
// report module so many reports converge on one threat.
func (s *Service) EnsureForArtifact(ctx context.Context, typ models.ThreatType, value, description string) (*models.ThreatModel, error) {
	t := models.ThreatModel{
		Type:        typ,
		Value:       value,
		Description: description,
		Status:      models.ThreatPending,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}, {Name: "value"}},
		DoNothing: true,
	}).Create(&t).Error; err != nil {
		return nil, err
	}

	var existing models.ThreatModel
	if err := s.db.WithContext(ctx).
		Where("type = ? AND value = ?", typ, value).
		First(&existing).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&existing).
		Update("report_count", gorm.Expr("report_count + 1")).Error; err != nil {
		return nil, err
	}
	existing.ReportCount++
	return &existing, nil
}

func (s *Service) Update(ctx context.Context, id string, dto *UpdateThreatDTO) (*models.ThreatModel, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil || t == nil {
		return t, err
	}
	updates := map[string]interface{}{}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if dto.Severity != nil {
		updates["severity"] = *dto.Severity
	}
	if len(updates) == 0 {
		return t, nil
	}
	if err := s.db.WithContext(ctx).Model(t).Updates(updates).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ThreatModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Verify moves a pending threat to verified in one conditional update;
// the state check and the write are a single statement so two
// concurrent moderators cannot both win.
func (s *Service) Verify(ctx context.Context, id, verifiedBy string) (*models.ThreatModel, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.ThreatModel{}).
		Where("id = ? AND status = ?", id, models.ThreatPending).
		Updates(map[string]interface{}{
			"status":      models.ThreatVerified,
			"verified_at": now,
			"verified_by": verifiedBy,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		t, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, errAlreadyResolved
	}
	return s.GetByID(ctx, id)
}

// Dismiss marks a pending threat as a non-threat.
func (s *Service) Dismiss(ctx context.Context, id string) (*models.ThreatModel, error) {
	result := s.db.WithContext(ctx).Model(&models.ThreatModel{}).
		Where("id = ? AND status = ?", id, models.ThreatPending).
		Update("status", models.ThreatDismissed)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		t, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, errAlreadyResolved
	}
	return s.GetByID(ctx, id)
}
