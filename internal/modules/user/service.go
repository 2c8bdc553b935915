package user

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trustnet/core/internal/models"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetOrCreate returns the profile for userID, seeding it from the token
// claims on first sight. The insert is conditional on user_id so that a
// concurrent first request cannot produce duplicates, and last_seen_at
// is bumped on every call.
func (s *Service) GetOrCreate(ctx context.Context, userID, email string) (*models.ProfileModel, error) {
	seed := models.ProfileModel{
		UserID: userID,
		Email:  email,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&seed).Error
	if err != nil {
		return nil, err
	}

	var profile models.ProfileModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&profile).UpdateColumn("last_seen_at", now).Error; err != nil {
		return nil, err
	}
	profile.LastSeenAt = &now

	return &profile, nil
}

// Update changes the mutable profile fields. Nil fields are left alone.
func (s *Service) Update(ctx context.Context, userID string, displayName, avatar *string) (*models.ProfileModel, error) {
	updates := map[string]any{}
	if displayName != nil {
		updates["display_name"] = *displayName
	}
	if avatar != nil {
		updates["avatar"] = *avatar
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).
			Model(&models.ProfileModel{}).
			Where("user_id = ?", userID).
			Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}

	var profile models.ProfileModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}
