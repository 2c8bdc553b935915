package subscription

import (
	"context"
	"errors"

	"github.com/trustnet/core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAbsent is the store's precondition-violation signal: an update was
// attempted against a record that does not exist.
var ErrAbsent = errors.New("subscription record absent")

// Store is the conditional-write capability over subscription records.
// Each mutating call is a single atomic statement; callers must never
// pair a read with a write to emulate these semantics.
type Store interface {
	// PutIfAbsent creates the record only when none exists for the
	// user. An existing record is left untouched and no error is
	// returned.
	PutIfAbsent(ctx context.Context, rec *models.SubscriptionModel) error
	// PutAlways creates or overwrites the record, refreshing email and
	// subscribed while keeping the original creation time.
	PutAlways(ctx context.Context, rec *models.SubscriptionModel) error
	// UpdateIfPresent flips the subscribed flag of an existing record,
	// returning ErrAbsent when there is none. Email is left untouched.
	UpdateIfPresent(ctx context.Context, userID string, subscribed bool) error
	// Get returns the record, or (nil, nil) when none exists.
	Get(ctx context.Context, userID string) (*models.SubscriptionModel, error)
}

// GormStore implements Store on MySQL. The unique index on user_id plus
// ON CONFLICT clauses make every precondition atomic, so concurrent
// requests for the same user cannot race past each other.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) PutIfAbsent(ctx context.Context, rec *models.SubscriptionModel) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(rec).Error
}

func (s *GormStore) PutAlways(ctx context.Context, rec *models.SubscriptionModel) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "subscribed", "updated_at"}),
	}).Create(rec).Error
}

func (s *GormStore) UpdateIfPresent(ctx context.Context, userID string, subscribed bool) error {
	result := s.db.WithContext(ctx).
		Model(&models.SubscriptionModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"subscribed": subscribed})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAbsent
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, userID string) (*models.SubscriptionModel, error) {
	var rec models.SubscriptionModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
