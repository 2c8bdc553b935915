package article

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/trustnet/core/internal/models"
	"github.com/trustnet/core/internal/pkg/listing"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const mysqlErrDuplicateEntry = 1062

var errDuplicateSlug = errors.New("slug already in use")

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log}
}

// List returns articles newest-first. Anonymous callers only see
// published ones.
func (s *Service) List(ctx context.Context, q listing.Query, includeUnpublished bool) ([]models.ArticleModel, error) {
	tx := s.db.WithContext(ctx).Model(&models.ArticleModel{})
	if !includeUnpublished {
		tx = tx.Where("published = ?", true)
	}
	var items []models.ArticleModel
	err := listing.Apply(tx, q, "created_at").Find(&items).Error
	return items, err
}

// GetBySlug fetches one article and bumps its read counter.
func (s *Service) GetBySlug(ctx context.Context, slug string, includeUnpublished bool) (*models.ArticleModel, error) {
	tx := s.db.WithContext(ctx).Where("slug = ?", slug)
	if !includeUnpublished {
		tx = tx.Where("published = ?", true)
	}
	var a models.ArticleModel
	if err := tx.First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	s.bumpReadCount(ctx, &a)
	a.ReadCount++
	return &a, nil
}

// bumpReadCount is best effort: a failed bump should not hide the
// article, but it should leave a trace.
func (s *Service) bumpReadCount(ctx context.Context, a *models.ArticleModel) {
	if err := s.db.WithContext(ctx).Model(a).
		UpdateColumn("read_count", gorm.Expr("read_count + 1")).Error; err != nil {
		s.log.Warn("read counter bump failed",
			zap.String("slug", a.Slug), zap.Error(err))
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.ArticleModel, error) {
	var a models.ArticleModel
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *Service) Create(ctx context.Context, dto *CreateArticleDTO) (*models.ArticleModel, error) {
	slug := dto.Slug
	if slug == "" {
		slug = Slugify(dto.Title)
	}

	a := models.ArticleModel{
		Slug:      slug,
		Title:     dto.Title,
		Summary:   dto.Summary,
		Text:      dto.Text,
		Rendered:  RenderMarkdown(dto.Text),
		Published: dto.Published,
	}
	if err := s.db.WithContext(ctx).Create(&a).Error; err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return nil, errDuplicateSlug
		}
		return nil, err
	}
	return &a, nil
}

func (s *Service) Update(ctx context.Context, id string, dto *UpdateArticleDTO) (*models.ArticleModel, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil || a == nil {
		return a, err
	}

	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Summary != nil {
		updates["summary"] = *dto.Summary
	}
	if dto.Text != nil {
		updates["text"] = *dto.Text
		updates["rendered"] = RenderMarkdown(*dto.Text)
	}
	if dto.Published != nil {
		updates["published"] = *dto.Published
	}
	if len(updates) == 0 {
		return a, nil
	}

	if err := s.db.WithContext(ctx).Model(a).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ArticleModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
