package article

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/trustnet/core/internal/middleware"
	"github.com/trustnet/core/internal/pkg/listing"
	"github.com/trustnet/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateArticleDTO is the payload for publishing a literacy-hub entry.
type CreateArticleDTO struct {
	Slug      string `json:"slug"      binding:"omitempty,max=191"`
	Title     string `json:"title"     binding:"required"`
	Summary   string `json:"summary"`
	Text      string `json:"text"      binding:"required"`
	Published bool   `json:"published"`
}

// UpdateArticleDTO carries partial updates; nil fields are untouched.
type UpdateArticleDTO struct {
	Title     *string `json:"title"`
	Summary   *string `json:"summary"`
	Text      *string `json:"text"`
	Published *bool   `json:"published"`
}

type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/articles")

	g.GET("", h.list)
	g.GET("/:slug", h.get)

	a := g.Group("", authMW)
	a.POST("", h.create)
	a.PUT("/:slug", h.update) // :slug carries the id on admin routes
	a.DELETE("/:slug", h.delete)
}

// GET /articles
func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), listing.FromContext(c), middleware.IsAuthenticated(c))
	if err != nil {
		h.log.Error("article list failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, items)
}

// GET /articles/:slug
func (h *Handler) get(c *gin.Context) {
	a, err := h.svc.GetBySlug(c.Request.Context(), c.Param("slug"), middleware.IsAuthenticated(c))
	if err != nil {
		h.log.Error("article get failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	if a == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, a)
}

// POST /articles
func (h *Handler) create(c *gin.Context) {
	var dto CreateArticleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	a, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		if errors.Is(err, errDuplicateSlug) {
			response.Conflict(c, "slug already in use")
			return
		}
		h.log.Error("article create failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.Created(c, a)
}

// PUT /articles/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdateArticleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	a, err := h.svc.Update(c.Request.Context(), c.Param("slug"), &dto)
	if err != nil {
		h.log.Error("article update failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	if a == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, a)
}

// DELETE /articles/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("slug")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		h.log.Error("article delete failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.NoContent(c)
}
