package user

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/trustnet/core/internal/middleware"
	"github.com/trustnet/core/internal/pkg/response"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log.Named("user")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/me", authMW)
	g.GET("", h.me)
	g.PUT("", h.update)
}

func (h *Handler) me(c *gin.Context) {
	uid := middleware.CurrentUserID(c)
	email := middleware.CurrentEmail(c)

	profile, err := h.service.GetOrCreate(c.Request.Context(), uid, email)
	if err != nil {
		h.log.Error("load profile failed", zap.Error(err), zap.String("user", uid))
		response.InternalError(c)
		return
	}

	response.OK(c, profile)
}

type updateProfileDTO struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=100"`
	Avatar      *string `json:"avatar" binding:"omitempty,max=500"`
}

func (h *Handler) update(c *gin.Context) {
	var dto updateProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	uid := middleware.CurrentUserID(c)
	profile, err := h.service.Update(c.Request.Context(), uid, dto.DisplayName, dto.Avatar)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		h.log.Error("update profile failed", zap.Error(err), zap.String("user", uid))
		response.InternalError(c)
		return
	}

	response.OK(c, profile)
}
