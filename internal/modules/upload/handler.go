package upload

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/trustnet/core/internal/pkg/response"
)

type Handler struct {
	presigner *Presigner
	log       *zap.Logger
}

func NewHandler(presigner *Presigner, log *zap.Logger) *Handler {
	return &Handler{presigner: presigner, log: log.Named("upload")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/uploads", authMW)
	g.POST("/presign", h.presign)
}

type presignDTO struct {
	ContentType string `json:"content_type" binding:"max=191"`
	Extension   string `json:"extension" binding:"max=16"`
}

func (h *Handler) presign(c *gin.Context) {
	// An empty body is fine: both fields are optional hints.
	var dto presignDTO
	if err := c.ShouldBindJSON(&dto); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err.Error())
		return
	}

	signed, err := h.presigner.PresignUpload(c.Request.Context(), dto.ContentType, dto.Extension)
	if err != nil {
		if errors.Is(err, errInvalidExtension) {
			response.BadRequest(c, err.Error())
			return
		}
		h.log.Error("presign upload failed", zap.Error(err))
		response.InternalError(c)
		return
	}

	response.OK(c, signed)
}
