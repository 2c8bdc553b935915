package report

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/trustnet/core/internal/middleware"
	"github.com/trustnet/core/internal/models"
	"github.com/trustnet/core/internal/pkg/listing"
	"github.com/trustnet/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateReportDTO is the payload for filing a scam report.
type CreateReportDTO struct {
	Type        models.ThreatType `json:"type"         binding:"required,oneof=url phone email"`
	Value       string            `json:"value"        binding:"required,max=191"`
	Narrative   string            `json:"narrative"`
	EvidenceKey string            `json:"evidence_key"`
	ContactOK   bool              `json:"contact_ok"`
}

type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/reports", authMW)
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)
}

// POST /reports
func (h *Handler) create(c *gin.Context) {
	var dto CreateReportDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	r, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		h.log.Error("report create failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.Created(c, r)
}

// GET /reports, scoped to the caller's own reports
func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.ListByReporter(c.Request.Context(), middleware.CurrentUserID(c), listing.FromContext(c))
	if err != nil {
		h.log.Error("report list failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, items)
}

// GET /reports/:id
func (h *Handler) get(c *gin.Context) {
	r, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Error("report get failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	if r == nil || r.ReporterID != middleware.CurrentUserID(c) {
		response.NotFound(c)
		return
	}
	response.OK(c, r)
}

// DELETE /reports/:id
func (h *Handler) delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		h.log.Error("report delete failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.NoContent(c)
}
