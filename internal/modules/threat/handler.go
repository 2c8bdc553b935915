package threat

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/trustnet/core/internal/middleware"
	"github.com/trustnet/core/internal/models"
	"github.com/trustnet/core/internal/pkg/listing"
	"github.com/trustnet/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Broadcaster announces a verified threat to subscribers; failures are
// logged, never surfaced to the moderator's request.
type Broadcaster interface {
	BroadcastThreatVerified(ctx context.Context, threatID string) error
}

type Handler struct {
	svc         *Service
	broadcaster Broadcaster
	log         *zap.Logger
}

func NewHandler(svc *Service, broadcaster Broadcaster, log *zap.Logger) *Handler {
	return &Handler{svc: svc, broadcaster: broadcaster, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/threats")

	g.GET("", h.list)
	g.GET("/lookup", h.lookup)
	g.GET("/:id", h.get)

	a := g.Group("", authMW)
	a.POST("", h.create)
	a.PUT("/:id", h.update)
	a.DELETE("/:id", h.delete)
	a.POST("/:id/verify", h.verify)
	a.POST("/:id/dismiss", h.dismiss)
}

// GET /threats?status=&limit=&order=
func (h *Handler) list(c *gin.Context) {
	q := listing.FromContext(c)

	var statusFilter *models.ThreatStatus
	if raw := c.Query("status"); raw != "" {
		st := models.ThreatStatus(raw)
		switch st {
		case models.ThreatPending, models.ThreatVerified, models.ThreatDismissed:
			statusFilter = &st
		default:
			response.BadRequest(c, "invalid status filter")
			return
		}
	}

	items, err := h.svc.List(c.Request.Context(), q, statusFilter)
	if err != nil {
		h.log.Error("threat list failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, items)
}

// GET /threats/lookup?value=
func (h *Handler) lookup(c *gin.Context) {
	value := c.Query("value")
	if value == "" {
		response.BadRequest(c, "value is required")
		return
	}
	t, err := h.svc.Lookup(c.Request.Context(), value)
	if err != nil {
		h.log.Error("threat lookup failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	if t == nil {
		response.OK(c, gin.H{"known": false})
		return
	}
	response.OK(c, gin.H{"known": true, "threat": t})
}

// GET /threats/:id
func (h *Handler) get(c *gin.Context) {
	t, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Error("threat get failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	if t == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, t)
}

// POST /threats
func (h *Handler) create(c *gin.Context) {
	var dto CreateThreatDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	t, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		if errors.Is(err, errDuplicateThreat) {
			response.Conflict(c, "this artifact is already reported")
			return
		}
		h.log.Error("threat create failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.Created(c, t)
}

// PUT /threats/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdateThreatDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	t, err := h.svc.Update(c.Request.Context(), c.Param("id"), &dto)
	if err != nil {
		h.log.Error("threat update failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	if t == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, t)
}

// DELETE /threats/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		h.log.Error("threat delete failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.NoContent(c)
}

// POST /threats/:id/verify
func (h *Handler) verify(c *gin.Context) {
	id := c.Param("id")
	t, err := h.svc.Verify(c.Request.Context(), id, middleware.CurrentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.NotFound(c)
		case errors.Is(err, errAlreadyResolved):
			response.Conflict(c, "threat is no longer pending")
		default:
			h.log.Error("threat verify failed", zap.Error(err))
			response.InternalError(c)
		}
		return
	}

	if h.broadcaster != nil {
		if err := h.broadcaster.BroadcastThreatVerified(c.Request.Context(), id); err != nil {
			h.log.Warn("verification broadcast enqueue failed",
				zap.String("threat", id),
				zap.Error(err),
			)
		}
	}
	response.OK(c, t)
}

// POST /threats/:id/dismiss
func (h *Handler) dismiss(c *gin.Context) {
	t, err := h.svc.Dismiss(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.NotFound(c)
		case errors.Is(err, errAlreadyResolved):
			response.Conflict(c, "threat is no longer pending")
		default:
			h.log.Error("threat dismiss failed", zap.Error(err))
			response.InternalError(c)
		}
		return
	}
	response.OK(c, t)
}
