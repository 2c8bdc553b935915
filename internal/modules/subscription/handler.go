package subscription

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/trustnet/core/internal/middleware"
	"github.com/trustnet/core/internal/pkg/apierror"
	"github.com/trustnet/core/internal/pkg/response"
)

type Handler struct {
	mgr *Manager
	log *zap.Logger
}

func NewHandler(mgr *Manager, log *zap.Logger) *Handler {
	return &Handler{mgr: mgr, log: log}
}

// fail translates err for the caller. Dependency and untagged failures
// come back as a generic 500, so their cause is logged here; the other
// kinds carry caller-facing messages and need no log.
func (h *Handler) fail(c *gin.Context, action string, err error) {
	switch apierror.KindOf(err) {
	case apierror.KindDependency, apierror.KindUnknown:
		h.log.Error(action+" failed",
			zap.String("user", middleware.CurrentUserID(c)),
			zap.Error(err),
		)
	}
	response.FromError(c, err)
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/subscriptions", authMW)
	g.POST("/auto", h.autoSubscribe)
	g.GET("/status", h.status)
	g.POST("", h.subscribe)
	g.PUT("/toggle", h.toggle)
}

// POST /subscriptions/auto
func (h *Handler) autoSubscribe(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	email := middleware.CurrentEmail(c)
	if email == "" {
		response.BadRequest(c, "credential carries no email claim")
		return
	}

	if err := h.mgr.AutoSubscribe(c.Request.Context(), userID, email); err != nil {
		h.fail(c, "auto subscribe", err)
		return
	}
	response.OK(c, gin.H{
		"message": "subscription ensured",
		"email":   email,
	})
}

// GET /subscriptions/status
func (h *Handler) status(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		response.BadRequest(c, "credential carries no user id claim")
		return
	}

	st, err := h.mgr.GetStatus(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "subscription status", err)
		return
	}
	response.OK(c, st)
}

// POST /subscriptions
func (h *Handler) subscribe(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	email := middleware.CurrentEmail(c)

	if err := h.mgr.Subscribe(c.Request.Context(), userID, email); err != nil {
		h.fail(c, "subscribe", err)
		return
	}
	response.OK(c, gin.H{
		"message":    "subscribed to threat-verification alerts",
		"subscribed": true,
	})
}

// PUT /subscriptions/toggle
func (h *Handler) toggle(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		response.BadRequest(c, "credential carries no user id claim")
		return
	}

	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Enabled == nil {
		response.BadRequest(c, "enabled must be a boolean")
		return
	}

	if err := h.mgr.Toggle(c.Request.Context(), userID, *body.Enabled); err != nil {
		h.fail(c, "subscription toggle", err)
		return
	}
	response.OK(c, gin.H{
		"message":    "subscription updated",
		"subscribed": *body.Enabled,
	})
}
