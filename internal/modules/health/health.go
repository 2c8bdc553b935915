package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/trustnet/core/internal/pkg/redis"
)

// Handler reports liveness of the process and its backing stores.
type Handler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHandler(db *gorm.DB, rdb *redis.Client) *Handler {
	return &Handler{db: db, redis: rdb}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.check)
}

func (h *Handler) check(c *gin.Context) {
	status := gin.H{
		"status":   "ok",
		"database": "ok",
		"redis":    "ok",
	}
	code := http.StatusOK

	if sqlDB, err := h.db.DB(); err != nil {
		status["database"] = "error"
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		status["database"] = "error"
	}

	if err := h.redis.Raw().Ping(c.Request.Context()).Err(); err != nil {
		status["redis"] = "error"
	}

	if status["database"] != "ok" || status["redis"] != "ok" {
		status["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, status)
}
