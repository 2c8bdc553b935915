package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/trustnet/core/internal/middleware"
	"github.com/trustnet/core/internal/modules/article"
	"github.com/trustnet/core/internal/modules/health"
	"github.com/trustnet/core/internal/modules/report"
	"github.com/trustnet/core/internal/modules/subscription"
	"github.com/trustnet/core/internal/modules/threat"
	"github.com/trustnet/core/internal/modules/upload"
	"github.com/trustnet/core/internal/modules/user"
	"github.com/trustnet/core/internal/pkg/response"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(ctx context.Context) {
	r := a.router
	db := a.db
	log := a.logger
	authMW := middleware.Auth(a.verifier)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":     "trustnet-core",
		"version":  "1.0.0",
		"homepage": "https://github.com/trustnet/core",
	}

	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(a.verifier))

	// Rate limiting and idempotence need the identity resolved first:
	// authenticated traffic is exempt from the anonymous limit.
	api.Use(middleware.RateLimit(a.rc.Raw(), log))
	api.Use(middleware.Idempotence(a.rc.Raw()))

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"timestamp": time.Since(processStart).Milliseconds(),
		})
	})

	health.NewHandler(db, a.rc).RegisterRoutes(api)

	// Subscriptions
	subStore := subscription.NewGormStore(db)
	subMgr := subscription.NewManager(subStore, a.notify, log)
	subscription.NewHandler(subMgr, log).RegisterRoutes(api, authMW)

	// Threats and reports
	threatSvc := threat.NewService(db)
	threat.NewHandler(threatSvc, a.notify, log).RegisterRoutes(api, authMW)
	report.NewHandler(report.NewService(db, threatSvc), log).RegisterRoutes(api, authMW)

	// Articles
	article.NewHandler(article.NewService(db, log), log).RegisterRoutes(api, authMW)

	// Profiles
	user.NewHandler(user.NewService(db), log).RegisterRoutes(api, authMW)

	// Uploads require a configured bucket; without one the routes stay off.
	if a.cfg.S3.Bucket != "" {
		presigner, err := upload.NewPresigner(ctx, a.cfg.S3)
		if err != nil {
			log.Warn("s3 presigner unavailable, upload routes disabled", zap.Error(err))
		} else {
			upload.NewHandler(presigner, log).RegisterRoutes(api, authMW)
		}
	}
}

var processStart = time.Now()
