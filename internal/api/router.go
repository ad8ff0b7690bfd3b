package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"formazing-backend/config"
	"formazing-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. When accounts is
// non-empty every /api route requires HTTP basic auth.
func NewRouter(h *Handler, cfg *config.ServerConfig, accounts gin.Accounts) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	responses := mw.NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)

	r.GET("/healthz", Healthz)

	api := r.Group("/api")
	api.Use(rateLimiter)
	if len(accounts) > 0 {
		api.Use(gin.BasicAuth(accounts))
	}
	api.Use(responses.Invalidate())
	{
		api.GET("/trainings", responses.Cache(), h.ListTrainings)
		api.GET("/trainings/:id/notification/preview", h.PreviewNotification)
		api.POST("/trainings/:id/notification", h.SendNotification)
		api.GET("/trainings/:id/feedback/preview", h.PreviewFeedback)
		api.POST("/trainings/:id/feedback", h.SendFeedback)

		api.GET("/agenda", responses.Cache(), h.GetAgenda)
		api.GET("/runs", h.ListRuns)
	}

	return r
}
