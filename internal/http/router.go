package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/orienta-edu/orienta-backend/internal/domain"
	httpH "github.com/orienta-edu/orienta-backend/internal/http/handlers"
	httpMW "github.com/orienta-edu/orienta-backend/internal/http/middleware"
	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware

	GenerationHandler    *httpH.GenerationHandler
	CommunicationHandler *httpH.CommunicationHandler
	PiarHandler          *httpH.PiarHandler
	HealthHandler        *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("orienta-backend"))
	if cfg.Log != nil {
		r.Use(httpMW.RequestLog(cfg.Log))
	}
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.AuthMiddleware != nil {
			api.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Generation
		if cfg.GenerationHandler != nil {
			api.POST("/generation/support-plan", cfg.GenerationHandler.GenerateSupportPlan)
			api.POST("/generation/adapted-activities", cfg.GenerationHandler.GenerateAdaptedActivities)
			api.GET("/generation/providers", cfg.GenerationHandler.ProviderAvailability)
			if cfg.AuthMiddleware != nil {
				api.GET("/generation/runs",
					cfg.AuthMiddleware.RequireRoles(domain.RoleDirector, domain.RoleCoordinator),
					cfg.GenerationHandler.ListRuns)
			} else {
				api.GET("/generation/runs", cfg.GenerationHandler.ListRuns)
			}
		}

		// Communications
		if cfg.CommunicationHandler != nil {
			api.POST("/communications", cfg.CommunicationHandler.Deliver)
			api.GET("/communications", cfg.CommunicationHandler.List)
			api.GET("/communications/:id", cfg.CommunicationHandler.Get)
			api.POST("/communications/:id/acknowledge", cfg.CommunicationHandler.Acknowledge)
			api.POST("/communications/:id/implement", cfg.CommunicationHandler.MarkImplemented)
			api.POST("/communications/:id/review", cfg.CommunicationHandler.MarkReviewed)
		}

		// PIAR records
		if cfg.PiarHandler != nil {
			api.GET("/piar/:studentId", cfg.PiarHandler.GetByStudent)
			api.PUT("/piar", cfg.PiarHandler.Save)
		}
	}

	return r
}
