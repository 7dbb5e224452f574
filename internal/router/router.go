// Package router assembles the gin engine of the local model service.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/config"
	"github.com/pandeptwidyaop/classmod/internal/devserver"
	"github.com/pandeptwidyaop/classmod/internal/handlers"
	"github.com/pandeptwidyaop/classmod/internal/logging"
	"github.com/pandeptwidyaop/classmod/internal/middleware"
)

func New(cfg config.DevServerConfig, server *devserver.Server, logger *zap.Logger) *gin.Engine {
	logger = logging.OrNop(logger).Named("http")
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.MaxMultipartMemory = cfg.MaxTemplateSize

	workingCopyHandler := handlers.NewWorkingCopyHandler(server.WorkingCopies, server.Jobs, cfg.MaxTemplateSize)
	jobHandler := handlers.NewJobHandler(server.Jobs, logger)

	api := r.Group("/api")
	{
		api.GET("/version", handlers.Version)

		v1 := api.Group("/v1")
		v1.Use(middleware.APIKeyRequired(server.Auth))
		if cfg.RateLimit > 0 {
			v1.Use(middleware.NewRateLimiter(cfg.RateLimit, 0).Middleware())
		}
		{
			v1.POST("/projects/:project/working-copies", middleware.DefaultBodyLimit(), workingCopyHandler.Create)

			// 1MB of slack for the multipart envelope around the template.
			v1.POST("/working-copies/import", middleware.BodySizeLimit(cfg.MaxTemplateSize+1<<20), workingCopyHandler.Import)
			v1.POST("/working-copies/:id/open", workingCopyHandler.Open)
			v1.POST("/working-copies/:id/close", workingCopyHandler.Close)
			v1.GET("/working-copies/:id/units", workingCopyHandler.ListUnits)
			v1.GET("/working-copies/:id/units/:unit", workingCopyHandler.GetUnit)
			v1.POST("/working-copies/:id/deltas", middleware.DefaultBodyLimit(), workingCopyHandler.ApplyDeltas)
			v1.POST("/working-copies/:id/commit", middleware.DefaultBodyLimit(), workingCopyHandler.Commit)

			v1.GET("/jobs/:job", jobHandler.Get)
			v1.GET("/jobs/:job/ws", jobHandler.Stream)
		}
	}

	return r
}
