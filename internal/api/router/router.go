package router

import (
	"github.com/gin-gonic/gin"

	"github.com/alexcherry/audiocast/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	jobHandler := handler.NewJobHandler(deps)

	r.GET("/health", jobHandler.Health)

	v1 := r.Group("/v1")
	{
		v1.GET("/tts/models", jobHandler.TtsModels)
		v1.GET("/lm/models", jobHandler.LmModels)
		v1.POST("/lm/models/validate", jobHandler.ValidateLmModel)

		jobs := v1.Group("/jobs")
		{
			// POST /v1/jobs - Submit a new batch job
			jobs.POST("", jobHandler.CreateJob)

			// GET /v1/jobs/:job_id - Job status with ordered items
			jobs.GET("/:job_id", jobHandler.GetJob)

			// POST /v1/jobs/:job_id/cancel - Cancel a job
			jobs.POST("/:job_id/cancel", jobHandler.CancelJob)

			// GET /v1/jobs/:job_id/events - Job audit trail
			jobs.GET("/:job_id/events", jobHandler.GetJobEvents)

			// GET /v1/jobs/:job_id/items/:item_id/artifact - Download audio
			jobs.GET("/:job_id/items/:item_id/artifact", jobHandler.DownloadArtifact)

			// POST /v1/jobs/:job_id/items/:item_id/ack-sent - Acknowledge delivery
			jobs.POST("/:job_id/items/:item_id/ack-sent", jobHandler.AckSent)
		}
	}

	return r
}
