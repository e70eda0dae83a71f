package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/summarylab/summary-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "summary-api-service",
		})
	})

	// Initialize summary handler
	summaryHandler := handler.NewSummaryHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware())
	{
		ai := v1.Group("/ai")
		{
			// POST /api/v1/ai/pdf-summary - Request a new PDF summary
			ai.POST("/pdf-summary", summaryHandler.CreateSummary)

			// GET /api/v1/ai/summaries/:job_id - Poll summary job status
			ai.GET("/summaries/:job_id", summaryHandler.GetSummaryStatus)
		}
	}

	return r
}
