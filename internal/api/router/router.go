package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/x402dev/paygate/internal/api/handler"
	"github.com/x402dev/paygate/internal/config"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, rateLimit config.RateLimitConfig) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())
	r.Use(RateLimitMiddleware(rateLimit))

	jobHandler := handler.NewJobHandler(deps)

	// Service health / connectivity probe
	r.GET("/", jobHandler.Health)

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		jobs := api.Group("/jobs")
		{
			// GET /api/jobs - catalog listing
			jobs.GET("", jobHandler.ListJobs)

			// POST /api/jobs/request - request a job execution
			jobs.POST("/request", jobHandler.RequestJob)

			// POST /api/jobs/verify-payment - confirm a pending payment
			jobs.POST("/verify-payment", jobHandler.VerifyPayment)

			// GET /api/jobs/execute/:job_id - stream a paid job's output
			jobs.GET("/execute/:job_id", jobHandler.ExecuteJob)

			// GET /api/jobs/status/:job_id - lifecycle status
			jobs.GET("/status/:job_id", jobHandler.JobStatus)
		}
	}

	return r
}
