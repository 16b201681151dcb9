package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/catalog-review-backend/config"
	"github.com/ikkim/catalog-review-backend/internal/app/controller"
	"github.com/ikkim/catalog-review-backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	reviewController *controller.ReviewController
	uploadController *controller.UploadController
	healthController *controller.HealthController
	authMiddleware   *middleware.AuthMiddleware
	metrics          *middleware.Metrics
	gatherer         prometheus.Gatherer
	config           *config.Config
}

func NewRouter(
	reviewController *controller.ReviewController,
	uploadController *controller.UploadController,
	healthController *controller.HealthController,
	authMiddleware *middleware.AuthMiddleware,
	metrics *middleware.Metrics,
	gatherer prometheus.Gatherer,
	cfg *config.Config,
) *Router {
	return &Router{
		reviewController: reviewController,
		uploadController: uploadController,
		healthController: healthController,
		authMiddleware:   authMiddleware,
		metrics:          metrics,
		gatherer:         gatherer,
		config:           cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(r.metrics.Handler())
	router.Use(middleware.CORS(r.config.CORS.AllowedOrigins))

	router.GET("/health", r.healthController.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		reviews := api.Group("/reviews")
		{
			reviews.GET("", r.reviewController.ListReviews)
			reviews.POST("", r.reviewController.CreateReview)
			reviews.GET("/product/:productId", r.reviewController.ListProductReviews)
			reviews.GET("/customer/:customerId", r.reviewController.ListCustomerReviews)
			reviews.GET("/search/:query", r.reviewController.SearchReviews)
			reviews.GET("/stats/:productId", r.reviewController.GetProductStats)
			reviews.GET("/:id", r.reviewController.GetReview)
			reviews.PUT("/:id", r.reviewController.UpdateReview)
			reviews.DELETE("/:id", r.reviewController.DeleteReview)
			reviews.POST("/:id/helpful", r.reviewController.MarkHelpful)

			// 직원 전용
			staff := reviews.Group("")
			staff.Use(
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole(middleware.RoleAdmin, middleware.RoleModerator),
			)
			{
				staff.GET("/export", r.reviewController.ExportReviews)
				staff.PATCH("/:id/status", r.reviewController.ModerateReview)
			}
		}

		uploads := api.Group("/uploads")
		{
			uploads.POST("/review-images", r.uploadController.PresignReviewImage)
		}
	}

	return router
}
