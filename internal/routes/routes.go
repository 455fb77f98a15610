package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/handlers"
	"taskboard/internal/metrics"
	"taskboard/internal/middleware"
)

// Options configures the gateway router.
type Options struct {
	Logger *zap.Logger
	// APIKey is the public key every API call must carry. Empty disables
	// the check.
	APIKey string
}

func SetupRoutes(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	// Create a new GIN Router
	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery(), middleware.GinZapMiddleware(opts.Logger), middleware.MetricsMiddleware())

	// CORS middleware (for browser clients)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, apikey, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	ginRouter.GET("/health", handlers.Health)
	ginRouter.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Public objects are linked from pages and need no key.
	ginRouter.GET("/storage/v1/object/public/:bucket/:name", handlers.GetPublicObject)

	keyed := ginRouter.Group("", middleware.APIKeyMiddleware(opts.APIKey))
	{
		keyed.POST("/auth/v1/signup", handlers.SignUp)
		keyed.POST("/auth/v1/token", handlers.Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := keyed.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware())
	{
		protectedRoutes.POST("/auth/v1/logout", handlers.Logout)
		protectedRoutes.POST("/auth/v1/refresh", handlers.Refresh)
		protectedRoutes.GET("/auth/v1/user", handlers.GetUser)

		// Task endpoints
		protectedRoutes.GET("/rest/v1/tasks", handlers.GetTasks)
		protectedRoutes.POST("/rest/v1/tasks", handlers.CreateTask)
		protectedRoutes.GET("/rest/v1/tasks/:id", handlers.GetTaskByID)
		protectedRoutes.PATCH("/rest/v1/tasks/:id", handlers.UpdateTask)
		protectedRoutes.PATCH("/rest/v1/tasks/:id/status", handlers.UpdateTaskStatus)
		protectedRoutes.DELETE("/rest/v1/tasks/:id", handlers.DeleteTask)
		protectedRoutes.GET("/rest/v1/stats/tasks", handlers.GetTaskStats)

		// Sub-task endpoints
		protectedRoutes.POST("/rest/v1/sub_tasks", handlers.CreateSubTasks)
		protectedRoutes.PATCH("/rest/v1/sub_tasks/:id", handlers.UpdateSubTask)
		protectedRoutes.DELETE("/rest/v1/sub_tasks/:id", handlers.DeleteSubTask)

		// Profile endpoints
		protectedRoutes.POST("/rest/v1/users_detail", handlers.CreateProfile)
		protectedRoutes.GET("/rest/v1/users_detail/:id", handlers.GetProfile)
		protectedRoutes.PATCH("/rest/v1/users_detail/:id", handlers.UpdateProfile)

		// Storage endpoints
		protectedRoutes.POST("/storage/v1/object/:bucket/:name", handlers.UploadObject)
		protectedRoutes.DELETE("/storage/v1/object/:bucket", handlers.RemoveObjects)

		protectedRoutes.GET("/realtime/v1", handlers.RealtimeHandler)
	}

	return ginRouter
}
