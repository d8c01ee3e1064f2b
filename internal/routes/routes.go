package routes

import (
	"net/http"

	"compliance-tracker-api/internal/auth"
	"compliance-tracker-api/internal/handlers"
	"compliance-tracker-api/internal/middleware"
	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/realtime"
	"compliance-tracker-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps is everything the router needs to build its handlers.
type Deps struct {
	Tasks         *service.TaskService
	Users         *service.UserService
	Clients       *service.ClientService
	Activity      *service.ActivityService
	Tokens        *auth.TokenManager
	Hub           *realtime.Hub
	Log           *zap.Logger
	AllowedOrigin string
}

// activityActions names the writes kept in the activity log.
var activityActions = map[string]string{
	"POST /api/login":                       "login",
	"POST /api/users":                       "create_user",
	"POST /api/clients":                     "create_client",
	"POST /api/tasks":                       "create_task",
	"PUT /api/tasks/:id":                    "update_task",
	"PATCH /api/tasks/:id":                  "update_task",
	"DELETE /api/tasks/:id":                 "delete_task",
	"PATCH /api/tasks/:id/status":           "change_task_status",
	"POST /api/tasks/:id/mark_completed":    "complete_task",
	"POST /api/tasks/:id/update-deadline":   "update_task_deadline",
	"POST /api/tasks/:id/initiate-approval": "initiate_approval",
	"POST /api/tasks/:id/process-approval":  "process_approval",
}

func SetupRoutes(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	origin := d.AllowedOrigin
	if origin == "" {
		origin = "*"
	}

	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery(), middleware.RequestID(), middleware.GinZapMiddleware(d.Log), middleware.LanguageMiddleware())

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Accept-Language, X-CSRF-Token, X-Request-ID, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Compliance Tracker API is running",
		})
	})

	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens)
	userHandler := handlers.NewUserHandler(d.Users)
	clientHandler := handlers.NewClientHandler(d.Clients)
	taskHandler := handlers.NewTaskHandler(d.Tasks)
	wsHandler := handlers.NewWSHandler(d.Hub, d.AllowedOrigin)

	api := ginRouter.Group("/api")
	if d.Activity != nil {
		api.Use(middleware.ActivityLog(d.Activity, activityActions))
	}

	// Public routes (no authentication required)
	{
		api.POST("/login", authHandler.Login)
		api.POST("/token/refresh", authHandler.Refresh)
	}

	// Protected routes (authentication required)
	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware(d.Tokens))
	{
		protected.GET("/me", authHandler.Me)
		protected.GET("/ws", wsHandler.Serve)

		protected.GET("/users", userHandler.List)
		protected.POST("/users", middleware.RequireRole(models.RoleAdmin), userHandler.Create)
		protected.GET("/users/users-with-deadlines", taskHandler.UsersWithDeadlines)
		protected.GET("/users/:id", userHandler.Get)
		protected.GET("/users/:id/deadlines-tasks", taskHandler.DeadlineTasks)

		protected.GET("/clients", clientHandler.List)
		protected.GET("/clients/birthdays", clientHandler.Birthdays)
		protected.GET("/clients/client-with-deadlines", taskHandler.ClientsWithDeadlines)
		protected.GET("/clients/:id", clientHandler.Get)
		protected.POST("/clients", middleware.RequireRole(models.RoleAdmin), clientHandler.Create)

		protected.GET("/my-tasks", taskHandler.MyTasks)

		tasks := protected.Group("/tasks")
		tasks.GET("", taskHandler.List)
		tasks.POST("", taskHandler.Create)
		tasks.GET("/overdue", taskHandler.Overdue)
		tasks.GET("/due_soon", taskHandler.DueSoon)
		tasks.GET("/statistics", taskHandler.Statistics)
		tasks.GET("/pending-approvals", taskHandler.PendingApprovals)

		tasks.GET("/:id", taskHandler.Get)
		tasks.PUT("/:id", taskHandler.Replace)
		tasks.PATCH("/:id", taskHandler.Patch)
		tasks.DELETE("/:id", taskHandler.Delete)
		tasks.PATCH("/:id/status", taskHandler.UpdateStatus)
		tasks.POST("/:id/mark_completed", taskHandler.MarkCompleted)
		tasks.POST("/:id/update-deadline", taskHandler.UpdateDeadline)
		tasks.POST("/:id/initiate-approval", taskHandler.InitiateApproval)
		tasks.POST("/:id/process-approval", taskHandler.ProcessApproval)
		tasks.GET("/:id/status-history", taskHandler.StatusHistory)
		tasks.GET("/:id/task-approvals", taskHandler.ApprovalHistory)

		if d.Activity != nil {
			activityHandler := handlers.NewActivityHandler(d.Activity)
			protected.GET("/app-logs", middleware.RequireRole(models.RoleAdmin), activityHandler.List)
		}
	}

	return ginRouter
}
