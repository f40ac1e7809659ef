package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/skyloft-tech/AcademiQa/constants"
	"github.com/skyloft-tech/AcademiQa/controllers"
	"github.com/skyloft-tech/AcademiQa/engine"
	"github.com/skyloft-tech/AcademiQa/middleware"
	"github.com/skyloft-tech/AcademiQa/realtime"
)

type Deps struct {
	DB        *gorm.DB
	Engine    *engine.Engine
	Hub       *realtime.Hub
	WS        *realtime.Handler
	Notifier  realtime.ChatNotifier
	UploadDir string
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.Default()

	authController := controllers.AuthController{DB: deps.DB}
	taskController := controllers.TaskController{DB: deps.DB, Engine: deps.Engine, UploadDir: deps.UploadDir}
	chatController := controllers.ChatController{DB: deps.DB, Hub: deps.Hub, Notifier: deps.Notifier}
	notificationController := controllers.NotificationController{DB: deps.DB}
	categoryController := controllers.CategoryController{DB: deps.DB}
	statsController := controllers.StatsController{DB: deps.DB}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	api := r.Group("/api")
	api.POST("/register", authController.Register)
	api.POST("/login", authController.Login)

	auth := api.Group("", middleware.AuthMiddleware())
	auth.GET("/auth/user", authController.CurrentUser)

	auth.GET("/tasks", taskController.ListTasks)
	auth.POST("/tasks", taskController.CreateTask)
	auth.GET("/tasks/:id", taskController.GetTask)

	// Client lifecycle actions. Ownership is enforced by the engine.
	auth.POST("/tasks/:id/accept-budget", taskController.ClientAcceptBudget)
	auth.POST("/tasks/:id/counter-budget", taskController.ClientCounterBudget)
	auth.POST("/tasks/:id/reject-budget", taskController.ClientRejectBudget)
	auth.POST("/tasks/:id/withdraw", taskController.ClientWithdraw)
	auth.POST("/tasks/:id/approve", taskController.ClientApprove)
	auth.POST("/tasks/:id/request-revision", taskController.ClientRequestRevision)

	// Chat and notifications.
	auth.GET("/tasks/:id/chat", chatController.ListMessages)
	auth.POST("/tasks/:id/chat", chatController.CreateMessage)
	auth.POST("/tasks/:id/chat/:msgID/read", chatController.MarkMessageRead)
	auth.GET("/notifications", notificationController.List)
	auth.POST("/notifications/:id/read", notificationController.MarkRead)

	// Admin-only surface.
	admin := auth.Group("/admin", middleware.RoleMiddleware(constants.RoleAdmin))
	admin.GET("/categories", categoryController.List)
	admin.POST("/categories", categoryController.Create)
	admin.GET("/categories/:id", categoryController.Get)
	admin.PUT("/categories/:id", categoryController.Update)
	admin.DELETE("/categories/:id", categoryController.Delete)
	admin.GET("/stats", statsController.AdminStats)
	admin.POST("/tasks/:id/accept", taskController.AdminAcceptTask)
	admin.POST("/tasks/:id/propose-budget", taskController.AdminProposeBudget)
	admin.POST("/tasks/:id/accept-budget", taskController.AdminAcceptBudget)
	admin.POST("/tasks/:id/update-progress", taskController.AdminUpdateProgress)
	admin.POST("/tasks/:id/submit-review", taskController.AdminSubmitForReview)
	admin.POST("/tasks/:id/mark-complete", taskController.AdminMarkComplete)
	admin.POST("/tasks/:id/reject", taskController.AdminRejectTask)
	admin.POST("/tasks/:id/upload-solution", taskController.AdminUploadSolution)

	// Realtime endpoints authenticate via ?token= themselves.
	r.GET("/ws/task/:id", deps.WS.ServeTask)
	r.GET("/ws/dashboard", deps.WS.ServeDashboard)

	return r
}
