package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"projecthub/config"
	controller "projecthub/controllers"
	"projecthub/logging"
	"projecthub/middleware"
	"projecthub/models"
	"projecthub/utils"
)

const requestLogFormat = "[${time}] ${status} - ${latency} ${method} ${path}\n"

// NewApp builds the Fiber application with error handling, CORS and all
// routes mounted.
func NewApp(db *gorm.DB) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "projecthub",
		ErrorHandler: utils.FiberErrorHandler,
	})

	cors := middleware.DefaultCORSConfig()
	if len(config.AppConfig.AllowedOrigins) > 0 {
		cors.AllowedOrigins = config.AppConfig.AllowedOrigins
	}
	app.Use(middleware.CORS(cors))

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	SetupRoutes(app, db)

	app.Use(func(c *fiber.Ctx) error {
		return utils.HandleError(c, fiber.NewError(fiber.StatusNotFound, "Route not found"))
	})
	return app
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	SetupAuthRoutes(app, db)
	SetupAPIRoutes(app, db)
}

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	authLogger := logging.Component("auth")
	authController := controller.NewAuthController(db, authLogger)
	userController := controller.NewUserController(db, logging.Component("users"))

	auth := app.Group("/api/auth", logger.New(logger.Config{
		Format: requestLogFormat,
	}))

	// Public auth endpoints (no authentication required)
	limit := middleware.AuthRateLimiter(config.AppConfig.RateLimitAuth, middleware.RateLimitStorage(config.AppConfig.Redis))
	auth.Post("/register", limit, authController.Register)
	auth.Post("/login", limit, authController.Login)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected(db))
	protectedAuth.Post("/logout", authController.Logout)
	protectedAuth.Get("/profile", authController.GetProfile)
	protectedAuth.Put("/profile", authController.UpdateProfile)
	protectedAuth.Put("/update-password", authController.UpdatePassword)
	protectedAuth.Get("/users", middleware.RequireRole(models.RoleAdmin), userController.ListUsers)

	authLogger.Info("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	userController := controller.NewUserController(db, logging.Component("users"))
	projectController := controller.NewProjectController(db, logging.Component("projects"))
	taskController := controller.NewTaskController(db, logging.Component("tasks"))
	commentController := controller.NewCommentController(db, logging.Component("comments"))

	api := app.Group("/api", logger.New(logger.Config{
		Format: requestLogFormat,
	}))
	protected := middleware.Protected(db)

	// User administration
	users := api.Group("/users", protected, middleware.RequireRole(models.RoleAdmin))
	users.Get("/", userController.ListUsers)
	users.Get("/:id", userController.GetUser)
	users.Put("/:id/role", userController.UpdateRole)

	// Project routes
	projects := api.Group("/projects", protected)
	projects.Get("/", projectController.ListProjects)
	projects.Post("/", projectController.CreateProject)
	projects.Get("/:id", projectController.GetProject)
	projects.Put("/:id", projectController.UpdateProject)
	projects.Delete("/:id", projectController.DeleteProject)
	projects.Get("/:id/members", projectController.GetMembers)
	projects.Post("/:id/members", projectController.AddMember)
	projects.Delete("/:id/members/:userId", projectController.RemoveMember)
	projects.Get("/:id/tasks", taskController.GetProjectTasks)
	projects.Post("/:id/tasks", taskController.CreateTask)

	// Task routes
	tasks := api.Group("/tasks", protected)
	tasks.Get("/", taskController.ListTasks)
	tasks.Post("/", taskController.CreateTask)
	tasks.Get("/project/:projectId", taskController.GetProjectTasks)
	tasks.Post("/project/:projectId", taskController.CreateTask)
	tasks.Get("/:id", taskController.GetTask)
	tasks.Put("/:id", taskController.UpdateTask)
	tasks.Delete("/:id", taskController.DeleteTask)

	// Comment routes
	comments := api.Group("/comments", protected)
	comments.Post("/", commentController.CreateComment)
	comments.Post("/task/:taskId", commentController.CreateComment)
	comments.Get("/task/:taskId", commentController.GetTaskComments)
	comments.Put("/:id", commentController.UpdateComment)
	comments.Delete("/:id", commentController.DeleteComment)
}
