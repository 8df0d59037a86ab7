package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	controller "worksync/controllers"
	"worksync/middleware"
	"worksync/services"
	"worksync/utils"
)

// Options carries what the route tree needs besides the database.
type Options struct {
	Location         *time.Location
	Now              services.Clock
	Metrics          *middleware.Metrics
	RateLimit        int
	RateLimitStorage fiber.Storage
	// AccessLog turns on the per-request log line.
	AccessLog bool
}

func SetupAuthRoutes(app *fiber.App, db *gorm.DB, opts Options) {
	authController := controller.NewAuthController(db, utils.NewLogger("auth"))

	auth := app.Group("/auth", accessLog(opts)...)

	// Public auth endpoints (no authentication required)
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Post("/refresh", authController.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected(db))
	protectedAuth.Post("/logout", authController.Logout)
	protectedAuth.Get("/me", authController.GetCurrentUser)

	utils.NewLogger("routes").Info("Authentication routes initialized")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, opts Options) {
	workerController := controller.NewWorkerController(db, utils.NewLogger("workers"), opts.Location, opts.Now)
	teamController := controller.NewTeamController(db, utils.NewLogger("teams"))
	taskController := controller.NewTaskController(db, utils.NewLogger("tasks"), opts.Location, opts.Now)
	commentController := controller.NewCommentController(db, utils.NewLogger("comments"))
	evaluationController := controller.NewEvaluationController(db, utils.NewLogger("evaluations"))
	meetingController := controller.NewMeetingController(db, utils.NewLogger("meetings"), opts.Location, opts.Now)

	// API group with versioning and protection
	handlers := append([]fiber.Handler{
		middleware.Protected(db),
		middleware.MutationRateLimiter(opts.RateLimit, opts.RateLimitStorage, opts.Metrics),
	}, accessLog(opts)...)
	api := app.Group("/api/v1", handlers...)

	// Worker routes
	workers := api.Group("/workers")
	workers.Get("/", workerController.GetWorkers)
	workers.Get("/me", workerController.GetMe)
	workers.Get("/me/calendar", workerController.GetCalendar)
	workers.Get("/me/evaluations/average", workerController.GetEvaluationAverage)
	workers.Get("/:id", workerController.GetWorker)

	// Team routes
	teams := api.Group("/teams")
	teams.Get("/", teamController.GetTeams)
	teams.Post("/", teamController.CreateTeam)
	teams.Get("/:id", teamController.GetTeam)
	teams.Put("/:id", teamController.UpdateTeam)
	teams.Delete("/:id", teamController.DeleteTeam)

	// Task routes
	tasks := api.Group("/tasks")
	tasks.Get("/", taskController.GetTasks)
	tasks.Post("/", taskController.CreateTask)
	tasks.Get("/me", taskController.GetMyTasks)
	tasks.Get("/:id", taskController.GetTask)
	tasks.Put("/:id", taskController.ReplaceTask)
	tasks.Patch("/:id", taskController.UpdateTask)
	tasks.Delete("/:id", taskController.DeleteTask)

	// Comment routes
	comments := tasks.Group("/:task_id/comments")
	comments.Get("/", commentController.GetComments)
	comments.Post("/", commentController.CreateComment)
	comments.Get("/:id", commentController.GetComment)
	comments.Patch("/:id", commentController.UpdateComment)
	comments.Delete("/:id", commentController.DeleteComment)

	// Evaluation routes
	evaluations := tasks.Group("/:task_id/evaluations")
	evaluations.Post("/", evaluationController.CreateEvaluation)
	evaluations.Patch("/:id", evaluationController.UpdateEvaluation)
	evaluations.Delete("/:id", evaluationController.DeleteEvaluation)

	// Meeting routes
	meetings := api.Group("/meetings")
	meetings.Get("/", meetingController.GetMeetings)
	meetings.Post("/", meetingController.CreateMeeting)
	meetings.Get("/me", meetingController.GetMyMeetings)
	meetings.Get("/:id", meetingController.GetMeeting)
	meetings.Put("/:id", meetingController.UpdateMeeting)
	meetings.Delete("/:id", meetingController.DeleteMeeting)

	utils.NewLogger("routes").Info("API routes initialized")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, opts Options) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return uuid.NewString() },
	}))
	if opts.Metrics != nil {
		app.Use(opts.Metrics.Handler())
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Database unavailable", err)
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup auth routes
	SetupAuthRoutes(app, db, opts)

	// Setup API routes
	SetupAPIRoutes(app, db, opts)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}

func accessLog(opts Options) []fiber.Handler {
	if !opts.AccessLog {
		return nil
	}
	return []fiber.Handler{logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
	})}
}
