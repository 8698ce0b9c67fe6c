package FiberConfig

import (
	"log"
	"strings"

	"ClientMax/Access"
	"ClientMax/Config"
	"ClientMax/Controllers"
	"ClientMax/Realtime"
	"ClientMax/Store"
	"ClientMax/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// Dependencies are the wired components the routes are served from.
type Dependencies struct {
	Config    *Config.Config
	Stores    *Store.Stores
	Feed      *Realtime.Notifier
	Gate      *Access.Gate
	Notifiers []Controllers.AssignmentNotifier
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	cfg := deps.Config
	validator := Controllers.NewValidator()
	auth := middleware.NewAuthenticator(cfg.JWTSecret, deps.Stores.Employees, deps.Gate)

	healthController := Controllers.NewHealthController(cfg.KeepAliveEnabled)
	authController := Controllers.NewAuthController(deps.Stores.Employees, auth, validator, strings.HasPrefix(cfg.ServiceURL, "https://"))
	employeeController := Controllers.NewEmployeeController(deps.Stores.Employees, validator)
	clientController := Controllers.NewClientController(deps.Stores.Clients)
	assignmentController := Controllers.NewAssignmentController(deps.Stores.Assignments, deps.Feed, validator, deps.Notifiers...)
	todayWorkController := Controllers.NewTodayWorkController(deps.Stores.DailyWork, deps.Feed, validator)
	logsController := Controllers.NewLogsController(cfg.RequestLogFile)

	app.Get("/", healthController.Root)
	app.Get("/favicon.ico", healthController.Favicon)
	app.Get("/favicon.png", healthController.Favicon)

	api := app.Group("/api")
	api.Get("/health", healthController.Health)
	api.Get("/keepalive", healthController.KeepAlive)

	api.Post("/login", authController.Login)
	api.Post("/logout", authController.Logout)
	api.Get("/me", auth.Verify(), authController.Me)

	// Employee routes
	employees := api.Group("/employees", auth.Verify())
	employees.Get("/", employeeController.GetEmployees)
	employees.Post("/", auth.RequirePrivileged(), employeeController.CreateEmployee)
	employees.Patch("/:id", employeeController.UpdateEmployee)

	// Client routes
	clients := api.Group("/clients", auth.Verify())
	clients.Get("/", clientController.GetClients)
	clients.Get("/at-risk", clientController.GetAtRiskClients)
	clients.Get("/:id", clientController.GetClient)

	// Assignment routes - place these BEFORE the ID route to avoid conflicts
	assignments := api.Group("/assignments", auth.Verify())
	assignments.Get("/", assignmentController.GetAssignments)
	assignments.Get("/summary", assignmentController.GetSummary)
	assignments.Get("/stream", assignmentController.StreamAssignments)
	assignments.Get("/export", auth.RequirePrivileged(), assignmentController.ExportAssignments)
	assignments.Post("/", assignmentController.CreateAssignment)

	// ID-based routes
	assignments.Get("/:id", assignmentController.GetAssignment)
	assignments.Patch("/:id", assignmentController.UpdateAssignment)
	assignments.Post("/:id/status", assignmentController.ChangeStatus)
	assignments.Delete("/:id", assignmentController.DeleteAssignment)

	// Today's work routes
	todayWork := api.Group("/today-work", auth.Verify())
	todayWork.Get("/", todayWorkController.GetTodayWork)
	todayWork.Get("/stream", todayWorkController.StreamTodayWork)
	todayWork.Post("/", todayWorkController.CreateTodayWork)
	todayWork.Patch("/:id", todayWorkController.UpdateTodayWork)
	todayWork.Delete("/:id", todayWorkController.DeleteTodayWork)

	// Request logs
	logs := api.Group("/logs", auth.Verify(), auth.RequirePrivileged())
	logs.Get("/", logsController.GetLogs)
	logs.Get("/stats", logsController.GetLogStats)
}

// NewApp builds the Fiber app with the middleware stack and every route.
func NewApp(deps Dependencies) *fiber.App {
	cfg := deps.Config
	app := fiber.New(fiber.Config{
		AppName: "ClientMax Pro API",
	})

	logConfig := middleware.DefaultLogConfig()
	logConfig.LogFilePath = cfg.RequestLogFile
	logConfig.File = cfg.RequestLogFile != ""
	app.Use(middleware.LoggingMiddleware(logConfig))
	if cfg.ErrorLogFile != "" {
		app.Use(middleware.ErrorLogger(cfg.ErrorLogFile))
	}

	app.Use(compress.New(compress.Config{
		// event streams must not be buffered by the compressor
		Next: func(c *fiber.Ctx) bool {
			return strings.HasSuffix(c.Path(), "/stream")
		},
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.CORSOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true, // Important for cookies
		MaxAge:           300,  // Max age for preflight requests caching (5 minutes)
	}))

	SetupRoutes(app, deps)
	return app
}

// FiberConfig serves the API on the configured port until the listener fails.
func FiberConfig(deps Dependencies) error {
	app := NewApp(deps)
	log.Printf("Server Up on :%s", deps.Config.Port)
	return app.Listen(":" + deps.Config.Port)
}
