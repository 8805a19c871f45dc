package main

import (
	"log"

	"lms/config"
	"lms/database"
	"lms/routers/authRoutes"
	"lms/routers/courseRoutes"
	"lms/services/progress"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()
	db := database.Database.Db

	structure := database.NewCourseStructureStore(db)
	notifier := utils.NewCompletionNotifier(db, config.AppConfig.CertificateWebhookURL, utils.SendEmail)
	engine := progress.NewEngine(
		database.NewProgressStore(db),
		structure,
		database.NewAssessmentStore(db),
		progress.WithCompletionHook(notifier),
	)

	scheduler, err := utils.InitializeProgressSyncScheduler(config.AppConfig.ProgressSyncCron, structure, engine)
	if err != nil {
		log.Fatalf("Invalid PROGRESS_SYNC_CRON %q: %v", config.AppConfig.ProgressSyncCron, err)
	}
	defer scheduler.Stop()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	authRoutes.SetupAuthRoutes(app)
	courseRoutes.SetupCourseRoutes(app, engine)
	courseRoutes.SetupAdminCourseRoutes(app, engine)

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
