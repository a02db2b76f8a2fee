package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"owlhoot/database"
	"owlhoot/handlers"
	"owlhoot/middleware"
	"owlhoot/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Validate critical environment variables
	validateEnvironment()

	// Initialize database
	database.InitDB()
	db := database.GetDB()

	// Wire up the game services
	playerStore := services.NewPlayerStore(db)
	contentSvc := services.NewContentService(db)
	sessionSvc := services.NewSessionService(db, playerStore)
	handlers.InitHandlers(playerStore, contentSvc, sessionSvc, clockwork.NewRealClock(), scoreboardHold())

	// Initialize cleanup service
	services.InitCleanupService(db)
	defer func() {
		if cleanupService := services.GetCleanupService(); cleanupService != nil {
			cleanupService.Stop()
		}
	}()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    8 * 1024 * 1024, // 8MB, image uploads included
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	// Apply rate limiting to all routes
	app.Use(middleware.FiberRateLimitMiddleware())

	// Serve static files
	app.Static("/", "./static")
	app.Static("/css", "./static/css")
	app.Static("/js", "./static/js")

	// API Routes
	api := app.Group("/api")

	// Player routes
	api.Post("/players", handlers.JoinPlayer)
	api.Get("/players", handlers.GetPlayers)
	api.Get("/players/me", middleware.PlayerIdentity, handlers.GetCurrentPlayer)
	api.Delete("/players/:name", handlers.DeletePlayer)

	// Answer + presence routes (scoped to this device's player via identity token)
	api.Post("/answers", middleware.PlayerIdentity, handlers.SubmitAnswer)
	api.Post("/presence", middleware.PlayerIdentity, handlers.MarkPresence)

	// Quiz authoring routes
	api.Get("/quizzes", handlers.GetQuizzes)
	api.Get("/quizzes/:id", handlers.GetQuiz)
	api.Post("/quizzes", handlers.CreateQuiz)
	api.Put("/quizzes/:id", handlers.UpdateQuiz)
	api.Delete("/quizzes/:id", handlers.DeleteQuiz)
	api.Post("/assets", handlers.UploadAsset)
	api.Get("/assets/:id", handlers.GetAssetFile)

	// Host console / session routes
	api.Get("/game", handlers.GetGameState)
	api.Post("/game/play", handlers.PlayQuiz)
	api.Post("/game/start", handlers.StartGame)
	api.Post("/game/clear-start", handlers.ClearStartFlag)
	api.Post("/game/reset", handlers.ResetGame)

	// Debug endpoints for troubleshooting countdowns (remove in production)
	api.Get("/debug/coordinators", handlers.GetActiveCoordinators)

	// Realtime feed
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(handlers.HandleWebSocket))

	// SPA shell routes
	app.Get("/", serveFile("./static/index.html"))
	app.Get("/dashboard", serveFile("./static/index.html"))
	app.Get("/create-quiz", serveFile("./static/index.html"))
	app.Get("/edit-quiz/:id", serveFile("./static/index.html"))
	app.Get("/questions/:id", serveFile("./static/index.html"))
	app.Get("/scoreboard/:id", serveFile("./static/index.html"))
	app.Get("/podium", serveFile("./static/index.html"))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"version":   "1.0.0",
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("🚀 OwlHoot server starting on port %s", port)
	log.Printf("📊 Environment: %s", getEnv("APP_ENV", "development"))
	log.Printf("⏱️ Scoreboard hold: %s", scoreboardHold())
	log.Printf("🌐 Realtime feed available at ws://localhost:%s/ws", port)

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start HTTP server:", err)
	}
}

// validateEnvironment checks for required environment variables
func validateEnvironment() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("FATAL: JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("FATAL: JWT_SECRET must be at least 32 characters long")
	}

	if os.Getenv("APP_ENV") == "production" {
		corsOrigins := os.Getenv("CORS_ORIGINS")
		if corsOrigins == "" || corsOrigins == "http://localhost:3000" {
			log.Println("WARNING: CORS_ORIGINS not properly configured for production")
		}
	}
}

// scoreboardHold is how long the scoreboard stays up once every player has
// arrived. Clamped to the 7-10s band the game is tuned for.
func scoreboardHold() time.Duration {
	seconds := 7
	if val := os.Getenv("SCOREBOARD_HOLD_SECONDS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			seconds = n
		}
	}
	if seconds < 7 {
		seconds = 7
	}
	if seconds > 10 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

// Helper functions
func serveFile(filepath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendFile(filepath)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Don't expose internal errors in production
	if os.Getenv("APP_ENV") == "production" && code == 500 {
		message = "An error occurred. Please try again later."
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
