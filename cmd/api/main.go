package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"inkwell_go_backend/cmd/api/config"
	"inkwell_go_backend/internal/api"
	"inkwell_go_backend/internal/auth"
	"inkwell_go_backend/internal/database"
	"inkwell_go_backend/internal/services"
	"inkwell_go_backend/internal/utils/broker"
	"inkwell_go_backend/internal/wsocket"

	"github.com/gorilla/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	database.InitDB()

	cfg := config.NewConfig()

	// Provider credentials are read once here and injected; nothing reads
	// the environment per request.
	providerConfig := services.ProviderConfig{
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: os.Getenv("OPENROUTER_BASE_URL"),
		GroqAPIKey:        os.Getenv("GROQ_API_KEY"),
		GroqBaseURL:       os.Getenv("GROQ_BASE_URL"),
		MaxTokens:         cfg.MaxTokens,
		Temperature:       cfg.Temperature,
		PaidTimeout:       cfg.PaidModelTimeout,
		FreeTimeout:       cfg.FreeModelTimeout,
	}

	registry, err := services.NewProviderRegistry(providerConfig)
	if err != nil {
		log.Fatalf("Failed to build provider registry: %v", err)
	}

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "https://inkwell.app"
	}

	// Initialize Internal services
	messageBroker := broker.NewBroker()
	usageStore := services.NewGormUsageStore(database.DB)
	quotaService := services.NewQuotaService(usageStore, logger)
	conversationService := services.NewConversationServiceDB(database.DB)
	dispatcher := services.NewDispatcher(registry, appURL, "Inkwell", logger)
	fallbackService := services.NewFallbackService()

	generationService := services.NewGenerationService(
		quotaService,
		dispatcher,
		conversationService,
		fallbackService,
		messageBroker,
		cfg.SystemPrompt,
		logger,
	)

	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173" // Default to your local frontend
	}

	// CORS middleware configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(allowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// WebSocket upgrader
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // TODO: Implement a more secure check in production
		},
	}

	// Create WebSocket handler
	wsHandler := wsocket.NewHandler(generationService, upgrader)

	api.SetupRoutes(r, generationService, quotaService)
	auth.SetupRoutes(r)

	// Add WebSocket route
	r.GET("/ws", auth.AuthMiddleware(), func(c *gin.Context) {
		user, _ := c.Get("user")
		wsHandler.HandleWebSocket(c.Writer, c.Request, user, messageBroker)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
