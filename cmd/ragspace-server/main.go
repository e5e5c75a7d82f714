package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/ragspace/ragspace/pkg/ragspace/admin"
	"github.com/ragspace/ragspace/pkg/ragspace/auth"
	"github.com/ragspace/ragspace/pkg/ragspace/config"
	"github.com/ragspace/ragspace/pkg/ragspace/database"
	"github.com/ragspace/ragspace/pkg/ragspace/gateway"
	"github.com/ragspace/ragspace/pkg/ragspace/keys"
	"github.com/ragspace/ragspace/pkg/ragspace/models"
	"github.com/ragspace/ragspace/pkg/ragspace/spaceconfig"
	"github.com/ragspace/ragspace/pkg/ragspace/spaces"
	"github.com/ragspace/ragspace/pkg/ragspace/users"
)

func main() {
	// Optional .env file for development
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg := config.Load()

	if err := database.Connect(cfg.DBPath); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(database.GetDB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	if err := ensureAdminExists(cfg); err != nil {
		log.Fatalf("Failed to ensure admin user exists: %v", err)
	}

	r := gin.Default()

	// Space identifiers are upstream store names like
	// "fileSearchStores/abc" and arrive URL-escaped; matching on the raw
	// path keeps the whole name in one :spaceId segment.
	r.UseRawPath = true

	r.Use(cors.Default())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	db := database.GetDB()
	keyStore := keys.NewStore(db)
	configStore := spaceconfig.NewStore(db)

	// OpenAI-compatible gateway (bearer-key auth, outside /api)
	gatewayHandler := gateway.NewHandler(keyStore, configStore, gateway.GeminiClientFunc)
	gatewayHandler.RegisterRoutes(r)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Usage stats route (public, the frontend reports completions it
		// ran itself)
		configHandler := spaceconfig.NewHandler(configStore)
		configHandler.RegisterStatsRoutes(api.Group(""))

		// Protected routes (JWT required)
		protected := api.Group("", auth.AuthMiddleware())

		usersHandler := users.NewHandler(db)
		usersHandler.RegisterRoutes(protected)

		keysHandler := keys.NewHandler(db, keyStore, cfg.BaseURL)
		keysHandler.RegisterRoutes(protected)

		configHandler.RegisterRoutes(protected)

		spacesHandler := spaces.NewHandler(db, keyStore, configStore, spaces.GeminiClientFunc)
		spacesHandler.RegisterRoutes(protected)

		// Admin routes (JWT + admin role required)
		adminHandler := admin.NewHandler(db)
		adminHandler.RegisterRoutes(api.Group("/admin", auth.AuthMiddleware(), auth.RequireAdmin()))
	}

	log.Printf("Starting ragspace server on :%s", cfg.Port)
	log.Printf("API endpoint: %s/v1/chat/completions", cfg.BaseURL)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// ensureAdminExists creates the admin account on first start and keeps its
// password and Gemini key in sync with the environment afterwards.
func ensureAdminExists(cfg *config.Config) error {
	db := database.GetDB()

	var admin models.User
	err := db.Where("username = ?", cfg.AdminUsername).First(&admin).Error
	if err != nil {
		hashedPassword, err := auth.HashPassword(cfg.AdminPassword)
		if err != nil {
			return err
		}
		admin = models.User{
			Username:     cfg.AdminUsername,
			PasswordHash: hashedPassword,
			Role:         models.RoleAdmin,
			Spaces:       []string{},
		}
		if cfg.HasValidGeminiKey() {
			admin.GeminiAPIKey = cfg.GeminiAPIKey
		}
		if err := db.Create(&admin).Error; err != nil {
			return err
		}
		log.Printf("Created admin user: %s", cfg.AdminUsername)
		return nil
	}

	// Admin exists; sync password and Gemini key when the environment
	// changed.
	if !auth.CheckPassword(cfg.AdminPassword, admin.PasswordHash) {
		hashedPassword, err := auth.HashPassword(cfg.AdminPassword)
		if err != nil {
			return err
		}
		if err := db.Model(&admin).Update("password_hash", hashedPassword).Error; err != nil {
			return err
		}
		log.Println("Admin password updated from environment")
	}

	if cfg.HasValidGeminiKey() && admin.GeminiAPIKey != cfg.GeminiAPIKey {
		if err := db.Model(&admin).Update("gemini_api_key", cfg.GeminiAPIKey).Error; err != nil {
			return err
		}
		log.Println("Admin Gemini API key synced from environment")
	}

	return nil
}
