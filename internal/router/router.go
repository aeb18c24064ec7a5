package router

import (
	"context"
	"log"

	"github.com/Aninda2000/Royal-Media-sub001/internal/delivery"
	"github.com/Aninda2000/Royal-Media-sub001/internal/handlers"
	"github.com/Aninda2000/Royal-Media-sub001/internal/middleware"
	"github.com/Aninda2000/Royal-Media-sub001/internal/models"
	"github.com/Aninda2000/Royal-Media-sub001/internal/realtime"
	"github.com/Aninda2000/Royal-Media-sub001/internal/repositories"
	"github.com/Aninda2000/Royal-Media-sub001/pkg/config"
	"github.com/Aninda2000/Royal-Media-sub001/pkg/firebase"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.Use(eMiddleware.RequestLoggerWithConfig(eMiddleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(_ echo.Context, v eMiddleware.RequestLoggerValues) error {
			log.Printf("request %s status=%d", v.URI, v.Status)
			return nil
		},
	}))
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, db *config.DB, firebaseApp *firebase.App, c *cron.Cron) {
	// AutoMigrate PostgreSQL models
	if err := db.Postgres.AutoMigrate(&models.NotificationSettings{}); err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	notificationRepo := repositories.NewMongoNotificationRepository(db.Mongo.Database("socialmedia"))
	if err := notificationRepo.EnsureIndexes(context.Background()); err != nil {
		log.Fatalf("Failed to create notification indexes: %v", err)
	}
	settingsRepo := repositories.NewPostgresSettingsRepository(db.Postgres)
	log.Println("Repositories initialized, ledger indexes ensured.")

	// --- Fanout, dispatch and the delivery gate ---
	hub := realtime.NewHub()
	dispatcher := delivery.NewFCMDispatcher(firebaseApp.MessagingClient)
	batcher := delivery.NewBatcher(db.Redis, notificationRepo, dispatcher)
	gate := delivery.NewGate(settingsRepo, notificationRepo, hub, dispatcher, batcher)
	if err := delivery.RegisterCronJobs(c, batcher); err != nil {
		log.Fatalf("Failed to register batch cron jobs: %v", err)
	}
	if err := delivery.RegisterExpirySweep(c, notificationRepo); err != nil {
		log.Fatalf("Failed to register expiry sweep: %v", err)
	}
	log.Println("Delivery gate and batch windows configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, hub)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	// Settings routes
	settingsHandler := handlers.NewSettingsHandler(settingsRepo)
	settingsHandler.RegisterSettingsRoutes(api)
	log.Println("Settings routes configured.")

	// Producer event route
	eventHandler := handlers.NewEventHandler(gate)
	eventHandler.RegisterEventRoutes(api)
	log.Println("Event routes configured.")

	// Realtime endpoint (authenticates at handshake, outside the JWT group)
	wsHandler := handlers.NewWSHandler(hub, gate, firebaseApp.AuthClient)
	wsHandler.RegisterWSRoute(e)
	log.Println("Realtime endpoint configured.")

	log.Println("All routes configured.")
}
