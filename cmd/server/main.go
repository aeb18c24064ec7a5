package main

import (
	"context"
	"log"

	"github.com/Aninda2000/Royal-Media-sub001/internal/router"
	"github.com/Aninda2000/Royal-Media-sub001/pkg/config"
	"github.com/Aninda2000/Royal-Media-sub001/pkg/firebase"
	"github.com/Aninda2000/Royal-Media-sub001/validators"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connections
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	// Initialize Firebase
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Validator
	e.Validator = validators.NewValidator()

	// Batch dispatch windows run on cron schedules
	c := cron.New()

	// Setup routes and dependencies
	router.SetupRoutes(e, db, firebaseApp, c)

	c.Start()
	defer c.Stop()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
