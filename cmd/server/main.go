package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evofit/meal-planner/internal/api"
	"evofit/meal-planner/internal/cache"
	"evofit/meal-planner/internal/config"
	"evofit/meal-planner/internal/ratelimit"
	mongorepo "evofit/meal-planner/internal/repository/mongo"
	"evofit/meal-planner/internal/service"
	"evofit/meal-planner/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("Starting Meal Planner Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongorepo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongorepo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongorepo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongorepo.EnsureAssignmentIndexes(ctx, appDB.Collection("customer_assignments"))
		mongorepo.EnsureMealPlanIndexes(ctx, appDB.Collection("meal_plans"), appDB.Collection("meal_plan_assignments"))
		mongorepo.EnsureProgressIndexes(ctx, appDB.Collection("progress_entries"))
		mongorepo.EnsurePhotoIndexes(ctx, appDB.Collection("progress_photos"))
		log.Println("Index creation process completed.")
	}()

	// --- Cache and Rate Limiter ---
	// Redis is optional; without an address both fall back to in-memory.
	var listCache cache.Cache
	var limiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		listCache = cache.NewRedis(redisClient)
		limiter = ratelimit.NewRedis(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		log.Printf("Using Redis cache and rate limiter at %s", cfg.Redis.Addr)
	} else {
		listCache = cache.NewInMemory()
		limiter = ratelimit.NewInMemory(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		log.Println("Using in-memory cache and rate limiter.")
	}

	// --- Initialize Storage ---
	log.Println("Initializing file storage service...")
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongorepo.NewMongoUserRepository(appDB)
	assignmentRepo := mongorepo.NewMongoAssignmentRepository(appDB)
	mealPlanRepo := mongorepo.NewMongoMealPlanRepository(appDB)
	progressRepo := mongorepo.NewMongoProgressRepository(appDB)
	photoRepo := mongorepo.NewMongoPhotoRepository(appDB)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	trainerService := service.NewTrainerService(userRepo, assignmentRepo, mealPlanRepo, progressRepo, photoRepo, fileStorage, listCache, cfg.Cache.TTL)
	customerService := service.NewCustomerService(userRepo, assignmentRepo, mealPlanRepo, progressRepo, photoRepo, fileStorage)

	// --- Initialize Gin Engine ---
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, limiter, authService, trainerService, customerService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
