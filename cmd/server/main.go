package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mou-dashboard/internal/auth"
	"mou-dashboard/internal/cache"
	"mou-dashboard/internal/config"
	"mou-dashboard/internal/db"
	"mou-dashboard/internal/directory"
	"mou-dashboard/internal/institution"
	"mou-dashboard/internal/logger"
	"mou-dashboard/internal/middleware"
	"mou-dashboard/internal/schema"
	"mou-dashboard/internal/store"
	"mou-dashboard/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.LoadConfig()

	log, err := logger.New(config.AppConfig.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to database
	if err := db.ConnectDb(); err != nil {
		log.Fatal("database connection failed", "err", err)
	}
	defer db.CloseDb()

	// Migrate database schema
	db.Migrate()

	// Initialize Redis-backed cache (degrades to no-op when unavailable)
	appCache := cache.New(config.AppConfig.RedisAddress, log)

	// Background workers for cache writes
	workers := worker.NewWorkerPool(4, log)

	// The column schema registry needs the institution directory up front;
	// the server cannot serve anything meaningful without it
	directoryClient := directory.NewHTTPClient(config.AppConfig.DirectoryAddress)
	registry, err := schema.NewRegistry(context.Background(), directoryClient, config.AppConfig.SchemaCacheTTL)
	if err != nil {
		log.Fatal("building column schema registry failed", "err", err)
	}

	// Initialize repository
	storeRepo := store.NewRepository(db.AppDb)
	// Initialize service
	storeService := store.NewService(storeRepo, registry, appCache, workers, log)
	institutionService := institution.NewService(storeService, directoryClient)
	// Initialize handler
	storeHandler := store.NewHandler(storeService, registry, store.JSONTableDecoder{})
	institutionHandler := institution.NewHandler(institutionService)
	schemaHandler := schema.NewHandler(registry)

	// Initialize Gin router
	if config.AppConfig.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler(log))

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}
	if config.AppConfig.Environment == "development" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{"https://mou.example.edu"}
	}
	router.Use(cors.New(corsConfig))

	read := middleware.RequireScope(auth.ScopeRead, auth.ScopeWrite, auth.ScopeAdmin)
	write := middleware.RequireScope(auth.ScopeWrite, auth.ScopeAdmin)
	admin := middleware.RequireScope(auth.ScopeAdmin)

	router.GET("/", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })

	router.GET("/table/data/:wbs", read, storeHandler.ShowTable)
	router.POST("/table/data/:wbs", admin, storeHandler.IngestTable)
	router.POST("/record/:wbs", write, storeHandler.UpsertRecord)
	router.DELETE("/record/:wbs", write, storeHandler.DeleteRecord)
	router.GET("/table/config", read, schemaHandler.ShowTableConfig)

	router.GET("/snapshots/list/:wbs", read, storeHandler.ListSnapshots)
	router.POST("/snapshots/make/:wbs", write, storeHandler.MakeSnapshot)

	router.GET("/institution/values/:wbs", read, institutionHandler.ShowValues)
	router.POST("/institution/values/:wbs", write, institutionHandler.UpsertValues)
	router.POST("/institution/values/confirmation/:wbs", write, institutionHandler.ConfirmValues)
	router.GET("/institution/values/confirmation/touchstone/:wbs", admin, institutionHandler.ShowTouchstone)
	router.POST("/institution/values/confirmation/touchstone/:wbs", admin, institutionHandler.ResetTouchstone)
	router.GET("/institution/today", read, institutionHandler.ShowTodaysInstitutions)

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Info("server listening", "port", serverPort)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed to start", "err", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", "err", err)
	}
	workers.Shutdown()

	log.Info("server shutdown complete")
}
