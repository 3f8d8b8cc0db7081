package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"topmovies/database"
	"topmovies/internal/config"
	"topmovies/internal/http-api/handler"
	"topmovies/internal/http-api/middleware"
	"topmovies/internal/http-api/repository"
	"topmovies/internal/http-api/service"
	"topmovies/internal/http-api/templates"
	"topmovies/internal/ingestion/tmdb"
	"topmovies/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid config: %v", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.WithField("env", cfg.GoEnv).Info("=== Top Movies ===")

	db, err := database.ConnectDB(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Fatal("Failed to get database instance")
	}
	defer sqlDB.Close()

	tmdbClient := tmdb.NewClient(tmdb.ClientConfig{
		BaseURL:      cfg.TMDBAPIURL,
		ImageBaseURL: cfg.TMDBImageURL,
		APIKey:       cfg.TMDBAPIKey,
		Timeout:      cfg.TMDBTimeout,
		RateLimit:    cfg.TMDBRateLimit,
		Logger:       log,
	})

	movieRepo := repository.NewMovieRepository(db)
	movieService := service.NewMovieService(movieRepo, tmdbClient, log)
	movieHandler := handler.NewMovieHandler(movieService, log)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handler.RegisterValidations(); err != nil {
		log.WithError(err).Fatal("Failed to register form validations")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))

	tmpl, err := templates.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to parse templates")
	}
	r.SetHTMLTemplate(tmpl)

	movieHandler.RegisterRoutes(r.Group(""))

	if cfg.PrometheusEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled on /metrics")
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: r,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}

	log.Info("Server stopped")
}
