package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pressroom/api/internal/app"
	"pressroom/api/internal/config"
	"pressroom/api/internal/email"
	"pressroom/api/internal/notify"
	"pressroom/api/internal/search"
	"pressroom/api/internal/store"
	"pressroom/api/internal/upload"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
		searchService.ReindexAllFromPG(ctx)
	}

	mailer := email.NewService(email.Config{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		From:      cfg.SMTPFrom,
		FromName:  cfg.SMTPFromName,
		EnableTLS: cfg.SMTPEnableTLS,
		BaseURL:   cfg.BaseURL,
	})
	var appMailer app.Mailer
	if mailer.IsConfigured() {
		appMailer = mailer
	} else {
		log.Printf("SMTP not configured, editor notifications disabled")
	}

	var limiter app.NotificationLimiter
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisLimiter, err := notify.NewLimiter(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisLimiter.Close()
		limiter = redisLimiter
	} else {
		log.Printf("Redis not configured, editor notifications disabled")
	}

	var blobs app.BlobStore
	if strings.TrimSpace(cfg.S3Endpoint) != "" {
		uploader, err := upload.New(ctx, upload.Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Bucket:    cfg.S3Bucket,
			Context:   cfg.Context,
			ContextID: cfg.ContextID,
		})
		if err != nil {
			log.Fatalf("object storage connection failed: %v", err)
		}
		blobs = uploader
	} else {
		log.Printf("object storage not configured, uploads disabled")
	}

	service := app.New(dataStore, appMailer, limiter, searchService)

	httpServer := app.NewHTTPServer(service, searchService, blobs, cfg.CORSOrigin, cfg.AllowedLocales, cfg.PrimaryLocale)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Pressroom API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
