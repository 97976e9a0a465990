package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/aleks10sadu-ops/k-c-bar/internal/api"
	"github.com/aleks10sadu-ops/k-c-bar/internal/config"
	"github.com/aleks10sadu-ops/k-c-bar/internal/files"
	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/notify"
	"github.com/aleks10sadu-ops/k-c-bar/internal/repository"
	"github.com/aleks10sadu-ops/k-c-bar/internal/repository/memory"
	"github.com/aleks10sadu-ops/k-c-bar/internal/repository/postgres"
	"github.com/aleks10sadu-ops/k-c-bar/internal/service"
	"github.com/aleks10sadu-ops/k-c-bar/internal/taskstore"
	"github.com/aleks10sadu-ops/k-c-bar/internal/telegram"
	"github.com/aleks10sadu-ops/k-c-bar/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting Bar Tracker...")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	var (
		users         repository.UserRepository
		tasks         repository.TaskRepository
		templates     repository.TemplateRepository
		notifications repository.NotificationRepository
		feed          repository.TaskFeed
		demoUser      *models.User
	)

	if cfg.DemoMode {
		l.Warn("DEMO_MODE is set: using in-memory store with seed data")
		store := memory.New()
		demoUser, err = store.Seed(ctx)
		if err != nil {
			l.Fatalf("Failed to seed demo data: %v", err)
		}
		users = store.Users()
		tasks = store.Tasks()
		templates = store.Templates()
		notifications = store.Notifications()
		feed = store
	} else {
		// Database
		db, err := config.NewDatabase(cfg.DatabaseURL, l)
		if err != nil {
			l.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		// Run migrations
		if err := db.Migrate("migrations"); err != nil {
			l.Fatalf("Failed to run migrations: %v", err)
		}

		users = postgres.NewUserRepository(db.DB)
		tasks = postgres.NewTaskRepository(db.DB)
		templates = postgres.NewTemplateRepository(db.DB)
		notifications = postgres.NewNotificationRepository(db.DB)

		// Change feed over LISTEN/NOTIFY
		listener := postgres.NewTaskFeed(cfg.DatabaseURL, l)
		go func() {
			if err := listener.Start(ctx); err != nil {
				l.Errorf("Task feed error: %v", err)
			}
		}()
		feed = listener
	}

	// Live task mirror; the server holds the admin-scoped view and filters
	// per role at the API boundary.
	store := taskstore.New(tasks, feed, taskstore.Viewer{Admin: true}, l)
	if err := store.Start(ctx); err != nil {
		l.Fatalf("Failed to start task store: %v", err)
	}
	defer store.Close()

	// Telegram bot, outbound delivery only
	var sender notify.Sender
	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram bot: %v", err)
		}
		sender = bot
	} else {
		l.Warn("No TELEGRAM_TOKEN: Telegram delivery disabled")
	}

	// Notification synchronizer
	sync := notify.New(l, users, notifications, sender)
	if err := sync.Start(feed); err != nil {
		l.Fatalf("Failed to start notification synchronizer: %v", err)
	}
	defer sync.Close()

	// File storage for completion evidence uploads
	storage, err := files.NewStorage(cfg.UploadDir, cfg.BaseURL, l)
	if err != nil {
		l.Fatalf("Failed to init file storage: %v", err)
	}

	// Service layer
	svc := service.New(l, store, users, templates, cfg.AllowAssigneeUndo)

	// HTTP server for the Mini App
	apiServer := api.NewServer(svc, sync, storage, cfg.TelegramToken, l)
	if cfg.DemoMode {
		apiServer.EnableDemoMode(demoUser)
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("Bar Tracker started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP server...")
	httpServer.Close()

	l.Info("Bar Tracker stopped")
}
