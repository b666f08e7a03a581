package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/findmymua/fmm-backend/internal/domain"
	"github.com/findmymua/fmm-backend/internal/handlers"
	"github.com/findmymua/fmm-backend/internal/mailer"
	"github.com/findmymua/fmm-backend/internal/repository"
	"github.com/findmymua/fmm-backend/internal/service"
	"github.com/findmymua/fmm-backend/pkg/config"
	"github.com/findmymua/fmm-backend/pkg/database"
	"github.com/findmymua/fmm-backend/pkg/events"
	"github.com/findmymua/fmm-backend/pkg/logger"
	mw "github.com/findmymua/fmm-backend/pkg/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using process environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to redis (rate limiting)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Connect to event bus
	var eventBus events.Publisher
	eventBus, err = events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Warn("NATS unavailable, events disabled", "error", err)
		eventBus = events.NoopPublisher{}
	}
	defer eventBus.Close()

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	rateLimitRepo := repository.NewRateLimitRepository(redisClient)

	// Initialize mailer
	var mailService mailer.Service
	switch {
	case cfg.Email.DevMode:
		mailService = mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		mailService = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		mailService = mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}

	// Initialize services
	accountService := service.NewAccountService(accountRepo, mailService, eventBus, cfg)
	orderService := service.NewOrderService(orderRepo, accountRepo, eventBus)

	// Initialize handlers
	h := handlers.New(accountService, orderService, accountRepo, rateLimitRepo, cfg)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authLimit := h.AuthRateLimit(10, time.Minute)

	r.Route("/api/v1", func(r chi.Router) {
		// User routes
		r.Post("/register", h.Register(domain.KindUser))
		r.With(authLimit).Post("/login", h.Login(domain.KindUser))
		r.Get("/logout", h.Logout)
		r.With(authLimit).Post("/password/forgot", h.ForgotPassword(domain.KindUser))
		r.Put("/password/reset/{token}", h.ResetPassword(domain.KindUser))

		// Artist routes
		r.Post("/registerArtist", h.Register(domain.KindArtist))
		r.With(authLimit).Post("/loginArtist", h.Login(domain.KindArtist))
		r.Get("/logoutArtist", h.Logout)
		r.With(authLimit).Post("/artistPassword/forgot", h.ForgotPassword(domain.KindArtist))
		r.Put("/artistPassword/reset/{token}", h.ResetPassword(domain.KindArtist))

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Get("/me", h.GetMe)
			r.Put("/password/update", h.UpdatePassword)
			r.Put("/me/update", h.UpdateProfile)

			r.Get("/artist", h.GetMe)
			r.Put("/artistPassword/update", h.UpdatePassword)
			r.Put("/artist/update", h.UpdateProfile)

			r.Post("/order/new", h.CreateOrder)

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(h.RequireRoles(domain.RoleAdmin))
				r.Get("/accounts", h.ListAccounts)
				r.Patch("/accounts/{id}/role", h.UpdateAccountRole)
			})
		})
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting API", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
