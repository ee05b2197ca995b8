package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/Plano3D/app/controllers"
	"github.com/ManuelReschke/Plano3D/app/repository"
	"github.com/ManuelReschke/Plano3D/internal/pkg/billing"
	"github.com/ManuelReschke/Plano3D/internal/pkg/cache"
	"github.com/ManuelReschke/Plano3D/internal/pkg/config"
	"github.com/ManuelReschke/Plano3D/internal/pkg/database"
	"github.com/ManuelReschke/Plano3D/internal/pkg/entitlements"
	"github.com/ManuelReschke/Plano3D/internal/pkg/env"
	"github.com/ManuelReschke/Plano3D/internal/pkg/middleware"
	"github.com/ManuelReschke/Plano3D/internal/pkg/router"
)

func main() {
	if err := env.SetupEnvFile(); err != nil {
		fiberlog.Warnf("No .env file loaded, using process environment: %v", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fiberlog.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		fiberlog.Fatalf("Failed to connect to database: %v", err)
	}
	c := cache.New(context.Background(), cfg.Cache)

	var limiterStorage fiber.Storage
	if s, err := cache.NewStorage(cfg.Cache, cfg.RateLimitDB); err != nil {
		fiberlog.Warnf("Checkout limiter falls back to per-process memory: %v", err)
	} else {
		limiterStorage = s
		defer func() {
			if err := s.Close(); err != nil {
				fiberlog.Warnf("Closing limiter storage: %v", err)
			}
		}()
	}

	app := NewApplication(cfg, db, c, limiterStorage)

	go func() {
		if err := app.Listen(cfg.Addr()); err != nil {
			fiberlog.Errorf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fiberlog.Info("Shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		fiberlog.Errorf("Shutdown: %v", err)
	}
	if err := c.Close(); err != nil {
		fiberlog.Warnf("Closing cache: %v", err)
	}
	if err := database.Close(db); err != nil {
		fiberlog.Warnf("Closing database: %v", err)
	}
}

// NewApplication builds the fiber app with every dependency injected.
func NewApplication(cfg *config.Config, db *gorm.DB, c *cache.Cache, limiterStorage fiber.Storage) *fiber.App {
	repos := repository.NewFactory(db)
	billingRepo := billing.NewRepository(db)

	checker := entitlements.NewChecker(billingRepo, c, cfg.EntitlementTTL)

	gateway := billing.NewStripeGateway(billing.StripeConfig{
		SecretKey:  cfg.Stripe.SecretKey,
		SuccessURL: cfg.Stripe.SuccessURL,
		CancelURL:  cfg.Stripe.CancelURL,
		Timeout:    cfg.Stripe.Timeout,
		APIURL:     cfg.Stripe.APIURL,
	})
	service := billing.NewService(billingRepo, gateway, billing.Config{
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Currency:      cfg.Stripe.Currency,
	}, billing.WithInvalidator(checker))

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimit,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return ctx.Status(code).JSON(fiber.Map{"error": "http_error", "message": err.Error()})
		},
	})

	// recovery, request ids and logging
	app.Use(recover.New(), requestid.New(), logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	health := controllers.NewHealthController(map[string]controllers.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"cache": c.Ping,
	})

	auth := middleware.JWTAuth(middleware.JWTConfig{
		Secret:    cfg.Auth.JWTSecret,
		Algorithm: cfg.Auth.JWTAlgorithm,
		Users:     repos.GetUserRepository(),
	})

	router.InstallRouter(app,
		router.NewOpsRouter(health, cfg.MetricsEnabled),
		router.NewApiRouter(
			auth,
			controllers.NewBillingController(service, cfg.WebhookBodyLimit),
			controllers.NewMembershipController(repos.GetMembershipRepository()),
			controllers.NewEntitlementController(checker),
			cfg.CheckoutPerMin,
			limiterStorage,
		),
	)

	return app
}
