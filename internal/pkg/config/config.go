package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ManuelReschke/Plano3D/internal/pkg/cache"
	"github.com/ManuelReschke/Plano3D/internal/pkg/database"
	"github.com/ManuelReschke/Plano3D/internal/pkg/env"
)

// AppConfig configures the HTTP server.
type AppConfig struct {
	Name      string
	Host      string
	Port      string
	Env       string
	BodyLimit int
}

// StripeConfig holds the payment gateway credentials and redirect targets.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
	Timeout       time.Duration
	APIURL        string
}

// AuthConfig verifies bearer tokens issued by the identity service.
type AuthConfig struct {
	JWTSecret    string
	JWTAlgorithm string
}

// Config is the complete runtime configuration.
type Config struct {
	App              AppConfig
	Database         database.Config
	Cache            cache.Config
	Stripe           StripeConfig
	Auth             AuthConfig
	EntitlementTTL   time.Duration
	MetricsEnabled   bool
	CheckoutPerMin   int
	// RateLimitDB is the database on the cache server holding limiter
	// counters, shared by every instance.
	RateLimitDB      int
	WebhookBodyLimit int
}

// Load assembles the configuration from the .env file and the environment.
func Load() *Config {
	return &Config{
		App: AppConfig{
			Name:      env.GetEnv("APP_NAME", "plano3d"),
			Host:      env.GetEnv("APP_HOST", "0.0.0.0"),
			Port:      env.GetEnv("APP_PORT", "8000"),
			Env:       env.GetEnv("APP_ENV", "prod"),
			BodyLimit: env.GetEnvInt("APP_BODY_LIMIT", 1024*1024),
		},
		Database: database.Config{
			User:            env.GetEnv("DB_USER", ""),
			Password:        env.GetEnv("DB_PASSWORD", ""),
			Host:            env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:            env.GetEnv("DB_PORT", "3306"),
			Name:            env.GetEnv("DB_NAME", ""),
			MaxOpenConns:    env.GetEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    env.GetEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: env.GetEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			AutoMigrate:     env.GetEnvBool("DB_AUTO_MIGRATE", env.IsDev()),
		},
		Cache: cache.Config{
			Host:     env.GetEnv("CACHE_HOST", "localhost"),
			Port:     env.GetEnv("CACHE_PORT", "6379"),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
			DB:       env.GetEnvInt("CACHE_DB", 0),
		},
		Stripe: StripeConfig{
			SecretKey:     env.GetEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:      strings.ToLower(env.GetEnv("STRIPE_CURRENCY", "usd")),
			SuccessURL:    env.GetEnv("STRIPE_SUCCESS_URL", "http://localhost:5173/dashboard?success=true"),
			CancelURL:     env.GetEnv("STRIPE_CANCEL_URL", "http://localhost:5173/dashboard?canceled=true"),
			Timeout:       env.GetEnvDuration("STRIPE_TIMEOUT", 15*time.Second),
			APIURL:        env.GetEnv("STRIPE_API_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret:    env.GetEnv("SECRET_KEY", ""),
			JWTAlgorithm: strings.ToUpper(env.GetEnv("ALGORITHM", "HS256")),
		},
		EntitlementTTL:   env.GetEnvDuration("ENTITLEMENT_CACHE_TTL", 60*time.Second),
		MetricsEnabled:   env.GetEnvBool("METRICS_ENABLED", true),
		CheckoutPerMin:   env.GetEnvInt("CHECKOUT_RATE_LIMIT", 10),
		RateLimitDB:      env.GetEnvInt("RATE_LIMIT_DB", 1),
		WebhookBodyLimit: env.GetEnvInt("WEBHOOK_BODY_LIMIT", 64*1024),
	}
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.App.Host, c.App.Port)
}

// Validate reports every missing or unusable setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}
	if len(c.Stripe.Currency) != 3 {
		errs = append(errs, fmt.Errorf("STRIPE_CURRENCY %q is not an ISO 4217 code", c.Stripe.Currency))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}
	switch c.Auth.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("ALGORITHM %q is not supported", c.Auth.JWTAlgorithm))
	}
	if c.Database.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	return errors.Join(errs...)
}
