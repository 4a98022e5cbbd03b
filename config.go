package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"storefront-backend/database"
	aws_pkg "storefront-backend/pkg/aws"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the storefront backend.
type Config struct {
	Port             string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers     []string
	OrderEventsTopic string

	OrderSNSTopicARN string

	StripeSecretKey     string
	StripeWebhookSecret string

	InfinitePayBaseURL string
	InfinitePayHandle  string
	InfinitePayAPIKey  string

	// Absolute URL the redirect provider POSTs payment events to.
	WebhookBaseURL string

	Currency       string
	MinOrderAmount int
}

// DBCredentials exposes the resolved database credentials, including
// any Secrets Manager override, as the connection input. The database
// package never reads the environment itself.
func (c *Config) DBCredentials() database.Credentials {
	return database.Credentials{
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		DBName:   c.PostgresDB,
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		SSLMode:  c.PostgresSSLMode,
		TimeZone: c.PostgresTimeZone,
	}
}

// applySecretOverrides copies non-empty DB credential values fetched
// from Secrets Manager over the env-sourced ones.
func (c *Config) applySecretOverrides(secret map[string]string) {
	if v := secret["POSTGRES_USER"]; v != "" {
		c.PostgresUser = v
	}
	if v := secret["POSTGRES_PASSWORD"]; v != "" {
		c.PostgresPassword = v
	}
	if v := secret["POSTGRES_DB"]; v != "" {
		c.PostgresDB = v
	}
	if v := secret["POSTGRES_HOST"]; v != "" {
		c.PostgresHost = v
	}
	if v := secret["POSTGRES_PORT"]; v != "" {
		c.PostgresPort = v
	}
}

// LoadConfig reads configuration from environment variables with
// optional Secrets Manager override for DB credentials.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	minAmount, _ := strconv.Atoi(getEnv("MIN_ORDER_AMOUNT", "100"))

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers:     strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "order-events"),

		OrderSNSTopicARN: os.Getenv("ORDER_SNS_TOPIC_ARN"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		InfinitePayBaseURL: getEnv("INFINITEPAY_BASE_URL", "https://api.infinitepay.io"),
		InfinitePayHandle:  os.Getenv("INFINITEPAY_HANDLE"),
		InfinitePayAPIKey:  os.Getenv("INFINITEPAY_API_KEY"),

		WebhookBaseURL: os.Getenv("WEBHOOK_BASE_URL"),

		Currency:       getEnv("CURRENCY", "brl"),
		MinOrderAmount: minAmount,
	}

	// Override DB credentials from Secrets Manager when running on AWS
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := aws_pkg.LoadAWSConfig(context.Background()); err == nil {
			sm := aws_pkg.NewSecretsClient(awsCfg)

			var secret map[string]string
			if err := sm.GetJSON(context.Background(), "storefront/DB_CREDENTIALS", &secret); err == nil {
				cfg.applySecretOverrides(secret)
			}
		}
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" || cfg.PostgresHost == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
