package database

import (
	"fmt"
	"time"

	"storefront-backend/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Credentials holds the resolved Postgres connection parameters. The
// caller (config loading) owns where they come from — env, .env file
// or Secrets Manager — so the connection always uses the resolved
// values rather than re-reading the environment.
type Credentials struct {
	User     string
	Password string
	DBName   string
	Host     string
	Port     string
	SSLMode  string
	TimeZone string
}

// DSN renders the connection string, applying defaults for the
// optional fields.
func (c Credentials) DSN() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == "" {
		port = "5432"
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	timeZone := c.TimeZone
	if timeZone == "" {
		timeZone = "UTC"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		host, c.User, c.Password, c.DBName, port, sslMode, timeZone,
	)
}

func (c Credentials) validate() error {
	if c.User == "" {
		return fmt.Errorf("postgres user not set")
	}
	if c.Password == "" {
		return fmt.Errorf("postgres password not set")
	}
	if c.DBName == "" {
		return fmt.Errorf("postgres database name not set")
	}
	return nil
}

// ConnectPostgres opens the Postgres connection with retry and
// migrates the given models.
func ConnectPostgres(logger *zap.Logger, creds Credentials, autoMigrateModels ...interface{}) (*gorm.DB, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}

	dsn := creds.DSN()

	var db *gorm.DB
	var err error

	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			sqlDB, poolErr := db.DB()
			if poolErr == nil {
				sqlDB.SetMaxOpenConns(25)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
			}

			logger.Info("Connected to PostgreSQL successfully")

			if len(autoMigrateModels) > 0 {
				if err := db.AutoMigrate(autoMigrateModels...); err != nil {
					return nil, fmt.Errorf("AutoMigrate failed: %w", err)
				}
			}
			return db, nil
		}

		logger.Warn("DB connection failed, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		time.Sleep(time.Duration(i+1) * 2 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
}

// Connect initializes the package-level DB with every storefront model.
func Connect(logger *zap.Logger, creds Credentials) error {
	var err error
	DB, err = ConnectPostgres(logger, creds,
		&models.Order{},
		&models.OrderItem{},
		&models.Product{},
		&models.Affiliate{},
		&models.Commission{},
		&models.Coupon{},
	)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL", zap.Error(err))
		return err
	}
	return nil
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
