// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Configuration errors.
var (
	ErrInvalidLimit     = errors.New("DEFAULT_LIMIT must be positive and not exceed MAX_LIMIT")
	ErrInvalidThreshold = errors.New("CATEGORY_THRESHOLD cannot be negative")
	ErrNoExams          = errors.New("exam catalog is empty")
)

// Defaults for the prediction engine.
const (
	DefaultCategoryThreshold = 10000
	DefaultDataDir           = "data"
	DefaultPort              = "8080"
)

// Config holds all configuration values for the application.
type Config struct {
	// Data
	DataDir         string
	ExamCatalogPath string
	Exams           *Catalog

	// Engine
	DefaultLimit      int
	MaxLimit          int
	CategoryThreshold int
	AutoFullLoad      bool

	// AWS
	AWSRegion string
	S3Bucket  string

	// Database (prediction log)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBEnabled  bool

	// SES
	SESSenderEmail string
	DashboardURL   string

	// Application
	Stage    string
	LogLevel string
	Port     string
}

// Load loads configuration from environment variables and the exam catalog.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	cfg := &Config{
		// Data
		DataDir:         getEnv("DATA_DIR", ""),
		ExamCatalogPath: getEnv("EXAM_CATALOG", ""),

		// Engine
		DefaultLimit:      getEnvInt("DEFAULT_LIMIT", 300),
		MaxLimit:          getEnvInt("MAX_LIMIT", 1000),
		CategoryThreshold: getEnvInt("CATEGORY_THRESHOLD", DefaultCategoryThreshold),
		AutoFullLoad:      getEnvBool("AUTO_FULL_LOAD", true),

		// AWS
		AWSRegion: getEnv("AWS_REGION", "ap-south-1"),
		S3Bucket:  getEnv("S3_BUCKET", ""),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBName:     getEnv("DB_NAME", "college_predictor"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBEnabled:  getEnvBool("PREDICTION_LOG_ENABLED", false),

		// SES
		SESSenderEmail: getEnv("SES_SENDER_EMAIL", ""),
		DashboardURL:   getEnv("DASHBOARD_URL", ""),

		// Application
		Stage:    getEnv("STAGE", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnv("PORT", DefaultPort),
	}

	// Without a local data directory, cutoff files are read from the bucket.
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
		if cfg.S3Bucket != "" {
			cfg.DataDir = "s3://" + cfg.S3Bucket
		}
	}

	var (
		catalog *Catalog
		err     error
	)
	if cfg.ExamCatalogPath != "" {
		catalog, err = LoadCatalog(cfg.ExamCatalogPath, cfg.DataDir)
		if err != nil {
			return nil, err
		}
	} else {
		catalog = DefaultCatalog(cfg.DataDir)
	}
	cfg.Exams = catalog

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks engine settings for consistency.
func (c *Config) Validate() error {
	if c.DefaultLimit <= 0 || c.MaxLimit <= 0 || c.DefaultLimit > c.MaxLimit {
		return fmt.Errorf("%w: default=%d max=%d", ErrInvalidLimit, c.DefaultLimit, c.MaxLimit)
	}
	if c.CategoryThreshold < 0 {
		return ErrInvalidThreshold
	}
	if c.Exams == nil || c.Exams.Len() == 0 {
		return ErrNoExams
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	sslMode := "require"
	if c.DBHost == "localhost" || c.DBHost == "127.0.0.1" {
		sslMode = "disable"
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + strconv.Itoa(c.DBPort) + "/" + c.DBName + "?sslmode=" + sslMode
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as int or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as bool or returns a default value.
func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return defaultValue
}
