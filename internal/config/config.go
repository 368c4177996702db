package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"product-panel/internal/export"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Logger  LoggerConfig
	Export  ExportConfig
	Chrome  ChromeConfig
	Images  ImageConfig
	S3      S3Config
	Catalog CatalogConfig
	Runtime RuntimeConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string
	Port            int
	CORSOrigin      string
	ShutdownTimeout time.Duration
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
	// File, when set, receives a rotated copy of the log.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ExportConfig holds PDF export configuration.
type ExportConfig struct {
	Renderer        string // "native" or "chrome"
	Paper           string
	Orientation     string
	MarginInches    float64
	ImageQuality    float64
	RenderScale     float64
	CatalogFilename string
}

// ChromeConfig holds headless Chrome configuration for the chrome renderer.
type ChromeConfig struct {
	URL       string
	NoSandbox bool
	Timeout   time.Duration
}

// ImageConfig holds configuration for images loaded by reference.
type ImageConfig struct {
	Dir string
}

// S3Config holds AWS S3 configuration for product images.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "products/")
}

// CatalogConfig controls the initial catalog contents.
type CatalogConfig struct {
	SeedFile string
	// SeedSample adds the sample product when no seed file is given.
	SeedSample bool
}

// RuntimeConfig sizes the event loop and its worker pool.
type RuntimeConfig struct {
	WorkerPoolSize       int
	EventQueueSize       int
	NotificationCapacity int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			CORSOrigin:      getEnv("CORS_ALLOWED_ORIGIN", "*"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 64),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 7),
		},
		Export: ExportConfig{
			Renderer:        getEnv("EXPORT_RENDERER", "native"),
			Paper:           getEnv("EXPORT_PAPER", string(export.PaperLetter)),
			Orientation:     getEnv("EXPORT_ORIENTATION", string(export.OrientationPortrait)),
			MarginInches:    getEnvAsFloat("EXPORT_MARGIN_INCHES", 1),
			ImageQuality:    getEnvAsFloat("EXPORT_IMAGE_QUALITY", 0.98),
			RenderScale:     getEnvAsFloat("EXPORT_RENDER_SCALE", 2),
			CatalogFilename: getEnv("EXPORT_CATALOG_FILENAME", export.DefaultCatalogFilename),
		},
		Chrome: ChromeConfig{
			URL:       getEnv("CHROME_URL", ""),
			NoSandbox: getEnvAsBool("CHROME_NO_SANDBOX", false),
			Timeout:   getEnvAsDuration("EXPORT_TIMEOUT", 30*time.Second),
		},
		Images: ImageConfig{
			Dir: getEnv("IMAGE_DIR", ""),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "us-east-1"),
			Prefix:  getEnv("S3_PREFIX", "products/"),
		},
		Catalog: CatalogConfig{
			SeedFile:   getEnv("CATALOG_SEED_FILE", ""),
			SeedSample: getEnvAsBool("CATALOG_SEED_SAMPLE", true),
		},
		Runtime: RuntimeConfig{
			WorkerPoolSize:       getEnvAsInt("WORKER_POOL_SIZE", 8),
			EventQueueSize:       getEnvAsInt("EVENT_QUEUE_SIZE", 256),
			NotificationCapacity: getEnvAsInt("NOTIFICATION_CAPACITY", 50),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Export.Renderer != "native" && c.Export.Renderer != "chrome" {
		return fmt.Errorf("invalid export renderer: %s (must be native or chrome)", c.Export.Renderer)
	}

	if err := c.Export.PDF().Validate(); err != nil {
		return fmt.Errorf("invalid export settings: %w", err)
	}

	if c.Chrome.Timeout <= 0 {
		return fmt.Errorf("export timeout must be positive")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Runtime.WorkerPoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}

	if c.Runtime.EventQueueSize < 1 {
		return fmt.Errorf("event queue size must be at least 1")
	}

	if c.Runtime.NotificationCapacity < 1 {
		return fmt.Errorf("notification capacity must be at least 1")
	}

	return nil
}

// PDF returns the export settings used for a full catalog export.
func (c ExportConfig) PDF() export.Config {
	return export.Config{
		MarginInches: c.MarginInches,
		Filename:     c.CatalogFilename,
		ImageQuality: c.ImageQuality,
		RenderScale:  c.RenderScale,
		PaperFormat:  export.PaperFormat(c.Paper),
		Orientation:  export.Orientation(c.Orientation),
	}
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration ("30s") or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
