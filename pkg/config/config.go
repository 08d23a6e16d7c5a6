package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER" validate:"required,oneof=postgres sqlite"`
	DatabaseURL    string `mapstructure:"DATABASE_URL" validate:"required_if=DatabaseDriver postgres,omitempty,url|uri"`
	SQLitePath     string `mapstructure:"SQLITE_PATH" validate:"required_if=DatabaseDriver sqlite"`

	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	JWTTTL         time.Duration `mapstructure:"JWT_TTL" validate:"required"`
	APIKeyHeader   string        `mapstructure:"API_KEY_HEADER" validate:"required"`
	CallbackSecret string        `mapstructure:"CALLBACK_SECRET"`

	CodeAnalysisURL    string        `mapstructure:"CODE_ANALYSIS_URL" validate:"required,url"`
	InfraGenerationURL string        `mapstructure:"INFRA_GENERATION_URL" validate:"required,url"`
	DeploymentURL      string        `mapstructure:"DEPLOYMENT_URL" validate:"required,url"`
	DownstreamTimeout  time.Duration `mapstructure:"DOWNSTREAM_TIMEOUT" validate:"required"`

	StorageType       string `mapstructure:"STORAGE_TYPE" validate:"required,oneof=memory s3 none"`
	S3Bucket          string `mapstructure:"S3_BUCKET" validate:"required_if=StorageType s3"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle    bool   `mapstructure:"S3_USE_PATH_STYLE"`

	MaxUploadFiles      int   `mapstructure:"MAX_UPLOAD_FILES" validate:"gte=1,lte=100"`
	MaxUploadFileBytes  int64 `mapstructure:"MAX_UPLOAD_FILE_BYTES" validate:"gte=1"`
	MaxUploadTotalBytes int64 `mapstructure:"MAX_UPLOAD_TOTAL_BYTES" validate:"gte=1"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AsynqConcurrency  int           `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`
	ReconcileInterval time.Duration `mapstructure:"RECONCILE_INTERVAL" validate:"required"`
	ReconcileMinAge   time.Duration `mapstructure:"RECONCILE_MIN_AGE"`

	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var keys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"DATABASE_DRIVER",
	"DATABASE_URL",
	"SQLITE_PATH",
	"JWT_SECRET",
	"JWT_TTL",
	"API_KEY_HEADER",
	"CALLBACK_SECRET",
	"CODE_ANALYSIS_URL",
	"INFRA_GENERATION_URL",
	"DEPLOYMENT_URL",
	"DOWNSTREAM_TIMEOUT",
	"STORAGE_TYPE",
	"S3_BUCKET",
	"S3_REGION",
	"S3_ENDPOINT",
	"S3_ACCESS_KEY_ID",
	"S3_SECRET_ACCESS_KEY",
	"S3_USE_PATH_STYLE",
	"MAX_UPLOAD_FILES",
	"MAX_UPLOAD_FILE_BYTES",
	"MAX_UPLOAD_TOTAL_BYTES",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"ASYNQ_CONCURRENCY",
	"RECONCILE_INTERVAL",
	"RECONCILE_MIN_AGE",
	"CORS_ALLOWED_ORIGINS",
	"GOMAXPROCS",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:3000")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("SQLITE_PATH", "autostack.db")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("API_KEY_HEADER", "X-API-Key")
	v.SetDefault("CODE_ANALYSIS_URL", "http://localhost:8000")
	v.SetDefault("INFRA_GENERATION_URL", "http://localhost:8001")
	v.SetDefault("DEPLOYMENT_URL", "http://localhost:8002")
	v.SetDefault("DOWNSTREAM_TIMEOUT", "30s")
	v.SetDefault("STORAGE_TYPE", "memory")
	v.SetDefault("S3_REGION", "us-west-2")
	v.SetDefault("MAX_UPLOAD_FILES", 10)
	v.SetDefault("MAX_UPLOAD_FILE_BYTES", 10<<20)
	v.SetDefault("MAX_UPLOAD_TOTAL_BYTES", 100<<20)
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("RECONCILE_INTERVAL", "30s")
	v.SetDefault("RECONCILE_MIN_AGE", "1m")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("GOMAXPROCS", 0)

	// Optional config file
	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Comma-separated env values arrive as a single string.
	c.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.JWTSecret == "" && c.AppEnv == "production" {
		return nil, fmt.Errorf("invalid configuration: JWT_SECRET is required in production")
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
