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

// DefaultHeaderBlocklist lists header prefixes of spreadsheet columns that carry
// transcript metadata instead of grades.
const DefaultHeaderBlocklist = "no_,adı,soyadı,snf_,snf,girme durum,harf notu,harf"

// DefaultHeaderExactSkip lists header names skipped on exact (case-insensitive) match.
const DefaultHeaderExactSkip = "student_id"

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DBDriver    string `mapstructure:"DB_DRIVER" validate:"required,oneof=postgres sqlite"`
	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`
	GoMaxProcs       int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`

	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	CORSOriginsRaw string   `mapstructure:"CORS_ORIGINS"`
	CORSOrigins    []string `mapstructure:"-"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST" validate:"gte=1"`
	MaxUploadBytes int64    `mapstructure:"MAX_UPLOAD_BYTES" validate:"gte=1024"`

	HeaderBlocklistRaw string        `mapstructure:"HEADER_BLOCKLIST"`
	HeaderExactSkipRaw string        `mapstructure:"HEADER_EXACT_SKIP"`
	HeaderBlocklist    []string      `mapstructure:"-"`
	HeaderExactSkip    []string      `mapstructure:"-"`
	CourseCacheSize    int           `mapstructure:"COURSE_CACHE_SIZE" validate:"gte=1"`
	ExtractorURL       string        `mapstructure:"EXTRACTOR_URL" validate:"omitempty,url"`
	ExtractorTimeout   time.Duration `mapstructure:"EXTRACTOR_TIMEOUT"`

	Blob BlobConfig `mapstructure:",squash"`
}

// BlobConfig describes the S3-compatible store used for staged syllabus files.
type BlobConfig struct {
	Endpoint  string `mapstructure:"BLOB_ENDPOINT"`
	Region    string `mapstructure:"BLOB_REGION"`
	AccessKey string `mapstructure:"BLOB_ACCESS_KEY"`
	SecretKey string `mapstructure:"BLOB_SECRET_KEY"`
	Bucket    string `mapstructure:"BLOB_BUCKET"`
	UseSSL    bool   `mapstructure:"BLOB_USE_SSL"`
}

// Enabled reports whether enough settings are present to open the store.
func (b BlobConfig) Enabled() bool {
	return b.Endpoint != "" && b.AccessKey != "" && b.SecretKey != ""
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
	"DB_DRIVER",
	"DATABASE_URL",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"ASYNQ_CONCURRENCY",
	"GOMAXPROCS",
	"JWT_SECRET",
	"CORS_ORIGINS",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"MAX_UPLOAD_BYTES",
	"HEADER_BLOCKLIST",
	"HEADER_EXACT_SKIP",
	"COURSE_CACHE_SIZE",
	"EXTRACTOR_URL",
	"EXTRACTOR_TIMEOUT",
	"BLOB_ENDPOINT",
	"BLOB_REGION",
	"BLOB_ACCESS_KEY",
	"BLOB_SECRET_KEY",
	"BLOB_BUCKET",
	"BLOB_USE_SSL",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("ASYNQ_CONCURRENCY", 4)
	v.SetDefault("GOMAXPROCS", 0)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("HEADER_BLOCKLIST", DefaultHeaderBlocklist)
	v.SetDefault("HEADER_EXACT_SKIP", DefaultHeaderExactSkip)
	v.SetDefault("COURSE_CACHE_SIZE", 256)
	v.SetDefault("EXTRACTOR_TIMEOUT", "60s")
	v.SetDefault("BLOB_REGION", "us-east-1")
	v.SetDefault("BLOB_BUCKET", "giraph-syllabi")

	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	for key, dst := range map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT":  &c.ShutdownTimeout,
		"EXTRACTOR_TIMEOUT": &c.ExtractorTimeout,
	} {
		if s := v.GetString(key); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	c.HeaderBlocklist = splitList(c.HeaderBlocklistRaw)
	c.HeaderExactSkip = splitList(c.HeaderExactSkipRaw)
	c.CORSOrigins = splitList(c.CORSOriginsRaw)

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// splitList splits a comma separated setting, keeping inner spaces ("girme durum").
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
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
