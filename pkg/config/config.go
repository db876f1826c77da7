package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultLogoURL is the school logo composited into every card header.
const DefaultLogoURL = "https://hebbkx1anhila5yf.public.blob.vercel-storage.com/LOGOS--azul-com-branco-S5FqX3tiL4YepaxhdvxI9HKZtBCbST.png"

// DefaultSchoolName pre-fills the school field of manually created students.
const DefaultSchoolName = "Escola Adventista de Santa Cecília"

type Config struct {
	Env       string
	Host      string
	Port      int
	APIPrefix string

	CORS    CORSConfig
	Log     LogConfig
	Card    CardConfig
	Import  ImportConfig
	Batches BatchConfig
	Metrics MetricsConfig
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CardConfig tunes card rasterization and its remote assets.
type CardConfig struct {
	LogoURL           string
	LogoTimeout       time.Duration
	LogoCacheSize     int
	LogoCacheTTL      time.Duration
	DefaultSchoolName string
	MaxPhotoSizeBytes int64
}

// ImportConfig bounds spreadsheet uploads.
type ImportConfig struct {
	MaxFileSizeBytes int64
}

// BatchConfig controls asynchronous archive generation and download links.
type BatchConfig struct {
	Enabled         bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	WorkerRetries   int
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Host = v.GetString("HOST")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Card = CardConfig{
		LogoURL:           strings.TrimSpace(v.GetString("CARD_LOGO_URL")),
		LogoTimeout:       parseDuration(v.GetString("CARD_LOGO_TIMEOUT"), 5*time.Second),
		LogoCacheSize:     positiveInt(v.GetInt("CARD_LOGO_CACHE_SIZE"), 8),
		LogoCacheTTL:      parseDuration(v.GetString("CARD_LOGO_CACHE_TTL"), time.Hour),
		DefaultSchoolName: v.GetString("CARD_DEFAULT_SCHOOL_NAME"),
		MaxPhotoSizeBytes: positiveInt64(v.GetInt64("CARD_MAX_PHOTO_SIZE"), 5*1024*1024),
	}

	cfg.Import = ImportConfig{
		MaxFileSizeBytes: positiveInt64(v.GetInt64("IMPORT_MAX_FILE_SIZE"), 10*1024*1024),
	}

	cfg.Batches = BatchConfig{
		Enabled:         v.GetBool("ENABLE_BATCHES"),
		StorageDir:      v.GetString("BATCH_STORAGE_DIR"),
		SignedURLSecret: v.GetString("BATCH_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("BATCH_SIGNED_URL_TTL"), 30*time.Minute),
		ResultTTL:       parseDuration(v.GetString("BATCH_RESULT_TTL"), time.Hour),
		CleanupInterval: parseDuration(v.GetString("BATCH_CLEANUP_INTERVAL"), 10*time.Minute),
		WorkerRetries:   v.GetInt("BATCH_WORKER_RETRIES"),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("HOST", "127.0.0.1")
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CARD_LOGO_URL", DefaultLogoURL)
	v.SetDefault("CARD_LOGO_TIMEOUT", "5s")
	v.SetDefault("CARD_LOGO_CACHE_SIZE", 8)
	v.SetDefault("CARD_LOGO_CACHE_TTL", "1h")
	v.SetDefault("CARD_DEFAULT_SCHOOL_NAME", DefaultSchoolName)
	v.SetDefault("CARD_MAX_PHOTO_SIZE", 5*1024*1024)

	v.SetDefault("IMPORT_MAX_FILE_SIZE", 10*1024*1024)

	v.SetDefault("ENABLE_BATCHES", true)
	v.SetDefault("BATCH_STORAGE_DIR", "./carteirinhas")
	v.SetDefault("BATCH_SIGNED_URL_SECRET", "dev_batches_secret")
	v.SetDefault("BATCH_SIGNED_URL_TTL", "30m")
	v.SetDefault("BATCH_RESULT_TTL", "1h")
	v.SetDefault("BATCH_CLEANUP_INTERVAL", "10m")
	v.SetDefault("BATCH_WORKER_RETRIES", 1)

	v.SetDefault("ENABLE_METRICS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func positiveInt64(value, fallback int64) int64 {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
