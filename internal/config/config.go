package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	DownloadTimeout         time.Duration
	DownloadIdleTimeout     time.Duration
	ShutdownTimeout         time.Duration
	BaseURL                 string

	UploadDir        string
	ConvertedDir     string
	CleanupInterval  time.Duration
	FileTTL          time.Duration
	SweepOrphans     bool
	AllowedMIMETypes []string
	MaxUploadSize    int64

	FetchTimeout  time.Duration
	FetchMaxBytes int64

	ConverterBin   string
	ConvertTimeout time.Duration

	JWTSecret  string
	AuthHeader string

	CORSOrigins         []string
	RateLimitRPM        int
	ConvertRateLimitRPM int
	OpenAPISpecPath     string

	LogLevel        string
	LogFile         string
	LogMaxSizeMB    int
	LogMaxBackups   int
	LogMaxAgeDays   int
	LogFileCompress bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := getEnv("PORT", "4000")
	maxUpload := getInt64("MAX_UPLOAD_SIZE", 1<<30)

	cfg := &Config{
		ServerPort:              port,
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 15*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 0),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 5*time.Minute),
		DownloadTimeout:         getDuration("DOWNLOAD_TIMEOUT", 30*time.Minute),
		DownloadIdleTimeout:     getDuration("DOWNLOAD_IDLE_TIMEOUT", 2*time.Minute),
		ShutdownTimeout:         getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		BaseURL:                 strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+port), "/"),

		UploadDir:        getEnv("UPLOAD_DIR", "uploads"),
		ConvertedDir:     getEnv("CONVERTED_DIR", "converted"),
		CleanupInterval:  getDuration("CLEANUP_INTERVAL", 30*time.Minute),
		FileTTL:          getDuration("FILE_TTL", 30*time.Minute),
		SweepOrphans:     getBool("SWEEP_ORPHANS", true),
		AllowedMIMETypes: splitCSV(strings.TrimSpace(os.Getenv("ALLOWED_MIME_TYPES"))),
		MaxUploadSize:    maxUpload,

		FetchTimeout:  getDuration("FETCH_TIMEOUT", 60*time.Second),
		FetchMaxBytes: getInt64("FETCH_MAX_BYTES", maxUpload),

		ConverterBin:   getEnv("CONVERTER_BIN", "inkscape"),
		ConvertTimeout: getDuration("CONVERT_TIMEOUT", 2*time.Minute),

		JWTSecret:  strings.TrimSpace(os.Getenv("JWT_SECRET")),
		AuthHeader: getEnv("AUTH_HEADER", "api-key"),

		CORSOrigins:         splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:        getInt("RATE_LIMIT_RPM", 100),
		ConvertRateLimitRPM: getInt("CONVERT_RATE_LIMIT_RPM", 20),
		OpenAPISpecPath:     strings.TrimSpace(os.Getenv("OPENAPI_SPEC_PATH")),

		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         strings.TrimSpace(os.Getenv("LOG_FILE")),
		LogMaxSizeMB:    getInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups:   getInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays:   getInt("LOG_MAX_AGE_DAYS", 28),
		LogFileCompress: getBool("LOG_COMPRESS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if port, err := strconv.Atoi(c.ServerPort); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.ServerPort)
	}

	if parsed, err := url.Parse(c.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("BASE_URL must be an absolute URL, got %q", c.BaseURL)
	}

	if strings.TrimSpace(c.UploadDir) == "" {
		return fmt.Errorf("UPLOAD_DIR cannot be empty")
	}
	if strings.TrimSpace(c.ConvertedDir) == "" {
		return fmt.Errorf("CONVERTED_DIR cannot be empty")
	}
	if filepath.Clean(c.UploadDir) == filepath.Clean(c.ConvertedDir) {
		return fmt.Errorf("UPLOAD_DIR and CONVERTED_DIR must differ")
	}

	if c.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive")
	}
	if c.FileTTL <= 0 {
		return fmt.Errorf("FILE_TTL must be positive")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	if c.FetchMaxBytes <= 0 {
		return fmt.Errorf("FETCH_MAX_BYTES must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}

	if strings.TrimSpace(c.ConverterBin) == "" {
		return fmt.Errorf("CONVERTER_BIN cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.ConvertTimeout > 0 && c.RequestTimeout <= c.ConvertTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must be longer than CONVERT_TIMEOUT (%s)", c.RequestTimeout, c.ConvertTimeout)
	}

	if strings.TrimSpace(c.AuthHeader) == "" {
		return fmt.Errorf("AUTH_HEADER cannot be empty")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.LogLevel)
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

// getDuration accepts Go durations ("90s", "30m") and bare integers, which
// are read as minutes.
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	if minutes, err := strconv.Atoi(raw); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
