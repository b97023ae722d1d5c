package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	for _, key := range []string{"PORT", "BASE_URL", "UPLOAD_DIR", "CONVERTED_DIR", "CLEANUP_INTERVAL", "FILE_TTL", "MAX_UPLOAD_SIZE", "FETCH_MAX_BYTES", "CONVERTER_BIN", "AUTH_HEADER", "ALLOWED_MIME_TYPES", "SWEEP_ORPHANS", "LOG_LEVEL", "REQUEST_TIMEOUT", "CONVERT_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.ServerPort)
	assert.Equal(t, "http://localhost:4000", cfg.BaseURL)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, "converted", cfg.ConvertedDir)
	assert.Equal(t, 30*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, 30*time.Minute, cfg.FileTTL)
	assert.Equal(t, int64(1<<30), cfg.MaxUploadSize)
	assert.Equal(t, cfg.MaxUploadSize, cfg.FetchMaxBytes)
	assert.Equal(t, "inkscape", cfg.ConverterBin)
	assert.Equal(t, "api-key", cfg.AuthHeader)
	assert.True(t, cfg.SweepOrphans)
	assert.Nil(t, cfg.AllowedMIMETypes)
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "8081")
	t.Setenv("BASE_URL", "https://svg.example.com/")
	t.Setenv("CLEANUP_INTERVAL", "5")
	t.Setenv("FILE_TTL", "90s")
	t.Setenv("ALLOWED_MIME_TYPES", "image/png, image/jpeg ,")
	t.Setenv("SWEEP_ORPHANS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.ServerPort)
	assert.Equal(t, "https://svg.example.com", cfg.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, 90*time.Second, cfg.FileTTL)
	assert.Equal(t, []string{"image/png", "image/jpeg"}, cfg.AllowedMIMETypes)
	assert.False(t, cfg.SweepOrphans)
}

func TestLoadRequiresSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.ErrorContains(t, err, "JWT_SECRET")
}

func validConfig() *Config {
	return &Config{
		ServerPort:      "4000",
		BaseURL:         "http://localhost:4000",
		UploadDir:       "uploads",
		ConvertedDir:    "converted",
		CleanupInterval: 30 * time.Minute,
		FileTTL:         30 * time.Minute,
		MaxUploadSize:   1 << 20,
		FetchMaxBytes:   1 << 20,
		FetchTimeout:    time.Minute,
		ConverterBin:    "inkscape",
		ConvertTimeout:  2 * time.Minute,
		RequestTimeout:  5 * time.Minute,
		JWTSecret:       "secret",
		AuthHeader:      "api-key",
		LogLevel:        "info",
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]func(*Config){
		"bad port":            func(c *Config) { c.ServerPort = "http" },
		"relative base url":   func(c *Config) { c.BaseURL = "/files" },
		"same directories":    func(c *Config) { c.ConvertedDir = "./uploads" },
		"zero interval":       func(c *Config) { c.CleanupInterval = 0 },
		"zero ttl":            func(c *Config) { c.FileTTL = 0 },
		"request too short":   func(c *Config) { c.RequestTimeout = time.Minute },
		"empty auth header":   func(c *Config) { c.AuthHeader = " " },
		"unknown log level":   func(c *Config) { c.LogLevel = "verbose" },
		"no converter binary": func(c *Config) { c.ConverterBin = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// chdir changes the working directory for the duration of the test,
// restoring the previous one on cleanup (equivalent to testing.T.Chdir).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
