package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	TelegramToken string `mapstructure:"telegram_token"`
	HTTPAddr      string `mapstructure:"http_addr"`

	GeminiAPIKey   string        `mapstructure:"gemini_api_key"`
	GeminiModel    string        `mapstructure:"gemini_model"`
	GeminiEndpoint string        `mapstructure:"gemini_endpoint"`
	GeminiTimeout  time.Duration `mapstructure:"gemini_timeout"`

	ExportDir          string  `mapstructure:"export_dir"`
	DefaultBrushRadius float64 `mapstructure:"default_brush_radius"`
	MaxImageBytes      int64   `mapstructure:"max_image_bytes"`
	MaxImagePixels     int     `mapstructure:"max_image_pixels"`
}

var defaults = map[string]any{
	"telegram_token":       "",
	"http_addr":            "",
	"gemini_api_key":       "",
	"gemini_model":         "gemini-2.5-flash",
	"gemini_endpoint":      "https://generativelanguage.googleapis.com/",
	"gemini_timeout":       "60s",
	"export_dir":           "",
	"default_brush_radius": 5,
	"max_image_bytes":      20 << 20,
	"max_image_pixels":     100_000_000,
}

// Load читает .env, переменные окружения и необязательный YAML-файл из CONFIG_FILE.
// Переменные окружения приоритетнее файла.
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		)
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.HTTPAddr = strings.TrimSpace(cfg.HTTPAddr)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AIEnabled сообщает, задан ли ключ детектора
func (c *Config) AIEnabled() bool {
	return strings.TrimSpace(c.GeminiAPIKey) != ""
}

func (c *Config) validate() error {
	if c.TelegramToken == "" && c.HTTPAddr == "" {
		return errors.New("TELEGRAM_TOKEN or HTTP_ADDR is required")
	}
	if c.DefaultBrushRadius < 1 || c.DefaultBrushRadius > 20 {
		return fmt.Errorf("DEFAULT_BRUSH_RADIUS must be within [1, 20], got %v", c.DefaultBrushRadius)
	}
	if c.GeminiTimeout <= 0 {
		return fmt.Errorf("GEMINI_TIMEOUT must be positive, got %s", c.GeminiTimeout)
	}
	if c.MaxImageBytes < 0 || c.MaxImagePixels < 0 {
		return errors.New("MAX_IMAGE_BYTES and MAX_IMAGE_PIXELS must not be negative")
	}
	return nil
}
