// Package config resolves all runtime settings once, at startup, from the
// environment. Nothing else in the tree reads os.Getenv.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DefaultAddr        = ":8000"
	DefaultModel       = "gemini-2.5-flash"
	DefaultMaxEdge     = 1280
	DefaultJPEGQuality = 80
	DefaultTimeout     = 120 * time.Second
	DefaultBaseURL     = "http://localhost:8000"
	DefaultBotAddr     = ":8080"
)

type Config struct {
	Addr string

	// GeminiAPIKey may be empty: the proxy still starts and reports the
	// misconfiguration per request, so deploys fail loudly in responses
	// rather than silently in crash loops.
	GeminiAPIKey string
	GeminiModel  string

	MaxEdge     int
	JPEGQuality int

	// BaseURL is where client surfaces (CLI, bot) find the proxy.
	BaseURL string
	Timeout time.Duration

	// TelegramBotToken and the webhook settings are only read by the bot
	// binary; the proxy ignores them.
	TelegramBotToken string
	WebhookURL       string
	BotAddr          string

	LogLevel string
}

func Load() *Config {
	// Local runs keep settings in .env; deployed runs set real env vars.
	_ = godotenv.Load()

	return &Config{
		Addr: getEnv("CARELENS_ADDR", DefaultAddr),

		GeminiAPIKey: apiKey(),
		GeminiModel:  getEnv("CARELENS_MODEL", DefaultModel),

		MaxEdge:     getEnvInt("CARELENS_MAX_EDGE", DefaultMaxEdge),
		JPEGQuality: getEnvInt("CARELENS_JPEG_QUALITY", DefaultJPEGQuality),

		BaseURL: getEnv("CARELENS_BASE_URL", DefaultBaseURL),
		Timeout: getEnvSeconds("CARELENS_TIMEOUT", DefaultTimeout),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("CARELENS_WEBHOOK_URL", ""),
		BotAddr:          getEnv("CARELENS_BOT_ADDR", DefaultBotAddr),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// apiKey resolves the Gemini credential. GEMINI_API_KEY is canonical;
// API_KEY is kept as an alias for deployments created before the rename.
func apiKey() string {
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("API_KEY")); v != "" {
		logrus.Warn("API_KEY is deprecated, set GEMINI_API_KEY instead")
		return v
	}
	return ""
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logrus.WithField("key", k).WithField("value", v).Warn("ignoring bad numeric env value")
		return def
	}
	return n
}

func getEnvSeconds(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logrus.WithField("key", k).WithField("value", v).Warn("ignoring bad timeout env value")
		return def
	}
	return time.Duration(n) * time.Second
}

// ConfigureLogging applies LOG_LEVEL to the process-wide logger.
func (c *Config) ConfigureLogging() {
	lvl, err := logrus.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
}
