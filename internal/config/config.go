// Package config loads service settings from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the service reads at startup.
type Config struct {
	HTTPAddr  string
	DBPath    string
	StaticDir string

	LogLevel  string
	LogFormat string
	LogFile   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FCMCredentialsFile string
	FCMProjectID       string
	// NotifyCommand is an executable that receives notifications as JSON on stdin.
	NotifyCommand string

	GeminiAPIKey string
	GeminiModel  string

	MediaPipeScript string
	PythonBin       string

	DetectTimeout  time.Duration
	SessionIdleTTL time.Duration
	LogRetention   int

	RatePerSec float64
	RateBurst  int
}

// Load reads .env when present and then the process environment.
func Load() *Config {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8000"),
		DBPath:    getEnv("DB_PATH", DefaultDBPath()),
		StaticDir: getEnv("STATIC_DIR", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		FCMCredentialsFile: getEnv("FCM_CREDENTIALS_FILE", ""),
		FCMProjectID:       getEnv("FCM_PROJECT_ID", ""),
		NotifyCommand:      getEnv("NOTIFY_COMMAND", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash-001"),

		MediaPipeScript: getEnv("MEDIAPIPE_SCRIPT", ""),
		PythonBin:       getEnv("PYTHON_BIN", ""),

		DetectTimeout:  getEnvDuration("DETECT_TIMEOUT", 5*time.Second),
		SessionIdleTTL: getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		LogRetention:   getEnvInt("LOG_RETENTION", 10000),

		RatePerSec: getEnvFloat("RATE_PER_SEC", 30),
		RateBurst:  getEnvInt("RATE_BURST", 60),
	}
}

// DefaultDBPath is ~/.drishti/drishti.db, or drishti.db when the home directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "drishti.db"
	}
	return filepath.Join(home, ".drishti", "drishti.db")
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("5s") or a plain number of seconds.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultVal
}
