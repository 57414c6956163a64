package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Gemini AI
	GeminiAPIKey         string
	GeminiConcurrentReqs int

	// Storage
	StoragePath string

	// Worker
	WorkerCount int

	// CORS
	FrontendURL string

	// Client
	ServerURL    string
	PollInterval time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		DatabaseURL:          mustGetEnv("DATABASE_URL"),
		RedisURL:             mustGetEnv("REDIS_URL"),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		StoragePath:          getEnvOrDefault("STORAGE_PATH", "./uploads"),
		WorkerCount:          getEnvAsIntOrDefault("WORKER_COUNT", 3),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "*"),
		ServerURL:            getEnvOrDefault("SERVER_URL", "http://localhost:8080"),
		PollInterval:         time.Duration(getEnvAsIntOrDefault("POLL_INTERVAL_MS", 800)) * time.Millisecond,
	}

	return cfg
}

// LoadClient is Load for the client-side commands: nothing server-only is
// required, so no key is mandatory.
func LoadClient() *Config {
	godotenv.Load()

	return &Config{
		ServerURL:    getEnvOrDefault("SERVER_URL", "http://localhost:8080"),
		PollInterval: time.Duration(getEnvAsIntOrDefault("POLL_INTERVAL_MS", 800)) * time.Millisecond,
	}
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
