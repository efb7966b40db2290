package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey string
	DatabaseURL  string
	HTTPPort     string
	LogLevel     string
	JWTSecret    string
	JWTTTLHours  int

	// Agent loop tuning.
	MaxIterations      int // planner/dispatch round trips per turn
	TurnTimeoutSeconds int // wall-clock budget for one turn

	// Background recurring-expense processing.
	RecurringIntervalMinutes int
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey:             getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:              getEnv("DATABASE_URL", "makwenta.db"),
		HTTPPort:                 getEnv("HTTP_PORT", "8080"),
		LogLevel:                 getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:                getEnv("JWT_SECRET", ""),
		JWTTTLHours:              getEnvAsInt("JWT_TTL_HOURS", 24),
		MaxIterations:            getEnvAsInt("AGENT_MAX_ITERATIONS", 6),
		TurnTimeoutSeconds:       getEnvAsInt("TURN_TIMEOUT_SECONDS", 90),
		RecurringIntervalMinutes: getEnvAsInt("RECURRING_INTERVAL_MINUTES", 60),
	}

	if AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
